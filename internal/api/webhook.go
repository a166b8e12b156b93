package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"aisri/internal/service"
	"aisri/internal/strava"
)

// SignatureHeader carries the hex HMAC-SHA256 of the event body as
// "sha256=<hex>"
const SignatureHeader = "X-Hub-Signature-256"

const maxEventBytes = 64 << 10

func (s *Server) initWebhookRouter(e *gin.Engine) {
	e.GET("/webhooks/strava", s.verifySubscription)
	e.POST("/webhooks/strava", s.receiveEvent)
}

// verifySubscription answers Strava's subscription challenge
func (s *Server) verifySubscription(c *gin.Context) {
	if c.Query("hub.mode") != "subscribe" || c.Query("hub.verify_token") != s.webhook.VerifyToken || s.webhook.VerifyToken == "" {
		abortWithError(c, fmt.Errorf("subscription verification failed: %w", errForbidden))
		return
	}
	c.JSON(http.StatusOK, gin.H{"hub.challenge": c.Query("hub.challenge")})
}

// receiveEvent acknowledges an event immediately and processes it in the
// background
func (s *Server) receiveEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBytes))
	if err != nil {
		abortWithError(c, fmt.Errorf("reading event: %w", err))
		return
	}
	if s.webhook.Secret != "" && !validSignature(s.webhook.Secret, body, c.GetHeader(SignatureHeader)) {
		abortWithError(c, fmt.Errorf("bad event signature: %w", errForbidden))
		return
	}

	var ev strava.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		abortWithError(c, fmt.Errorf("decoding event: %v: %w", err, service.ErrInvalidInput))
		return
	}

	started := s.goEvent(func(ctx context.Context) {
		if err := s.events.HandleEvent(ctx, ev); err != nil {
			s.logger.Error("webhook event failed",
				"object_id", ev.ObjectID, "owner_id", ev.OwnerID, "aspect_type", ev.AspectType, "error", err)
		}
	})
	if !started {
		abortWithError(c, fmt.Errorf("server is closing: %w", service.ErrTransient))
		return
	}
	c.Status(http.StatusOK)
}

// validSignature checks header against the HMAC-SHA256 of body under secret
func validSignature(secret string, body []byte, header string) bool {
	got, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	sig, err := hex.DecodeString(got)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}

// Sign returns the SignatureHeader value for body under secret
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
