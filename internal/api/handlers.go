package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"aisri/internal/normalize"
	"aisri/internal/service"
	"aisri/internal/store"
)

// maxPayloadBytes bounds raw activity payloads
const maxPayloadBytes = 1 << 20

// initCoachRouter registers the /api/v1 routes
func (s *Server) initCoachRouter(e *gin.Engine) {
	g := e.Group("/api/v1")
	{
		g.POST("athletes", s.registerAthlete)
		g.GET("athletes/:id", s.getAthlete)
		g.GET("athletes/:id/aisri", s.getAISRI)
		g.POST("athletes/:id/aisri/calculate", s.calculateAISRI)
		g.GET("athletes/:id/readiness", s.getReadiness)
		g.GET("athletes/:id/activities", s.listActivities)
		g.POST("athletes/:id/activities", s.ingestActivity)
		g.POST("athletes/:id/assessments", s.recordAssessment)
		g.GET("athletes/:id/assignments", s.listAssignments)
		g.POST("request_workout", s.requestWorkout)
		g.POST("record_completion", s.recordCompletion)
	}
}

// handle runs fn and writes its result as JSON with status, or the error
func handle[T any](c *gin.Context, status int, fn func(*gin.Context) (T, error)) {
	rsp, err := fn(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(status, rsp)
}

// bindJSON decodes the request body into v, reporting malformed input
func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return fmt.Errorf("decoding request: %v: %w", err, service.ErrInvalidInput)
	}
	return nil
}

// queryInt parses an optional integer query parameter
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, service.ErrInvalidInput)
	}
	return n, nil
}

func (s *Server) registerAthlete(c *gin.Context) {
	handle(c, http.StatusCreated, func(c *gin.Context) (*store.Athlete, error) {
		var a store.Athlete
		if err := bindJSON(c, &a); err != nil {
			return nil, err
		}
		a.ID = ""
		if err := s.coach.RegisterAthlete(c.Request.Context(), &a); err != nil {
			return nil, err
		}
		return &a, nil
	})
}

func (s *Server) getAthlete(c *gin.Context) {
	handle(c, http.StatusOK, func(c *gin.Context) (*store.Athlete, error) {
		return s.coach.GetAthlete(c.Request.Context(), c.Param("id"))
	})
}

func (s *Server) getAISRI(c *gin.Context) {
	handle(c, http.StatusOK, func(c *gin.Context) (*service.AISRIView, error) {
		history, err := queryInt(c, "history", 0)
		if err != nil {
			return nil, err
		}
		return s.coach.GetAISRI(c.Request.Context(), c.Param("id"), history)
	})
}

// CalculateResponse acknowledges an enqueued recompute
type CalculateResponse struct {
	Success             bool      `json:"success"`
	EstimatedCompletion time.Time `json:"estimated_completion"`
}

func (s *Server) calculateAISRI(c *gin.Context) {
	handle(c, http.StatusAccepted, func(c *gin.Context) (*CalculateResponse, error) {
		id := c.Param("id")
		if _, err := s.coach.GetAthlete(c.Request.Context(), id); err != nil {
			return nil, err
		}
		eta, err := s.coach.EnqueueDailyUpdate(id)
		if err != nil {
			return nil, err
		}
		return &CalculateResponse{Success: true, EstimatedCompletion: eta}, nil
	})
}

func (s *Server) getReadiness(c *gin.Context) {
	handle(c, http.StatusOK, func(c *gin.Context) (*service.Readiness, error) {
		return s.coach.GetReadiness(c.Request.Context(), c.Param("id"))
	})
}

// ActivityPage is one page of an athlete's activities
type ActivityPage struct {
	Activities []store.Activity `json:"activities"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
}

func (s *Server) listActivities(c *gin.Context) {
	handle(c, http.StatusOK, func(c *gin.Context) (*ActivityPage, error) {
		limit, err := queryInt(c, "limit", service.DefaultPageSize)
		if err != nil {
			return nil, err
		}
		offset, err := queryInt(c, "offset", 0)
		if err != nil {
			return nil, err
		}
		activities, err := s.coach.ListActivities(c.Request.Context(), c.Param("id"), limit, offset)
		if err != nil {
			return nil, err
		}
		if activities == nil {
			activities = []store.Activity{}
		}
		return &ActivityPage{Activities: activities, Limit: limit, Offset: offset}, nil
	})
}

// IngestResponse reports a stored provider payload
type IngestResponse struct {
	Activity *store.Activity `json:"activity"`
	Inserted bool            `json:"inserted"`
}

// ingestActivity stores a raw provider payload. The provider is named by
// the provider query parameter.
func (s *Server) ingestActivity(c *gin.Context) {
	handle(c, http.StatusOK, func(c *gin.Context) (*IngestResponse, error) {
		provider := c.DefaultQuery("provider", normalize.ProviderManual)
		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes))
		if err != nil {
			return nil, fmt.Errorf("reading payload: %w", err)
		}
		a, inserted, err := s.coach.IngestPayload(c.Request.Context(), c.Param("id"), provider, payload)
		if err != nil {
			return nil, err
		}
		return &IngestResponse{Activity: a, Inserted: inserted}, nil
	})
}

func (s *Server) recordAssessment(c *gin.Context) {
	handle(c, http.StatusCreated, func(c *gin.Context) (*store.ReadinessAssessment, error) {
		var in service.AssessmentInput
		if err := bindJSON(c, &in); err != nil {
			return nil, err
		}
		return s.coach.RecordAssessment(c.Request.Context(), c.Param("id"), in)
	})
}

func (s *Server) listAssignments(c *gin.Context) {
	handle(c, http.StatusOK, func(c *gin.Context) ([]store.WorkoutAssignment, error) {
		days, err := queryInt(c, "days", 7)
		if err != nil {
			return nil, err
		}
		out, err := s.coach.ListAssignments(c.Request.Context(), c.Param("id"), days)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = []store.WorkoutAssignment{}
		}
		return out, nil
	})
}

func (s *Server) requestWorkout(c *gin.Context) {
	handle(c, http.StatusOK, func(c *gin.Context) (*service.WorkoutDecision, error) {
		var req service.WorkoutRequest
		if err := bindJSON(c, &req); err != nil {
			return nil, err
		}
		return s.coach.RequestWorkout(c.Request.Context(), req)
	})
}

// CompletionRequest is the body of POST record_completion
type CompletionRequest struct {
	AssignmentID  string                `json:"assignment_id"`
	AthleteID     string                `json:"athlete_id"`
	ResultPayload service.ResultPayload `json:"result_payload"`
}

func (s *Server) recordCompletion(c *gin.Context) {
	handle(c, http.StatusOK, func(c *gin.Context) (*service.CompletionOutcome, error) {
		var req CompletionRequest
		if err := bindJSON(c, &req); err != nil {
			return nil, err
		}
		return s.coach.RecordCompletion(c.Request.Context(), req.AssignmentID, req.AthleteID, req.ResultPayload)
	})
}
