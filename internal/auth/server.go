package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	// CallbackPort is where the local flow listens for Strava's redirect
	CallbackPort = 8089
	// AuthTimeout bounds how long the athlete has to approve access
	AuthTimeout = 5 * time.Minute
)

var (
	ErrStateMismatch = errors.New("oauth state mismatch")
	ErrAccessDenied  = errors.New("strava access denied")
)

// CallbackURL is the redirect registered with Strava for the local flow
func CallbackURL() string {
	return fmt.Sprintf("http://localhost:%d/callback", CallbackPort)
}

const linkedPage = `<!DOCTYPE html>
<html>
<head><title>AISRI linked</title></head>
<body style="font-family: system-ui; text-align: center; margin-top: 20vh;">
<h1>Strava linked</h1>
<p>The coach can now read this athlete's activities. Return to the terminal.</p>
</body>
</html>`

// callback is what the redirect delivered: a code or the reason there is none
type callback struct {
	code string
	err  error
}

// Flow links one athlete's Strava account through a browser redirect to a
// short-lived local listener.
type Flow struct {
	Config  *oauth2.Config
	Addr    string
	Timeout time.Duration
	Out     io.Writer
}

// Authenticate runs the local flow on CallbackPort, writing prompts to out
func Authenticate(ctx context.Context, cfg *oauth2.Config, out io.Writer) (*AuthResult, error) {
	f := &Flow{
		Config:  cfg,
		Addr:    fmt.Sprintf(":%d", CallbackPort),
		Timeout: AuthTimeout,
		Out:     out,
	}
	return f.Run(ctx)
}

// Run waits for the redirect, then exchanges the code for tokens
func (f *Flow) Run(ctx context.Context) (*AuthResult, error) {
	state, err := newState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	ln, err := net.Listen("tcp", f.Addr)
	if err != nil {
		return nil, fmt.Errorf("starting callback listener: %w", err)
	}

	results := make(chan callback, 1)
	mux := http.NewServeMux()
	mux.Handle("/callback", callbackHandler(state, results))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			results <- callback{err: fmt.Errorf("callback listener: %w", err)}
		}
	}()
	defer stopServer(srv)

	fmt.Fprintf(f.Out, "\nOpen this URL to link Strava:\n\n  %s\n\nWaiting for approval...\n",
		f.Config.AuthCodeURL(state, oauth2.AccessTypeOffline))

	waitCtx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	var got callback
	select {
	case got = <-results:
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("no approval within %v", f.Timeout)
	}
	if got.err != nil {
		return nil, got.err
	}
	return f.exchange(ctx, got.code)
}

func (f *Flow) exchange(ctx context.Context, code string) (*AuthResult, error) {
	token, err := f.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}
	return &AuthResult{Token: token, AthleteID: ExtractAthleteID(token)}, nil
}

// callbackHandler delivers exactly one result; later requests are answered
// but dropped
func callbackHandler(state string, results chan<- callback) http.Handler {
	deliver := func(cb callback) {
		select {
		case results <- cb:
		default:
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			deliver(callback{err: ErrStateMismatch})
			http.Error(w, "state mismatch", http.StatusBadRequest)
		case q.Get("error") != "":
			deliver(callback{err: fmt.Errorf("%w: %s", ErrAccessDenied, q.Get("error"))})
			http.Error(w, "access denied", http.StatusBadRequest)
		case q.Get("code") == "":
			deliver(callback{err: errors.New("callback carried no code")})
			http.Error(w, "missing code", http.StatusBadRequest)
		default:
			w.Header().Set("Content-Type", "text/html")
			io.WriteString(w, linkedPage)
			deliver(callback{code: q.Get("code")})
		}
	})
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func stopServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
