package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/teemow/sheetdash/internal/credentials"
	"github.com/teemow/sheetdash/internal/dashboard"
	"github.com/teemow/sheetdash/internal/instrumentation"
	"github.com/teemow/sheetdash/internal/logging"
	"github.com/teemow/sheetdash/internal/records"
	"github.com/teemow/sheetdash/internal/service"
)

// saveSuccessMessage is returned by a successful save.
const saveSuccessMessage = "Data saved to database successfully!"

// insufficientDataMessage is returned when the save range has no data rows.
const insufficientDataMessage = "Not enough data to save."

// Pipeline is the dashboard pipeline behind the API.
type Pipeline interface {
	Dashboard(ctx context.Context) (*dashboard.Dashboard, error)
	Save(ctx context.Context) (int, error)
	All(ctx context.Context) ([]records.StoredRecord, error)
}

// AuthStatus exposes the credential manager's state.
type AuthStatus interface {
	State() credentials.State
	AuthCodeURL() string
}

// APIConfig wires the API handler.
type APIConfig struct {
	Pipeline Pipeline
	Auth     AuthStatus

	// Callback receives the OAuth redirect. Nil leaves /oauth2/callback unrouted.
	Callback http.Handler

	Health      *HealthChecker
	Metrics     *instrumentation.Metrics
	RateLimiter *RateLimiter

	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool

	Logger *slog.Logger
}

// SaveResponse is the body of a successful save.
type SaveResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// RecordsResponse is the body of the stored records listing.
type RecordsResponse struct {
	Data []records.StoredRecord `json:"data"`
}

// AuthStatusResponse reports the authorization state.
type AuthStatusResponse struct {
	State   string `json:"state"`
	AuthURL string `json:"authUrl,omitempty"`
}

type api struct {
	pipeline Pipeline
	auth     AuthStatus
	logger   *slog.Logger
}

// NewHandler builds the API router.
func NewHandler(config APIConfig) http.Handler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	logger := logging.WithComponent(config.Logger, "api")
	a := &api{pipeline: config.Pipeline, auth: config.Auth, logger: logger}

	r := chi.NewRouter()
	if config.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics(config.Metrics, logger))
	r.Use(config.RateLimiter.Middleware)

	if config.Health != nil {
		config.Health.RegisterHealthEndpoints(r)
	}

	for _, prefix := range []string{"/api/sheet-data", "/sheet-data"} {
		r.Get(prefix, a.handleDashboard)
		r.Post(prefix+"/save", a.handleSave)
		r.Get(prefix+"/all", a.handleAll)
	}

	if a.auth != nil {
		r.Get("/auth/status", a.handleAuthStatus)
	}
	if config.Callback != nil {
		r.Method(http.MethodGet, "/oauth2/callback", config.Callback)
	}

	return r
}

func (a *api) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.pipeline.Dashboard(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *api) handleSave(w http.ResponseWriter, r *http.Request) {
	n, err := a.pipeline.Save(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{Message: saveSuccessMessage, Count: n})
}

func (a *api) handleAll(w http.ResponseWriter, r *http.Request) {
	recs, err := a.pipeline.All(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if recs == nil {
		recs = []records.StoredRecord{}
	}
	writeJSON(w, http.StatusOK, RecordsResponse{Data: recs})
}

func (a *api) handleAuthStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, AuthStatusResponse{
		State:   a.auth.State().String(),
		AuthURL: a.auth.AuthCodeURL(),
	})
}

// fail maps a pipeline error to a response: missing save data is the
// caller's problem (400), everything else is a server fault (500).
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrInsufficientData) {
		writeError(w, http.StatusBadRequest, insufficientDataMessage)
		return
	}
	a.logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		logging.Err(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

// requestMetrics records one HTTP metric per request, labelled by the
// matched route pattern.
func requestMetrics(metrics *instrumentation.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				} else {
					path = "unmatched"
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			metrics.RecordHTTPRequest(r.Context(), r.Method, path, status, duration)
			logger.Debug("request handled",
				slog.String("method", r.Method),
				slog.String("path", path),
				slog.Int("code", status),
				slog.Duration(logging.KeyDuration, duration))
		})
	}
}
