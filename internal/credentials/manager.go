package credentials

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/teemow/sheetdash/internal/instrumentation"
	"github.com/teemow/sheetdash/internal/logging"
)

// DefaultAuthTimeout bounds how long an interactive authorization may wait
// for the code.
const DefaultAuthTimeout = 5 * time.Minute

// State is the manager's authorization state.
type State int

const (
	StateNoToken State = iota
	StatePending
	StateAuthorized
)

func (s State) String() string {
	switch s {
	case StateNoToken:
		return "no_token"
	case StatePending:
		return "pending_user_authorization"
	case StateAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Manager owns the credential and hands out token sources built from it.
type Manager struct {
	config      *oauth2.Config
	store       TokenStore
	codes       CodeProvider
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	httpClient  *http.Client
	authTimeout time.Duration

	flight singleflight.Group

	mu      sync.Mutex
	state   State
	token   *oauth2.Token
	authURL string
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics records authorization and refresh outcomes.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithAuthTimeout bounds the interactive authorization wait.
func WithAuthTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.authTimeout = d
		}
	}
}

// WithHTTPClient sets the client used for code exchange and token refresh.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) { m.httpClient = client }
}

// NewManager creates a manager in the NoToken state. Nothing is read until
// the first EnsureAuthorized call.
func NewManager(config *oauth2.Config, store TokenStore, codes CodeProvider, opts ...Option) *Manager {
	m := &Manager{
		config:      config,
		store:       store,
		codes:       codes,
		logger:      slog.Default(),
		authTimeout: DefaultAuthTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.WithComponent(m.logger, "credentials")
	return m
}

// State returns the current authorization state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// AuthCodeURL returns the consent URL while an authorization is pending,
// and an empty string otherwise.
func (m *Manager) AuthCodeURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StatePending {
		return ""
	}
	return m.authURL
}

// Reset drops the in-memory credential. The next EnsureAuthorized call
// consults the store again.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateNoToken
	m.token = nil
	m.authURL = ""
}

// EnsureAuthorized returns a token source backed by a valid credential,
// loading it from the store or running the authorization grant as needed.
// Concurrent callers share one authorization; a caller whose ctx ends stops
// waiting but does not abort the shared flow.
func (m *Manager) EnsureAuthorized(ctx context.Context) (oauth2.TokenSource, error) {
	if token := m.current(); token != nil {
		return m.tokenSource(ctx, token), nil
	}

	ch := m.flight.DoChan("authorize", func() (any, error) {
		return m.authorize(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, &AuthorizationError{Op: OpWait, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return m.tokenSource(ctx, res.Val.(*oauth2.Token)), nil
	}
}

func (m *Manager) current() *oauth2.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateAuthorized {
		return m.token
	}
	return nil
}

func (m *Manager) authorize(ctx context.Context) (*oauth2.Token, error) {
	if token := m.current(); token != nil {
		return token, nil
	}

	token, err := m.store.Load()
	switch {
	case err == nil:
		m.setAuthorized(token)
		m.logger.Debug("loaded persisted credential", logging.State(StateAuthorized))
		return token, nil
	case errors.Is(err, ErrNoToken):
		m.logger.Info("no valid persisted credential, starting authorization", logging.Err(err))
	default:
		return nil, &AuthorizationError{Op: OpLoad, Err: err}
	}

	ctx, cancel := context.WithTimeout(m.clientContext(ctx), m.authTimeout)
	defer cancel()

	state := uuid.NewString()
	authURL := m.config.AuthCodeURL(state, oauth2.AccessTypeOffline)

	m.mu.Lock()
	m.state = StatePending
	m.authURL = authURL
	m.mu.Unlock()

	token, err = m.grant(ctx, authURL, state)
	if err != nil {
		m.mu.Lock()
		m.state = StateNoToken
		m.authURL = ""
		m.mu.Unlock()

		m.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		m.logger.Error("authorization failed", logging.Status(logging.StatusError), logging.Err(err))
		return nil, err
	}

	m.setAuthorized(token)
	m.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	m.logger.Info("authorization complete", logging.State(StateAuthorized))
	return token, nil
}

func (m *Manager) grant(ctx context.Context, authURL, state string) (*oauth2.Token, error) {
	code, err := m.codes.AuthorizationCode(ctx, authURL, state)
	if err != nil {
		return nil, &AuthorizationError{Op: OpCode, Err: err}
	}

	token, err := m.config.Exchange(ctx, code)
	if err != nil {
		return nil, &AuthorizationError{Op: OpExchange, Err: err}
	}

	if err := m.store.Save(token); err != nil {
		return nil, &AuthorizationError{Op: OpSave, Err: err}
	}
	return token, nil
}

func (m *Manager) setAuthorized(token *oauth2.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateAuthorized
	m.token = token
	m.authURL = ""
}

func (m *Manager) clientContext(ctx context.Context) context.Context {
	if m.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

func (m *Manager) tokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return &persistingTokenSource{
		base:    m.config.TokenSource(m.clientContext(ctx), token),
		manager: m,
		last:    token.AccessToken,
	}
}

// persistingTokenSource writes refreshed tokens back to the store.
type persistingTokenSource struct {
	base    oauth2.TokenSource
	manager *Manager

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	m := s.manager
	if err != nil {
		m.metrics.RecordOAuthTokenRefresh(context.Background(), instrumentation.OAuthResultFailure)
		return nil, err
	}

	s.mu.Lock()
	refreshed := token.AccessToken != s.last
	s.last = token.AccessToken
	s.mu.Unlock()

	if refreshed {
		m.setAuthorized(token)
		m.metrics.RecordOAuthTokenRefresh(context.Background(), instrumentation.OAuthResultSuccess)
		if err := m.store.Save(token); err != nil {
			m.logger.Warn("failed to persist refreshed credential", logging.Err(err))
		} else {
			m.logger.Debug("persisted refreshed credential", "access_token", logging.SanitizeToken(token.AccessToken))
		}
	}
	return token, nil
}
