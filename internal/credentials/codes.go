package credentials

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// CodeProvider obtains an authorization code from the resource owner.
// Implementations must return when ctx is done.
type CodeProvider interface {
	AuthorizationCode(ctx context.Context, authURL, state string) (string, error)
}

// CodeProviderFunc adapts a function to CodeProvider.
type CodeProviderFunc func(ctx context.Context, authURL, state string) (string, error)

// AuthorizationCode calls f.
func (f CodeProviderFunc) AuthorizationCode(ctx context.Context, authURL, state string) (string, error) {
	return f(ctx, authURL, state)
}

// PromptCodeProvider prints the consent URL and reads the code the operator
// pastes back, one line from In. In is read by a single goroutine started
// on first use, so a wait that ends with ctx leaves the next line for the
// next call.
type PromptCodeProvider struct {
	In  io.Reader
	Out io.Writer

	once  sync.Once
	lines chan promptLine
}

type promptLine struct {
	text string
	err  error
}

// readLines feeds lines from In until it fails, then reports the failure
// and closes lines.
func (p *PromptCodeProvider) readLines() {
	defer close(p.lines)

	scanner := bufio.NewScanner(p.In)
	for scanner.Scan() {
		p.lines <- promptLine{text: strings.TrimSpace(scanner.Text())}
	}
	err := scanner.Err()
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	p.lines <- promptLine{err: fmt.Errorf("failed to read authorization code: %w", err)}
}

// AuthorizationCode implements CodeProvider.
func (p *PromptCodeProvider) AuthorizationCode(ctx context.Context, authURL, _ string) (string, error) {
	p.once.Do(func() {
		p.lines = make(chan promptLine)
		go p.readLines()
	})

	fmt.Fprintf(p.Out, "Authorize this app by visiting this url:\n%s\n", authURL)
	fmt.Fprint(p.Out, "Enter the code from that page here: ")

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			return "", fmt.Errorf("failed to read authorization code: %w", io.ErrUnexpectedEOF)
		}
		if line.err != nil {
			return "", line.err
		}
		if line.text == "" {
			return "", errors.New("empty authorization code")
		}
		return line.text, nil
	}
}

type callbackResult struct {
	code string
	err  error
}

// CallbackCodeProvider receives the code on the OAuth redirect URI. Mount
// it as the handler for that path; AuthorizationCode blocks until a request
// carrying the matching state arrives.
type CallbackCodeProvider struct {
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]chan callbackResult
}

// NewCallbackCodeProvider returns a provider with no pending authorizations.
func NewCallbackCodeProvider(logger *slog.Logger) *CallbackCodeProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &CallbackCodeProvider{
		logger:  logger,
		pending: make(map[string]chan callbackResult),
	}
}

// AuthorizationCode implements CodeProvider.
func (p *CallbackCodeProvider) AuthorizationCode(ctx context.Context, authURL, state string) (string, error) {
	ch := make(chan callbackResult, 1)

	p.mu.Lock()
	p.pending[state] = ch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.pending, state)
		p.mu.Unlock()
	}()

	p.logger.Info("authorization required, open the consent URL in a browser",
		"component", "credentials",
		"auth_url", authURL)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.code, r.err
	}
}

// Pending reports whether an authorization is waiting for its callback.
func (p *CallbackCodeProvider) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending) > 0
}

// ServeHTTP handles the redirect from the consent screen.
func (p *CallbackCodeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	state := query.Get("state")

	p.mu.Lock()
	ch, ok := p.pending[state]
	if ok {
		delete(p.pending, state)
	}
	p.mu.Unlock()

	if !ok {
		http.Error(w, "unknown or expired authorization state", http.StatusBadRequest)
		return
	}

	var res callbackResult
	switch {
	case query.Get("error") != "":
		res.err = fmt.Errorf("consent denied: %s", query.Get("error"))
	case query.Get("code") == "":
		res.err = errors.New("callback carried no authorization code")
	default:
		res.code = query.Get("code")
	}
	ch <- res

	if res.err != nil {
		http.Error(w, res.err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Authorization received. You may close this window.\n")
}
