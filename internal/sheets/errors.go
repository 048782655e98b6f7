package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Kind classifies a fetch failure.
type Kind string

const (
	KindTransport    Kind = "transport"
	KindUnauthorized Kind = "unauthorized"
	KindRateLimited  Kind = "rate_limited"
	KindTimeout      Kind = "timeout"
	KindMalformed    Kind = "malformed"
)

// FetchError is returned by FetchRanges when the batched read fails.
type FetchError struct {
	Kind Kind
	// StatusCode is the HTTP status returned by the API, or 0 when no
	// response was received.
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sheets fetch failed (%s, HTTP %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sheets fetch failed (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// classify wraps an error from the Sheets client into a FetchError.
func classify(ctx context.Context, err error) *FetchError {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		fe := &FetchError{Kind: KindTransport, StatusCode: gerr.Code, Err: err}
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			fe.Kind = KindUnauthorized
		case http.StatusTooManyRequests:
			fe.Kind = KindRateLimited
		}
		return fe
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &FetchError{Kind: KindUnauthorized, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return &FetchError{Kind: KindTimeout, Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &FetchError{Kind: KindMalformed, Err: err}
	}

	return &FetchError{Kind: KindTransport, Err: err}
}

// IsUnauthorized reports whether err is a fetch failure caused by the API
// rejecting the credential.
func IsUnauthorized(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindUnauthorized
}

// IsRateLimited reports whether err is a fetch failure caused by rate limiting.
func IsRateLimited(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindRateLimited
}
