package llm

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

// maxBodyInError caps how much of a response body is kept in an error.
const maxBodyInError = 512

// quotaMarkers are body fragments providers use for exhausted usage caps.
var quotaMarkers = []string{
	"insufficient_quota",
	"quota exceeded",
	"billing",
	"credit balance",
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string

	kind       error
	retryAfter time.Duration
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: API returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Unwrap returns the domain inference error the status maps to, if any.
func (e *StatusError) Unwrap() error {
	return e.kind
}

// RetryAfter returns the server's requested delay, or zero.
func (e *StatusError) RetryAfter() time.Duration {
	return e.retryAfter
}

// ResponseError builds the error for a non-2xx response. It returns nil
// for 2xx statuses.
func ResponseError(provider string, resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxBodyInError {
		text = text[:maxBodyInError] + "..."
	}

	e := &StatusError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       text,
		retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}

	switch {
	case resp.StatusCode == http.StatusPaymentRequired || isQuotaBody(text):
		e.kind = domain.ErrQuotaExceeded
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode >= 500:
		e.kind = domain.ErrTransient
	}
	return e
}

// TransportError wraps a failed round trip. When the caller's context is
// done its error is returned instead, so cancellation is not retried. A
// client-side timeout with a live context counts as transient.
func TransportError(ctx context.Context, provider string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", provider, ctxErr)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrTransient, provider, err)
}

func isQuotaBody(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range quotaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// parseRetryAfter reads a Retry-After header in delta-seconds or HTTP-date form.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
