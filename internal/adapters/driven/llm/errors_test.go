package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

func response(status int, retryAfter string) *http.Response {
	h := http.Header{}
	if retryAfter != "" {
		h.Set("Retry-After", retryAfter)
	}
	return &http.Response{StatusCode: status, Header: h}
}

func TestResponseError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
		quota     bool
	}{
		{"ok", http.StatusOK, "", false, false},
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, true, false},
		{"timeout", http.StatusRequestTimeout, "", true, false},
		{"server error", http.StatusInternalServerError, "boom", true, false},
		{"overloaded", 529, "overloaded_error", true, false},
		{"payment required", http.StatusPaymentRequired, "", false, true},
		{"openai quota", http.StatusTooManyRequests, `{"error":{"type":"insufficient_quota"}}`, false, true},
		{"credit balance", http.StatusBadRequest, "Your credit balance is too low", false, true},
		{"bad request", http.StatusBadRequest, "bad model", false, false},
		{"unauthorised", http.StatusUnauthorized, "invalid key", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ResponseError("openai", response(tt.status, ""), []byte(tt.body))
			if tt.status == http.StatusOK {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.transient, errors.Is(err, domain.ErrTransient))
			assert.Equal(t, tt.quota, errors.Is(err, domain.ErrQuotaExceeded))

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Contains(t, err.Error(), "openai")
		})
	}
}

func TestResponseError_TruncatesBody(t *testing.T) {
	err := ResponseError("ollama", response(http.StatusBadRequest, ""), []byte(strings.Repeat("x", 2000)))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Body, maxBodyInError+3)
}

func TestResponseError_RetryAfter(t *testing.T) {
	err := ResponseError("anthropic", response(http.StatusTooManyRequests, "7"), nil)

	var ra interface{ RetryAfter() time.Duration }
	require.ErrorAs(t, err, &ra)
	assert.Equal(t, 7*time.Second, ra.RetryAfter())
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Duration(0), parseRetryAfter("", now))
	assert.Equal(t, 3*time.Second, parseRetryAfter(" 3 ", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-1", now))
	assert.Equal(t, 30*time.Second, parseRetryAfter(now.Add(30*time.Second).Format(http.TimeFormat), now))
	assert.Equal(t, time.Duration(0), parseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon", now))
}

func TestTransportError(t *testing.T) {
	netErr := errors.New("connection refused")

	err := TransportError(context.Background(), "ollama", netErr)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.ErrorIs(t, err, netErr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = TransportError(ctx, "ollama", netErr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrTransient)

	// The HTTP client timed out while the caller still waits.
	err = TransportError(context.Background(), "ollama", context.DeadlineExceeded)
	assert.ErrorIs(t, err, domain.ErrTransient)
}
