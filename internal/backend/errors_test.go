package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"classified", E(KindNotFound, "get", errors.New("gone")), KindNotFound},
		{"wrapped classified", fmt.Errorf("outer: %w", E(KindTimeout, "op", nil)), KindTimeout},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindTimeout},
		{"plain", errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindForStatus(t *testing.T) {
	tests := map[int]Kind{
		http.StatusBadRequest:          KindInvalidInput,
		http.StatusUnauthorized:        KindBackendUnavailable,
		http.StatusNotFound:            KindNotFound,
		http.StatusRequestTimeout:      KindTimeout,
		http.StatusTooManyRequests:     KindBackendUnavailable,
		http.StatusInternalServerError: KindBackendUnavailable,
		http.StatusGatewayTimeout:      KindTimeout,
		http.StatusTeapot:              KindUnknown,
	}
	for status, want := range tests {
		assert.Equal(t, want, KindForStatus(status), "status %d", status)
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "search: boom", E(KindUnknown, "search", errors.New("boom")).Error())
	assert.Equal(t, "boom", E(KindUnknown, "", errors.New("boom")).Error())
	assert.Equal(t, "search: timeout", E(KindTimeout, "search", nil).Error())
	assert.Equal(t, "not_found", E(KindNotFound, "", nil).Error())
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, KindTimeout, FromContext("op", context.DeadlineExceeded).Kind)
	assert.Equal(t, KindBackendUnavailable, FromContext("op", errors.New("dial tcp: refused")).Kind)

	orig := E(KindNotFound, "inner", nil)
	assert.Same(t, orig, FromContext("op", orig))
}

func TestRetryable(t *testing.T) {
	assert.False(t, KindInvalidInput.Retryable())
	assert.True(t, KindTimeout.Retryable())
	assert.True(t, KindBackendUnavailable.Retryable())
}
