package capability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"content-studio-be/pkg/llm"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "explicit transient", err: &TransientError{Err: errors.New("x")}, want: true},
		{name: "wrapped transient", err: fmt.Errorf("call: %w", &TransientError{Err: errors.New("x")}), want: true},
		{name: "explicit permanent", err: &PermanentError{Err: errors.New("x")}, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "cancelled", err: context.Canceled, want: false},
		{name: "llm 429", err: &llm.StatusError{StatusCode: 429}, want: true},
		{name: "llm 503", err: &llm.StatusError{StatusCode: 503}, want: true},
		{name: "llm 400", err: &llm.StatusError{StatusCode: 400}, want: false},
		{name: "plain error", err: errors.New("invalid prompt"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestFromStatus(t *testing.T) {
	assert.True(t, IsTransient(FromStatus(http.StatusTooManyRequests, "slow down")))
	assert.True(t, IsTransient(FromStatus(http.StatusBadGateway, "")))
	assert.False(t, IsTransient(FromStatus(http.StatusUnprocessableEntity, "blocked")))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{name: "rate limited", err: FromStatus(429, "quota"), contains: "busy"},
		{name: "blocked", err: FromStatus(422, "blocked by safety filter"), contains: "content filter"},
		{name: "timeout", err: context.DeadlineExceeded, contains: "too long"},
		{name: "auth", err: FromStatus(401, "bad key"), contains: "credentials"},
		{name: "server", err: FromStatus(500, "oops"), contains: "unavailable"},
		{name: "other", err: errors.New("boom"), contains: "try again"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, UserMessage(tt.err), tt.contains)
		})
	}
}
