package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypingThrottlePerSender(t *testing.T) {
	tt := newTypingThrottle(time.Hour)

	assert.True(t, tt.allow("u1", true))
	assert.False(t, tt.allow("u1", true))

	// Independent per sender.
	assert.True(t, tt.allow("u2", true))

	// Stop signals bypass the throttle.
	assert.True(t, tt.allow("u1", false))
}

func TestTypingThrottleForgetPrunes(t *testing.T) {
	tt := newTypingThrottle(time.Hour)

	tt.allow("u1", true)
	tt.allow("u2", true)
	assert.Equal(t, 2, tt.size())

	// Disconnect cleanup removes the sender's entry and resets throttling.
	tt.forget("u1")
	assert.Equal(t, 1, tt.size())
	assert.True(t, tt.allow("u1", true))

	// Forgetting an unknown sender is harmless.
	tt.forget("ghost")
	assert.Equal(t, 2, tt.size())
}
