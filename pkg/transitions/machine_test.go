package transitions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	m := New(map[string][]string{
		"not_connected": {"connecting"},
		"connecting":    {"connected", "error", "not_connected"},
		"error":         {"connecting"},
		"connected":     {},
	})

	assert.True(t, m.CanTransition("not_connected", "connecting"))
	assert.True(t, m.CanTransition("connecting", "connected"))
	assert.True(t, m.CanTransition("connecting", "error"))
	assert.True(t, m.CanTransition("connecting", "not_connected"))
	assert.True(t, m.CanTransition("error", "connecting"))

	// A status never jumps straight from not_connected to connected.
	assert.False(t, m.CanTransition("not_connected", "connected"))
	assert.False(t, m.CanTransition("connected", "connecting"))
	assert.False(t, m.CanTransition("connected", "error"))
	assert.False(t, m.CanTransition("unknown", "connecting"))
}

func TestAllowedFrom(t *testing.T) {
	m := New(map[string][]string{
		"connecting": {"connected", "error", "not_connected"},
		"connected":  {},
	})

	assert.ElementsMatch(t, []string{"connected", "error", "not_connected"}, m.AllowedFrom("connecting"))
	assert.Empty(t, m.AllowedFrom("connected"))
	assert.Empty(t, m.AllowedFrom("missing"))
}
