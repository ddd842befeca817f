package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhraseMatchPlugin(t *testing.T) {
	m := NewManager()

	assert.True(t, m.IsRefusal(context.Background(), "I'm sorry, I can't help with that."))
	assert.False(t, m.IsRefusal(context.Background(), ""))
	assert.False(t, m.IsRefusal(context.Background(), "Sure, here is how to do it."))
}

func TestManager_RegistrationOrderShortCircuits(t *testing.T) {
	m := NewManager()

	var secondCalled bool

	require.NoError(t, m.Register(PluginFunc{
		PluginName: "always-true",
		Fn:         func(string) bool { return true },
	}))
	require.NoError(t, m.Register(PluginFunc{
		PluginName: "spy",
		Fn: func(string) bool {
			secondCalled = true
			return false
		},
	}))

	assert.True(t, m.IsRefusal(context.Background(), "anything"))
	assert.False(t, secondCalled)
}

func TestManager_FreezeRejectsRegistration(t *testing.T) {
	m := NewManager()
	m.Freeze()

	err := m.Register(PluginFunc{PluginName: "late", Fn: func(string) bool { return true }})
	assert.ErrorIs(t, err, ErrFrozen)
}

func TestManager_PanicIsolation(t *testing.T) {
	m := NewManager()

	require.NoError(t, m.Register(PluginFunc{
		PluginName: "panics",
		Fn:         func(string) bool { panic("boom") },
	}))

	assert.NotPanics(t, func() {
		assert.False(t, m.IsRefusal(context.Background(), "anything that doesn't match the built-in phrases"))
	})
}
