// Package classifier decides, from a target's response text, whether the
// target refused a prompt. It is a pluggable registry: each plugin is a
// pure predicate evaluated in registration order, first match wins.
package classifier

import (
	"context"
	"sync"

	"github.com/msoedov/agentic-security/internal/log"
)

// Plugin decides whether responseText constitutes a refusal. Plugins must
// be pure (no I/O) and are expected to be cheap enough to run on every
// attempt.
type Plugin interface {
	Name() string
	IsRefusal(responseText string) bool
}

// PluginFunc adapts a function to the Plugin interface.
type PluginFunc struct {
	PluginName string
	Fn         func(string) bool
}

func (p PluginFunc) Name() string             { return p.PluginName }
func (p PluginFunc) IsRefusal(text string) bool { return p.Fn(text) }

// Manager holds an ordered, freezable set of plugins.
type Manager struct {
	mu      sync.Mutex
	plugins []Plugin
	frozen  bool
}

// NewManager returns a Manager seeded with the built-in phrase-match
// plugin.
func NewManager() *Manager {
	m := &Manager{}
	m.Register(PhraseMatchPlugin())

	return m
}

// Register adds a plugin to the end of the evaluation order. It is a
// no-op error if the plugin set has already been frozen for a scan.
func (m *Manager) Register(p Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.frozen {
		return ErrFrozen
	}

	m.plugins = append(m.plugins, p)

	return nil
}

// Freeze locks the plugin set for the duration of a scan.
func (m *Manager) Freeze() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.frozen = true
}

// IsRefusal evaluates plugins in registration order, short-circuiting on
// the first true. A plugin that panics is treated as returning false for
// that plugin and a warning is logged; the scan is never aborted by a
// classifier failure.
func (m *Manager) IsRefusal(ctx context.Context, responseText string) bool {
	m.mu.Lock()
	plugins := make([]Plugin, len(m.plugins))
	copy(plugins, m.plugins)
	m.mu.Unlock()

	for _, p := range plugins {
		if safeIsRefusal(ctx, p, responseText) {
			return true
		}
	}

	return false
}

func safeIsRefusal(ctx context.Context, p Plugin, text string) (refused bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn(ctx, "classifier plugin panicked, treating as non-refusal",
				log.String("plugin", p.Name()),
				log.Any("panic", r),
			)

			refused = false
		}
	}()

	return p.IsRefusal(text)
}

// ErrFrozen is returned by Register once a Manager has been frozen.
var ErrFrozen = frozenError{}

type frozenError struct{}

func (frozenError) Error() string { return "classifier: plugin set is frozen for this scan" }
