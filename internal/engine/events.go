// Package engine drives a single scan: for each selected dataset it
// dispatches prompts through a bounded worker pool, classifies the
// target's responses, and streams progress back over a channel that the
// scan controller returns to its caller. Events carry JSON tags for
// callers that encode them; this package does no encoding itself.
package engine

// EventKind discriminates the three shapes a ScanProgressEvent can take.
type EventKind string

const (
	EventTick   EventKind = "tick"
	EventStatus EventKind = "status"
	EventError  EventKind = "error"
)

// ModuleStatus names the terminal (and initial) states of a module's
// state machine: init -> running -> {done, stopped, errored,
// budget-exhausted, exhausted}.
type ModuleStatus string

const (
	StatusInit            ModuleStatus = "init"
	StatusRunning         ModuleStatus = "running"
	StatusDone            ModuleStatus = "done"
	StatusStopped         ModuleStatus = "stopped"
	StatusErrored         ModuleStatus = "errored"
	StatusBudgetExhausted ModuleStatus = "budget-exhausted"
	StatusExhausted       ModuleStatus = "exhausted"
)

// ScanProgressEvent is one line of the NDJSON progress stream. Only the
// fields relevant to Kind are populated; the rest are left at their zero
// value and omitted on encode.
type ScanProgressEvent struct {
	Kind   EventKind `json:"kind"`
	Module string    `json:"module"`

	Tokens      int     `json:"tokens,omitempty"`
	Cost        float64 `json:"cost,omitempty"`
	Progress    float64 `json:"progress,omitempty"`
	FailureRate float64 `json:"failureRate,omitempty"`

	// Fallbacks is the number of times the module's policy has degraded
	// to a fallback strategy (policy.FallbackReporter), if it reports one.
	Fallbacks int `json:"fallbacks,omitempty"`

	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

func tickEvent(module string, a *moduleAccounting, total, fallbacks int) ScanProgressEvent {
	return ScanProgressEvent{
		Kind:        EventTick,
		Module:      module,
		Tokens:      a.tokens,
		Cost:        a.cost,
		Progress:    a.progress(total),
		FailureRate: a.failureRate(),
		Fallbacks:   fallbacks,
	}
}

func statusEvent(module string, status ModuleStatus, fallbacks int) ScanProgressEvent {
	return ScanProgressEvent{Kind: EventStatus, Module: module, Status: string(status), Fallbacks: fallbacks}
}

func errorEvent(module, message string) ScanProgressEvent {
	return ScanProgressEvent{Kind: EventError, Module: module, Error: message}
}
