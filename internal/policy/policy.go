// Package policy implements prompt-selection strategies: naive iteration,
// uniform random sampling, Q-learning, a cloud-delegated selector, and a
// Bayesian optimizer over a single real-valued attack parameter.
package policy

import (
	"context"

	"github.com/cespare/xxhash/v2"

	"github.com/msoedov/agentic-security/internal/dataset"
)

// DefaultCycleGuardCapacity is the bounded FIFO size used when a caller
// does not configure one.
const DefaultCycleGuardCapacity = 300

// Input is what a Policy needs to pick the next prompt: the dataset's
// fixed prompt pool and, after the first attempt, the prompt that was
// just sent.
type Input struct {
	Pool       []dataset.Prompt
	Current    dataset.Prompt
	HasCurrent bool
}

// Outcome reports the result of an attempt back to the policy.
type Outcome struct {
	Prev        dataset.Prompt
	Curr        dataset.Prompt
	Reward      float64
	PassedGuard bool
}

// Policy is the two-method capability contract every selection strategy
// implements.
type Policy interface {
	// Next returns the next prompt to try, or ok=false when the policy
	// has no prompt left to offer (PolicyError terminates the module).
	Next(ctx context.Context, in Input) (prompt dataset.Prompt, ok bool)

	// Update reports the outcome of the previous Next call.
	Update(ctx context.Context, out Outcome)
}

// FallbackReporter is implemented by policies that can silently degrade
// to another strategy, so the engine can surface how often that happened.
// Fallbacks is read from the engine's accounting goroutine while Next/Update
// run concurrently on the dispatch loop, so implementations must make it
// safe to call without external synchronization.
type FallbackReporter interface {
	Fallbacks() int
}

func hashPrompt(p dataset.Prompt) uint64 {
	return xxhash.Sum64String(p.Text)
}
