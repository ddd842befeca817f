package policy

import (
	"context"
	"math/rand/v2"

	"github.com/msoedov/agentic-security/internal/dataset"
)

// RandomPolicy picks uniformly among prompts not currently in the cycle
// guard. Once every distinct prompt has been selected within the guard's
// window, the guard is bypassed for that one pick so the policy never
// wedges on an exhausted pool.
type RandomPolicy struct {
	guard *CycleGuard
}

func NewRandomPolicy(guardCapacity int) *RandomPolicy {
	return &RandomPolicy{guard: NewCycleGuard(guardCapacity)}
}

func (p *RandomPolicy) Next(_ context.Context, in Input) (dataset.Prompt, bool) {
	if len(in.Pool) == 0 {
		return dataset.Prompt{}, false
	}

	candidates := candidateIndices(in.Pool, p.guard)
	choice := candidates[rand.IntN(len(candidates))]
	chosen := in.Pool[choice]
	p.guard.Push(hashPrompt(chosen))

	return chosen, true
}

func (p *RandomPolicy) Update(context.Context, Outcome) {}

// candidateIndices returns indices of pool entries not in guard, falling
// back to the full pool when the guard covers every distinct entry.
func candidateIndices(pool []dataset.Prompt, guard *CycleGuard) []int {
	candidates := make([]int, 0, len(pool))

	for i, p := range pool {
		if !guard.Contains(hashPrompt(p)) {
			candidates = append(candidates, i)
		}
	}

	if len(candidates) == 0 {
		for i := range pool {
			candidates = append(candidates, i)
		}
	}

	return candidates
}
