package policy

import (
	"context"
	"math/rand/v2"

	"github.com/msoedov/agentic-security/internal/dataset"
)

const (
	qLearningAlpha        = 0.1
	qLearningGamma        = 0.9
	qLearningEpsilonStart = 1.0
	qLearningEpsilonFloor = 0.01
	qLearningEpsilonDecay = 0.995
)

// QLearningPolicy treats the current prompt's content hash as state and
// dataset indices as actions. With probability epsilon it explores a
// random candidate action; otherwise it exploits argmax Q[state, ·],
// breaking ties by lowest index.
type QLearningPolicy struct {
	guard   *CycleGuard
	epsilon float64

	q map[uint64]map[int]float64

	lastPool   []dataset.Prompt
	lastState  uint64
	lastAction int
	hasLast    bool
}

func NewQLearningPolicy(guardCapacity int) *QLearningPolicy {
	return &QLearningPolicy{
		guard:   NewCycleGuard(guardCapacity),
		epsilon: qLearningEpsilonStart,
		q:       make(map[uint64]map[int]float64),
	}
}

func (p *QLearningPolicy) Next(_ context.Context, in Input) (dataset.Prompt, bool) {
	if len(in.Pool) == 0 {
		return dataset.Prompt{}, false
	}

	state := stateFor(in)
	candidates := candidateIndices(in.Pool, p.guard)

	var action int
	if rand.Float64() < p.epsilon {
		action = candidates[rand.IntN(len(candidates))]
	} else {
		action = p.bestAction(state, candidates)
	}

	chosen := in.Pool[action]
	p.guard.Push(hashPrompt(chosen))

	p.lastPool = in.Pool
	p.lastState = state
	p.lastAction = action
	p.hasLast = true

	return chosen, true
}

func (p *QLearningPolicy) bestAction(state uint64, candidates []int) int {
	actions := p.q[state]

	best := candidates[0]
	bestValue := actions[best]

	for _, a := range candidates[1:] {
		if v := actions[a]; v > bestValue {
			bestValue = v
			best = a
		}
	}

	return best
}

// Update applies the Q-learning rule using the action chosen by the most
// recent Next call and decays epsilon toward its floor.
func (p *QLearningPolicy) Update(_ context.Context, out Outcome) {
	if !p.hasLast {
		return
	}

	nextState := hashPrompt(out.Curr)

	current := p.qValue(p.lastState, p.lastAction)
	nextMax := p.maxQ(nextState)

	updated := current + qLearningAlpha*(out.Reward+qLearningGamma*nextMax-current)
	p.setQValue(p.lastState, p.lastAction, updated)

	p.epsilon = maxFloat(p.epsilon*qLearningEpsilonDecay, qLearningEpsilonFloor)
}

func (p *QLearningPolicy) qValue(state uint64, action int) float64 {
	if actions, ok := p.q[state]; ok {
		return actions[action]
	}

	return 0
}

func (p *QLearningPolicy) setQValue(state uint64, action int, value float64) {
	if p.q[state] == nil {
		p.q[state] = make(map[int]float64)
	}

	p.q[state][action] = value
}

func (p *QLearningPolicy) maxQ(state uint64) float64 {
	actions, ok := p.q[state]
	if !ok || len(actions) == 0 {
		return 0
	}

	best := 0.0
	first := true

	for _, v := range actions {
		if first || v > best {
			best = v
			first = false
		}
	}

	return best
}

func stateFor(in Input) uint64 {
	if !in.HasCurrent {
		return 0
	}

	return hashPrompt(in.Current)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}

	return b
}
