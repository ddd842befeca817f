package policy

import (
	"context"

	"github.com/msoedov/agentic-security/internal/dataset"
)

// NaivePolicy iterates a dataset's prompts in registration order. It does
// not use a cycle guard and Update is a no-op.
type NaivePolicy struct {
	idx int
}

func NewNaivePolicy() *NaivePolicy {
	return &NaivePolicy{}
}

func (p *NaivePolicy) Next(_ context.Context, in Input) (dataset.Prompt, bool) {
	if p.idx >= len(in.Pool) {
		return dataset.Prompt{}, false
	}

	next := in.Pool[p.idx]
	p.idx++

	return next, true
}

func (p *NaivePolicy) Update(context.Context, Outcome) {}
