package engine

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msoedov/agentic-security/internal/classifier"
	"github.com/msoedov/agentic-security/internal/dataset"
	"github.com/msoedov/agentic-security/internal/httpclient"
	"github.com/msoedov/agentic-security/internal/httpspec"
	"github.com/msoedov/agentic-security/internal/policy"
)

// scriptedTransport answers each request with the next body in sequence,
// cycling once exhausted.
type scriptedTransport struct {
	mu        sync.Mutex
	responses []string
	next      int
}

func (t *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	body := t.responses[t.next%len(t.responses)]
	t.next++
	t.mu.Unlock()

	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}, nil
}

func newTestEngine(t *testing.T, responses []string, maxBudget int) (*Engine, *scriptedTransport) {
	t.Helper()

	spec, err := httpspec.Parse("POST https://example.test/chat\nContent-Type: application/json\n\n{\"p\":\"<<PROMPT>>\"}")
	require.NoError(t, err)

	transport := &scriptedTransport{responses: responses}
	client := httpclient.NewClient(time.Second)
	client.HTTPClient.Transport = transport
	client.MaxRetries = 0

	return New(client, classifier.NewManager(), spec, maxBudget), transport
}

func collect(events <-chan ScanProgressEvent) []ScanProgressEvent {
	var out []ScanProgressEvent
	for e := range events {
		out = append(out, e)
	}

	return out
}

// TestEngine_S1_AllCompliance: two prompts,
// target always answers "ok", nothing classifies as refusal.
func TestEngine_S1_AllCompliance(t *testing.T) {
	e, _ := newTestEngine(t, []string{"ok"}, 1_000_000)

	ds := &dataset.Dataset{
		Name:       "s1",
		Prompts:    []dataset.Prompt{{Text: "hi"}, {Text: "bye"}},
		TokenCount: 2,
		Modality:   httpspec.ModalityText,
	}

	events := e.Run(context.Background(), []*dataset.Dataset{ds}, func() policy.Policy {
		return policy.NewNaivePolicy()
	}, Options{Concurrency: 2})

	all := collect(events)
	require.NotEmpty(t, all)

	last := all[len(all)-1]
	assert.Equal(t, EventStatus, last.Kind)
	assert.Equal(t, string(StatusDone), last.Status)

	var finalTick *ScanProgressEvent
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Kind == EventTick {
			finalTick = &all[i]
			break
		}
	}

	require.NotNil(t, finalTick)
	assert.Equal(t, float64(100), finalTick.Progress)
	assert.InDelta(t, 100.0, finalTick.FailureRate, 0.01)
}

// TestEngine_S2_AlternatingRefusal alternates compliance and refusal.
func TestEngine_S2_AlternatingRefusal(t *testing.T) {
	e, _ := newTestEngine(t, []string{"ok", "I cannot help with that"}, 1_000_000)

	ds := &dataset.Dataset{
		Name:       "s2",
		Prompts:    []dataset.Prompt{{Text: "hi"}, {Text: "bye"}},
		TokenCount: 2,
		Modality:   httpspec.ModalityText,
	}

	events := e.Run(context.Background(), []*dataset.Dataset{ds}, func() policy.Policy {
		return policy.NewNaivePolicy()
	}, Options{Concurrency: 1})

	all := collect(events)

	var finalTick *ScanProgressEvent
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Kind == EventTick {
			finalTick = &all[i]
			break
		}
	}

	require.NotNil(t, finalTick)
	assert.InDelta(t, 50.0, finalTick.FailureRate, 0.01)
}

// TestEngine_S4_BudgetExhausted exhausts the token budget mid-module.
func TestEngine_S4_BudgetExhausted(t *testing.T) {
	e, _ := newTestEngine(t, []string{"ok"}, 10)

	prompts := make([]dataset.Prompt, 100)
	for i := range prompts {
		prompts[i] = dataset.Prompt{Text: "p"}
	}

	ds := &dataset.Dataset{
		Name:       "s4",
		Prompts:    prompts,
		TokenCount: 500,
		Modality:   httpspec.ModalityText,
	}

	events := e.Run(context.Background(), []*dataset.Dataset{ds}, func() policy.Policy {
		return policy.NewNaivePolicy()
	}, Options{Concurrency: 1})

	all := collect(events)
	last := all[len(all)-1]
	assert.Equal(t, string(StatusBudgetExhausted), last.Status)

	attempts := 0
	for _, ev := range all {
		if ev.Kind == EventTick {
			attempts++
		}
	}
	assert.LessOrEqual(t, attempts, 2)
}

// stopOnUpdate wraps a Policy and triggers a stop callback synchronously
// from Update, so a test can force a stop request strictly before the
// engine's dispatch loop for that module returns.
type stopOnUpdate struct {
	inner policy.Policy
	stop  func()
}

func (p *stopOnUpdate) Next(ctx context.Context, in policy.Input) (dataset.Prompt, bool) {
	return p.inner.Next(ctx, in)
}

func (p *stopOnUpdate) Update(ctx context.Context, out policy.Outcome) {
	p.inner.Update(ctx, out)
	p.stop()
}

// TestEngine_S5_StopSkipsSecondModule: module 1's policy calls stop()
// (twice, to exercise idempotence) from Update on its only attempt, after
// that attempt was dispatched; module 2 must emit exactly one stopped
// status and no ticks.
func TestEngine_S5_StopSkipsSecondModule(t *testing.T) {
	e, _ := newTestEngine(t, []string{"ok"}, 1_000_000)

	ds1 := &dataset.Dataset{Name: "m1", Prompts: []dataset.Prompt{{Text: "a"}}, TokenCount: 1, Modality: httpspec.ModalityText}
	ds2 := &dataset.Dataset{Name: "m2", Prompts: []dataset.Prompt{{Text: "b"}}, TokenCount: 1, Modality: httpspec.ModalityText}

	modulesStarted := 0
	newPolicy := func() policy.Policy {
		modulesStarted++
		if modulesStarted == 1 {
			return &stopOnUpdate{inner: policy.NewNaivePolicy(), stop: func() {
				e.Stop()
				e.Stop()
			}}
		}

		return policy.NewNaivePolicy()
	}

	events := e.Run(context.Background(), []*dataset.Dataset{ds1, ds2}, newPolicy, Options{Concurrency: 1})
	all := collect(events)

	var m2Events []ScanProgressEvent
	for _, ev := range all {
		if ev.Module == "m2" {
			m2Events = append(m2Events, ev)
		}
	}

	require.Len(t, m2Events, 1)
	assert.Equal(t, EventStatus, m2Events[0].Kind)
	assert.Equal(t, string(StatusStopped), m2Events[0].Status)
}

func TestEngine_RefusalClassification(t *testing.T) {
	e, _ := newTestEngine(t, []string{"I'm sorry, I can't help with that."}, 1_000_000)

	ds := &dataset.Dataset{
		Name:       "refusal",
		Prompts:    []dataset.Prompt{{Text: "hi"}},
		TokenCount: 1,
		Modality:   httpspec.ModalityText,
	}

	events := e.Run(context.Background(), []*dataset.Dataset{ds}, func() policy.Policy {
		return policy.NewNaivePolicy()
	}, Options{Concurrency: 1})

	all := collect(events)

	var finalTick *ScanProgressEvent
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Kind == EventTick {
			finalTick = &all[i]
			break
		}
	}

	require.NotNil(t, finalTick)
	assert.InDelta(t, 0.0, finalTick.FailureRate, 0.01)
}

type alwaysErrorTransport struct{}

func (alwaysErrorTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errDialFailed
}

var errDialFailed = &net.OpError{Op: "dial", Err: assertErr("connection refused")}

type assertErr string

func (e assertErr) Error() string { return string(e) }

// TestEngine_ThreeConsecutiveTransportErrorsSkipsModule exercises
// the consecutive-transport-error skip rule.
func TestEngine_ThreeConsecutiveTransportErrorsSkipsModule(t *testing.T) {
	spec, err := httpspec.Parse("POST https://example.test/chat\nContent-Type: application/json\n\n{\"p\":\"<<PROMPT>>\"}")
	require.NoError(t, err)

	client := httpclient.NewClient(time.Second)
	client.HTTPClient.Transport = alwaysErrorTransport{}
	client.MaxRetries = 0

	e := New(client, classifier.NewManager(), spec, 1_000_000)

	prompts := make([]dataset.Prompt, 10)
	for i := range prompts {
		prompts[i] = dataset.Prompt{Text: "p"}
	}

	ds := &dataset.Dataset{Name: "flaky", Prompts: prompts, TokenCount: 10, Modality: httpspec.ModalityText}

	events := e.Run(context.Background(), []*dataset.Dataset{ds}, func() policy.Policy {
		return policy.NewNaivePolicy()
	}, Options{Concurrency: 1})

	all := collect(events)

	sawError := false
	for _, ev := range all {
		if ev.Kind == EventError {
			sawError = true
		}
	}
	assert.True(t, sawError)

	last := all[len(all)-1]
	assert.Equal(t, string(StatusErrored), last.Status)
}

func TestEngine_OnComplianceCallback(t *testing.T) {
	e, _ := newTestEngine(t, []string{"ok"}, 1_000_000)

	ds := &dataset.Dataset{
		Name:       "compliance",
		Prompts:    []dataset.Prompt{{Text: "hi"}},
		TokenCount: 1,
		Modality:   httpspec.ModalityText,
	}

	var mu sync.Mutex
	var recorded []string

	events := e.Run(context.Background(), []*dataset.Dataset{ds}, func() policy.Policy {
		return policy.NewNaivePolicy()
	}, Options{Concurrency: 1, OnCompliance: func(module, prompt, response string) {
		mu.Lock()
		defer mu.Unlock()
		recorded = append(recorded, prompt)
	}})

	collect(events)

	assert.Equal(t, []string{"hi"}, recorded)
}

// fallbackCountingPolicy wraps a Policy and reports every Next call as a
// fallback, satisfying policy.FallbackReporter.
type fallbackCountingPolicy struct {
	inner policy.Policy
	calls atomic.Int64
}

func (p *fallbackCountingPolicy) Next(ctx context.Context, in policy.Input) (dataset.Prompt, bool) {
	p.calls.Add(1)
	return p.inner.Next(ctx, in)
}

func (p *fallbackCountingPolicy) Update(ctx context.Context, out policy.Outcome) {
	p.inner.Update(ctx, out)
}

func (p *fallbackCountingPolicy) Fallbacks() int {
	return int(p.calls.Load())
}

func TestEngine_FallbacksSurfacedInEvents(t *testing.T) {
	e, _ := newTestEngine(t, []string{"ok"}, 1_000_000)

	ds := &dataset.Dataset{
		Name:       "fallback",
		Prompts:    []dataset.Prompt{{Text: "hi"}, {Text: "bye"}},
		TokenCount: 2,
		Modality:   httpspec.ModalityText,
	}

	events := e.Run(context.Background(), []*dataset.Dataset{ds}, func() policy.Policy {
		return &fallbackCountingPolicy{inner: policy.NewNaivePolicy()}
	}, Options{Concurrency: 1})

	all := collect(events)

	last := all[len(all)-1]
	assert.Equal(t, EventStatus, last.Kind)
	assert.Equal(t, 2, last.Fallbacks)
}

// exhaustingPolicy offers prompts up to limit, then reports exhaustion,
// regardless of how many the dataset actually holds.
type exhaustingPolicy struct {
	calls int
	limit int
}

func (p *exhaustingPolicy) Next(ctx context.Context, in policy.Input) (dataset.Prompt, bool) {
	if p.calls >= p.limit {
		return dataset.Prompt{}, false
	}

	prompt := in.Pool[p.calls]
	p.calls++

	return prompt, true
}

func (p *exhaustingPolicy) Update(ctx context.Context, out policy.Outcome) {}

// TestEngine_PolicyExhaustedNotCountedAsAttempt: a policy that exhausts
// after 2 of 3 prompts must not inflate the failure rate with a phantom
// compliant attempt for the exhaustion sentinel.
func TestEngine_PolicyExhaustedNotCountedAsAttempt(t *testing.T) {
	e, _ := newTestEngine(t, []string{"I'm sorry, I can't help with that."}, 1_000_000)

	ds := &dataset.Dataset{
		Name:       "exhaust",
		Prompts:    []dataset.Prompt{{Text: "a"}, {Text: "b"}, {Text: "c"}},
		TokenCount: 3,
		Modality:   httpspec.ModalityText,
	}

	events := e.Run(context.Background(), []*dataset.Dataset{ds}, func() policy.Policy {
		return &exhaustingPolicy{limit: 2}
	}, Options{Concurrency: 1})

	all := collect(events)

	last := all[len(all)-1]
	assert.Equal(t, EventStatus, last.Kind)
	assert.Equal(t, string(StatusExhausted), last.Status)

	var finalTick *ScanProgressEvent
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Kind == EventTick {
			finalTick = &all[i]
			break
		}
	}

	require.NotNil(t, finalTick)
	assert.InDelta(t, 0.0, finalTick.FailureRate, 0.01)
}
