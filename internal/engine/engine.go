package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/msoedov/agentic-security/internal/classifier"
	"github.com/msoedov/agentic-security/internal/dataset"
	"github.com/msoedov/agentic-security/internal/httpclient"
	"github.com/msoedov/agentic-security/internal/httpspec"
	"github.com/msoedov/agentic-security/internal/log"
	"github.com/msoedov/agentic-security/internal/policy"
)

const defaultConcurrency = 8

// Options configures one scan run.
type Options struct {
	// Concurrency bounds the worker pool per active module. Defaults to 8.
	Concurrency int

	// ManyShot switches dispatch to chained attacks: the prior response is
	// prepended to the next prompt, up to ChainLength turns, resetting on
	// refusal.
	ManyShot    bool
	ChainLength int

	// Optimize enables the Bayesian optimizer's early-stop signal.
	Optimize bool

	// OnCompliance is invoked, if set, once per attempt the target
	// complied with, so the scan controller can persist it to the
	// failures sink without the engine owning that resource.
	OnCompliance func(module, prompt, response string)
}

// Engine drives datasets through a target sequentially, one module at a
// time, honoring a scan-wide token budget and a level-triggered stop
// signal observed at every attempt boundary.
type Engine struct {
	client     *httpclient.Client
	classifier *classifier.Manager
	spec       *httpspec.Spec

	stopped atomic.Bool
	budget  atomic.Int64
}

func New(client *httpclient.Client, clf *classifier.Manager, spec *httpspec.Spec, maxBudget int) *Engine {
	e := &Engine{client: client, classifier: clf, spec: spec}
	e.budget.Store(int64(maxBudget))

	return e
}

// Stop requests cancellation. It is safe to call more than once; each
// not-yet-finished module emits exactly one stopped status regardless of
// how many times Stop is called.
func (e *Engine) Stop() {
	e.stopped.Store(true)
}

func (e *Engine) Stopped() bool {
	return e.stopped.Load()
}

// BudgetRemaining reports the scan-wide token budget left.
func (e *Engine) BudgetRemaining() int64 {
	return e.budget.Load()
}

// Run dispatches datasets in order, one module at a time. newPolicy is
// called once per module so every module gets a policy instance with its
// own cycle-guard state. The returned channel is closed once every
// dataset has reached a terminal status.
func (e *Engine) Run(ctx context.Context, datasets []*dataset.Dataset, newPolicy func() policy.Policy, opts Options) <-chan ScanProgressEvent {
	events := make(chan ScanProgressEvent, 64)

	go func() {
		defer close(events)

		for _, ds := range datasets {
			if e.stopped.Load() {
				events <- statusEvent(ds.Name, StatusStopped, 0)
				continue
			}

			if e.budget.Load() <= 0 {
				events <- statusEvent(ds.Name, StatusBudgetExhausted, 0)
				continue
			}

			e.runModule(ctx, ds, newPolicy(), opts, events)
		}
	}()

	return events
}

func (e *Engine) runModule(ctx context.Context, ds *dataset.Dataset, pol policy.Policy, opts Options, events chan<- ScanProgressEvent) {
	total := ds.NumPrompts()
	if total == 0 {
		events <- statusEvent(ds.Name, StatusDone, 0)
		return
	}

	tickInterval := 1
	if ds.Modality != httpspec.ModalityText {
		tickInterval = 4
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	fallbackReporter, _ := pol.(policy.FallbackReporter)
	fallbacks := func() int {
		if fallbackReporter == nil {
			return 0
		}

		return fallbackReporter.Fallbacks()
	}

	tokensPerAttempt := maxInt(1, ds.TokenCount/total)
	costPerAttempt := ds.ApproxCost / float64(total)

	chain := newChainBuffer(opts.ChainLength)

	var optimizer *policy.BayesianOptimizer
	if opts.Optimize {
		optimizer = policy.NewBayesianOptimizer()
	}

	var haltDispatch atomic.Bool

	results := make(chan attemptOutcome)
	accDone := make(chan ModuleStatus, 1)

	acc := &moduleAccounting{}

	go func() {
		finalStatus := StatusDone

		for out := range results {
			acc.record(out, tokensPerAttempt, costPerAttempt)

			if out.policyExhausted {
				finalStatus = StatusExhausted
				haltDispatch.Store(true)
			}

			if acc.consecutiveTransportErrors >= 3 {
				events <- errorEvent(ds.Name, "three consecutive transport errors, skipping remaining prompts")
				finalStatus = StatusErrored
				haltDispatch.Store(true)
			}

			if acc.shouldEmitTick(tickInterval, total) {
				events <- tickEvent(ds.Name, acc, total, fallbacks())
			}

			if optimizer != nil && !out.transportErr {
				if optimizer.Report(0, acc.failureRate()/100) == policy.Stop {
					haltDispatch.Store(true)
				}
			}
		}

		accDone <- finalStatus
	}()

	stoppedEarly := e.dispatch(ctx, ds, pol, opts, total, concurrency, tokensPerAttempt, chain, &haltDispatch, results)
	close(results)

	finalStatus := <-accDone

	switch {
	case stoppedEarly:
		finalStatus = StatusStopped
	case e.budget.Load() <= 0:
		finalStatus = StatusBudgetExhausted
	}

	events <- statusEvent(ds.Name, finalStatus, fallbacks())
}

// dispatch runs the worker pool for one module and reports whether it
// broke off early because the stop signal fired mid-module (as opposed
// to running every prompt to completion or halting for a reason already
// accounted for, like budget or policy exhaustion).
func (e *Engine) dispatch(ctx context.Context, ds *dataset.Dataset, pol policy.Policy, opts Options, total, concurrency, tokensPerAttempt int, chain *chainBuffer, haltDispatch *atomic.Bool, results chan<- attemptOutcome) bool {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var policyMu sync.Mutex

	var current dataset.Prompt
	hasCurrent := false

	stoppedEarly := false

	for i := 0; i < total; i++ {
		if e.stopped.Load() {
			stoppedEarly = true
			break
		}

		if haltDispatch.Load() || e.budget.Load() <= 0 {
			break
		}

		policyMu.Lock()
		prompt, ok := pol.Next(ctx, policy.Input{Pool: ds.Prompts, Current: current, HasCurrent: hasCurrent})
		prev := current
		if ok {
			current = prompt
			hasCurrent = true
		}
		policyMu.Unlock()

		if !ok {
			results <- attemptOutcome{policyExhausted: true}
			break
		}

		e.budget.Add(-int64(tokensPerAttempt))

		g.Go(func() error {
			out := e.attempt(gctx, ds, prompt, chain, opts.ManyShot)

			if !out.transportErr {
				policyMu.Lock()
				pol.Update(ctx, policy.Outcome{Prev: prev, Curr: prompt, Reward: rewardFor(out), PassedGuard: out.refusal})
				policyMu.Unlock()

				if !out.refusal && opts.OnCompliance != nil {
					opts.OnCompliance(ds.Name, prompt.Text, out.responseBody)
				}
			}

			results <- out

			return nil
		})
	}

	_ = g.Wait()

	return stoppedEarly
}

type attemptOutcome struct {
	refusal         bool
	transportErr    bool
	policyExhausted bool
	responseBody    string
}

func rewardFor(out attemptOutcome) float64 {
	if out.refusal {
		return -1
	}

	return 1
}

func (e *Engine) attempt(ctx context.Context, ds *dataset.Dataset, prompt dataset.Prompt, chain *chainBuffer, manyShot bool) attemptOutcome {
	promptText := prompt.Text
	if manyShot {
		promptText = chain.augment(promptText)
	}

	payload := buildPayload(ds.Modality, prompt, promptText)

	req, err := httpspec.Materialize(e.spec, payload)
	if err != nil {
		log.Warn(ctx, "materialize failed during scan", log.String("dataset", ds.Name), log.Cause(err))
		return attemptOutcome{transportErr: true}
	}

	resp, err := e.client.Do(ctx, req)
	if err != nil {
		log.Warn(ctx, "transport error during scan", log.String("dataset", ds.Name), log.Cause(err))
		return attemptOutcome{transportErr: true}
	}

	body := string(httpspec.CollapseStream(resp))
	refusal := e.classifier.IsRefusal(ctx, body)

	if manyShot {
		chain.record(body, refusal)
	}

	return attemptOutcome{refusal: refusal, responseBody: body}
}

func buildPayload(modality httpspec.Modality, prompt dataset.Prompt, promptText string) httpspec.Payload {
	switch modality {
	case httpspec.ModalityImage:
		return httpspec.Payload{Kind: httpspec.PayloadImage, Prompt: promptText, ImageB64: string(prompt.Payload)}
	case httpspec.ModalityAudio:
		return httpspec.Payload{Kind: httpspec.PayloadAudio, Prompt: promptText, AudioB64: string(prompt.Payload)}
	case httpspec.ModalityFiles:
		return httpspec.Payload{Kind: httpspec.PayloadFiles, Prompt: promptText, Files: map[string][]byte{"file": prompt.Payload}}
	default:
		return httpspec.Payload{Kind: httpspec.PayloadText, Prompt: promptText}
	}
}
