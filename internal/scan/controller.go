package scan

import (
	"context"
	"fmt"
	"sync"

	"github.com/msoedov/agentic-security/internal/classifier"
	"github.com/msoedov/agentic-security/internal/dataset"
	"github.com/msoedov/agentic-security/internal/engine"
	"github.com/msoedov/agentic-security/internal/httpclient"
	"github.com/msoedov/agentic-security/internal/httpspec"
	"github.com/msoedov/agentic-security/internal/policy"
)

// DatasetInfo summarizes one dataset for listDatasets.
type DatasetInfo struct {
	Name       string
	NumPrompts int
	Source     string
	Selected   bool
	Dynamic    bool
	Modality   httpspec.Modality
}

// DatasetSelection picks a dataset for a scan request, by name.
type DatasetSelection struct {
	Name     string
	Selected bool
}

// Request is a Scan Request.
type Request struct {
	MaxBudget             int
	LLMSpec               string
	Datasets              []DatasetSelection
	Optimize              bool
	EnableMultiStepAttack bool
	PolicyName            string // "naive" (default), "random", "qlearning", "cloud"
	CloudEndpoint         string
	CloudAuthToken        string
}

// Controller is the scan control surface: Scan, Verify, Stop,
// ListDatasets, GetFailures.
type Controller struct {
	client     *httpclient.Client
	classifier *classifier.Manager
	datasets   []*dataset.Dataset
	sink       *FailuresSink

	mu      sync.Mutex
	running *engine.Engine
}

func NewController(client *httpclient.Client, clf *classifier.Manager, datasets []*dataset.Dataset, sink *FailuresSink) *Controller {
	return &Controller{client: client, classifier: clf, datasets: datasets, sink: sink}
}

// ListDatasets reports every assembled dataset, independent of any scan.
func (c *Controller) ListDatasets() []DatasetInfo {
	out := make([]DatasetInfo, len(c.datasets))
	for i, ds := range c.datasets {
		out[i] = DatasetInfo{
			Name:       ds.Name,
			NumPrompts: ds.NumPrompts(),
			Source:     ds.Source,
			Dynamic:    ds.Dynamic,
			Modality:   ds.Modality,
		}
	}

	return out
}

// Verify parses blueprint and sends a single canary probe against it.
func (c *Controller) Verify(ctx context.Context, blueprint string) (bool, string, error) {
	spec, err := httpspec.Parse(blueprint)
	if err != nil {
		return false, "", err
	}

	return httpspec.Verify(ctx, c.client, spec)
}

// Stop requests cancellation of the in-flight scan, if any. Safe to call
// when no scan is running or more than once.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running != nil {
		c.running.Stop()
	}
}

// GetFailures streams every compliance record persisted so far.
func (c *Controller) GetFailures(ctx context.Context) <-chan FailureRecord {
	return c.sink.Stream(ctx)
}

// Scan parses req's HTTP-spec blueprint, selects the requested datasets
// in order, builds an Engine, and returns its progress event stream.
// SpecError from a malformed blueprint aborts scan setup before any
// request is sent.
func (c *Controller) Scan(ctx context.Context, req Request) (<-chan engine.ScanProgressEvent, error) {
	spec, err := httpspec.Parse(req.LLMSpec)
	if err != nil {
		return nil, err
	}

	selected, err := c.selectDatasets(req.Datasets)
	if err != nil {
		return nil, err
	}

	c.classifier.Freeze()

	eng := engine.New(c.client, c.classifier, spec, req.MaxBudget)

	c.mu.Lock()
	c.running = eng
	c.mu.Unlock()

	newPolicy := c.policyFactory(req)

	// Many-shot chaining feeds each response into the next prompt through
	// one shared chain buffer, so the attempts it links must run in the
	// order the policy issued them, not concurrently.
	concurrency := 8
	if req.EnableMultiStepAttack {
		concurrency = 1
	}

	opts := engine.Options{
		Concurrency: concurrency,
		ManyShot:    req.EnableMultiStepAttack,
		ChainLength: 4,
		Optimize:    req.Optimize,
		OnCompliance: func(module, prompt, response string) {
			c.sink.Record(module, prompt, response)
		},
	}

	return eng.Run(ctx, selected, newPolicy, opts), nil
}

func (c *Controller) selectDatasets(selections []DatasetSelection) ([]*dataset.Dataset, error) {
	wanted := make(map[string]bool, len(selections))
	for _, s := range selections {
		if s.Selected {
			wanted[s.Name] = true
		}
	}

	byName := make(map[string]*dataset.Dataset, len(c.datasets))
	for _, ds := range c.datasets {
		byName[ds.Name] = ds
	}

	selected := make([]*dataset.Dataset, 0, len(wanted))

	for _, s := range selections {
		if !s.Selected {
			continue
		}

		ds, ok := byName[s.Name]
		if !ok {
			return nil, fmt.Errorf("scan: unknown dataset %q", s.Name)
		}

		selected = append(selected, ds)
	}

	return selected, nil
}

func (c *Controller) policyFactory(req Request) func() policy.Policy {
	switch req.PolicyName {
	case "random":
		return func() policy.Policy { return policy.NewRandomPolicy(policy.DefaultCycleGuardCapacity) }
	case "qlearning":
		return func() policy.Policy { return policy.NewQLearningPolicy(policy.DefaultCycleGuardCapacity) }
	case "cloud":
		return func() policy.Policy {
			return policy.NewCloudPolicy(req.CloudEndpoint, req.CloudAuthToken, policy.DefaultCycleGuardCapacity)
		}
	default:
		return func() policy.Policy { return policy.NewNaivePolicy() }
	}
}
