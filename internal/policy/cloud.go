package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/msoedov/agentic-security/internal/dataset"
	"github.com/msoedov/agentic-security/internal/httpclient"
	"github.com/msoedov/agentic-security/internal/log"
)

const defaultCloudTimeout = 5 * time.Second

type cloudRequestBody struct {
	Current string   `json:"current"`
	Pool    []string `json:"pool"`
}

type cloudResponseBody struct {
	Index int `json:"index"`
}

// CloudPolicy delegates prompt selection to a remote endpoint, falling
// back to a local RandomPolicy on any transport, status, or decode
// failure so a flaky network never stalls a scan.
type CloudPolicy struct {
	client    *httpclient.Client
	endpoint  string
	authToken string
	fallback  *RandomPolicy

	fallbacks atomic.Int64
}

func NewCloudPolicy(endpoint, authToken string, guardCapacity int) *CloudPolicy {
	return &CloudPolicy{
		client:    httpclient.NewClient(defaultCloudTimeout),
		endpoint:  endpoint,
		authToken: authToken,
		fallback:  NewRandomPolicy(guardCapacity),
	}
}

func (p *CloudPolicy) Next(ctx context.Context, in Input) (dataset.Prompt, bool) {
	if len(in.Pool) == 0 {
		return dataset.Prompt{}, false
	}

	prompt, ok, err := p.remoteNext(ctx, in)
	if err != nil {
		log.Warn(ctx, "cloud policy falling back to random selection", log.Cause(err))
		p.fallbacks.Add(1)
		return p.fallback.Next(ctx, in)
	}

	return prompt, ok
}

func (p *CloudPolicy) remoteNext(ctx context.Context, in Input) (dataset.Prompt, bool, error) {
	pool := make([]string, len(in.Pool))
	for i, pr := range in.Pool {
		pool[i] = pr.Text
	}

	body, err := json.Marshal(cloudRequestBody{Current: in.Current.Text, Pool: pool})
	if err != nil {
		return dataset.Prompt{}, false, err
	}

	req := httpclient.Request{
		Method: "POST",
		URL:    p.endpoint,
		Headers: map[string][]string{
			"Content-Type":  {"application/json"},
			"Authorization": {"Bearer " + p.authToken},
		},
		Body: body,
	}

	resp, err := p.client.Do(ctx, &req)
	if err != nil {
		return dataset.Prompt{}, false, err
	}

	if !resp.OK() {
		return dataset.Prompt{}, false, &httpclient.StatusError{StatusCode: resp.StatusCode}
	}

	var decoded cloudResponseBody
	if err := json.NewDecoder(bytes.NewReader(resp.Body)).Decode(&decoded); err != nil {
		return dataset.Prompt{}, false, err
	}

	if decoded.Index < 0 || decoded.Index >= len(in.Pool) {
		return dataset.Prompt{}, false, &httpclient.StatusError{StatusCode: resp.StatusCode}
	}

	return in.Pool[decoded.Index], true, nil
}

func (p *CloudPolicy) Update(ctx context.Context, out Outcome) {
	p.fallback.Update(ctx, out)
}

// Fallbacks reports how many Next calls degraded to local random
// selection, satisfying FallbackReporter.
func (p *CloudPolicy) Fallbacks() int {
	return int(p.fallbacks.Load())
}
