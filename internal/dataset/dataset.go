// Package dataset assembles Prompt Datasets from local CSV files, remote
// dataset registries, and dynamic stenography mutators, normalizing all
// three sources into the uniform shape the fuzzing engine consumes.
package dataset

import (
	"strings"

	"github.com/msoedov/agentic-security/internal/httpspec"
)

// approxCostPerToken is a rough, intentionally simple cost model; the
// scanner only needs relative budget accounting, not billing accuracy.
const approxCostPerToken = 0.000002

// Prompt is one entry in a Dataset: plain text, or for multimodal
// datasets an additional opaque rendered payload (base64 image/audio).
type Prompt struct {
	Text    string
	Payload []byte
}

// Dataset is an immutable, named ordered sequence of prompts plus the
// bookkeeping the engine needs to budget and report on it.
type Dataset struct {
	Name       string
	Metadata   map[string]string
	Prompts    []Prompt
	TokenCount int
	ApproxCost float64
	Modality   httpspec.Modality
	Source     string
	Dynamic    bool
}

// NumPrompts reports how many prompts the dataset holds.
func (d *Dataset) NumPrompts() int {
	return len(d.Prompts)
}

func approximateTokens(prompts []Prompt) int {
	total := 0
	for _, p := range prompts {
		total += len(strings.Fields(p.Text))
	}

	return total
}

func approxCost(tokens int) float64 {
	return float64(tokens) * approxCostPerToken
}
