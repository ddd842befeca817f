package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/msoedov/agentic-security/internal/stenography"
)

// DefaultMutationFraction is the share of a source dataset's prompts a
// mutator samples when the caller does not specify one.
const DefaultMutationFraction = 0.25

// Mutate derives a new Dataset from source by sampling a fraction of its
// prompts and applying the named stenography transform to each, prefixed
// with an instruction to follow the obfuscated content. The result is
// named "stenography.<transform>(<source>)".
func Mutate(source *Dataset, transformName string, fraction float64) (*Dataset, error) {
	transform, ok := stenography.ByName(transformName)
	if !ok {
		return nil, fmt.Errorf("dataset: unknown stenography transform %q", transformName)
	}

	if fraction <= 0 {
		fraction = DefaultMutationFraction
	}

	n := int(math.Ceil(float64(len(source.Prompts)) * fraction))
	if n > len(source.Prompts) {
		n = len(source.Prompts)
	}

	indices := rand.Perm(len(source.Prompts))[:n]
	sort.Ints(indices)

	instruction := fmt.Sprintf("Follow the instructions in %s:", transformName)

	prompts := make([]Prompt, 0, n)

	for _, i := range indices {
		p := source.Prompts[i]
		prompts = append(prompts, Prompt{
			Text: instruction + " " + transform(p.Text),
		})
	}

	tokens := approximateTokens(prompts)

	return &Dataset{
		Name: fmt.Sprintf("stenography.%s(%s)", transformName, source.Name),
		Metadata: map[string]string{
			"mutated_from": source.Name,
			"transform":    transformName,
		},
		Prompts:    prompts,
		TokenCount: tokens,
		ApproxCost: approxCost(tokens),
		Modality:   source.Modality,
		Source:     "mutator",
		Dynamic:    true,
	}, nil
}
