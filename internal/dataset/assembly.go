package dataset

import (
	"context"

	"github.com/msoedov/agentic-security/internal/log"
	"github.com/msoedov/agentic-security/internal/render"
)

// MutatorSpec asks Assemble to derive a dynamic dataset from an
// already-merged source dataset.
type MutatorSpec struct {
	TransformName string
	SourceDataset string
	Fraction      float64
}

// AssemblyOptions configures Assemble's three merge sources.
type AssemblyOptions struct {
	CSVDir      string
	Providers   []Provider
	Mutators    []MutatorSpec
	RenderCache *render.Cache
}

// Assemble merges local CSV datasets, registry datasets, and dynamic
// mutators, in that order, deduplicating by name so a later entry
// replaces an earlier one with the same name.
func Assemble(ctx context.Context, opts AssemblyOptions) ([]*Dataset, error) {
	merged := map[string]*Dataset{}

	var order []string

	add := func(ds *Dataset) {
		if _, exists := merged[ds.Name]; !exists {
			order = append(order, ds.Name)
		}

		merged[ds.Name] = ds
	}

	if opts.CSVDir != "" {
		csvDatasets, err := LoadCSVDir(ctx, opts.CSVDir)
		if err != nil {
			return nil, err
		}

		for _, ds := range csvDatasets {
			add(ds)
		}
	}

	if len(opts.Providers) > 0 {
		registryDatasets, err := LoadRegistry(ctx, opts.Providers, opts.RenderCache)
		if err != nil {
			return nil, err
		}

		for _, ds := range registryDatasets {
			add(ds)
		}
	}

	for _, m := range opts.Mutators {
		source, ok := merged[m.SourceDataset]
		if !ok {
			log.Warn(ctx, "dataset: mutator source not found, skipping",
				log.String("source", m.SourceDataset),
			)

			continue
		}

		mutated, err := Mutate(source, m.TransformName, m.Fraction)
		if err != nil {
			log.Warn(ctx, "dataset: mutator failed", log.Cause(err))
			continue
		}

		add(mutated)
	}

	result := make([]*Dataset, 0, len(order))
	for _, name := range order {
		result = append(result, merged[name])
	}

	return result, nil
}
