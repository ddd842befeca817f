package dataset

import (
	"context"
	"encoding/base64"

	"github.com/msoedov/agentic-security/internal/httpspec"
	"github.com/msoedov/agentic-security/internal/log"
	"github.com/msoedov/agentic-security/internal/render"
)

// ProviderKind selects which modality a Provider's raw prompts become.
type ProviderKind string

const (
	ProviderText  ProviderKind = ProviderKind(httpspec.ModalityText)
	ProviderImage ProviderKind = ProviderKind(httpspec.ModalityImage)
	ProviderAudio ProviderKind = ProviderKind(httpspec.ModalityAudio)
)

// Provider is an opaque remote dataset or generator, e.g. a hosted prompt
// collection, an image-prompt generator, or an audio-prompt generator.
// Dataset source libraries themselves are out of scope for this package;
// Provider is the seam a concrete library-backed implementation plugs
// into.
type Provider interface {
	Name() string
	Kind() ProviderKind
	Fetch(ctx context.Context) ([]string, error)
}

// LoadRegistry fetches one Dataset per provider. A provider whose Fetch
// fails is skipped with a warning; it does not abort the remaining
// providers.
func LoadRegistry(ctx context.Context, providers []Provider, cache *render.Cache) ([]*Dataset, error) {
	var datasets []*Dataset

	for _, p := range providers {
		raw, err := p.Fetch(ctx)
		if err != nil {
			log.Warn(ctx, "dataset: registry provider failed",
				log.String("provider", p.Name()),
				log.Cause(err),
			)

			continue
		}

		ds, err := buildRegistryDataset(p, raw, cache)
		if err != nil {
			log.Warn(ctx, "dataset: failed building dataset from provider",
				log.String("provider", p.Name()),
				log.Cause(err),
			)

			continue
		}

		datasets = append(datasets, ds)
	}

	return datasets, nil
}

func buildRegistryDataset(p Provider, raw []string, cache *render.Cache) (*Dataset, error) {
	var (
		prompts  []Prompt
		modality httpspec.Modality
		err      error
	)

	switch p.Kind() {
	case ProviderImage:
		prompts, err = renderPrompts(raw, cache, "image", render.Image)
		modality = httpspec.ModalityImage
	case ProviderAudio:
		prompts, err = renderPrompts(raw, cache, "audio", render.Audio)
		modality = httpspec.ModalityAudio
	default:
		prompts = toPrompts(raw)
		modality = httpspec.ModalityText
	}

	if err != nil {
		return nil, err
	}

	tokens := approximateTokens(prompts)

	return &Dataset{
		Name:       p.Name(),
		Metadata:   map[string]string{"provider_kind": string(p.Kind())},
		Prompts:    prompts,
		TokenCount: tokens,
		ApproxCost: approxCost(tokens),
		Modality:   modality,
		Source:     "registry",
	}, nil
}

func toPrompts(raw []string) []Prompt {
	prompts := make([]Prompt, len(raw))
	for i, text := range raw {
		prompts[i] = Prompt{Text: text}
	}

	return prompts
}

func renderPrompts(raw []string, cache *render.Cache, kind string, renderFn render.Renderer) ([]Prompt, error) {
	prompts := make([]Prompt, 0, len(raw))

	for _, text := range raw {
		data, err := cache.GetOrRender(kind, text, func(prompt string) ([]byte, error) {
			rendered, err := renderFn(prompt)
			if err != nil {
				return nil, err
			}

			encoded := base64.StdEncoding.EncodeToString(rendered)

			return []byte(encoded), nil
		})
		if err != nil {
			return nil, err
		}

		prompts = append(prompts, Prompt{Text: text, Payload: data})
	}

	return prompts, nil
}
