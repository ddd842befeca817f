package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/msoedov/agentic-security/internal/httpspec"
	"github.com/msoedov/agentic-security/internal/log"
)

// ErrNoPromptColumn marks a CSV file that has no "prompt" column; callers
// treat it as a skip-with-warning, not a fatal error.
var ErrNoPromptColumn = errors.New("dataset: csv file has no prompt column")

// LoadCSVDir loads one Dataset per *.csv file under dir that has a
// "prompt" column. Files without one, and files that fail to parse, are
// skipped with a warning rather than aborting assembly. A missing dir is
// not an error — it simply contributes no datasets.
func LoadCSVDir(ctx context.Context, dir string) ([]*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	var datasets []*Dataset

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		ds, err := loadCSVFile(path)
		if err != nil {
			log.Warn(ctx, "dataset: skipping csv file",
				log.String("file", path),
				log.Cause(err),
			)

			continue
		}

		datasets = append(datasets, ds)
	}

	return datasets, nil
}

func loadCSVFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}

	promptIdx := -1

	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), "prompt") {
			promptIdx = i
			break
		}
	}

	if promptIdx < 0 {
		return nil, ErrNoPromptColumn
	}

	var prompts []Prompt

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		if promptIdx >= len(row) {
			continue
		}

		prompts = append(prompts, Prompt{Text: row[promptIdx]})
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tokens := approximateTokens(prompts)

	return &Dataset{
		Name:       name,
		Metadata:   map[string]string{"source_file": path},
		Prompts:    prompts,
		TokenCount: tokens,
		ApproxCost: approxCost(tokens),
		Modality:   httpspec.ModalityText,
		Source:     "csv",
	}, nil
}
