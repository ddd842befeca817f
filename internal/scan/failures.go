package scan

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/msoedov/agentic-security/internal/log"
)

// FailureRecord is an append-only log entry written whenever a prompt
// yields compliance (the target failed to refuse).
type FailureRecord struct {
	Module    string    `json:"module"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// FailuresSink is a single-writer, append-only JSON-lines file. Every
// write is serialized through mu so concurrent module workers never
// interleave partial lines.
type FailuresSink struct {
	mu   sync.Mutex
	path string
}

func NewFailuresSink(path string) (*FailuresSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("scan: open failures sink: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("scan: open failures sink: %w", err)
	}

	return &FailuresSink{path: path}, nil
}

// Record appends one compliance record. It is safe to call from the
// engine's OnCompliance callback, which may run on multiple worker
// goroutines concurrently.
func (s *FailuresSink) Record(module, prompt, response string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Warn(context.Background(), "failures sink write failed", log.String("path", s.path), log.Cause(err))
		return
	}
	defer f.Close()

	line, err := json.Marshal(FailureRecord{
		Module:    module,
		Prompt:    prompt,
		Response:  response,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Warn(context.Background(), "failures sink marshal failed", log.Cause(err))
		return
	}

	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		log.Warn(context.Background(), "failures sink write failed", log.String("path", s.path), log.Cause(err))
	}
}

// Stream reads every record currently on disk, in file order, and sends
// it on the returned channel, which is closed once the file has been
// fully read (or immediately, on a read error).
func (s *FailuresSink) Stream(ctx context.Context) <-chan FailureRecord {
	out := make(chan FailureRecord)

	go func() {
		defer close(out)

		s.mu.Lock()
		f, err := os.Open(s.path)
		s.mu.Unlock()

		if err != nil {
			log.Warn(ctx, "failures sink read failed", log.String("path", s.path), log.Cause(err))
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			var rec FailureRecord
			if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
				log.Warn(ctx, "failures sink decode failed", log.Cause(err))
				continue
			}

			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
