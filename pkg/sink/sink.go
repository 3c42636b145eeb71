package sink

import (
	"context"
	"fmt"
	"os"

	"weightvault/pkg/weights"
)

// DefaultPath is where integrated weights are written
const DefaultPath = "integrated_weights.json"

// Sink persists an integrated weight sequence
type Sink interface {
	Name() string
	Persist(ctx context.Context, id string, w weights.Weights) error
}

// FileSink writes the weights as a JSON array, replacing any existing file
type FileSink struct {
	Path string
}

var _ Sink = (*FileSink)(nil)

// NewFileSink creates a file sink; an empty path means DefaultPath
func NewFileSink(path string) *FileSink {
	if path == "" {
		path = DefaultPath
	}
	return &FileSink{Path: path}
}

// Name identifies the sink in metrics and logs
func (s *FileSink) Name() string { return "file" }

// Persist writes w to Path with mode 0644
func (s *FileSink) Persist(ctx context.Context, id string, w weights.Weights) error {
	data, err := w.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode weights: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.Path, err)
	}
	return nil
}
