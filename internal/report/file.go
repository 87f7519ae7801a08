package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileConfig configures the file reporter.
type FileConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"` // json|yaml, default json
}

// FileReporter keeps the latest snapshot in a file. Each report replaces the
// file atomically so readers never see a partial snapshot.
type FileReporter struct {
	path   string
	format Format
}

// NewFileReporter validates cfg and creates the reporter.
func NewFileReporter(cfg FileConfig) (*FileReporter, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file reporter requires a path")
	}
	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	return &FileReporter{path: cfg.Path, format: format}, nil
}

func (r *FileReporter) Name() string {
	return "file"
}

func (r *FileReporter) Report(ctx context.Context, s *Snapshot) error {
	data, err := s.Encode(r.format)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (r *FileReporter) Close() error {
	return nil
}

// ReadFile loads a snapshot written by the file reporter, choosing the
// format from the file extension.
func ReadFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	format := FormatJSON
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	return Decode(data, format)
}
