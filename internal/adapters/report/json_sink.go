package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

// JSONFileSink writes each report as an indented JSON document.
type JSONFileSink struct {
	dir  string
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewJSONFileSink writes to path when set, otherwise to a timestamped file
// under dir named {kind}_{YYYYmmdd_HHMMSS}.json.
func NewJSONFileSink(dir, path string) *JSONFileSink {
	if dir == "" {
		dir = "."
	}
	return &JSONFileSink{
		dir:  dir,
		path: path,
		now:  time.Now,
	}
}

var _ domain.ReportSink = (*JSONFileSink)(nil)

// Write stores the report body atomically and returns the file path.
func (s *JSONFileSink) Write(_ context.Context, r domain.Report) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path
	if path == "" {
		path = filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", r.Kind, s.now().Format("20060102_150405")))
	}

	data, err := json.MarshalIndent(r.Body, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s report: %w", r.Kind, err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create report dir: %w", err)
		}
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write temp report file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to save report file: %w", err)
	}
	return path, nil
}
