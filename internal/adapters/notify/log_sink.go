// Package notify delivers alerts to observers.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

// LogSink writes alerts to a structured logger. Critical alerts log at ERROR,
// everything else at WARN.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Notify(ctx context.Context, a domain.Alert) error {
	level := slog.LevelWarn
	if a.Severity == domain.SeverityCritical {
		level = slog.LevelError
	}
	attrs := []any{"kind", a.Kind, "subject", a.Subject, "at", a.At}
	for k, v := range a.Fields {
		attrs = append(attrs, k, v)
	}
	s.log.Log(ctx, level, a.Message, attrs...)
	return nil
}

// MultiSink fans an alert out to every sink, joining their errors.
type MultiSink []domain.AlertSink

func (m MultiSink) Notify(ctx context.Context, a domain.Alert) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ domain.AlertSink = (*LogSink)(nil)
	_ domain.AlertSink = MultiSink(nil)
)
