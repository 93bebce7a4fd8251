package publish

import (
	"context"

	"github.com/banshee-data/tofmotion/internal/monitoring"
)

// LogPublisher writes one line per event.
type LogPublisher struct {
	logf func(format string, v ...interface{})
}

// NewLogPublisher returns a LogPublisher writing through logf, or through
// monitoring.Logf when logf is nil.
func NewLogPublisher(logf func(format string, v ...interface{})) *LogPublisher {
	return &LogPublisher{logf: logf}
}

func (p *LogPublisher) Publish(_ context.Context, ev DirectionEvent) error {
	logf := p.logf
	if logf == nil {
		logf = monitoring.Logf
	}
	logf("direction %s %s (dominant %s) row_slope=%.3f col_slope=%.3f centroids=%d run=%s",
		ev.Direction.Arrow(), ev.Direction, ev.Dominant, ev.RowSlope, ev.ColSlope, len(ev.Centroids), ev.RunID)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
