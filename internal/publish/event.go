// Package publish delivers debounced direction events to downstream sinks.
package publish

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/tofmotion/internal/tof"
)

// DirectionEvent is one debounced direction emission.
type DirectionEvent struct {
	ID        uuid.UUID         `json:"id"`
	RunID     uuid.UUID         `json:"run_id"`
	Direction tof.Direction     `json:"direction"`
	Dominant  tof.Direction     `json:"dominant"`
	RowSlope  float64           `json:"row_slope"`
	ColSlope  float64           `json:"col_slope"`
	Centroids []tof.TrendSample `json:"centroids"`
	Time      time.Time         `json:"time"`
}

// NewDirectionEvent builds an event for an emitted direction. c is the
// classification that produced the emission and may be nil.
func NewDirectionEvent(runID uuid.UUID, dir, dominant tof.Direction, c *tof.Classification, at time.Time) DirectionEvent {
	ev := DirectionEvent{
		ID:        uuid.New(),
		RunID:     runID,
		Direction: dir,
		Dominant:  dominant,
		Time:      at.UTC(),
	}
	if c != nil {
		ev.RowSlope = c.Trend.RowSlope
		ev.ColSlope = c.Trend.ColSlope
		ev.Centroids = append([]tof.TrendSample(nil), c.Samples...)
	}
	return ev
}

// Publisher is a direction event sink.
type Publisher interface {
	Publish(ctx context.Context, ev DirectionEvent) error
	Close() error
}

// Multi fans each event out to every publisher. A failing sink does not stop
// delivery to the others; all errors are joined.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev DirectionEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
