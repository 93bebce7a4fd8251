// Package ingest drives the motion pipeline from a serial line stream.
//
// Lines arriving between clock ticks are buffered; each tick hands the batch
// to tof.Pipeline.Tick, mirrors the newest frame and dominant direction into
// a FrameSink, and publishes any debounced emission.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/tofmotion/internal/monitoring"
	"github.com/banshee-data/tofmotion/internal/publish"
	"github.com/banshee-data/tofmotion/internal/serialmux"
	"github.com/banshee-data/tofmotion/internal/timeutil"
	"github.com/banshee-data/tofmotion/internal/tof"
)

// DefaultTickInterval matches the host application's refresh timer.
const DefaultTickInterval = 50 * time.Millisecond

// FrameSink receives the display-side view of the pipeline after each tick
// that accepted a frame.
type FrameSink interface {
	SetFrame(f tof.Frame, count uint64)
	SetDominant(d tof.Direction, ok bool)
}

// Config wires a Runner. Mux and Pipeline are required.
type Config struct {
	Mux          serialmux.SerialMuxInterface
	Pipeline     *tof.Pipeline
	Publisher    publish.Publisher
	Sink         FrameSink
	Clock        timeutil.Clock
	TickInterval time.Duration
	// RunID tags every event from this process. A random ID is used when nil.
	RunID uuid.UUID
}

// Stats counts what the runner has processed.
type Stats struct {
	Ticks    uint64 `json:"ticks"`
	Accepted uint64 `json:"accepted"`
	Rejected uint64 `json:"rejected"`
	Emitted  uint64 `json:"emitted"`
}

// Runner owns the pipeline and is its only caller.
type Runner struct {
	mux       serialmux.SerialMuxInterface
	pipeline  *tof.Pipeline
	publisher publish.Publisher
	sink      FrameSink
	clock     timeutil.Clock
	interval  time.Duration
	runID     uuid.UUID
	logf      func(format string, v ...interface{})

	statsMu sync.Mutex
	stats   Stats
}

func NewRunner(cfg Config) *Runner {
	r := &Runner{
		mux:       cfg.Mux,
		pipeline:  cfg.Pipeline,
		publisher: cfg.Publisher,
		sink:      cfg.Sink,
		clock:     cfg.Clock,
		interval:  cfg.TickInterval,
		runID:     cfg.RunID,
		logf:      monitoring.Prefixed("[ingest] "),
	}
	if r.pipeline == nil {
		r.pipeline = tof.NewPipeline(tof.DefaultConfig())
	}
	if r.publisher == nil {
		r.publisher = publish.NewLogPublisher(nil)
	}
	if r.clock == nil {
		r.clock = timeutil.RealClock{}
	}
	if r.interval <= 0 {
		r.interval = DefaultTickInterval
	}
	if r.runID == uuid.Nil {
		r.runID = uuid.New()
	}
	return r
}

// RunID returns the ID stamped on this runner's events.
func (r *Runner) RunID() uuid.UUID { return r.runID }

// Stats returns a copy of the counters.
func (r *Runner) Stats() Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.stats
}

// Run consumes lines until ctx is done or the mux closes the subscription.
// It returns ctx.Err() on cancellation and nil when the line source ends.
func (r *Runner) Run(ctx context.Context) error {
	id, lines := r.mux.Subscribe()
	defer r.mux.Unsubscribe(id)

	r.logf("run %s started, tick every %s", r.runID, r.interval)

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	var pending []string
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-lines:
			if !ok {
				r.logf("line source closed")
				return nil
			}
			pending = append(pending, line)

		case now := <-ticker.C():
			r.tick(ctx, pending, now)
			pending = pending[:0]
		}
	}
}

func (r *Runner) tick(ctx context.Context, lines []string, now time.Time) {
	res := r.pipeline.Tick(lines)

	// counted last so a reader that sees the tick also sees its effects
	defer func() {
		r.statsMu.Lock()
		defer r.statsMu.Unlock()
		r.stats.Ticks++
		r.stats.Accepted += uint64(res.Accepted)
		r.stats.Rejected += uint64(res.Rejected)
		if res.Emitted != nil {
			r.stats.Emitted++
		}
	}()

	if res.Accepted == 0 {
		return
	}

	dominant, hasDominant := r.pipeline.Dominant()
	if r.sink != nil {
		if f, ok := r.pipeline.Latest(); ok {
			r.sink.SetFrame(f, r.pipeline.FrameCount())
		}
		r.sink.SetDominant(dominant, hasDominant)
	}

	if res.Classification != nil {
		monitoring.Debugf("[ingest] accepted=%d rejected=%d candidate=%s row_slope=%.3f col_slope=%.3f",
			res.Accepted, res.Rejected, res.Classification.Direction,
			res.Classification.Trend.RowSlope, res.Classification.Trend.ColSlope)
	}

	if res.Emitted == nil {
		return
	}
	ev := publish.NewDirectionEvent(r.runID, *res.Emitted, dominant, res.Classification, now)
	if err := r.publisher.Publish(ctx, ev); err != nil {
		r.logf("failed to publish direction event %s: %v", ev.ID, err)
	}
}
