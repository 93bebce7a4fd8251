package api

import (
	"context"
	"sync"

	"github.com/banshee-data/tofmotion/internal/publish"
	"github.com/banshee-data/tofmotion/internal/tof"
)

// eventBuffer is the per-stream backlog. Events for a stream that falls
// further behind are dropped for that stream only.
const eventBuffer = 16

// State is the snapshot of the pipeline shared between the ingest loop, which
// writes it, and HTTP handlers, which read it. It also acts as a
// publish.Publisher so emitted events reach /api/events subscribers.
type State struct {
	mu          sync.RWMutex
	latest      tof.Frame
	hasFrame    bool
	frameCount  uint64
	last        *publish.DirectionEvent
	dominant    tof.Direction
	hasDominant bool

	subMu  sync.Mutex
	subs   map[int]chan publish.DirectionEvent
	nextID int
	closed bool
}

var _ publish.Publisher = (*State)(nil)

func NewState() *State {
	return &State{subs: make(map[int]chan publish.DirectionEvent)}
}

// SetFrame records the newest display frame and the running frame count.
func (s *State) SetFrame(f tof.Frame, count uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = f
	s.hasFrame = true
	s.frameCount = count
}

// LatestFrame returns the newest frame and the frame count.
func (s *State) LatestFrame() (tof.Frame, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.frameCount, s.hasFrame
}

// SetDominant records the debouncer's dominant symbol.
func (s *State) SetDominant(d tof.Direction, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dominant = d
	s.hasDominant = ok
}

// Dominant returns the last recorded dominant symbol.
func (s *State) Dominant() (tof.Direction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dominant, s.hasDominant
}

// LastEvent returns the most recent emitted direction event.
func (s *State) LastEvent() (publish.DirectionEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return publish.DirectionEvent{}, false
	}
	return *s.last, true
}

// Publish stores ev as the last event and fans it out to stream subscribers.
func (s *State) Publish(_ context.Context, ev publish.DirectionEvent) error {
	s.mu.Lock()
	s.last = &ev
	s.mu.Unlock()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe registers an event stream. The returned cancel func unregisters
// it and closes the channel; Close does the same for every stream.
func (s *State) Subscribe() (<-chan publish.DirectionEvent, func()) {
	ch := make(chan publish.DirectionEvent, eventBuffer)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

// Close ends every event stream.
func (s *State) Close() error {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	return nil
}
