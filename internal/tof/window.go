package tof

// FrameWindow is a fixed-capacity FIFO of frames. Pushing past capacity
// overwrites the oldest frame.
type FrameWindow struct {
	frames   []Frame
	capacity int
	head     int // next write position
	size     int
}

// NewFrameWindow creates a window holding at most capacity frames.
func NewFrameWindow(capacity int) *FrameWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameWindow{
		frames:   make([]Frame, capacity),
		capacity: capacity,
	}
}

// Push stores f, evicting the oldest frame when full.
func (w *FrameWindow) Push(f Frame) {
	w.frames[w.head] = f
	w.head = (w.head + 1) % w.capacity
	if w.size < w.capacity {
		w.size++
	}
}

// Latest returns the most recently pushed frame.
func (w *FrameWindow) Latest() (Frame, bool) {
	if w.size == 0 {
		return Frame{}, false
	}
	return w.frames[(w.head-1+w.capacity)%w.capacity], true
}

// Window returns a copy of the contents, oldest first.
func (w *FrameWindow) Window() []Frame {
	out := make([]Frame, w.size)
	start := (w.head - w.size + w.capacity) % w.capacity
	for i := 0; i < w.size; i++ {
		out[i] = w.frames[(start+i)%w.capacity]
	}
	return out
}

// Len returns the number of frames held, at most Cap.
func (w *FrameWindow) Len() int { return w.size }

// Cap returns the window capacity.
func (w *FrameWindow) Cap() int { return w.capacity }

// Reset drops all frames.
func (w *FrameWindow) Reset() {
	w.head = 0
	w.size = 0
}
