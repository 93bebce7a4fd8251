package tof

// Debouncer suppresses flicker in per-frame classifications by only emitting
// a direction once it has been seen on consecutive updates.
type Debouncer struct {
	minConsecutive int

	last    Direction
	hasLast bool
	count   int

	// ring of recent candidates, oldest at (head-size)
	history []Direction
	head    int
	size    int
}

// NewDebouncer creates a debouncer that emits after minConsecutive identical
// candidates and keeps historySize candidates for Dominant.
func NewDebouncer(minConsecutive, historySize int) *Debouncer {
	if minConsecutive < 1 {
		minConsecutive = 1
	}
	if historySize < 1 {
		historySize = 1
	}
	return &Debouncer{
		minConsecutive: minConsecutive,
		history:        make([]Direction, historySize),
	}
}

// Update records candidate and returns it with true once it has been seen
// minConsecutive times in a row. Otherwise it returns false.
func (d *Debouncer) Update(candidate Direction) (Direction, bool) {
	if d.hasLast && candidate == d.last {
		d.count++
	} else {
		d.last = candidate
		d.hasLast = true
		d.count = 1
	}

	d.history[d.head] = candidate
	d.head = (d.head + 1) % len(d.history)
	if d.size < len(d.history) {
		d.size++
	}

	if d.count >= d.minConsecutive {
		return candidate, true
	}
	return Stationary, false
}

// Dominant returns the most frequent direction among recent candidates. Ties
// go to the direction that appears earliest in the history. It reports false
// before the first update.
func (d *Debouncer) Dominant() (Direction, bool) {
	recent := d.History()
	if len(recent) == 0 {
		return Stationary, false
	}
	counts := make(map[Direction]int, len(recent))
	for _, dir := range recent {
		counts[dir]++
	}
	best := recent[0]
	for _, dir := range recent[1:] {
		if counts[dir] > counts[best] {
			best = dir
		}
	}
	return best, true
}

// History returns recent candidates, oldest first.
func (d *Debouncer) History() []Direction {
	out := make([]Direction, d.size)
	start := (d.head - d.size + len(d.history)) % len(d.history)
	for i := range out {
		out[i] = d.history[(start+i)%len(d.history)]
	}
	return out
}

// Consecutive returns the run length of the last candidate.
func (d *Debouncer) Consecutive() int { return d.count }
