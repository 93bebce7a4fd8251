package tof

// Config sizes the windows and thresholds used by a Pipeline.
type Config struct {
	ConfidenceGate    float64
	DisplayWindow     int
	JudgeWindow       int
	TrendFrames       int
	MinCentroids      int
	MovementThreshold float64
	MinConsecutive    int
	HistorySize       int
}

// DefaultConfig returns the values the sensor firmware ships with.
func DefaultConfig() Config {
	return Config{
		ConfidenceGate:    DefaultConfidenceGate,
		DisplayWindow:     3,
		JudgeWindow:       10,
		TrendFrames:       5,
		MinCentroids:      3,
		MovementThreshold: 0.1,
		MinConsecutive:    2,
		HistorySize:       5,
	}
}

// TickResult summarises one Tick.
type TickResult struct {
	Accepted int
	Rejected int

	// Classification is set when this tick produced a trend classification.
	Classification *Classification
	// Emitted is set when the debouncer emitted a direction this tick.
	Emitted *Direction
}

// Pipeline owns the frame windows, classifier and debouncer for one sensor
// stream. It is not safe for concurrent use; a single driving loop calls it.
type Pipeline struct {
	parser     Parser
	display    *FrameWindow
	judge      *FrameWindow
	classifier TrendClassifier
	debouncer  *Debouncer
	frames     uint64
}

// NewPipeline creates a pipeline from cfg.
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{
		parser:  Parser{ConfidenceGate: cfg.ConfidenceGate},
		display: NewFrameWindow(cfg.DisplayWindow),
		judge:   NewFrameWindow(cfg.JudgeWindow),
		classifier: TrendClassifier{
			Frames:       cfg.TrendFrames,
			MinCentroids: cfg.MinCentroids,
			Threshold:    cfg.MovementThreshold,
		},
		debouncer: NewDebouncer(cfg.MinConsecutive, cfg.HistorySize),
	}
}

// Tick parses lines, pushes accepted frames into both windows and, when at
// least one frame was accepted, runs a single classification and debounce
// pass. Rejected lines are counted and otherwise ignored.
func (p *Pipeline) Tick(lines []string) TickResult {
	var res TickResult
	for _, line := range lines {
		f, err := p.parser.Parse(line)
		if err != nil {
			res.Rejected++
			continue
		}
		p.PushFrame(f)
		res.Accepted++
	}
	if res.Accepted == 0 {
		return res
	}
	p.evaluate(&res)
	return res
}

// Feed runs a Tick over a single line.
func (p *Pipeline) Feed(line string) TickResult {
	return p.Tick([]string{line})
}

// TickFrames is Tick for frames that were decoded elsewhere, such as binary
// result blocks.
func (p *Pipeline) TickFrames(frames ...Frame) TickResult {
	res := TickResult{Accepted: len(frames)}
	if len(frames) == 0 {
		return res
	}
	for _, f := range frames {
		f.Gate(p.parser.ConfidenceGate)
		p.PushFrame(f)
	}
	p.evaluate(&res)
	return res
}

// PushFrame adds f to both windows without classifying.
func (p *Pipeline) PushFrame(f Frame) {
	p.display.Push(f)
	p.judge.Push(f)
	p.frames++
}

func (p *Pipeline) evaluate(res *TickResult) {
	c, ok := p.classifier.Classify(p.judge.Window())
	if !ok {
		return
	}
	res.Classification = &c
	if dir, ok := p.debouncer.Update(c.Direction); ok {
		res.Emitted = &dir
	}
}

// Latest returns the newest frame of the display window.
func (p *Pipeline) Latest() (Frame, bool) {
	return p.display.Latest()
}

// DisplayWindow returns the display window contents, oldest first.
func (p *Pipeline) DisplayWindow() []Frame {
	return p.display.Window()
}

// JudgeWindow returns the judgement window contents, oldest first.
func (p *Pipeline) JudgeWindow() []Frame {
	return p.judge.Window()
}

// Dominant returns the debouncer's most frequent recent candidate.
func (p *Pipeline) Dominant() (Direction, bool) {
	return p.debouncer.Dominant()
}

// FrameCount is the number of frames accepted since creation.
func (p *Pipeline) FrameCount() uint64 {
	return p.frames
}
