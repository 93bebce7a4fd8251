package tof

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emissions(results []TickResult) []Direction {
	var out []Direction
	for _, r := range results {
		if r.Emitted != nil {
			out = append(out, *r.Emitted)
		}
	}
	return out
}

// Only the distance of the two lit cells changes. Cell positions stay put,
// so the centroid never moves and the stream settles on stationary.
func TestPipeline_GrowingDistanceStaysStationary(t *testing.T) {
	p := NewPipeline(DefaultConfig())

	var results []TickResult
	for i := 0; i < 6; i++ {
		d := strconv.Itoa(150 + 10*i)
		line := "#Obj,0,0,0,0,0," + d + ",200,0,0," + d + ",200,0,0,0,0,0,0,0,0,0,0,0,0"
		results = append(results, p.Feed(line))
	}

	for i := 0; i < 4; i++ {
		assert.Nil(t, results[i].Classification, "tick %d: judgement window not filled", i)
	}
	require.NotNil(t, results[4].Classification)
	assert.Equal(t, Stationary, results[4].Classification.Direction)
	assert.Nil(t, results[4].Emitted, "first classification is not yet stable")

	assert.Equal(t, []Direction{Stationary}, emissions(results))
	assert.NotNil(t, results[5].Emitted)

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, 200.0, latest[0].Distance)
	assert.Equal(t, 200.0, latest[2].Distance)
}

func TestPipeline_ObjectMovingDownEmitsDown(t *testing.T) {
	p := NewPipeline(DefaultConfig())

	var results []TickResult
	for _, cell := range []int{1, 1, 4, 4, 7, 7} {
		results = append(results, p.Feed(frameLine(map[int][2]float64{cell: {350, 180}})))
	}

	assert.Equal(t, []Direction{Down}, emissions(results))
	require.NotNil(t, results[4].Classification)
	assert.Equal(t, Down, results[4].Classification.Direction)

	dom, ok := p.Dominant()
	require.True(t, ok)
	assert.Equal(t, Down, dom)
}

func TestPipeline_MalformedLinesAreIgnored(t *testing.T) {
	p := NewPipeline(DefaultConfig())

	res := p.Tick([]string{
		"boot banner",
		"#Obj,1,2",
		"#Err,inter,5,but no data",
		frameLine(map[int][2]float64{4: {100, 150}}),
	})

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, 3, res.Rejected)
	assert.Nil(t, res.Classification)
	assert.EqualValues(t, 1, p.FrameCount())
}

func TestPipeline_EmptyTickLeavesStateAlone(t *testing.T) {
	p := NewPipeline(DefaultConfig())
	for _, cell := range []int{3, 3, 4, 5, 5} {
		p.Feed(frameLine(map[int][2]float64{cell: {300, 200}}))
	}

	// Repeated empty ticks must not feed stale classifications to the
	// debouncer.
	for i := 0; i < 3; i++ {
		res := p.Tick(nil)
		assert.Nil(t, res.Classification)
		assert.Nil(t, res.Emitted)
	}
	res := p.Tick([]string{"garbage"})
	assert.Nil(t, res.Emitted)

	hist := p.debouncer.History()
	assert.Len(t, hist, 1)
}

func TestPipeline_OneClassificationPerTick(t *testing.T) {
	p := NewPipeline(DefaultConfig())

	var lines []string
	for _, cell := range []int{1, 1, 4, 4, 7, 7, 7} {
		lines = append(lines, frameLine(map[int][2]float64{cell: {350, 180}}))
	}
	res := p.Tick(lines)

	assert.Equal(t, 7, res.Accepted)
	require.NotNil(t, res.Classification)
	assert.Nil(t, res.Emitted, "a single pass cannot satisfy two consecutive candidates")
	assert.Len(t, p.debouncer.History(), 1)
}

func TestPipeline_WindowsAreIndependent(t *testing.T) {
	p := NewPipeline(DefaultConfig())
	for i := 0; i < 12; i++ {
		p.Feed(frameLine(map[int][2]float64{0: {float64(i + 1), 200}}))
	}

	display := p.DisplayWindow()
	judge := p.JudgeWindow()
	require.Len(t, display, 3)
	require.Len(t, judge, 10)
	assert.Equal(t, 10.0, display[0][0].Distance)
	assert.Equal(t, 3.0, judge[0][0].Distance)
	assert.Equal(t, 12.0, judge[9][0].Distance)
}

func TestPipeline_TickFramesAppliesGate(t *testing.T) {
	p := NewPipeline(DefaultConfig())
	res := p.TickFrames(Frame{4: {Distance: 500, Confidence: 50}})

	assert.Equal(t, 1, res.Accepted)
	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Zero(t, latest[4].Distance)
}

func TestPipeline_CustomConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrendFrames = 3
	cfg.MinConsecutive = 1
	p := NewPipeline(cfg)

	var results []TickResult
	for _, cell := range []int{3, 4, 5} {
		results = append(results, p.Feed(frameLine(map[int][2]float64{cell: {350, 180}})))
	}
	assert.Equal(t, []Direction{Right}, emissions(results))
}
