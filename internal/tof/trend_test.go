package tof

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cellFrame returns a frame with the given cells populated.
func cellFrame(cells ...int) Frame {
	var f Frame
	for _, i := range cells {
		f[i] = Cell{Distance: 400, Confidence: 200}
	}
	return f
}

func TestFrameCentroid(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  Centroid
	}{
		{"single corner", cellFrame(0), Centroid{Row: 0, Col: 0}},
		{"centre", cellFrame(4), Centroid{Row: 1, Col: 1}},
		{"top row ends", cellFrame(0, 2), Centroid{Row: 0, Col: 1}},
		{"diagonal", cellFrame(0, 4, 8), Centroid{Row: 1, Col: 1}},
		{"bottom pair", cellFrame(7, 8), Centroid{Row: 2, Col: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FrameCentroid(tt.frame)
			require.True(t, ok)
			assert.InDelta(t, tt.want.Row, got.Row, 1e-12)
			assert.InDelta(t, tt.want.Col, got.Col, 1e-12)
		})
	}
}

func TestFrameCentroid_Undefined(t *testing.T) {
	_, ok := FrameCentroid(Frame{})
	assert.False(t, ok, "all-zero frame has no centroid")

	// confidence alone does not place a cell
	_, ok = FrameCentroid(Frame{3: {Distance: 0, Confidence: 255}})
	assert.False(t, ok)
}

func TestFitTrend_ConstantRowStep(t *testing.T) {
	var samples []TrendSample
	for i := 0; i < 5; i++ {
		samples = append(samples, TrendSample{Index: i, Centroid: Centroid{Row: 0.25 * float64(i), Col: 1}})
	}

	trend := FitTrend(samples)
	assert.InDelta(t, 0.25, trend.RowSlope, 1e-9)
	assert.InDelta(t, 0, trend.ColSlope, 1e-9)
	assert.Equal(t, Down, NewTrendClassifier().DirectionFor(trend))
}

func TestFitTrend_ConstantSequence(t *testing.T) {
	var samples []TrendSample
	for i := 0; i < 5; i++ {
		samples = append(samples, TrendSample{Index: i, Centroid: Centroid{Row: 1, Col: 0.5}})
	}

	trend := FitTrend(samples)
	assert.InDelta(t, 0, trend.RowSlope, 1e-9)
	assert.InDelta(t, 0, trend.ColSlope, 1e-9)
	assert.Equal(t, Stationary, NewTrendClassifier().DirectionFor(trend))
}

func TestDirectionFor(t *testing.T) {
	c := NewTrendClassifier()
	tests := []struct {
		name  string
		trend Trend
		want  Direction
	}{
		{"still", Trend{0, 0}, Stationary},
		{"both at threshold", Trend{0.1, -0.1}, Stationary},
		{"just above on rows", Trend{0.11, 0}, Down},
		{"up", Trend{-0.5, 0.2}, Up},
		{"right", Trend{0.05, 0.3}, Right},
		{"left", Trend{-0.2, -0.4}, Left},
		{"equal magnitudes go horizontal", Trend{0.3, -0.3}, Left},
		{"vertical wins when larger", Trend{0.31, 0.3}, Down},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.DirectionFor(tt.trend))
		})
	}
}

func TestClassify_InsufficientFrames(t *testing.T) {
	c := NewTrendClassifier()
	window := []Frame{cellFrame(0), cellFrame(3), cellFrame(6), cellFrame(6)}

	_, ok := c.Classify(window)
	assert.False(t, ok)
}

func TestClassify_InsufficientCentroids(t *testing.T) {
	c := NewTrendClassifier()
	window := []Frame{cellFrame(0), {}, cellFrame(3), {}, {}}

	_, ok := c.Classify(window)
	assert.False(t, ok, "only two of five frames have a centroid")
}

func TestClassify_UsesNewestFrames(t *testing.T) {
	c := NewTrendClassifier()
	// Older frames move right; the newest five move down.
	window := []Frame{
		cellFrame(0), cellFrame(1), cellFrame(2),
		cellFrame(1), cellFrame(1), cellFrame(4), cellFrame(4), cellFrame(7),
	}

	got, ok := c.Classify(window)
	require.True(t, ok)
	assert.Equal(t, Down, got.Direction)
	assert.InDelta(t, 0.5, got.Trend.RowSlope, 1e-9)
	assert.InDelta(t, 0, got.Trend.ColSlope, 1e-9)
	assert.Len(t, got.Samples, 5)
}

func TestClassify_Directions(t *testing.T) {
	c := NewTrendClassifier()
	tests := []struct {
		name   string
		frames []Frame
		want   Direction
	}{
		{"down", []Frame{cellFrame(1), cellFrame(1), cellFrame(4), cellFrame(4), cellFrame(7)}, Down},
		{"up", []Frame{cellFrame(7), cellFrame(7), cellFrame(4), cellFrame(1), cellFrame(1)}, Up},
		{"right", []Frame{cellFrame(3), cellFrame(3), cellFrame(4), cellFrame(5), cellFrame(5)}, Right},
		{"left", []Frame{cellFrame(5), cellFrame(4), cellFrame(4), cellFrame(3), cellFrame(3)}, Left},
		{"still", []Frame{cellFrame(4), cellFrame(4), cellFrame(4), cellFrame(4), cellFrame(4)}, Stationary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Classify(tt.frames)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Direction)
		})
	}
}

// Frames without a centroid leave gaps in the fit indices. The gap is kept
// rather than closed, so the slope reflects the original frame spacing.
func TestClassify_GapsKeepFrameIndices(t *testing.T) {
	c := NewTrendClassifier()
	window := []Frame{cellFrame(1), cellFrame(1), {}, cellFrame(7), cellFrame(7)}

	got, ok := c.Classify(window)
	require.True(t, ok)

	indices := make([]int, len(got.Samples))
	for i, s := range got.Samples {
		indices[i] = s.Index
	}
	assert.Equal(t, []int{0, 1, 3, 4}, indices)
	// rows 0,0,2,2 at x 0,1,3,4 fit to 0.6; closing the gap would give 0.8
	assert.InDelta(t, 0.6, got.Trend.RowSlope, 1e-9)
	assert.Equal(t, Down, got.Direction)
}
