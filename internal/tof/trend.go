package tof

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Trend holds least-squares slopes of centroid row and column against frame
// order, in grid units per frame.
type Trend struct {
	RowSlope float64 `json:"row_slope"`
	ColSlope float64 `json:"col_slope"`
}

// TrendSample is a centroid tagged with its position inside the fitted
// frame span. Positions of frames without a centroid are skipped, not
// renumbered.
type TrendSample struct {
	Index    int      `json:"index"`
	Centroid Centroid `json:"centroid"`
}

// Classification is one trend classifier result.
type Classification struct {
	Direction Direction     `json:"direction"`
	Trend     Trend         `json:"trend"`
	Samples   []TrendSample `json:"samples"`
}

// TrendClassifier maps the centroid trend over the most recent frames of a
// judgement window to a Direction.
type TrendClassifier struct {
	// Frames is how many of the newest frames are fitted.
	Frames int
	// MinCentroids is the fewest frames with a centroid needed for a fit.
	MinCentroids int
	// Threshold is the slope magnitude both axes must stay within for the
	// motion to count as stationary.
	Threshold float64
}

// NewTrendClassifier returns a classifier fitting the last 5 frames, needing
// 3 centroids, with a 0.1 grid-unit per frame threshold.
func NewTrendClassifier() TrendClassifier {
	return TrendClassifier{Frames: 5, MinCentroids: 3, Threshold: 0.1}
}

// Classify reports false when the window holds fewer than Frames frames or
// fewer than MinCentroids of the newest Frames frames have a centroid.
func (c TrendClassifier) Classify(window []Frame) (Classification, bool) {
	if c.Frames < 1 || len(window) < c.Frames {
		return Classification{}, false
	}
	recent := window[len(window)-c.Frames:]

	samples := make([]TrendSample, 0, len(recent))
	for i, f := range recent {
		if cen, ok := FrameCentroid(f); ok {
			samples = append(samples, TrendSample{Index: i, Centroid: cen})
		}
	}
	minCentroids := c.MinCentroids
	if minCentroids < 2 {
		minCentroids = 2 // a slope needs two distinct points
	}
	if len(samples) < minCentroids {
		return Classification{}, false
	}

	trend := FitTrend(samples)
	return Classification{
		Direction: c.DirectionFor(trend),
		Trend:     trend,
		Samples:   samples,
	}, true
}

// FitTrend fits row and column independently against sample index. At least
// two samples with distinct indices are required for a finite result.
func FitTrend(samples []TrendSample) Trend {
	xs := make([]float64, len(samples))
	rows := make([]float64, len(samples))
	cols := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = float64(s.Index)
		rows[i] = s.Centroid.Row
		cols[i] = s.Centroid.Col
	}
	_, rowSlope := stat.LinearRegression(xs, rows, nil, false)
	_, colSlope := stat.LinearRegression(xs, cols, nil, false)
	return Trend{RowSlope: rowSlope, ColSlope: colSlope}
}

// DirectionFor applies a single threshold test: motion is stationary unless
// at least one axis slope exceeds Threshold, in which case the axis with the
// larger magnitude wins. Equal magnitudes resolve to the horizontal axis.
func (c TrendClassifier) DirectionFor(t Trend) Direction {
	ar, ac := math.Abs(t.RowSlope), math.Abs(t.ColSlope)
	if ar <= c.Threshold && ac <= c.Threshold {
		return Stationary
	}
	if ar > ac {
		if t.RowSlope > 0 {
			return Down
		}
		return Up
	}
	if t.ColSlope > 0 {
		return Right
	}
	return Left
}
