package tof

// Centroid is the mean grid position of a frame's populated cells.
type Centroid struct {
	Row float64 `json:"row"`
	Col float64 `json:"col"`
}

// FrameCentroid averages the (row, col) positions of cells with a nonzero
// distance. It reports false for a frame with no such cell; callers must skip
// that frame rather than treat it as (0, 0).
func FrameCentroid(f Frame) (Centroid, bool) {
	var sumRow, sumCol float64
	n := 0
	for i, c := range f {
		if c.Distance <= 0 {
			continue
		}
		r, col := Position(i)
		sumRow += float64(r)
		sumCol += float64(col)
		n++
	}
	if n == 0 {
		return Centroid{}, false
	}
	return Centroid{Row: sumRow / float64(n), Col: sumCol / float64(n)}, true
}
