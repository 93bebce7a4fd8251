// Package tof interprets the line stream of a 3x3 time-of-flight distance
// sensor: it parses frames, keeps short frame histories, estimates the
// centroid trend across recent frames and debounces the resulting motion
// direction.
package tof

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// GridSize is the edge length of the sensor's zone grid.
	GridSize = 3
	// CellCount is the number of zones in one frame.
	CellCount = GridSize * GridSize

	// FrameMarker prefixes every result line emitted by the sensor.
	FrameMarker = "#Obj"

	// DefaultConfidenceGate is the confidence at or below which a cell's
	// distance is discarded.
	DefaultConfidenceGate = 100

	// MinFrameFields is the fewest comma separated fields a frame line may have.
	MinFrameFields = 22

	firstDistanceField = 6
	resultRecordSize   = 3
	// ResultBlockSize is the length of the firmware's binary result block.
	ResultBlockSize = CellCount * resultRecordSize
)

var (
	ErrNotFrameLine     = errors.New("line is not a frame")
	ErrTooFewFields     = errors.New("frame line has too few fields")
	ErrBadValue         = errors.New("frame line has an invalid value")
	ErrShortResultBlock = errors.New("result block too short")
)

// Cell is one zone reading. Distance is in millimetres.
type Cell struct {
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
}

// Frame is one sampled grid. Index i maps to row i/3, column i%3.
type Frame [CellCount]Cell

// Position returns the grid row and column of cell index i.
func Position(i int) (row, col int) {
	return i / GridSize, i % GridSize
}

// Gate zeroes the distance of every cell whose confidence is at or below
// threshold.
func (f *Frame) Gate(threshold float64) {
	for i := range f {
		if f[i].Confidence <= threshold {
			f[i].Distance = 0
		}
	}
}

// Distances returns the distance readings laid out as a grid.
func (f Frame) Distances() [GridSize][GridSize]float64 {
	var g [GridSize][GridSize]float64
	for i, c := range f {
		r, col := Position(i)
		g[r][col] = c.Distance
	}
	return g
}

// Confidences returns the confidence readings laid out as a grid.
func (f Frame) Confidences() [GridSize][GridSize]float64 {
	var g [GridSize][GridSize]float64
	for i, c := range f {
		r, col := Position(i)
		g[r][col] = c.Confidence
	}
	return g
}

// Parser turns sensor text lines into gated frames.
type Parser struct {
	// ConfidenceGate is used as given; zero keeps every cell with a
	// nonzero confidence.
	ConfidenceGate float64
}

// NewParser returns a Parser with DefaultConfidenceGate.
func NewParser() Parser {
	return Parser{ConfidenceGate: DefaultConfidenceGate}
}

// ParseLine parses a line with the default confidence gate.
func ParseLine(line string) (Frame, error) {
	return NewParser().Parse(line)
}

// Parse turns one "#Obj,..." line into a Frame. Distances sit in fields
// 6,8,...,22 and confidences in 7,9,...,23. A line carrying only 22 or 23
// fields yields eight cells; the ninth stays zero. Any error means the line
// is rejected as a whole.
func (p Parser) Parse(line string) (Frame, error) {
	var f Frame

	// the marker must open the line; only the line ending is stripped
	line = strings.TrimRight(line, " \t\r\n")
	if !strings.HasPrefix(line, FrameMarker) {
		return f, ErrNotFrameLine
	}
	fields := strings.Split(line, ",")
	if len(fields) < MinFrameFields {
		return f, fmt.Errorf("%w: got %d, need %d", ErrTooFewFields, len(fields), MinFrameFields)
	}

	for i := 0; i < CellCount; i++ {
		di := firstDistanceField + 2*i
		ci := di + 1
		if ci >= len(fields) {
			break
		}
		d, err := parseReading(fields[di])
		if err != nil {
			return Frame{}, fmt.Errorf("%w: distance field %d: %v", ErrBadValue, di, err)
		}
		c, err := parseReading(fields[ci])
		if err != nil {
			return Frame{}, fmt.Errorf("%w: confidence field %d: %v", ErrBadValue, ci, err)
		}
		f[i] = Cell{Distance: d, Confidence: c}
	}

	f.Gate(p.ConfidenceGate)
	return f, nil
}

func parseReading(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %q", s)
	}
	return v, nil
}

// DecodeResultBlock decodes the firmware's binary result block: nine records
// of confidence, distance low byte, distance high byte.
func DecodeResultBlock(data []byte) (Frame, error) {
	return NewParser().DecodeResultBlock(data)
}

// DecodeResultBlock decodes a binary result block using p's confidence gate.
func (p Parser) DecodeResultBlock(data []byte) (Frame, error) {
	var f Frame
	if len(data) < ResultBlockSize {
		return f, fmt.Errorf("%w: got %d bytes, need %d", ErrShortResultBlock, len(data), ResultBlockSize)
	}
	for i := 0; i < CellCount; i++ {
		rec := data[i*resultRecordSize:]
		f[i] = Cell{
			Distance:   float64(uint16(rec[2])<<8 | uint16(rec[1])),
			Confidence: float64(rec[0]),
		}
	}
	f.Gate(p.ConfidenceGate)
	return f, nil
}
