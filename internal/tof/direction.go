package tof

import "fmt"

// Direction is the discrete motion symbol produced by the trend classifier.
type Direction int

const (
	Stationary Direction = iota
	Up
	Down
	Left
	Right
)

var directionNames = [...]string{
	Stationary: "stationary",
	Up:         "up",
	Down:       "down",
	Left:       "left",
	Right:      "right",
}

// Symbols as printed by the sensor firmware.
var directionSymbols = [...]byte{
	Stationary: '-',
	Up:         'u',
	Down:       'd',
	Left:       'l',
	Right:      'r',
}

var directionArrows = [...]string{
	Stationary: "·",
	Up:         "↑",
	Down:       "↓",
	Left:       "←",
	Right:      "→",
}

func (d Direction) valid() bool {
	return d >= Stationary && d <= Right
}

func (d Direction) String() string {
	if !d.valid() {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// Symbol returns the single-byte firmware symbol for d.
func (d Direction) Symbol() byte {
	if !d.valid() {
		return '?'
	}
	return directionSymbols[d]
}

// Arrow returns a printable arrow for operator displays.
func (d Direction) Arrow() string {
	if !d.valid() {
		return "?"
	}
	return directionArrows[d]
}

// ParseDirection accepts either the long name or the firmware symbol.
func ParseDirection(s string) (Direction, error) {
	for i, name := range directionNames {
		if s == name || (len(s) == 1 && s[0] == directionSymbols[i]) {
			return Direction(i), nil
		}
	}
	return Stationary, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.valid() {
		return nil, fmt.Errorf("invalid direction %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
