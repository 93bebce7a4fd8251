package serialmux

import "strings"

const (
	EventTypeFrame       = "frame"
	EventTypeDeviceError = "device_error"
	EventTypeUnknown     = "unknown"
)

// ClassifyPayload inspects a line from the sensor and returns a simple event
// type token. Only the record marker is checked; frame validation belongs to
// the parser.
func ClassifyPayload(payload string) string {
	p := strings.TrimRight(payload, "\r\n")
	switch {
	case strings.HasPrefix(p, "#Obj"):
		return EventTypeFrame
	case strings.HasPrefix(p, "#Err"):
		return EventTypeDeviceError
	default:
		return EventTypeUnknown
	}
}
