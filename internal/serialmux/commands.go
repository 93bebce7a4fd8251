package serialmux

import (
	"slices"
	"strings"
)

// Define allow list of single character firmware commands. 'i' (interactive
// I2C address change) and 'q' (terminate) are left out.
var allowedCommands = []string{
	"h", // Print help
	"c", // Show and use next configuration
	"e", // Enable device and download TMF8828 firmware
	"E", // Enable device and download TMF882x (3x3) firmware
	"d", // Disable device
	"w", // Wakeup
	"p", // Power down
	"o", // Toggle between TMF8828 and TMF882x mode
	"m", // Start measuring
	"s", // Stop measuring
	"f", // Factory calibration
	"l", // Load factory calibration
	"r", // Restore factory calibration from file
	"z", // Histogram dump
	"a", // Dump registers
	"x", // Clock correction on/off
	"t", // Next persistence set
	"+", // Increase logging
	"-", // Decrease logging
	"#", // Reset chip
}

// IsAllowedCommand reports whether command is a known firmware command.
func IsAllowedCommand(command string) bool {
	return slices.Contains(allowedCommands, strings.TrimSpace(command))
}
