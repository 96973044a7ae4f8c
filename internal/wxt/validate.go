package wxt

import (
	"regexp"
	"strings"
)

// packetPattern is the structural preamble of an ASCII packet: station id
// digit, type-marker letter, packet type digit, then the first comma.
var packetPattern = regexp.MustCompile(`^[0-9][A-Za-z][0-9],`)

// ValidateFrame reports whether line is structurally a transmitter packet
// and returns its comma-separated tokens. Lines that fail are expected noise
// on the link and are discarded by the caller, not treated as errors.
func ValidateFrame(line string) ([]string, bool) {
	if !packetPattern.MatchString(line) {
		return nil, false
	}
	return strings.Split(line, ","), true
}
