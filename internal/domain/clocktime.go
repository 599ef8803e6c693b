package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTimeFormat is returned for time-of-day strings that are not
// HH:MM or HH:MM:SS wall clock times.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// clockOffset is the fixed storage offset for appointment times (Brasília).
const clockOffset = "-03:00"

// NormalizeClockTime converts an HH:MM or HH:MM:SS wall clock string into the
// canonical HH:MM:SS-03:00 form stored alongside appointments. Seconds are
// appended when absent; input already carrying an offset is rejected.
func NormalizeClockTime(s string) (string, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 2:
		parts = append(parts, "00")
	case 3:
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	limits := [3]int{23, 59, 59}
	for i, p := range parts {
		if len(p) != 2 {
			return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return "", fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
		}
	}

	return strings.Join(parts, ":") + clockOffset, nil
}
