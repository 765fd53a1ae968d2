// Package timecode converts between LRC-style timestamps and seconds, and
// renders the ASS presentation time format.
package timecode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"chorus/internal/services"
)

var stampRE = regexp.MustCompile(`^(?:(\d+):)?(\d+):([0-5]\d)\.(\d{2})$`)

// Parse converts an M+:SS.CC timestamp (or the H:MM:SS.CC form Format emits)
// into seconds. Malformed input is an error; there is no zero fallback.
func Parse(text string) (float64, error) {
	m := stampRE.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("%w: timestamp %q: want M:SS.CC", services.ErrParse, text)
	}
	hours := 0
	if m[1] != "" {
		hours, _ = strconv.Atoi(m[1])
	}
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	centis, _ := strconv.Atoi(m[4])
	return float64(hours)*3600 + float64(minutes)*60 + float64(seconds) + float64(centis)/100, nil
}

// Format renders seconds as the canonical ASS time code H:MM:SS.CC. Negative
// inputs clamp to zero.
func Format(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(math.Round(seconds * 100))
	cs := total % 100
	rest := total / 100
	s := rest % 60
	rest /= 60
	m := rest % 60
	h := rest / 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

// Centiseconds rounds a duration in seconds to whole centiseconds.
func Centiseconds(seconds float64) int {
	if seconds < 0 {
		return 0
	}
	return int(math.Round(seconds * 100))
}
