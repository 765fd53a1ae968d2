package timecode_test

import (
	"errors"
	"math"
	"testing"

	"chorus/internal/services"
	"chorus/internal/timecode"
)

func TestParseValid(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"00:00.00", 0},
		{"00:01.00", 1},
		{"01:30.50", 90.5},
		{"99:59.99", 99*60 + 59.99},
		{"123:00.01", 123*60 + 0.01},
	}
	for _, tc := range cases {
		got, err := timecode.Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "1:2.3", "01:60.00", "1:00", "abc", "-1:00.00", "1:00,50"} {
		if _, err := timecode.Parse(in); err == nil {
			t.Fatalf("Parse(%q): expected error", in)
		} else if !errors.Is(err, services.ErrParse) {
			t.Fatalf("Parse(%q): error %v is not a parse error", in, err)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0:00:00.00"},
		{1.5, "0:00:01.50"},
		{90.25, "0:01:30.25"},
		{3845.07, "1:04:05.07"},
		{-3, "0:00:00.00"},
	}
	for _, tc := range cases {
		if got := timecode.Format(tc.in); got != tc.want {
			t.Fatalf("Format(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, in := range []string{"00:01.00", "01:30.55", "59:59.99", "72:00.01"} {
		secs, err := timecode.Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		again, err := timecode.Parse(timecode.Format(secs))
		if err != nil {
			t.Fatalf("Parse(Format(%q)): %v", in, err)
		}
		if timecode.Centiseconds(again) != timecode.Centiseconds(secs) {
			t.Fatalf("round trip drifted for %q: %v != %v", in, again, secs)
		}
	}
}
