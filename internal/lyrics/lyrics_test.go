package lyrics_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"chorus/internal/lyrics"
	"chorus/internal/services"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 0.011 }

func TestParsePlainLinesEvenSplit(t *testing.T) {
	model, err := lyrics.Parse("[00:01.00]hello world\n[00:03.00]goodbye", 5)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if model.WordLevel {
		t.Fatal("expected WordLevel false for evenly split lines")
	}
	if len(model.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(model.Lines))
	}

	first := model.Lines[0]
	if !approx(first.Start, 1) || !approx(first.End, 3) {
		t.Fatalf("unexpected first line window: %v-%v", first.Start, first.End)
	}
	if len(first.Words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(first.Words))
	}
	for _, w := range first.Words {
		if !approx(w.Duration(), 1) {
			t.Fatalf("expected 1s word duration, got %v for %q", w.Duration(), w.Text)
		}
	}

	last := model.Lines[1]
	if !approx(last.End, 8) {
		t.Fatalf("expected default tail end 8, got %v", last.End)
	}
	if len(last.Words) != 1 || !approx(last.Words[0].Duration(), 5) {
		t.Fatalf("expected single 5s word, got %+v", last.Words)
	}
}

func TestParseInlineWordTimings(t *testing.T) {
	model, err := lyrics.Parse("[00:01.00]<00:01.00>hi<00:01.50>there\n[00:03.00]bye", 5)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !model.WordLevel {
		t.Fatal("expected WordLevel true")
	}

	first := model.Lines[0]
	if !first.WordTimed {
		t.Fatal("expected first line to be word timed")
	}
	if len(first.Words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(first.Words))
	}
	if first.Words[0].Text != "hi" || !approx(first.Words[0].Duration(), 0.5) {
		t.Fatalf("unexpected first word: %+v", first.Words[0])
	}
	if first.Words[1].Text != "there" || !approx(first.Words[1].Duration(), 1.5) {
		t.Fatalf("unexpected second word: %+v", first.Words[1])
	}

	if model.Lines[1].WordTimed {
		t.Fatal("expected second line to fall back to even split")
	}
}

func TestParseDropsMetadataAndInvalidLines(t *testing.T) {
	text := strings.Join([]string{
		"[ti:Song Title]",
		"[ar:Somebody]",
		"not a lyric line",
		"[00:05.00]real line",
		"[99:99.99]broken stamp",
		"[00:07.00]   ",
	}, "\n")
	model, err := lyrics.Parse(text, 5)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(model.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(model.Lines))
	}
	if model.Lines[0].Text() != "real line" {
		t.Fatalf("unexpected text: %q", model.Lines[0].Text())
	}
}

func TestParseEmptyTranscript(t *testing.T) {
	for _, text := range []string{"", "[ti:meta only]", "junk\nmore junk"} {
		_, err := lyrics.Parse(text, 5)
		if err == nil {
			t.Fatalf("expected error for %q", text)
		}
		if !errors.Is(err, services.ErrEmptyTranscript) {
			t.Fatalf("expected empty transcript error, got %v", err)
		}
	}
}

func TestParseSortsAndClampsDuplicateStarts(t *testing.T) {
	text := "[00:10.00]second\n[00:05.00]first\n[00:10.00]also second"
	model, err := lyrics.Parse(text, 5)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(model.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(model.Lines))
	}
	for i := 1; i < len(model.Lines); i++ {
		if model.Lines[i].Start < model.Lines[i-1].Start {
			t.Fatal("lines not sorted by start")
		}
	}
	// Duplicate starts yield a zero-duration line, never a negative one.
	if d := model.Lines[1].Duration(); d < 0 || !approx(d, 0) {
		t.Fatalf("expected zero duration for duplicate start, got %v", d)
	}
}

func TestWordDurationsCoverLine(t *testing.T) {
	model, err := lyrics.Parse("[00:01.00]one two three four five\n[00:04.00]tail", 5)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	line := model.Lines[0]
	var sum float64
	for _, w := range line.Words {
		sum += w.Duration()
	}
	if !approx(sum, line.Duration()) {
		t.Fatalf("word durations sum %v != line duration %v", sum, line.Duration())
	}
}

func TestParseTokenAfterLastInlineStampRunsToLineEnd(t *testing.T) {
	model, err := lyrics.Parse("[00:01.00]<00:01.00>only\n[00:02.00]next", 5)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	w := model.Lines[0].Words[0]
	if !approx(w.End, 2) {
		t.Fatalf("expected final word to run to line end, got %v", w.End)
	}
	if model.WordLevel {
		t.Fatal("single-word inline line should not mark the transcript word level")
	}
}
