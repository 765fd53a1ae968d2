package lyrics

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"chorus/internal/services"
	"chorus/internal/timecode"
)

// DefaultTailSeconds pads the final line when no following line bounds it.
const DefaultTailSeconds = 5.0

var (
	lineStampRE   = regexp.MustCompile(`^\[(\d+:\d{2}\.\d{2})\](.*)$`)
	inlineStampRE = regexp.MustCompile(`<(\d+:\d{2}\.\d{2})>`)
	metadataRE    = regexp.MustCompile(`^\[[A-Za-z]{2,}:.*\]$`)
)

// WordSegment is one timed token of a lyric line.
type WordSegment struct {
	Text  string
	Start float64
	End   float64
}

// Duration returns the segment length in seconds.
func (w WordSegment) Duration() float64 {
	return w.End - w.Start
}

// Line is a single lyric line with its word segments.
type Line struct {
	Start float64
	End   float64
	Words []WordSegment
	// WordTimed reports whether the words carried genuine inline timestamps
	// rather than an evenly divided fallback split.
	WordTimed bool
}

// Duration returns the line length in seconds.
func (l Line) Duration() float64 {
	return l.End - l.Start
}

// Text returns the plain lyric text with word segments joined by spaces.
func (l Line) Text() string {
	parts := make([]string, 0, len(l.Words))
	for _, w := range l.Words {
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}

// Lyrics is an ordered timed transcript.
type Lyrics struct {
	Lines []Line
	// WordLevel reports whether any line carried usable inline word timing.
	WordLevel bool
}

// Parse converts raw LRC transcript text into a Lyrics model. Records without
// a valid leading timestamp are dropped, metadata records are ignored, ends
// are back-filled from the following line, and the final line receives
// defaultTail seconds of padding (DefaultTailSeconds when defaultTail <= 0).
func Parse(text string, defaultTail float64) (*Lyrics, error) {
	if defaultTail <= 0 {
		defaultTail = DefaultTailSeconds
	}

	var lines []Line
	for _, raw := range strings.Split(text, "\n") {
		record := strings.TrimSpace(raw)
		if record == "" || metadataRE.MatchString(record) {
			continue
		}
		match := lineStampRE.FindStringSubmatch(record)
		if match == nil {
			continue
		}
		start, err := timecode.Parse(match[1])
		if err != nil {
			continue
		}
		line, ok := parseLine(start, match[2])
		if !ok {
			continue
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no timed lyric lines found", services.ErrEmptyTranscript)
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Start < lines[j].Start })

	wordLevel := false
	for i := range lines {
		end := lines[i].Start + defaultTail
		if i+1 < len(lines) {
			end = lines[i+1].Start
		}
		if end < lines[i].Start {
			end = lines[i].Start
		}
		lines[i].End = end
		fillWordTimes(&lines[i])
		if lines[i].WordTimed && len(lines[i].Words) > 1 {
			wordLevel = true
		}
	}

	return &Lyrics{Lines: lines, WordLevel: wordLevel}, nil
}

// parseLine splits a line body into word segments. Inline timestamps win;
// otherwise the text is whitespace-split and the duration divided evenly
// during fillWordTimes. Lines with no tokens report ok == false.
func parseLine(start float64, body string) (Line, bool) {
	line := Line{Start: start}

	stamps := inlineStampRE.FindAllStringSubmatchIndex(body, -1)
	if len(stamps) > 0 {
		for i, stamp := range stamps {
			stampText := body[stamp[2]:stamp[3]]
			wordStart, err := timecode.Parse(stampText)
			if err != nil {
				continue
			}
			tokenEnd := len(body)
			if i+1 < len(stamps) {
				tokenEnd = stamps[i+1][0]
			}
			token := strings.TrimSpace(body[stamp[1]:tokenEnd])
			if token == "" {
				continue
			}
			line.Words = append(line.Words, WordSegment{Text: token, Start: wordStart})
		}
		if len(line.Words) > 0 {
			line.WordTimed = true
			return line, true
		}
	}

	// No usable inline stamps: strip any stray markers and split on whitespace.
	plain := strings.TrimSpace(inlineStampRE.ReplaceAllString(body, ""))
	tokens := strings.Fields(plain)
	if len(tokens) == 0 {
		return Line{}, false
	}
	for _, token := range tokens {
		line.Words = append(line.Words, WordSegment{Text: token})
	}
	return line, true
}

// fillWordTimes back-fills word start/end times once the line end is known.
// Word-timed lines chain each segment to the next stamp; fallback lines get
// an even division of the line duration. Durations never go negative.
func fillWordTimes(line *Line) {
	n := len(line.Words)
	if n == 0 {
		return
	}

	if line.WordTimed {
		for i := range line.Words {
			if i+1 < n {
				line.Words[i].End = line.Words[i+1].Start
			} else {
				line.Words[i].End = line.End
			}
			if line.Words[i].End < line.Words[i].Start {
				line.Words[i].End = line.Words[i].Start
			}
		}
		return
	}

	share := line.Duration() / float64(n)
	for i := range line.Words {
		line.Words[i].Start = line.Start + float64(i)*share
		line.Words[i].End = line.Start + float64(i+1)*share
	}
	// Pin the last end to the line end to absorb float drift.
	line.Words[n-1].End = line.End
}
