package captions

import (
	"math"
	"strings"

	"chorus/internal/lyrics"
)

// Track identifies the on-screen slot an event renders into.
type Track int

const (
	// TrackCurrent is the actively sung line with the karaoke reveal.
	TrackCurrent Track = iota
	// TrackNext previews the following line.
	TrackNext
	// TrackNextAfter previews the line after next.
	TrackNextAfter
)

// StyleName returns the ASS style the track renders with.
func (t Track) StyleName() string {
	switch t {
	case TrackNext:
		return "KaraokeNext"
	case TrackNextAfter:
		return "KaraokeNext2"
	default:
		return "KaraokeCurrent"
	}
}

// AnimationSpec describes the scroll-up transition attached to an event.
// TransitionMs is clamped to half the line duration at construction so
// transitions on short lines never overlap.
type AnimationSpec struct {
	TransitionMs int
	MoveFromX    int
	MoveFromY    int
	MoveToX      int
	MoveToY      int
	MoveStartMs  int
	MoveEndMs    int
	FadeInMs     int
	FadeOutMs    int
}

// Event is one timed, styled caption record. Immutable once synthesized.
type Event struct {
	Track     Track
	Start     float64
	End       float64
	Animation AnimationSpec
	// Text is the rendered line body including reveal control codes but not
	// the animation tag block.
	Text string
}

// Duration returns the event length in seconds.
func (e Event) Duration() float64 {
	return e.End - e.Start
}

// Options carries the presentation parameters for synthesis. Zero values are
// replaced by the repository defaults.
type Options struct {
	PlayResX       int
	PlayResY       int
	FontName       string
	CurrentSize    int
	NextSize       int
	NextAfterSize  int
	CurrentColor   string
	NextColor      string
	NextAfterColor string
	TransitionMs   int
}

const (
	defaultPlayResX     = 1920
	defaultPlayResY     = 1080
	defaultFontName     = "Arial"
	defaultCurrentSize  = 72
	defaultNextSize     = 56
	defaultNext2Size    = 44
	defaultTransitionMs = 500

	defaultCurrentColor = "&H00FFFFFF"
	defaultNextColor    = "&H88FFFFFF"
	defaultNext2Color   = "&H66FFFFFF"
)

func (o Options) withDefaults() Options {
	if o.PlayResX <= 0 {
		o.PlayResX = defaultPlayResX
	}
	if o.PlayResY <= 0 {
		o.PlayResY = defaultPlayResY
	}
	if strings.TrimSpace(o.FontName) == "" {
		o.FontName = defaultFontName
	}
	if o.CurrentSize <= 0 {
		o.CurrentSize = defaultCurrentSize
	}
	if o.NextSize <= 0 {
		o.NextSize = defaultNextSize
	}
	if o.NextAfterSize <= 0 {
		o.NextAfterSize = defaultNext2Size
	}
	if o.CurrentColor == "" {
		o.CurrentColor = defaultCurrentColor
	}
	if o.NextColor == "" {
		o.NextColor = defaultNextColor
	}
	if o.NextAfterColor == "" {
		o.NextAfterColor = defaultNext2Color
	}
	if o.TransitionMs <= 0 {
		o.TransitionMs = defaultTransitionMs
	}
	return o
}

// Slot Y positions at 1080p, scaled to the configured PlayResY. The current
// line sits above the two previews; every transition shifts a line up one slot.
const (
	baseCurrentY = 400
	baseNextY    = 520
	baseNext2Y   = 660
	baseEntryY   = 800
	baseResY     = 1080
)

type layout struct {
	centerX  int
	currentY int
	nextY    int
	next2Y   int
	entryY   int
}

func layoutFor(opts Options) layout {
	scale := func(y int) int { return y * opts.PlayResY / baseResY }
	return layout{
		centerX:  opts.PlayResX / 2,
		currentY: scale(baseCurrentY),
		nextY:    scale(baseNextY),
		next2Y:   scale(baseNext2Y),
		entryY:   scale(baseEntryY),
	}
}

// Document is a synthesized caption stream plus its presentation header data.
type Document struct {
	Options Options
	Events  []Event
}

// Synthesize converts a lyric model into the ordered caption event stream:
// per line, a current event with progressive reveal plus up to two preview
// events sharing the same time window. Zero-duration lines are permitted and
// produce zero-duration events.
func Synthesize(model *lyrics.Lyrics, opts Options) *Document {
	opts = opts.withDefaults()
	pos := layoutFor(opts)

	doc := &Document{Options: opts}
	if model == nil {
		return doc
	}

	for i, line := range model.Lines {
		durMs := int(math.Round(line.Duration() * 1000))
		if durMs < 0 {
			durMs = 0
		}
		transMs := opts.TransitionMs
		if half := durMs / 2; transMs > half {
			transMs = half
		}
		moveStartMs := 0
		if durMs > transMs {
			moveStartMs = durMs - transMs
		}

		doc.Events = append(doc.Events, Event{
			Track: TrackCurrent,
			Start: line.Start,
			End:   line.End,
			Animation: AnimationSpec{
				TransitionMs: transMs,
				MoveFromX:    pos.centerX,
				MoveFromY:    pos.nextY,
				MoveToX:      pos.centerX,
				MoveToY:      pos.currentY,
				MoveStartMs:  moveStartMs,
				MoveEndMs:    durMs,
				FadeOutMs:    transMs,
			},
			Text: revealText(line),
		})

		if i+1 < len(model.Lines) {
			doc.Events = append(doc.Events, Event{
				Track: TrackNext,
				Start: line.Start,
				End:   line.End,
				Animation: AnimationSpec{
					TransitionMs: transMs,
					MoveFromX:    pos.centerX,
					MoveFromY:    pos.next2Y,
					MoveToX:      pos.centerX,
					MoveToY:      pos.nextY,
					MoveStartMs:  moveStartMs,
					MoveEndMs:    durMs,
				},
				Text: model.Lines[i+1].Text(),
			})
		}

		if i+2 < len(model.Lines) {
			doc.Events = append(doc.Events, Event{
				Track: TrackNextAfter,
				Start: line.Start,
				End:   line.End,
				Animation: AnimationSpec{
					TransitionMs: transMs,
					MoveFromX:    pos.centerX,
					MoveFromY:    pos.entryY,
					MoveToX:      pos.centerX,
					MoveToY:      pos.next2Y,
					MoveStartMs:  moveStartMs,
					MoveEndMs:    durMs,
					FadeInMs:     transMs,
				},
				Text: model.Lines[i+2].Text(),
			})
		}
	}

	return doc
}
