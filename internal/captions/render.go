package captions

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"chorus/internal/lyrics"
	"chorus/internal/timecode"
)

// revealText builds the line body for the current track. Lines with genuine
// word timing get one reveal tag per word; everything else reveals as a
// single block over the full line duration.
func revealText(line lyrics.Line) string {
	if line.WordTimed && len(line.Words) > 1 {
		var b strings.Builder
		for _, w := range line.Words {
			fmt.Fprintf(&b, "{\\k%d}%s ", karaokeCentis(w.Duration()), w.Text)
		}
		return strings.TrimRight(b.String(), " ")
	}
	return fmt.Sprintf("{\\k%d}%s", karaokeCentis(line.Duration()), line.Text())
}

// karaokeCentis converts a duration to whole centiseconds for a \k tag.
func karaokeCentis(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Round(seconds * 100))
}

// animationTag renders the move/fade override block that precedes the text.
// The current line fades out as it leaves, the entering preview fades in, and
// the middle preview only moves.
func animationTag(ev Event) string {
	a := ev.Animation
	var b strings.Builder
	fmt.Fprintf(&b, "{\\move(%d,%d,%d,%d,%d,%d)",
		a.MoveFromX, a.MoveFromY, a.MoveToX, a.MoveToY, a.MoveStartMs, a.MoveEndMs)
	if ev.Track != TrackNext {
		fmt.Fprintf(&b, "\\fad(%d,%d)", a.FadeInMs, a.FadeOutMs)
	}
	b.WriteString("}")
	return b.String()
}

const stylesFormat = "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding"

const eventsFormat = "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text"

func (d *Document) header() string {
	opts := d.Options.withDefaults()
	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("Title: Karaoke Subtitles\n")
	b.WriteString("ScriptType: v4.00+\n")
	b.WriteString("WrapStyle: 0\n")
	b.WriteString("ScaledBorderAndShadow: yes\n")
	b.WriteString("YCbCr Matrix: TV.601\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", opts.PlayResX)
	fmt.Fprintf(&b, "PlayResY: %d\n", opts.PlayResY)
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString(stylesFormat + "\n")
	fmt.Fprintf(&b, "Style: KaraokeCurrent,%s,%d,%s,&H00FFFFFF,&H00000000,&H00000000,-1,0,0,0,100,100,0,0,1,3,3,2,10,10,10,1\n",
		opts.FontName, opts.CurrentSize, opts.CurrentColor)
	fmt.Fprintf(&b, "Style: KaraokeNext,%s,%d,%s,&H00FFFFFF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2,2,2,10,10,10,1\n",
		opts.FontName, opts.NextSize, opts.NextColor)
	fmt.Fprintf(&b, "Style: KaraokeNext2,%s,%d,%s,&H00FFFFFF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,1,1,2,10,10,10,1\n",
		opts.FontName, opts.NextAfterSize, opts.NextAfterColor)
	b.WriteString("\n[Events]\n")
	b.WriteString(eventsFormat + "\n")
	return b.String()
}

// Render serializes the document to ASS subtitle text.
func (d *Document) Render() string {
	var b strings.Builder
	b.WriteString(d.header())
	for _, ev := range d.Events {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s%s\n",
			timecode.Format(ev.Start), timecode.Format(ev.End),
			ev.Track.StyleName(), animationTag(ev), ev.Text)
	}
	return b.String()
}

// WriteFile renders the document and writes it atomically next to path.
func (d *Document) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create caption directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".captions-*.ass")
	if err != nil {
		return fmt.Errorf("create temp caption file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(d.Render()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write caption data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp caption file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace caption file: %w", err)
	}
	return nil
}
