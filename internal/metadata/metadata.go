// Package metadata infers artist and title information from source filenames
// and produces filesystem-safe and display forms of them.
package metadata

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Track holds the inferred identity of a song.
type Track struct {
	Artist string
	Title  string
}

var titleCaser = cases.Title(language.Und)

// Infer derives artist and title from a source reference. Local paths and
// URLs are reduced to their base name, the extension is stripped, and a
// single "artist - title" separator is honored. Anything else becomes a
// title with no artist.
func Infer(source string) Track {
	name := baseName(source)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.TrimSpace(name)

	return FromDisplay(name)
}

// FromDisplay parses an "Artist - Title" display string, the shape media
// sites publish, into a Track. Unlike Infer it performs no path or
// extension handling, so dots in titles survive.
func FromDisplay(s string) Track {
	s = strings.TrimSpace(s)
	if artist, title, found := strings.Cut(s, " - "); found {
		artist = strings.TrimSpace(artist)
		title = strings.TrimSpace(title)
		if artist != "" && title != "" {
			return Track{Artist: artist, Title: title}
		}
	}
	return Track{Title: s}
}

func baseName(source string) string {
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && u.Host != "" {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			return base
		}
		return u.Host
	}
	return filepath.Base(source)
}

// Display returns a human-facing "Artist - Title" string in title case.
func (t Track) Display() string {
	title := titleCaser.String(strings.TrimSpace(t.Title))
	artist := titleCaser.String(strings.TrimSpace(t.Artist))
	if artist == "" {
		return title
	}
	if title == "" {
		return artist
	}
	return artist + " - " + title
}

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// SafeBaseName returns a sanitized base name suitable for output files.
// Empty identities collapse to "track".
func (t Track) SafeBaseName() string {
	base := t.Title
	if strings.TrimSpace(t.Artist) != "" {
		base = t.Artist + " - " + t.Title
	}
	safe := SanitizeFileName(base)
	if safe == "" {
		return "track"
	}
	return safe
}
