// Package lyrics parses LRC-format timed transcripts into an explicit line
// and word-segment model with back-filled end times.
package lyrics
