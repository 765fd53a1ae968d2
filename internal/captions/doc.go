// Package captions synthesizes styled karaoke caption events from a timed
// lyric model and renders them as ASS subtitle documents. Each sung line
// produces a current event with a progressive reveal plus up to two preview
// events, all animated with a scroll-up transition between lines.
package captions
