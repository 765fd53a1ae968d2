// Command chorus turns a song into a karaoke video: it downloads or reads
// the source audio, separates the vocals, fetches synced lyrics, synthesizes
// animated ASS captions, and renders the final video with ffmpeg. Stage
// outputs are cached by content fingerprint so repeated runs skip work that
// is already done.
package main
