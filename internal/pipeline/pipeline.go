// Package pipeline orchestrates the karaoke synthesis stages: fetch audio,
// separate stems, fetch lyrics, build captions, render video. Each stage is
// keyed by a content fingerprint so reruns over unchanged inputs are served
// from the artifact cache, and a failure halts the run while keeping every
// earlier stage's cache entry intact.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"chorus/internal/cache"
	"chorus/internal/config"
	"chorus/internal/logging"
	"chorus/internal/media/demucs"
	"chorus/internal/media/ffmpeg"
	"chorus/internal/media/lrclib"
	"chorus/internal/metadata"
	"chorus/internal/runstore"
)

// Fetcher downloads remote source audio and resolves remote titles.
type Fetcher interface {
	Fetch(ctx context.Context, url, destDir string) (string, error)
	Title(ctx context.Context, url string) (string, error)
}

// Separator splits a track into vocal and instrumental stems.
type Separator interface {
	Separate(ctx context.Context, audioPath, outDir string) (demucs.Stems, error)
}

// LyricsFinder retrieves time-synced lyrics for a track.
type LyricsFinder interface {
	FindSynced(ctx context.Context, artist, title string) (lrclib.Result, error)
}

// Renderer produces the final video.
type Renderer interface {
	Render(ctx context.Context, spec ffmpeg.RenderSpec) error
}

// Prober inspects media so the pipeline can reject unusable audio before
// spending work on it.
type Prober interface {
	Probe(ctx context.Context, path string) (ffmpeg.ProbeResult, error)
}

// Job describes one requested pipeline run.
type Job struct {
	// Source is a local audio file or a downloadable URL.
	Source string
	// Track overrides metadata inference when artist or title are set.
	Track metadata.Track
	// FullMix also renders a second video over the unseparated audio.
	FullMix bool
}

// Artifacts collects the file outputs of a run's stages.
type Artifacts struct {
	AudioPath    string
	Stems        demucs.Stems
	LyricsPath   string
	CaptionsPath string
	VideoPath    string
	FullMixPath  string
}

// Result summarizes a completed run.
type Result struct {
	RunID         string
	Track         metadata.Track
	Artifacts     Artifacts
	OutputPath    string
	FullMixOutput string
	CacheHits     []string
}

// Phase marks the position of an event within a stage's lifecycle.
type Phase string

const (
	PhaseStarted   Phase = "started"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// TerminalStage is the pseudo-stage name used for whole-run events.
const TerminalStage = "pipeline"

// Event is one progress notification from a streaming run.
type Event struct {
	RunID    string
	Stage    string
	Phase    Phase
	CacheHit bool
	Message  string
	Err      error
}

// Runner wires the collaborators together and executes jobs.
type Runner struct {
	cfg       *config.Config
	store     *cache.Store
	runs      *runstore.Store
	logger    *slog.Logger
	fetcher   Fetcher
	separator Separator
	finder    LyricsFinder
	renderer  Renderer
	prober    Prober
}

// NewRunner builds a Runner. The run store may be nil when history is not
// wanted.
func NewRunner(cfg *config.Config, store *cache.Store, runs *runstore.Store, logger *slog.Logger,
	fetcher Fetcher, separator Separator, finder LyricsFinder, renderer Renderer, prober Prober) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		cfg:       cfg,
		store:     store,
		runs:      runs,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		fetcher:   fetcher,
		separator: separator,
		finder:    finder,
		renderer:  renderer,
		prober:    prober,
	}
}

// isRemote reports whether source must go through the fetcher: explicit
// URLs always do, and anything that is not an existing local file is
// treated as a search query.
func isRemote(source string) bool {
	lowered := strings.ToLower(source)
	if strings.HasPrefix(lowered, "http://") || strings.HasPrefix(lowered, "https://") {
		return true
	}
	_, err := os.Stat(source)
	return err != nil
}

// resolveTrack fills in artist and title, preferring explicit values over
// inference. Remote sources ask the fetcher for the published title first,
// since a watch URL carries nothing the filename heuristic can use; a failed
// title lookup falls back to name inference with a warning.
func (r *Runner) resolveTrack(ctx context.Context, job Job) metadata.Track {
	track := job.Track
	if strings.TrimSpace(track.Title) != "" {
		return track
	}

	inferred := metadata.Infer(job.Source)
	if isRemote(job.Source) {
		if title, err := r.fetcher.Title(ctx, job.Source); err == nil {
			inferred = metadata.FromDisplay(title)
		} else {
			r.logger.Warn("resolving remote title failed", logging.Error(err))
		}
	}
	if strings.TrimSpace(track.Artist) == "" {
		track.Artist = inferred.Artist
	}
	track.Title = inferred.Title
	return track
}
