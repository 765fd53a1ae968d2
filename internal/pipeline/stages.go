package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"chorus/internal/cache"
	"chorus/internal/captions"
	"chorus/internal/fileutil"
	"chorus/internal/lyrics"
	"chorus/internal/media/demucs"
	"chorus/internal/media/ffmpeg"
	"chorus/internal/metadata"
	"chorus/internal/services"
)

// state carries the in-flight data of one run between stages.
type state struct {
	job        Job
	track      metadata.Track
	workDir    string
	artifacts  Artifacts
	lyricsText string
	cacheHits  []string
}

// Stage is one cacheable unit of pipeline work. Fingerprint derives the
// cache key from the stage inputs; Execute produces the artifact and the
// record to store; Hydrate applies a cache hit to the run state and may
// reject it, forcing re-execution.
type Stage struct {
	Name        string
	Category    string
	Fingerprint func(ctx context.Context, st *state) (string, error)
	Hydrate     func(ctx context.Context, st *state, entry cache.Entry) error
	Execute     func(ctx context.Context, st *state, key string) (cache.Entry, error)
}

func (r *Runner) stages() []Stage {
	return []Stage{
		r.fetchAudioStage(),
		r.separateStemsStage(),
		r.fetchLyricsStage(),
		r.buildCaptionsStage(),
		r.renderVideoStage(),
	}
}

const (
	extraInstrumental = "instrumental"
	extraFullMix      = "full_mix"
)

func (r *Runner) fetchAudioStage() Stage {
	return Stage{
		Name:     "fetch-audio",
		Category: cache.CategoryAudio,
		Fingerprint: func(ctx context.Context, st *state) (string, error) {
			if isRemote(st.job.Source) {
				return cache.FingerprintString(st.job.Source), nil
			}
			return cache.FingerprintFile(st.job.Source)
		},
		Hydrate: func(ctx context.Context, st *state, entry cache.Entry) error {
			st.artifacts.AudioPath = entry.ArtifactPath
			return nil
		},
		Execute: func(ctx context.Context, st *state, key string) (cache.Entry, error) {
			var sourcePath string
			if isRemote(st.job.Source) {
				fetched, err := r.fetcher.Fetch(ctx, st.job.Source, st.workDir)
				if err != nil {
					return cache.Entry{}, err
				}
				sourcePath = fetched
			} else {
				if _, err := os.Stat(st.job.Source); err != nil {
					return cache.Entry{}, services.Wrap(services.ErrNotFound, "fetch-audio", "stat",
						fmt.Sprintf("source file %s", st.job.Source), err)
				}
				sourcePath = st.job.Source
			}

			if err := r.checkAudio(ctx, sourcePath); err != nil {
				return cache.Entry{}, err
			}

			dest := filepath.Join(r.store.ArtifactDir(cache.CategoryAudio, key), "audio"+filepath.Ext(sourcePath))
			if err := persistArtifact(sourcePath, dest); err != nil {
				return cache.Entry{}, err
			}
			st.artifacts.AudioPath = dest
			return cache.Entry{Inputs: st.job.Source, ArtifactPath: dest}, nil
		},
	}
}

// checkAudio probes freshly acquired audio and rejects files the rest of the
// pipeline cannot use, before they enter the cache.
func (r *Runner) checkAudio(ctx context.Context, path string) error {
	if r.prober == nil {
		return nil
	}
	result, err := r.prober.Probe(ctx, path)
	if err != nil {
		return err
	}
	if result.AudioStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, "fetch-audio", "probe",
			fmt.Sprintf("no audio streams in %s", path), nil)
	}
	if result.DurationSeconds() <= 0 {
		return services.Wrap(services.ErrValidation, "fetch-audio", "probe",
			fmt.Sprintf("zero-duration audio in %s", path), nil)
	}
	return nil
}

func (r *Runner) separateStemsStage() Stage {
	return Stage{
		Name:     "separate-stems",
		Category: cache.CategoryStems,
		Fingerprint: func(ctx context.Context, st *state) (string, error) {
			fileKey, err := cache.FingerprintFile(st.artifacts.AudioPath)
			if err != nil {
				return "", err
			}
			return cache.CombineFingerprints(fileKey,
				cache.FingerprintParams(map[string]any{"model": demucs.DefaultModel})), nil
		},
		Hydrate: func(ctx context.Context, st *state, entry cache.Entry) error {
			instrumental := entry.Extra[extraInstrumental]
			if _, err := os.Stat(instrumental); err != nil {
				return fmt.Errorf("instrumental stem missing: %w", err)
			}
			st.artifacts.Stems = demucs.Stems{Vocals: entry.ArtifactPath, Instrumental: instrumental}
			return nil
		},
		Execute: func(ctx context.Context, st *state, key string) (cache.Entry, error) {
			stems, err := r.separator.Separate(ctx, st.artifacts.AudioPath, filepath.Join(st.workDir, "stems"))
			if err != nil {
				return cache.Entry{}, err
			}

			artifactDir := r.store.ArtifactDir(cache.CategoryStems, key)
			persisted := demucs.Stems{
				Vocals:       filepath.Join(artifactDir, "vocals.wav"),
				Instrumental: filepath.Join(artifactDir, "no_vocals.wav"),
			}
			if err := persistArtifact(stems.Vocals, persisted.Vocals); err != nil {
				return cache.Entry{}, err
			}
			if err := persistArtifact(stems.Instrumental, persisted.Instrumental); err != nil {
				return cache.Entry{}, err
			}
			st.artifacts.Stems = persisted
			return cache.Entry{
				Inputs:       fmt.Sprintf("%s (model %s)", filepath.Base(st.artifacts.AudioPath), demucs.DefaultModel),
				ArtifactPath: persisted.Vocals,
				Extra:        map[string]string{extraInstrumental: persisted.Instrumental},
			}, nil
		},
	}
}

func (r *Runner) fetchLyricsStage() Stage {
	return Stage{
		Name:     "fetch-lyrics",
		Category: cache.CategoryLyrics,
		Fingerprint: func(ctx context.Context, st *state) (string, error) {
			return cache.FingerprintParams(map[string]any{
				"artist": st.track.Artist,
				"title":  st.track.Title,
			}), nil
		},
		Hydrate: func(ctx context.Context, st *state, entry cache.Entry) error {
			data, err := os.ReadFile(entry.ArtifactPath)
			if err != nil {
				return err
			}
			st.artifacts.LyricsPath = entry.ArtifactPath
			st.lyricsText = string(data)
			return nil
		},
		Execute: func(ctx context.Context, st *state, key string) (cache.Entry, error) {
			result, err := r.finder.FindSynced(ctx, st.track.Artist, st.track.Title)
			if err != nil {
				return cache.Entry{}, err
			}

			dest := filepath.Join(r.store.ArtifactDir(cache.CategoryLyrics, key), "lyrics.lrc")
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return cache.Entry{}, fmt.Errorf("create lyrics directory: %w", err)
			}
			if err := os.WriteFile(dest, []byte(result.Synced), 0o644); err != nil {
				return cache.Entry{}, fmt.Errorf("write lyrics file: %w", err)
			}
			st.artifacts.LyricsPath = dest
			st.lyricsText = result.Synced
			return cache.Entry{
				Inputs:       st.track.Display(),
				ArtifactPath: dest,
				Extra:        map[string]string{"artist": result.Artist, "title": result.Title},
			}, nil
		},
	}
}

func (r *Runner) captionOptions() captions.Options {
	w, h := r.cfg.ResolutionSize()
	return captions.Options{
		PlayResX:      w,
		PlayResY:      h,
		FontName:      r.cfg.Captions.FontName,
		CurrentSize:   r.cfg.Captions.CurrentSize,
		NextSize:      r.cfg.Captions.NextSize,
		NextAfterSize: r.cfg.Captions.NextAfterSize,
		TransitionMs:  r.cfg.Captions.TransitionMs,
	}
}

func (r *Runner) captionParams() map[string]any {
	opts := r.captionOptions()
	return map[string]any{
		"font":            opts.FontName,
		"current_size":    opts.CurrentSize,
		"next_size":       opts.NextSize,
		"next_after_size": opts.NextAfterSize,
		"transition_ms":   opts.TransitionMs,
		"resolution":      fmt.Sprintf("%dx%d", opts.PlayResX, opts.PlayResY),
		"tail_seconds":    r.cfg.Captions.DefaultTailSecs,
	}
}

func (r *Runner) buildCaptionsStage() Stage {
	return Stage{
		Name:     "build-captions",
		Category: cache.CategoryCaptions,
		Fingerprint: func(ctx context.Context, st *state) (string, error) {
			fileKey, err := cache.FingerprintFile(st.artifacts.LyricsPath)
			if err != nil {
				return "", err
			}
			return cache.CombineFingerprints(fileKey, cache.FingerprintParams(r.captionParams())), nil
		},
		Hydrate: func(ctx context.Context, st *state, entry cache.Entry) error {
			st.artifacts.CaptionsPath = entry.ArtifactPath
			return nil
		},
		Execute: func(ctx context.Context, st *state, key string) (cache.Entry, error) {
			model, err := lyrics.Parse(st.lyricsText, r.cfg.Captions.DefaultTailSecs)
			if err != nil {
				return cache.Entry{}, err
			}
			doc := captions.Synthesize(model, r.captionOptions())

			dest := filepath.Join(r.store.ArtifactDir(cache.CategoryCaptions, key), "captions.ass")
			if err := doc.WriteFile(dest); err != nil {
				return cache.Entry{}, err
			}
			st.artifacts.CaptionsPath = dest
			opts := r.captionOptions()
			return cache.Entry{
				Inputs: fmt.Sprintf("%s (%s %dx%d)",
					filepath.Base(st.artifacts.LyricsPath), opts.FontName, opts.PlayResX, opts.PlayResY),
				ArtifactPath: dest,
			}, nil
		},
	}
}

func (r *Runner) videoParams(st *state) map[string]any {
	return map[string]any{
		"background": r.cfg.Video.Background,
		"crf":        r.cfg.Video.CRF,
		"preset":     r.cfg.Video.Preset,
		"full_mix":   st.job.FullMix,
	}
}

func (r *Runner) renderVideoStage() Stage {
	return Stage{
		Name:     "render-video",
		Category: cache.CategoryVideos,
		Fingerprint: func(ctx context.Context, st *state) (string, error) {
			captionKey, err := cache.FingerprintFile(st.artifacts.CaptionsPath)
			if err != nil {
				return "", err
			}
			audioKey, err := cache.FingerprintFile(st.artifacts.Stems.Instrumental)
			if err != nil {
				return "", err
			}
			return cache.CombineFingerprints(captionKey, audioKey,
				cache.FingerprintParams(r.videoParams(st))), nil
		},
		Hydrate: func(ctx context.Context, st *state, entry cache.Entry) error {
			st.artifacts.VideoPath = entry.ArtifactPath
			if st.job.FullMix {
				fullMix := entry.Extra[extraFullMix]
				if _, err := os.Stat(fullMix); err != nil {
					return fmt.Errorf("full mix render missing: %w", err)
				}
				st.artifacts.FullMixPath = fullMix
			}
			return nil
		},
		Execute: func(ctx context.Context, st *state, key string) (cache.Entry, error) {
			w, h := r.cfg.ResolutionSize()
			artifactDir := r.store.ArtifactDir(cache.CategoryVideos, key)

			spec := ffmpeg.RenderSpec{
				AudioPath:    st.artifacts.Stems.Instrumental,
				CaptionsPath: st.artifacts.CaptionsPath,
				OutputPath:   filepath.Join(artifactDir, "karaoke.mp4"),
				Background:   r.cfg.Video.Background,
				Width:        w,
				Height:       h,
				CRF:          r.cfg.Video.CRF,
				Preset:       r.cfg.Video.Preset,
			}
			if err := os.MkdirAll(artifactDir, 0o755); err != nil {
				return cache.Entry{}, fmt.Errorf("create video directory: %w", err)
			}
			if err := r.renderer.Render(ctx, spec); err != nil {
				return cache.Entry{}, err
			}
			st.artifacts.VideoPath = spec.OutputPath

			entry := cache.Entry{
				Inputs: fmt.Sprintf("%s + %s",
					filepath.Base(st.artifacts.CaptionsPath), filepath.Base(st.artifacts.Stems.Instrumental)),
				ArtifactPath: spec.OutputPath,
			}
			if st.job.FullMix {
				fullSpec := spec
				fullSpec.AudioPath = st.artifacts.AudioPath
				fullSpec.OutputPath = filepath.Join(artifactDir, "fullmix.mp4")
				if err := r.renderer.Render(ctx, fullSpec); err != nil {
					return cache.Entry{}, err
				}
				st.artifacts.FullMixPath = fullSpec.OutputPath
				entry.Extra = map[string]string{extraFullMix: fullSpec.OutputPath}
			}
			return entry, nil
		},
	}
}

// persistArtifact copies a stage output into its cache-addressed location
// with integrity verification.
func persistArtifact(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		return fmt.Errorf("persist artifact: %w", err)
	}
	return nil
}
