package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"chorus/internal/fileutil"
	"chorus/internal/logging"
	"chorus/internal/runstore"
	"chorus/internal/services"
)

// Run executes a job to completion, blocking until the final video is in the
// output directory.
func (r *Runner) Run(ctx context.Context, job Job) (Result, error) {
	return r.execute(ctx, job, func(Event) {})
}

// Stream executes a job asynchronously and emits progress events. The
// channel carries one started and one completed or failed event per stage,
// then a single terminal event for the whole run, and is closed afterwards.
func (r *Runner) Stream(ctx context.Context, job Job) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		emit := func(ev Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}
		result, err := r.execute(ctx, job, emit)
		if err != nil {
			emit(Event{RunID: result.RunID, Stage: TerminalStage, Phase: PhaseFailed,
				Message: err.Error(), Err: err})
			return
		}
		emit(Event{RunID: result.RunID, Stage: TerminalStage, Phase: PhaseCompleted,
			Message: result.OutputPath})
	}()
	return events
}

func (r *Runner) execute(ctx context.Context, job Job, emit func(Event)) (Result, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)

	st := &state{
		job:     job,
		track:   r.resolveTrack(ctx, job),
		workDir: filepath.Join(r.cfg.Paths.StagingDir, runID),
	}
	result := Result{RunID: runID, Track: st.track}

	if err := r.cfg.EnsureDirectories(); err != nil {
		return result, err
	}

	if r.runs != nil {
		if _, err := r.runs.Create(ctx, runstore.Run{
			ID:     runID,
			Source: job.Source,
			Artist: st.track.Artist,
			Title:  st.track.Title,
		}); err != nil {
			logger.Warn("recording run failed", logging.Error(err))
		}
	}

	logger.Info("starting pipeline run",
		logging.String("source", job.Source),
		logging.String("title", st.track.Display()))

	for _, stage := range r.stages() {
		if err := ctx.Err(); err != nil {
			return result, r.fail(ctx, runID, stage.Name, emit, err)
		}
		if err := r.runStage(ctx, st, stage, runID, emit); err != nil {
			return result, r.fail(ctx, runID, stage.Name, emit, err)
		}
	}

	outputPath, fullMixPath, err := r.publish(st)
	if err != nil {
		return result, r.fail(ctx, runID, TerminalStage, emit, err)
	}

	result.Artifacts = st.artifacts
	result.OutputPath = outputPath
	result.FullMixOutput = fullMixPath
	result.CacheHits = st.cacheHits

	if r.runs != nil {
		if err := r.runs.MarkCompleted(ctx, runID, outputPath); err != nil {
			logger.Warn("recording completion failed", logging.Error(err))
		}
	}
	logger.Info("pipeline run completed",
		logging.String("output", outputPath),
		logging.Int("cache_hits", len(st.cacheHits)))
	return result, nil
}

func (r *Runner) runStage(ctx context.Context, st *state, stage Stage, runID string, emit func(Event)) error {
	ctx = services.WithStage(ctx, stage.Name)
	logger := logging.WithContext(ctx, r.logger)
	emit(Event{RunID: runID, Stage: stage.Name, Phase: PhaseStarted})

	if r.runs != nil {
		if err := r.runs.UpdateStage(ctx, runID, stage.Name); err != nil {
			logger.Warn("recording stage failed", logging.Error(err))
		}
	}

	key, err := stage.Fingerprint(ctx, st)
	if err != nil {
		return fmt.Errorf("%s: fingerprint: %w", stage.Name, err)
	}

	if entry, ok := r.store.Lookup(stage.Category, key); ok {
		if err := stage.Hydrate(ctx, st, entry); err == nil {
			st.cacheHits = append(st.cacheHits, stage.Name)
			logger.Info("stage served from cache", logging.String("key", key))
			emit(Event{RunID: runID, Stage: stage.Name, Phase: PhaseCompleted, CacheHit: true})
			return nil
		}
		logger.Warn("cache entry unusable, re-executing stage", logging.String("key", key))
	}

	entry, err := stage.Execute(ctx, st, key)
	if err != nil {
		return err
	}
	entry.Key = key
	entry.Category = stage.Category
	if err := r.store.Put(entry); err != nil {
		logger.Warn("caching stage output failed", logging.Error(err))
	}
	emit(Event{RunID: runID, Stage: stage.Name, Phase: PhaseCompleted})
	return nil
}

// publish copies the rendered videos from the cache tree into the output
// directory under the track's display name.
func (r *Runner) publish(st *state) (string, string, error) {
	base := st.track.SafeBaseName()
	outputPath := filepath.Join(r.cfg.Paths.OutputDir, base+" (karaoke).mp4")
	if err := fileutil.CopyFileVerified(st.artifacts.VideoPath, outputPath); err != nil {
		return "", "", fmt.Errorf("publish video: %w", err)
	}

	var fullMixPath string
	if st.job.FullMix {
		fullMixPath = filepath.Join(r.cfg.Paths.OutputDir, base+" (full mix).mp4")
		if err := fileutil.CopyFileVerified(st.artifacts.FullMixPath, fullMixPath); err != nil {
			return "", "", fmt.Errorf("publish full mix video: %w", err)
		}
	}
	return outputPath, fullMixPath, nil
}

func (r *Runner) fail(ctx context.Context, runID, stageName string, emit func(Event), err error) error {
	emit(Event{RunID: runID, Stage: stageName, Phase: PhaseFailed, Message: err.Error(), Err: err})
	if r.runs != nil {
		if markErr := r.runs.MarkFailed(ctx, runID, err.Error()); markErr != nil {
			r.logger.Warn("recording failure failed", logging.Error(markErr))
		}
	}
	r.logger.Error("pipeline run failed",
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldStage, stageName),
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err))
	return err
}
