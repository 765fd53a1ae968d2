package main

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"chorus/internal/logging"
	"chorus/internal/media/demucs"
	"chorus/internal/media/ffmpeg"
	"chorus/internal/media/lrclib"
	"chorus/internal/media/ytdlp"
	"chorus/internal/metadata"
	"chorus/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		artistFlag  string
		titleFlag   string
		fullMixFlag bool
		followFlag  bool
	)

	cmd := &cobra.Command{
		Use:   "run <source>",
		Short: "Produce a karaoke video from a song file or URL",
		Long: `Run the full pipeline against a local audio file or a downloadable URL.
Artist and title are inferred from the source name unless overridden.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, logFile, err := ctx.newFileLogger("chorus.log")
			if err != nil {
				return err
			}
			if logFile != nil {
				defer logFile.Close()
			}

			// Concurrent runs are safe; the advisory lock only surfaces the
			// overlap so duplicate work is a choice, not a surprise.
			stagingLock := flock.New(filepath.Join(cfg.Paths.StagingDir, ".chorus.lock"))
			if ok, lockErr := stagingLock.TryLock(); lockErr == nil && ok {
				defer stagingLock.Unlock()
			} else {
				logger.Warn("staging directory already in use by another run",
					logging.String("lock", stagingLock.Path()))
			}

			store, err := ctx.openCache(logger)
			if err != nil {
				return err
			}
			runs, err := ctx.openRuns()
			if err != nil {
				return err
			}
			defer runs.Close()

			finder, err := lrclib.New(lrclib.Config{
				BaseURL:    cfg.Lyrics.BaseURL,
				HTTPClient: &http.Client{Timeout: time.Duration(cfg.Lyrics.RequestTimeout) * time.Second},
			})
			if err != nil {
				return err
			}

			fetcher := ytdlp.New(cfg.Tools.YtDlp, logger)
			if cfg.Tools.YtDlpCookies != "" {
				fetcher.WithCookiesFile(cfg.Tools.YtDlpCookies)
			}

			media := ffmpeg.NewService(cfg.Tools.FFmpeg, cfg.Tools.FFprobe, logger)
			runner := pipeline.NewRunner(cfg, store, runs, logger,
				fetcher,
				demucs.New(cfg.Tools.Demucs, logger),
				finder,
				media,
				media,
			)

			job := pipeline.Job{
				Source:  args[0],
				Track:   metadata.Track{Artist: artistFlag, Title: titleFlag},
				FullMix: fullMixFlag || cfg.Video.FullMix,
			}

			out := cmd.OutOrStdout()
			if followFlag {
				for ev := range runner.Stream(cmd.Context(), job) {
					printEvent(out, ev)
					if ev.Stage == pipeline.TerminalStage && ev.Err != nil {
						return ev.Err
					}
				}
				return nil
			}

			result, err := runner.Run(cmd.Context(), job)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Karaoke video: %s\n", result.OutputPath)
			if result.FullMixOutput != "" {
				fmt.Fprintf(out, "Full mix video: %s\n", result.FullMixOutput)
			}
			if len(result.CacheHits) > 0 {
				fmt.Fprintf(out, "Served from cache: %d of 5 stages\n", len(result.CacheHits))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&artistFlag, "artist", "", "Override the inferred artist")
	cmd.Flags().StringVar(&titleFlag, "title", "", "Override the inferred title")
	cmd.Flags().BoolVar(&fullMixFlag, "full-mix", false, "Also render a video with the original (unseparated) audio")
	cmd.Flags().BoolVar(&followFlag, "follow", false, "Stream per-stage progress instead of waiting silently")
	return cmd
}

func printEvent(out io.Writer, ev pipeline.Event) {
	switch ev.Phase {
	case pipeline.PhaseStarted:
		fmt.Fprintf(out, "[%s] started\n", ev.Stage)
	case pipeline.PhaseCompleted:
		if ev.Stage == pipeline.TerminalStage {
			fmt.Fprintf(out, "done: %s\n", ev.Message)
			return
		}
		if ev.CacheHit {
			fmt.Fprintf(out, "[%s] cached\n", ev.Stage)
			return
		}
		fmt.Fprintf(out, "[%s] completed\n", ev.Stage)
	case pipeline.PhaseFailed:
		fmt.Fprintf(out, "[%s] failed: %s\n", ev.Stage, ev.Message)
	}
}
