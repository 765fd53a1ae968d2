package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"chorus/internal/captions"
	"chorus/internal/lyrics"
)

func newCaptionsCommand(ctx *commandContext) *cobra.Command {
	var outFlag string

	cmd := &cobra.Command{
		Use:   "captions <lyrics.lrc>",
		Short: "Convert an LRC lyric file to animated ASS captions",
		Long: `Build the karaoke caption document from a synced lyric file without
running the rest of the pipeline. Useful for tuning styles and timing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read lyrics: %w", err)
			}

			model, err := lyrics.Parse(string(data), cfg.Captions.DefaultTailSecs)
			if err != nil {
				return err
			}

			w, h := cfg.ResolutionSize()
			doc := captions.Synthesize(model, captions.Options{
				PlayResX:      w,
				PlayResY:      h,
				FontName:      cfg.Captions.FontName,
				CurrentSize:   cfg.Captions.CurrentSize,
				NextSize:      cfg.Captions.NextSize,
				NextAfterSize: cfg.Captions.NextAfterSize,
				TransitionMs:  cfg.Captions.TransitionMs,
			})

			target := strings.TrimSpace(outFlag)
			if target == "" {
				base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				target = filepath.Join(cfg.Paths.OutputDir, base+".ass")
			}
			if err := doc.WriteFile(target); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d caption events to %s\n", len(doc.Events), target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFlag, "out", "o", "", "Destination for the ASS file (default: output dir)")
	return cmd
}
