package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chorus/internal/deps"
	"chorus/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkNetworkFlag bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check directories, disk space, and external binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			if checkNetworkFlag {
				results = append(results, preflight.CheckLyricsService(cmd.Context(), cfg.Lyrics.BaseURL))
			}

			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{result.Name, passLabel(result.Passed), result.Detail})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Check", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			depRows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				detail := status.Detail
				if status.Available {
					detail = status.Command
				}
				depRows = append(depRows, []string{status.Name, availLabel(status.Available), detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Binary", "Status", "Detail"},
				depRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required binaries: %v", missing)
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%s", preflight.Summarize(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkNetworkFlag, "network", false, "Also check lyrics service reachability")
	return cmd
}

func passLabel(passed bool) string {
	if passed {
		return "ok"
	}
	return "failed"
}

func availLabel(available bool) string {
	if available {
		return "found"
	}
	return "missing"
}
