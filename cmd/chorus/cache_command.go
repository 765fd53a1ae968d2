package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chorus/internal/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the artifact cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show entry counts and artifact sizes per category",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCache(nil)
			if err != nil {
				return err
			}
			stats, err := store.Stats()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(stats.ByCategory))
			for _, category := range cache.Categories() {
				cs := stats.ByCategory[category]
				rows = append(rows, []string{
					category,
					fmt.Sprintf("%d", cs.Entries),
					formatBytes(cs.ArtifactBytes),
				})
			}
			rows = append(rows, []string{"total", fmt.Sprintf("%d", stats.Entries), formatBytes(stats.ArtifactBytes)})

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Category", "Entries", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "list <category>",
		Short:     "List cache entries in a category, newest first",
		Args:      cobra.ExactArgs(1),
		ValidArgs: cache.Categories(),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCache(nil)
			if err != nil {
				return err
			}
			entries, err := store.List(args[0])
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No entries in %s\n", args[0])
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					shortKey(entry.Key),
					entry.Inputs,
					entry.ArtifactPath,
					entry.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Key", "Inputs", "Artifact", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var allFlag bool

	cmd := &cobra.Command{
		Use:   "clear [category]",
		Short: "Remove cache records for a category, or everything with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCache(nil)
			if err != nil {
				return err
			}

			if len(args) == 0 && !allFlag {
				return fmt.Errorf("specify a category (%s) or --all", strings.Join(cache.Categories(), ", "))
			}
			category := ""
			if len(args) == 1 {
				category = args[0]
			}
			if err := store.Clear(category); err != nil {
				return err
			}

			if category == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Cleared all cache categories")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared cache category %s\n", category)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allFlag, "all", false, "Clear every category")
	return cmd
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
