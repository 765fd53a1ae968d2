package preflight

import (
	"context"
	"fmt"

	"chorus/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the local preflight checks for the given config: directory
// access and free space. Network and binary checks are separate so callers
// can keep this path fast and offline.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	minFree := uint64(cfg.Cache.MinFreeGiB) * 1 << 30
	results = append(results,
		CheckFreeSpace("Staging free space", cfg.Paths.StagingDir, minFree),
		CheckFreeSpace("Cache free space", cfg.Paths.CacheDir, minFree),
	)
	return results
}

// Failed returns the failing results.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// Summarize renders a one-line pass/fail overview.
func Summarize(results []Result) string {
	failed := len(Failed(results))
	if failed == 0 {
		return fmt.Sprintf("all %d checks passed", len(results))
	}
	return fmt.Sprintf("%d of %d checks failed", failed, len(results))
}
