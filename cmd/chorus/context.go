package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"chorus/internal/cache"
	"chorus/internal/config"
	"chorus/internal/logging"
	"chorus/internal/runstore"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// newFileLogger builds the CLI logger, teeing every record into the named
// file under the configured log directory. Console format is demoted to
// JSON when stderr is not a terminal so piped logs stay machine readable.
func (c *commandContext) newFileLogger(name string) (*slog.Logger, io.Closer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	return logging.NewFileLogger(c.loggerOptions(cfg), cfg.Paths.LogDir, name)
}

func (c *commandContext) loggerOptions(cfg *config.Config) logging.Options {
	format := cfg.Logging.Format
	if format == "console" && !isTerminal(os.Stderr) {
		format = "json"
	}
	return logging.Options{Level: cfg.Logging.Level, Format: format}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (c *commandContext) openCache(logger *slog.Logger) (*cache.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return cache.NewStore(cfg.Paths.CacheDir, cfg.Cache.Enabled, logger), nil
}

func (c *commandContext) openRuns() (*runstore.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return runstore.Open(cfg.Paths.RunDBPath)
}
