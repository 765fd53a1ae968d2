package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCaptions()
	c.normalizeVideo()
	c.normalizeTools()
	c.normalizeLyrics()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.RunDBPath) == "" {
		c.Paths.RunDBPath = defaultRunDBPath
	}
	if c.Paths.RunDBPath, err = expandPath(c.Paths.RunDBPath); err != nil {
		return fmt.Errorf("paths.run_db_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeCaptions() {
	if strings.TrimSpace(c.Captions.FontName) == "" {
		c.Captions.FontName = defaultFontName
	}
	if c.Captions.CurrentSize <= 0 {
		c.Captions.CurrentSize = defaultCurrentSize
	}
	if c.Captions.NextSize <= 0 {
		c.Captions.NextSize = defaultNextSize
	}
	if c.Captions.NextAfterSize <= 0 {
		c.Captions.NextAfterSize = defaultNextAfterSize
	}
	if c.Captions.TransitionMs <= 0 {
		c.Captions.TransitionMs = defaultTransitionMs
	}
	if c.Captions.DefaultTailSecs <= 0 {
		c.Captions.DefaultTailSecs = defaultTailSeconds
	}
	if strings.TrimSpace(c.Captions.Resolution) == "" {
		c.Captions.Resolution = defaultResolution
	}
}

func (c *Config) normalizeVideo() {
	if strings.TrimSpace(c.Video.Background) == "" {
		c.Video.Background = defaultBackground
	}
	if c.Video.CRF <= 0 {
		c.Video.CRF = defaultCRF
	}
	if strings.TrimSpace(c.Video.Preset) == "" {
		c.Video.Preset = defaultPreset
	}
}

func (c *Config) normalizeTools() {
	if strings.TrimSpace(c.Tools.YtDlp) == "" {
		c.Tools.YtDlp = defaultYtDlpBinary
	}
	if strings.TrimSpace(c.Tools.Demucs) == "" {
		c.Tools.Demucs = defaultDemucsBinary
	}
	if strings.TrimSpace(c.Tools.FFmpeg) == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Tools.FFprobe) == "" {
		c.Tools.FFprobe = defaultFFprobeBinary
	}
	if cookies := strings.TrimSpace(c.Tools.YtDlpCookies); cookies != "" {
		if expanded, err := ExpandPath(cookies); err == nil {
			c.Tools.YtDlpCookies = expanded
		}
	}
}

func (c *Config) normalizeLyrics() {
	c.Lyrics.BaseURL = strings.TrimRight(strings.TrimSpace(c.Lyrics.BaseURL), "/")
	if c.Lyrics.BaseURL == "" {
		c.Lyrics.BaseURL = defaultLyricsBaseURL
	}
	if c.Lyrics.RequestTimeout <= 0 {
		c.Lyrics.RequestTimeout = defaultLyricsTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
