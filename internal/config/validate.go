package config

import "fmt"

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCaptions(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Cache.MinFreeGiB < 0 {
		return fmt.Errorf("cache.min_free_gib must not be negative")
	}
	return nil
}

func (c *Config) validateCaptions() error {
	if _, _, err := parseResolution(c.Captions.Resolution); err != nil {
		return fmt.Errorf("captions.resolution: %w", err)
	}
	if c.Captions.TransitionMs > 5000 {
		return fmt.Errorf("captions.transition_ms %d exceeds the 5000ms ceiling", c.Captions.TransitionMs)
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.CRF < 0 || c.Video.CRF > 51 {
		return fmt.Errorf("video.crf %d outside the 0-51 range", c.Video.CRF)
	}
	switch c.Video.Preset {
	case "ultrafast", "superfast", "veryfast", "faster", "fast", "medium", "slow", "slower", "veryslow":
		return nil
	default:
		return fmt.Errorf("video.preset %q is not a libx264 preset", c.Video.Preset)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q: want console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q: want debug, info, warn, or error", c.Logging.Level)
	}
}
