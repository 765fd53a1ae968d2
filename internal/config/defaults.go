package config

const (
	defaultStagingDir      = "~/.local/share/chorus/staging"
	defaultOutputDir       = "~/.local/share/chorus/output"
	defaultCacheDir        = "~/.cache/chorus"
	defaultLogDir          = "~/.local/share/chorus/logs"
	defaultRunDBPath       = "~/.local/share/chorus/runs.db"
	defaultFontName        = "Arial"
	defaultCurrentSize     = 72
	defaultNextSize        = 56
	defaultNextAfterSize   = 44
	defaultTransitionMs    = 500
	defaultTailSeconds     = 5.0
	defaultResolution      = "1920x1080"
	defaultPlayResX        = 1920
	defaultPlayResY        = 1080
	defaultBackground      = "black"
	defaultCRF             = 18
	defaultPreset          = "medium"
	defaultYtDlpBinary     = "yt-dlp"
	defaultDemucsBinary    = "demucs"
	defaultFFmpegBinary    = "ffmpeg"
	defaultFFprobeBinary   = "ffprobe"
	defaultLyricsBaseURL   = "https://lrclib.net"
	defaultLyricsTimeout   = 30
	defaultCacheMinFreeGiB = 2
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			CacheDir:   defaultCacheDir,
			LogDir:     defaultLogDir,
			RunDBPath:  defaultRunDBPath,
		},
		Captions: Captions{
			FontName:        defaultFontName,
			CurrentSize:     defaultCurrentSize,
			NextSize:        defaultNextSize,
			NextAfterSize:   defaultNextAfterSize,
			TransitionMs:    defaultTransitionMs,
			DefaultTailSecs: defaultTailSeconds,
			Resolution:      defaultResolution,
		},
		Video: Video{
			Background: defaultBackground,
			CRF:        defaultCRF,
			Preset:     defaultPreset,
		},
		Tools: Tools{
			YtDlp:   defaultYtDlpBinary,
			Demucs:  defaultDemucsBinary,
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Lyrics: Lyrics{
			BaseURL:        defaultLyricsBaseURL,
			RequestTimeout: defaultLyricsTimeout,
		},
		Cache: Cache{
			Enabled:    true,
			MinFreeGiB: defaultCacheMinFreeGiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
