// Package ffmpeg wraps the ffmpeg and ffprobe binaries for media inspection
// and karaoke video rendering.
package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"chorus/internal/logging"
	"chorus/internal/services"
)

// Default binary names used when the configuration leaves them empty.
const (
	DefaultFFmpegBinary  = "ffmpeg"
	DefaultFFprobeBinary = "ffprobe"
)

// Service runs ffmpeg and ffprobe.
type Service struct {
	ffmpegBinary  string
	ffprobeBinary string
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) (string, error)
}

// NewService creates a service around the given binary paths.
func NewService(ffmpegBinary, ffprobeBinary string, logger *slog.Logger) *Service {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = DefaultFFmpegBinary
	}
	if strings.TrimSpace(ffprobeBinary) == "" {
		ffprobeBinary = DefaultFFprobeBinary
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		ffmpegBinary:  ffmpegBinary,
		ffprobeBinary: ffprobeBinary,
		logger:        logging.NewComponentLogger(logger, "ffmpeg"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) (string, error)) {
	s.commandRunner = runner
}

func (s *Service) run(ctx context.Context, name string, args ...string) (string, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func (s *Service) runProbe(ctx context.Context, args ...string) (string, error) {
	return s.run(ctx, s.ffprobeBinary, args...)
}

// RenderSpec describes one karaoke video render.
type RenderSpec struct {
	AudioPath    string
	CaptionsPath string
	OutputPath   string
	Background   string
	Width        int
	Height       int
	FrameRate    int
	CRF          int
	Preset       string
}

func (spec RenderSpec) withDefaults() RenderSpec {
	if spec.Background == "" {
		spec.Background = "black"
	}
	if spec.Width <= 0 {
		spec.Width = 1920
	}
	if spec.Height <= 0 {
		spec.Height = 1080
	}
	if spec.FrameRate <= 0 {
		spec.FrameRate = 30
	}
	if spec.CRF <= 0 {
		spec.CRF = 18
	}
	if spec.Preset == "" {
		spec.Preset = "medium"
	}
	return spec
}

// renderArgs builds the full ffmpeg invocation: a solid color source sized
// to the target resolution, the audio track, and the caption file burned in
// with the ass filter.
func renderArgs(spec RenderSpec) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:r=%d", spec.Background, spec.Width, spec.Height, spec.FrameRate),
		"-i", spec.AudioPath,
		"-shortest",
		"-vf", "ass=" + escapeFilterPath(spec.CaptionsPath),
		"-c:v", "libx264",
		"-preset", spec.Preset,
		"-crf", fmt.Sprintf("%d", spec.CRF),
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		spec.OutputPath,
	}
}

// escapeFilterPath escapes the characters the ffmpeg filter parser treats
// specially inside a filter argument.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`[`, `\[`,
		`]`, `\]`,
		`,`, `\,`,
		`;`, `\;`,
	)
	return replacer.Replace(path)
}

// Render burns the caption file over a solid background and muxes the audio
// track into OutputPath.
func (s *Service) Render(ctx context.Context, spec RenderSpec) error {
	spec = spec.withDefaults()
	if strings.TrimSpace(spec.AudioPath) == "" || strings.TrimSpace(spec.CaptionsPath) == "" {
		return services.Wrap(services.ErrValidation, "render-video", "render", "audio and captions paths required", nil)
	}
	if strings.TrimSpace(spec.OutputPath) == "" {
		return services.Wrap(services.ErrValidation, "render-video", "render", "output path required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(spec.OutputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	s.logger.Info("rendering karaoke video",
		logging.String("audio", spec.AudioPath),
		logging.String("captions", spec.CaptionsPath),
		logging.String("output", spec.OutputPath))

	output, err := s.run(ctx, s.ffmpegBinary, renderArgs(spec)...)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "render-video", "render",
			strings.TrimSpace(output), err)
	}
	if _, err := os.Stat(spec.OutputPath); err != nil {
		return services.Wrap(services.ErrMissingArtifact, "render-video", "render",
			fmt.Sprintf("expected %s after render", spec.OutputPath), err)
	}
	return nil
}
