// Package demucs wraps the demucs source-separation tool for splitting a
// track into vocal and instrumental stems.
package demucs

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

// DefaultBinary is used when no binary path is configured.
const DefaultBinary = "demucs"

// DefaultModel is the separation model requested from demucs.
const DefaultModel = "htdemucs"

// Stems are the separated outputs for one input track.
type Stems struct {
	Vocals       string
	Instrumental string
}

// Client runs demucs in two-stem mode.
type Client struct {
	binary        string
	model         string
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) (string, error)
}

// New creates a client around the given binary path.
func New(binary string, logger *slog.Logger) *Client {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		binary: binary,
		model:  DefaultModel,
		logger: logging.NewComponentLogger(logger, "demucs"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Client) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) (string, error)) {
	c.commandRunner = runner
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	if c.commandRunner != nil {
		return c.commandRunner(ctx, c.binary, args...)
	}
	cmd := exec.CommandContext(ctx, c.binary, args...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// Separate splits audioPath into vocals and accompaniment under outDir and
// returns the stem paths. Demucs writes to
// <outDir>/<model>/<track>/{vocals,no_vocals}.wav in two-stem mode.
func (c *Client) Separate(ctx context.Context, audioPath, outDir string) (Stems, error) {
	if strings.TrimSpace(audioPath) == "" {
		return Stems{}, services.Wrap(services.ErrValidation, "separate-stems", "separate", "empty audio path", nil)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Stems{}, fmt.Errorf("create separation directory: %w", err)
	}

	args := []string{
		"--two-stems", "vocals",
		"-n", c.model,
		"-o", outDir,
		audioPath,
	}

	c.logger.Info("separating stems",
		logging.String("audio", audioPath),
		logging.String("model", c.model))

	output, err := c.run(ctx, args...)
	if err != nil {
		return Stems{}, services.Wrap(services.ErrExternalTool, "separate-stems", "separate",
			strings.TrimSpace(lastLine(output)), err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	trackDir := filepath.Join(outDir, c.model, base)
	stems := Stems{
		Vocals:       filepath.Join(trackDir, "vocals.wav"),
		Instrumental: filepath.Join(trackDir, "no_vocals.wav"),
	}
	for _, path := range []string{stems.Vocals, stems.Instrumental} {
		if _, err := os.Stat(path); err != nil {
			return Stems{}, services.Wrap(services.ErrMissingArtifact, "separate-stems", "separate",
				fmt.Sprintf("expected %s after separation", path), err)
		}
	}
	return stems, nil
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
