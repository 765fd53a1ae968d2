// Package ytdlp wraps the yt-dlp downloader for fetching source audio.
package ytdlp

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
const DefaultBinary = "yt-dlp"

// Client downloads audio tracks via the yt-dlp binary.
type Client struct {
	binary        string
	cookiesFile   string
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
		logger: logging.NewComponentLogger(logger, "ytdlp"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Client) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) (string, error)) {
	c.commandRunner = runner
}

// WithCookiesFile passes a Netscape-format cookies file to yt-dlp, which
// unblocks providers that demand sign-in verification.
func (c *Client) WithCookiesFile(path string) {
	c.cookiesFile = strings.TrimSpace(path)
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	if c.commandRunner != nil {
		return c.commandRunner(ctx, c.binary, args...)
	}
	cmd := exec.CommandContext(ctx, c.binary, args...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// Phrases yt-dlp prints when the source provider demands interactive
// verification before serving the download.
var authMarkers = []string{
	"confirm you're not a bot",
	"confirm you’re not a bot",
	"sign in to confirm",
	"use --cookies",
}

func classifyOutput(output string, err error) error {
	lowered := strings.ToLower(output)
	for _, marker := range authMarkers {
		if strings.Contains(lowered, marker) {
			return services.Wrap(services.ErrAuthRequired, "fetch-audio", "download",
				"source requires sign-in verification; export browser cookies and retry", err)
		}
	}
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "fetch-audio", "download",
			strings.TrimSpace(tailLines(output, 5)), err)
	}
	return nil
}

// tailLines keeps the last n non-empty lines of tool output for error context.
func tailLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			kept = append([]string{line}, kept...)
		}
	}
	return strings.Join(kept, " | ")
}

// Fetch downloads the best audio stream for url, converts it to WAV, and
// returns the resulting file path inside destDir. Sources without a URL
// scheme are treated as search queries and resolve to the first match.
func (c *Client) Fetch(ctx context.Context, url, destDir string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", services.Wrap(services.ErrValidation, "fetch-audio", "download", "empty source url", nil)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	dest := filepath.Join(destDir, "audio.wav")
	args := []string{
		"--no-playlist",
		"-f", "bestaudio/best",
		"-x", "--audio-format", "wav",
		"-o", filepath.Join(destDir, "audio.%(ext)s"),
	}
	if c.cookiesFile != "" {
		args = append(args, "--cookies", c.cookiesFile)
	}
	args = append(args, searchTarget(url))

	c.logger.Info("downloading source audio",
		logging.String("url", url),
		logging.String("dest", dest))

	output, err := c.run(ctx, args...)
	if classified := classifyOutput(output, err); classified != nil {
		return "", classified
	}
	if _, statErr := os.Stat(dest); statErr != nil {
		return "", services.Wrap(services.ErrMissingArtifact, "fetch-audio", "download",
			fmt.Sprintf("expected %s after download", dest), statErr)
	}
	return dest, nil
}

// searchTarget turns a bare query into a yt-dlp single-result search; URLs
// pass through untouched.
func searchTarget(source string) string {
	if strings.Contains(source, "://") {
		return source
	}
	return "ytsearch1:" + source
}

// Title resolves the remote title without downloading, for naming outputs.
func (c *Client) Title(ctx context.Context, url string) (string, error) {
	args := []string{"--no-playlist", "--skip-download", "--print", "title"}
	if c.cookiesFile != "" {
		args = append(args, "--cookies", c.cookiesFile)
	}
	args = append(args, searchTarget(url))
	output, err := c.run(ctx, args...)
	if classified := classifyOutput(output, err); classified != nil {
		return "", classified
	}
	title := strings.TrimSpace(output)
	if title == "" {
		return "", services.Wrap(services.ErrExternalTool, "fetch-audio", "probe title", "empty title output", nil)
	}
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = strings.TrimSpace(title[:idx])
	}
	return title, nil
}
