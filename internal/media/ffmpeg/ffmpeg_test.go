package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chorus/internal/services"
)

func TestRenderArgs(t *testing.T) {
	args := renderArgs(RenderSpec{
		AudioPath:    "/work/audio.wav",
		CaptionsPath: "/work/captions.ass",
		OutputPath:   "/out/video.mp4",
		Background:   "navy",
		Width:        1280,
		Height:       720,
		CRF:          20,
		Preset:       "fast",
	}.withDefaults())

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"color=c=navy:s=1280x720:r=30",
		"-vf ass=/work/captions.ass",
		"-c:v libx264",
		"-preset fast",
		"-crf 20",
		"-c:a aac",
		"-movflags +faststart",
		"/out/video.mp4",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q in %q", want, joined)
		}
	}
}

func TestEscapeFilterPath(t *testing.T) {
	got := escapeFilterPath(`/tmp/a:b's [1].ass`)
	want := `/tmp/a\:b\'s \[1\].ass`
	if got != want {
		t.Errorf("escapeFilterPath = %q, want %q", got, want)
	}
}

func TestRenderProducesOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "video.mp4")
	svc := NewService("", "", nil)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		if name != DefaultFFmpegBinary {
			t.Errorf("unexpected binary %q", name)
		}
		if err := os.WriteFile(out, []byte("mp4"), 0o644); err != nil {
			t.Fatal(err)
		}
		return "", nil
	})

	err := svc.Render(context.Background(), RenderSpec{
		AudioPath:    "/work/audio.wav",
		CaptionsPath: "/work/captions.ass",
		OutputPath:   out,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
}

func TestRenderMissingOutput(t *testing.T) {
	svc := NewService("", "", nil)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		return "", nil
	})

	err := svc.Render(context.Background(), RenderSpec{
		AudioPath:    "/work/audio.wav",
		CaptionsPath: "/work/captions.ass",
		OutputPath:   filepath.Join(t.TempDir(), "video.mp4"),
	})
	if !errors.Is(err, services.ErrMissingArtifact) {
		t.Fatalf("expected ErrMissingArtifact, got %v", err)
	}
}

func TestRenderToolFailure(t *testing.T) {
	svc := NewService("", "", nil)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		return "Unknown encoder 'libx264'", errors.New("exit status 1")
	})

	err := svc.Render(context.Background(), RenderSpec{
		AudioPath:    "/a.wav",
		CaptionsPath: "/c.ass",
		OutputPath:   filepath.Join(t.TempDir(), "v.mp4"),
	})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "libx264") {
		t.Errorf("expected tool output in error, got %q", err.Error())
	}
}

func TestProbeParsesDuration(t *testing.T) {
	svc := NewService("", "", nil)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		if name != DefaultFFprobeBinary {
			t.Errorf("unexpected binary %q", name)
		}
		return `{"streams":[{"index":0,"codec_type":"audio","codec_name":"pcm_s16le","channels":2}],
			"format":{"filename":"audio.wav","duration":"212.4","format_name":"wav"}}`, nil
	})

	result, err := svc.Probe(context.Background(), "audio.wav")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if got := result.DurationSeconds(); got != 212.4 {
		t.Errorf("unexpected duration %f", got)
	}
	if result.AudioStreamCount() != 1 {
		t.Errorf("unexpected audio stream count %d", result.AudioStreamCount())
	}
}

func TestProbeDecodeError(t *testing.T) {
	svc := NewService("", "", nil)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) (string, error) {
		return "not json", nil
	})

	_, err := svc.Probe(context.Background(), "audio.wav")
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}
