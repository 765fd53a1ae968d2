package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"chorus/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "chorus", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.Captions.FontName != "Arial" {
		t.Fatalf("unexpected font: %q", cfg.Captions.FontName)
	}
	if cfg.Captions.TransitionMs != 500 {
		t.Fatalf("unexpected transition: %d", cfg.Captions.TransitionMs)
	}
	if cfg.Video.CRF != 18 || cfg.Video.Preset != "medium" {
		t.Fatalf("unexpected video defaults: %+v", cfg.Video)
	}
	if cfg.Lyrics.BaseURL != "https://lrclib.net" {
		t.Fatalf("unexpected lyrics base url: %q", cfg.Lyrics.BaseURL)
	}
	if !cfg.Cache.Enabled {
		t.Fatal("expected cache enabled by default")
	}
}

func TestLoadParsesFileAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[captions]
resolution = "1280x720"
transition_ms = 250

[video]
preset = "fast"

[lyrics]
base_url = "https://lrclib.example/"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	w, h := cfg.ResolutionSize()
	if w != 1280 || h != 720 {
		t.Fatalf("unexpected resolution: %dx%d", w, h)
	}
	if cfg.Lyrics.BaseURL != "https://lrclib.example" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Lyrics.BaseURL)
	}
	if cfg.Video.Preset != "fast" {
		t.Fatalf("unexpected preset: %q", cfg.Video.Preset)
	}
}

func TestLoadRejectsBadResolution(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[captions]\nresolution = \"widescreen\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected resolution validation error")
	}
}

func TestLoadRejectsBadPreset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[video]\npreset = \"warp9\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected preset validation error")
	}
}

func TestCreateSample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
}
