package main

import (
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/user/frame2prompt/pkg/config"
)

// parse runs a throwaway app with the analyze flags and returns the merged config.
func parse(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("FRAME2PROMPT_DETECTOR_COMMAND", "")

	var cfg config.Config
	var loadErr error
	app := &cli.App{
		Name:  "frame2prompt",
		Flags: append(extractFlags(), chatFlags()...),
		Action: func(c *cli.Context) error {
			cfg, loadErr = loadConfig(c)
			return nil
		},
	}
	if err := app.Run(append([]string{"frame2prompt"}, args...)); err != nil {
		t.Fatalf("app.Run failed: %v", err)
	}
	return cfg, loadErr
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := parse(t, "vid/IMG_0582.MOV")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Trial != "IMG_0582_trial" {
		t.Errorf("expected trial from basename, got %q", cfg.Trial)
	}
	if cfg.IntervalSeconds != 1 || cfg.Quality != 85 || cfg.Detector.Enabled {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfig_Flags(t *testing.T) {
	cfg, err := parse(t,
		"--interval", "0.5",
		"--trial", "demo",
		"--detect", "--detector-command", "./worker.sh",
		"--mode", "boxes", "--class", "0", "--class", "2",
		"--no-darken-empty",
		"--group-size", "3",
		"clip.mp4",
	)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.IntervalSeconds != 0.5 || cfg.Trial != "demo" {
		t.Errorf("unexpected sampling flags %+v", cfg)
	}
	if !cfg.Detector.Enabled || cfg.Detector.Command != "./worker.sh" || cfg.Detector.Mode != "boxes" {
		t.Errorf("unexpected detector flags %+v", cfg.Detector)
	}
	if len(cfg.Detector.Classes) != 2 || cfg.Detector.DarkenEmpty {
		t.Errorf("unexpected overlay flags %+v", cfg.Detector)
	}
	if cfg.Chat.GroupSize != 3 {
		t.Errorf("expected group size 3, got %d", cfg.Chat.GroupSize)
	}
	if got := cfg.ToOrchestratorConfig().OutputDir(); got != filepath.Join("extracted_frames", "demo_0.5s") {
		t.Errorf("unexpected output dir %q", got)
	}
}

func TestLoadConfig_MissingVideo(t *testing.T) {
	if _, err := parse(t); err == nil {
		t.Error("expected error without a video path")
	}
}

func TestLoadConfig_InvalidInterval(t *testing.T) {
	for _, interval := range []string{"0", "-1", "NaN", "inf"} {
		if _, err := parse(t, "--interval", interval, "clip.mp4"); err == nil {
			t.Errorf("expected validation error for interval %s", interval)
		}
	}
}

func TestNewLimiter(t *testing.T) {
	if l := newLimiter(0); l.Limit() != rate.Inf {
		t.Errorf("expected unlimited limiter, got %v", l.Limit())
	}
	if l := newLimiter(2); l.Limit() != 0.5 {
		t.Errorf("expected 0.5 requests per second, got %v", l.Limit())
	}
}
