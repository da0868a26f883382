package config

import (
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/frame2prompt/pkg/pipeline"
)

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestDefaults_AreValid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if cfg.Chat.Model != "gpt-4o" || cfg.Chat.Temperature != 0.3 || cfg.Chat.MaxTokens != 1000 {
		t.Errorf("unexpected chat defaults %+v", cfg.Chat)
	}
	if !cfg.Detector.DarkenEmpty {
		t.Error("DarkenEmpty should default to true")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame2prompt.yaml")
	data := `
video: vid/clip.mov
interval: 0.5
trial: demo
detector:
  enabled: true
  command: ./worker.sh
  mode: masks
  classes: [0, 2]
  darken_empty: false
  labels:
    0: person
chat:
  group_size: 4
  temperature: 0
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Video != "vid/clip.mov" || cfg.IntervalSeconds != 0.5 || cfg.Trial != "demo" {
		t.Errorf("unexpected top-level values %+v", cfg)
	}
	if !cfg.Detector.Enabled || cfg.Detector.Mode != "masks" || cfg.Detector.DarkenEmpty {
		t.Errorf("unexpected detector values %+v", cfg.Detector)
	}
	if cfg.Detector.Labels[0] != "person" || len(cfg.Detector.Classes) != 2 {
		t.Errorf("unexpected labels/classes %+v", cfg.Detector)
	}
	if cfg.Chat.GroupSize != 4 {
		t.Errorf("expected group size 4, got %d", cfg.Chat.GroupSize)
	}
	if got := cfg.ToConverseConfig().Temperature; got != 0 {
		t.Errorf("expected explicit temperature 0 to be kept, got %v", got)
	}
	// Untouched fields keep their defaults.
	if cfg.Quality != 85 || cfg.Chat.Model != "gpt-4o" || cfg.Detector.BoxWidth != 2 {
		t.Errorf("defaults were lost: %+v", cfg)
	}
}

func TestLoadFromFile_Example(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join("..", "..", "examples", "frame2prompt.yaml"))
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("example config is invalid: %v", err)
	}
	if !cfg.Detector.Enabled || cfg.Detector.Command != "python3" || len(cfg.Detector.Args) != 1 {
		t.Errorf("unexpected detector settings %+v", cfg.Detector)
	}
	if cfg.Detector.Labels[0] != "person" || cfg.Chat.GroupSize != 2 {
		t.Errorf("unexpected example values %+v", cfg)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("interval: [oops"), 0644)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnv_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("FRAME2PROMPT_OPENAI_BASE_URL", "http://localhost:8080/v1")
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg")
	unsetEnv(t, "FFPROBE_PATH")
	unsetEnv(t, "FRAME2PROMPT_DETECTOR_COMMAND")

	cfg := Defaults()
	cfg.FFprobePath = "/from/file/ffprobe"
	if err := ApplyEnv(&cfg, filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.Chat.APIKey != "sk-test" || cfg.Chat.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("chat env not applied: %+v", cfg.Chat)
	}
	if cfg.FFmpegPath != "/opt/ffmpeg" {
		t.Errorf("expected ffmpeg path override, got %q", cfg.FFmpegPath)
	}
	if cfg.FFprobePath != "/from/file/ffprobe" {
		t.Errorf("unset variable should keep file value, got %q", cfg.FFprobePath)
	}
}

func TestApplyEnv_DotenvFile(t *testing.T) {
	unsetEnv(t, "FRAME2PROMPT_DETECTOR_COMMAND")
	t.Setenv("OPENAI_API_KEY", "from-environment")

	path := filepath.Join(t.TempDir(), ".env")
	data := "FRAME2PROMPT_DETECTOR_COMMAND=./models/worker.sh\nOPENAI_API_KEY=from-dotenv\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := ApplyEnv(&cfg, path); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Detector.Command != "./models/worker.sh" {
		t.Errorf("expected detector command from dotenv, got %q", cfg.Detector.Command)
	}
	if cfg.Chat.APIKey != "from-environment" {
		t.Errorf("environment should win over dotenv, got %q", cfg.Chat.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"zero interval", func(c *Config) { c.IntervalSeconds = 0 }, "interval"},
		{"negative interval", func(c *Config) { c.IntervalSeconds = -1 }, "interval"},
		{"NaN interval", func(c *Config) { c.IntervalSeconds = math.NaN() }, "interval"},
		{"infinite interval", func(c *Config) { c.IntervalSeconds = math.Inf(1) }, "interval"},
		{"quality too high", func(c *Config) { c.Quality = 101 }, "quality"},
		{"no output root", func(c *Config) { c.OutputRoot = "" }, "output root"},
		{"bad mode", func(c *Config) { c.Detector.Mode = "outline" }, "overlay mode"},
		{"detector without command", func(c *Config) { c.Detector.Enabled = true }, "detector command"},
		{"confidence out of range", func(c *Config) { c.Detector.Confidence = 1.5 }, "confidence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestValidateChat(t *testing.T) {
	cfg := Defaults()
	if err := cfg.ValidateChat(); err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("expected missing key error, got %v", err)
	}

	cfg.Chat.APIKey = "sk-test"
	if err := cfg.ValidateChat(); err != nil {
		t.Errorf("expected valid chat config, got %v", err)
	}

	cfg.Chat.Temperature = 0
	if err := cfg.ValidateChat(); err != nil {
		t.Errorf("temperature 0 should be valid, got %v", err)
	}
	cfg.Chat.Temperature = 2.5
	if err := cfg.ValidateChat(); err == nil || !strings.Contains(err.Error(), "temperature") {
		t.Errorf("expected temperature error, got %v", err)
	}
	cfg.Chat.Temperature = 0.3

	cfg.Chat.GroupSize = 0
	if err := cfg.ValidateChat(); err == nil {
		t.Error("expected group size error")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.Color
	}{
		{"#00ff00", color.RGBA{G: 255, A: 255}},
		{"1a1A2e", color.RGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 255}},
		{"", color.Black},
		{"#fff", color.Black},
	}
	for _, tt := range tests {
		if got := ParseColor(tt.in); got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestToOrchestratorConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Video = "clip.mp4"
	cfg.Trial = "clip_trial"
	cfg.Detector.Enabled = true
	cfg.Detector.Mode = "boxes"
	cfg.Detector.Classes = []int{3, 1}

	oc := cfg.ToOrchestratorConfig()
	if oc.VideoPath != "clip.mp4" || oc.Trial != "clip_trial" || oc.IntervalSeconds != 1 || !oc.Annotate {
		t.Errorf("unexpected orchestrator config %+v", oc)
	}
	if oc.Composite.Mode != pipeline.ModeBoxes {
		t.Errorf("expected boxes mode, got %s", oc.Composite.Mode)
	}
	if ids := oc.Composite.ClassFilter.IDs(); len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Errorf("unexpected class filter %v", ids)
	}
	if oc.Composite.BoxColor != (color.RGBA{G: 255, A: 255}) {
		t.Errorf("unexpected box color %v", oc.Composite.BoxColor)
	}

	cc := cfg.ToConverseConfig()
	if cc.GroupSize != 2 || cc.Model != "gpt-4o" || cc.FollowUp == "" {
		t.Errorf("unexpected converse config %+v", cc)
	}
}

func TestCompositeOptions_NoClassesLetsAllPass(t *testing.T) {
	opts := Defaults().CompositeOptions()
	if opts.ClassFilter != nil {
		t.Errorf("expected nil filter, got %v", opts.ClassFilter)
	}
	if !opts.ClassFilter.Allows(42) {
		t.Error("nil filter should allow every class")
	}
}

func TestLogDirectory(t *testing.T) {
	cfg := Defaults()
	if got := cfg.LogDirectory(); got != filepath.Join("extracted_frames", "logs") {
		t.Errorf("unexpected default log directory %q", got)
	}
	cfg.LogDir = "/var/log/f2p"
	if got := cfg.LogDirectory(); got != "/var/log/f2p" {
		t.Errorf("expected explicit log directory, got %q", got)
	}
}
