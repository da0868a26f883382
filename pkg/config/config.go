// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/user/frame2prompt/pkg/orchestrator"
	"github.com/user/frame2prompt/pkg/pipeline"
	"github.com/user/frame2prompt/pkg/stages/converse"
	"gopkg.in/yaml.v3"
)

// Config represents the full configuration for frame2prompt.
type Config struct {
	// Input/Output
	Video      string `yaml:"video"`
	OutputRoot string `yaml:"output_root"`
	Trial      string `yaml:"trial"`
	Prefix     string `yaml:"prefix"`

	// Sampling
	IntervalSeconds float64 `yaml:"interval"`
	Quality         int     `yaml:"quality"`

	// Tools
	FFmpegPath  string `yaml:"ffmpeg_path" env:"FFMPEG_PATH"`
	FFprobePath string `yaml:"ffprobe_path" env:"FFPROBE_PATH"`

	Detector DetectorConfig `yaml:"detector"`
	Chat     ChatConfig     `yaml:"chat"`

	// Output extras
	LogDir      string `yaml:"log_dir"` // Empty means <output_root>/logs
	MetricsFile string `yaml:"metrics_file"`

	// Debug
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
}

// DetectorConfig represents the detection worker and overlay settings.
type DetectorConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Command    string   `yaml:"command" env:"FRAME2PROMPT_DETECTOR_COMMAND"`
	Args       []string `yaml:"args"`
	Weights    string   `yaml:"weights"`
	Confidence float64  `yaml:"confidence"`

	Mode        string         `yaml:"mode"`
	Classes     []int          `yaml:"classes"`
	DarkenEmpty bool           `yaml:"darken_empty"`
	BoxColor    string         `yaml:"box_color"`
	BoxWidth    float64        `yaml:"box_width"`
	ShowLabels  bool           `yaml:"show_labels"`
	Labels      map[int]string `yaml:"labels"`
}

// ChatConfig represents the chat model settings used by the analyze command.
type ChatConfig struct {
	APIKey  string `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL string `yaml:"base_url" env:"FRAME2PROMPT_OPENAI_BASE_URL"`
	Model   string `yaml:"model"`

	GroupSize   int     `yaml:"group_size"`
	Prompt      string  `yaml:"prompt"`
	FollowUp    string  `yaml:"follow_up"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	MaxRetries         int     `yaml:"max_retries"`
	MinRequestInterval float64 `yaml:"min_request_interval"` // Seconds between requests
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		OutputRoot:      "extracted_frames",
		Prefix:          orchestrator.DefaultPrefix,
		IntervalSeconds: 1,
		Quality:         85,

		Detector: DetectorConfig{
			Confidence:  0.25,
			Mode:        string(pipeline.ModeBoth),
			DarkenEmpty: true,
			BoxColor:    "#00ff00",
			BoxWidth:    2,
			ShowLabels:  true,
		},

		Chat: ChatConfig{
			BaseURL:            "https://api.openai.com/v1",
			Model:              "gpt-4o",
			GroupSize:          2,
			Prompt:             "Describe what you see in each of these images.",
			FollowUp:           "Overall, what kind of video do you think this is?",
			Temperature:        converse.DefaultTemperature,
			MaxTokens:          converse.DefaultMaxTokens,
			MaxRetries:         3,
			MinRequestInterval: 1,
		},

		DebugDir: "./debug",
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv loads dotenv files (".env" when none are given; missing files are
// ignored) and then overrides fields tagged with env from the environment.
// Variables already set in the environment win over dotenv values.
func ApplyEnv(cfg *Config, dotenvFiles ...string) error {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case !(c.IntervalSeconds > 0) || math.IsInf(c.IntervalSeconds, 0):
		return fmt.Errorf("interval must be a positive finite number, got %v", c.IntervalSeconds)
	case c.Quality < 1 || c.Quality > 100:
		return fmt.Errorf("quality must be between 1 and 100, got %d", c.Quality)
	case c.OutputRoot == "":
		return errors.New("output root is required")
	}

	if _, ok := pipeline.ParseCompositeMode(c.Detector.Mode); !ok {
		return fmt.Errorf("unknown overlay mode %q (use boxes, masks or both)", c.Detector.Mode)
	}
	if c.Detector.Enabled && c.Detector.Command == "" {
		return errors.New("detector command is required when detection is enabled")
	}
	if c.Detector.Confidence < 0 || c.Detector.Confidence > 1 {
		return fmt.Errorf("detector confidence must be between 0 and 1, got %v", c.Detector.Confidence)
	}
	return nil
}

// ValidateChat reports the first invalid chat field. Only the analyze command needs it.
func (c Config) ValidateChat() error {
	switch {
	case c.Chat.APIKey == "":
		return errors.New("OPENAI_API_KEY is not set")
	case c.Chat.GroupSize < 1:
		return fmt.Errorf("group size must be at least 1, got %d", c.Chat.GroupSize)
	case c.Chat.Prompt == "":
		return errors.New("prompt is required")
	case !(c.Chat.Temperature >= 0 && c.Chat.Temperature <= 2):
		return fmt.Errorf("temperature must be between 0 and 2, got %v", c.Chat.Temperature)
	case c.Chat.MinRequestInterval < 0:
		return fmt.Errorf("min request interval must not be negative, got %v", c.Chat.MinRequestInterval)
	}
	return nil
}

// LogDirectory returns the analysis log directory.
func (c Config) LogDirectory() string {
	if c.LogDir != "" {
		return c.LogDir
	}
	return filepath.Join(c.OutputRoot, "logs")
}

// ParseColor parses a "#rrggbb" hex string. Malformed input yields black.
func ParseColor(hex string) color.Color {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return color.Black
	}

	var rgb [3]uint8
	for i := range rgb {
		rgb[i] = hexValue(hex[2*i])<<4 | hexValue(hex[2*i+1])
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}

func hexValue(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

// CompositeOptions converts the overlay settings.
func (c Config) CompositeOptions() pipeline.CompositeOptions {
	mode, ok := pipeline.ParseCompositeMode(c.Detector.Mode)
	if !ok {
		mode = pipeline.ModeBoth
	}
	return pipeline.CompositeOptions{
		Mode:        mode,
		ClassFilter: pipeline.NewClassFilter(c.Detector.Classes...),
		DarkenEmpty: c.Detector.DarkenEmpty,
		BoxColor:    ParseColor(c.Detector.BoxColor),
		BoxWidth:    c.Detector.BoxWidth,
		ShowLabels:  c.Detector.ShowLabels,
		Labels:      c.Detector.Labels,
	}
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		VideoPath:       c.Video,
		OutputRoot:      c.OutputRoot,
		Trial:           c.Trial,
		Prefix:          c.Prefix,
		IntervalSeconds: c.IntervalSeconds,
		Annotate:        c.Detector.Enabled,
		Composite:       c.CompositeOptions(),
	}
}

// ToConverseConfig converts the chat settings to orchestrator.ConverseConfig.
func (c Config) ToConverseConfig() orchestrator.ConverseConfig {
	return orchestrator.ConverseConfig{
		GroupSize:   c.Chat.GroupSize,
		Prompt:      c.Chat.Prompt,
		FollowUp:    c.Chat.FollowUp,
		Model:       c.Chat.Model,
		Temperature: c.Chat.Temperature,
		MaxTokens:   c.Chat.MaxTokens,
	}
}
