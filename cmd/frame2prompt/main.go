// Package main provides the CLI entry point for frame2prompt.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/user/frame2prompt/pkg/adapters/detectorproc"
	"github.com/user/frame2prompt/pkg/adapters/ffmpegsource"
	"github.com/user/frame2prompt/pkg/adapters/ffmpegtranscoder"
	"github.com/user/frame2prompt/pkg/adapters/filesink"
	"github.com/user/frame2prompt/pkg/adapters/ggrenderer"
	"github.com/user/frame2prompt/pkg/adapters/logger"
	"github.com/user/frame2prompt/pkg/adapters/nullsink"
	"github.com/user/frame2prompt/pkg/adapters/openaichat"
	"github.com/user/frame2prompt/pkg/adapters/osfilesystem"
	"github.com/user/frame2prompt/pkg/adapters/promrecorder"
	"github.com/user/frame2prompt/pkg/adapters/termprogress"
	"github.com/user/frame2prompt/pkg/config"
	"github.com/user/frame2prompt/pkg/orchestrator"
	"github.com/user/frame2prompt/pkg/pipeline"
	"github.com/user/frame2prompt/pkg/ports"
	"github.com/user/frame2prompt/pkg/stages/annotate"
	"github.com/user/frame2prompt/pkg/stages/composite"
	"github.com/user/frame2prompt/pkg/stages/converse"
	"github.com/user/frame2prompt/pkg/stages/open"
	"github.com/user/frame2prompt/pkg/stages/sample"
	"github.com/user/frame2prompt/pkg/stages/write"
	"github.com/user/frame2prompt/pkg/summarizer"
)

var version = "dev"

// Exit codes.
const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "frame2prompt",
		Usage:   l10n.T("Extract video frames and analyze them with a vision model"),
		Version: version,
		Commands: []*cli.Command{
			{
				Name:      "extract",
				Usage:     l10n.T("Extract frames from a video at a fixed interval"),
				ArgsUsage: "<video>",
				Flags:     extractFlags(),
				Action:    runExtract,
			},
			{
				Name:      "analyze",
				Usage:     l10n.T("Extract frames and describe them with a chat model"),
				ArgsUsage: "<video>",
				Flags:     append(extractFlags(), chatFlags()...),
				Action:    runAnalyze,
			},
			{
				Name:  "version",
				Usage: l10n.T("Show version information"),
				Action: func(c *cli.Context) error {
					fmt.Println(l10n.F("frame2prompt version %s", version))
					return nil
				},
			},
		},
	}
}

func extractFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file")},

		// Output
		&cli.StringFlag{Name: "output-root", Aliases: []string{"o"}, Category: l10n.T("Output"), Usage: l10n.T("Root directory for extracted frames")},
		&cli.StringFlag{Name: "trial", Aliases: []string{"t"}, Category: l10n.T("Output"), Usage: l10n.T("Trial name (default: <video basename>_trial)")},
		&cli.StringFlag{Name: "prefix", Category: l10n.T("Output"), Usage: l10n.T("Frame filename prefix")},
		&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Category: l10n.T("Output"), Usage: l10n.T("JPEG quality (1-100)")},

		// Sampling
		&cli.Float64Flag{Name: "interval", Aliases: []string{"i"}, Category: l10n.T("Sampling"), Usage: l10n.T("Seconds between sampled frames")},
		&cli.StringFlag{Name: "ffmpeg-path", Category: l10n.T("Sampling"), Usage: l10n.T("Path to ffmpeg (falls back to FFMPEG_PATH, then PATH)")},
		&cli.StringFlag{Name: "ffprobe-path", Category: l10n.T("Sampling"), Usage: l10n.T("Path to ffprobe (falls back to FFPROBE_PATH, then PATH)")},

		// Detection
		&cli.BoolFlag{Name: "detect", Category: l10n.T("Detection"), Usage: l10n.T("Run the detection model and overlay results")},
		&cli.StringFlag{Name: "detector-command", Category: l10n.T("Detection"), Usage: l10n.T("Detection worker executable")},
		&cli.StringFlag{Name: "weights", Category: l10n.T("Detection"), Usage: l10n.T("Model weights passed to the worker")},
		&cli.Float64Flag{Name: "confidence", Category: l10n.T("Detection"), Usage: l10n.T("Minimum detection confidence")},
		&cli.StringFlag{Name: "mode", Category: l10n.T("Detection"), Usage: l10n.T("Overlay mode: boxes, masks or both")},
		&cli.IntSliceFlag{Name: "class", Category: l10n.T("Detection"), Usage: l10n.T("Class id to keep (repeatable; default all)")},
		&cli.BoolFlag{Name: "no-darken-empty", Category: l10n.T("Detection"), Usage: l10n.T("Keep frames without detections in colour in boxes mode")},

		// Debug
		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Category: l10n.T("Debug"), Usage: l10n.T("Save intermediate results")},
		&cli.StringFlag{Name: "debug-dir", Category: l10n.T("Debug"), Usage: l10n.T("Directory for debug output")},
		&cli.StringFlag{Name: "metrics-file", Category: l10n.T("Debug"), Usage: l10n.T("Write run metrics in Prometheus textfile format")},

		// Logging
		&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info", Category: l10n.T("Logging"), Usage: l10n.T("Log level (debug, info, warn, error)")},
		&cli.StringFlag{Name: "log-format", Value: "text", Category: l10n.T("Logging"), Usage: l10n.T("Log format (text, json)")},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Category: l10n.T("Logging"), Usage: l10n.T("Suppress all log output")},
	}
}

func chatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "group-size", Aliases: []string{"g"}, Category: l10n.T("Chat"), Usage: l10n.T("Images per chat message")},
		&cli.StringFlag{Name: "prompt", Aliases: []string{"p"}, Category: l10n.T("Chat"), Usage: l10n.T("Prompt sent with every image group")},
		&cli.StringFlag{Name: "follow-up", Category: l10n.T("Chat"), Usage: l10n.T("Final question asked after all groups")},
		&cli.StringFlag{Name: "model", Category: l10n.T("Chat"), Usage: l10n.T("Chat model name")},
		&cli.StringFlag{Name: "base-url", Category: l10n.T("Chat"), Usage: l10n.T("OpenAI-compatible API base URL")},
		&cli.Float64Flag{Name: "min-request-interval", Category: l10n.T("Chat"), Usage: l10n.T("Minimum seconds between chat requests")},
		&cli.BoolFlag{Name: "skip-extract", Category: l10n.T("Chat"), Usage: l10n.T("Analyze frames already in the output directory")},
	}
}

// loadConfig merges defaults, the config file, dotenv/environment and flags.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	if c.NArg() > 0 {
		cfg.Video = c.Args().First()
	}
	if cfg.Video == "" {
		return cfg, errors.New(l10n.T("a video path is required"))
	}

	setString := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	setString("output-root", &cfg.OutputRoot)
	setString("trial", &cfg.Trial)
	setString("prefix", &cfg.Prefix)
	setString("ffmpeg-path", &cfg.FFmpegPath)
	setString("ffprobe-path", &cfg.FFprobePath)
	setString("detector-command", &cfg.Detector.Command)
	setString("weights", &cfg.Detector.Weights)
	setString("mode", &cfg.Detector.Mode)
	setString("debug-dir", &cfg.DebugDir)
	setString("metrics-file", &cfg.MetricsFile)

	if c.IsSet("quality") {
		cfg.Quality = c.Int("quality")
	}
	if c.IsSet("interval") {
		cfg.IntervalSeconds = c.Float64("interval")
	}
	if c.IsSet("detect") {
		cfg.Detector.Enabled = c.Bool("detect")
	}
	if c.IsSet("confidence") {
		cfg.Detector.Confidence = c.Float64("confidence")
	}
	if c.IsSet("class") {
		cfg.Detector.Classes = c.IntSlice("class")
	}
	if c.Bool("no-darken-empty") {
		cfg.Detector.DarkenEmpty = false
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}

	// Chat flags exist only on analyze; IsSet is false elsewhere.
	setString("prompt", &cfg.Chat.Prompt)
	setString("follow-up", &cfg.Chat.FollowUp)
	setString("model", &cfg.Chat.Model)
	setString("base-url", &cfg.Chat.BaseURL)
	if c.IsSet("group-size") {
		cfg.Chat.GroupSize = c.Int("group-size")
	}
	if c.IsSet("min-request-interval") {
		cfg.Chat.MinRequestInterval = c.Float64("min-request-interval")
	}

	if cfg.Trial == "" {
		base := filepath.Base(cfg.Video)
		cfg.Trial = strings.TrimSuffix(base, filepath.Ext(base)) + "_trial"
	}

	return cfg, cfg.Validate()
}

func newLogger(c *cli.Context) (ports.Logger, error) {
	if c.Bool("quiet") {
		return logger.NewNoop(), nil
	}
	level := ports.ParseLogLevel(c.String("log-level"))
	switch c.String("log-format") {
	case "json":
		structured, err := logger.NewStructured(level)
		if err != nil {
			return nil, err
		}
		return structured, nil
	case "text", "":
		return logger.NewConsole(level), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", c.String("log-format"))
	}
}

// app holds the adapters and stages shared by extract and analyze.
type app struct {
	cfg      config.Config
	log      ports.Logger
	fs       *osfilesystem.FileSystem
	metrics  ports.Metrics
	recorder *promrecorder.Recorder
	detector *detectorproc.Worker
	orch     *orchestrator.Orchestrator
}

func setup(ctx context.Context, c *cli.Context, cfg config.Config, log ports.Logger, chat bool) (*app, error) {
	a := &app{cfg: cfg, log: log, fs: osfilesystem.New(), metrics: promrecorder.Noop{}}
	if cfg.MetricsFile != "" {
		a.recorder = promrecorder.New()
		a.metrics = a.recorder
	}

	renderer := ggrenderer.New()

	var sink ports.DebugSink = nullsink.New()
	if cfg.Debug {
		if err := a.fs.MkdirAll(cfg.DebugDir); err != nil {
			return nil, fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.DebugDir, a.fs, renderer)
	}

	var progress ports.Progress = termprogress.Noop{}
	if !c.Bool("quiet") && c.String("log-format") != "json" {
		progress = termprogress.ForTerminal(l10n.T("Extracting frames"))
	}

	source := ffmpegsource.New(ffmpegsource.Options{FFmpegPath: cfg.FFmpegPath, FFprobePath: cfg.FFprobePath}, log.WithComponent("ffmpeg"))
	transcoder := ffmpegtranscoder.New(cfg.FFmpegPath, log.WithComponent("transcoder"))

	stages := orchestrator.Stages{
		Open:      open.NewStage(source, transcoder, log),
		Sample:    sample.NewStage(log, progress, a.metrics),
		Composite: composite.NewStage(renderer, log),
		Write:     write.NewStage(a.fs, renderer, log, a.metrics, cfg.Quality),
	}

	if cfg.Detector.Enabled {
		log.Info("Loading detection model: %s", cfg.Detector.Command)
		worker, err := detectorproc.Start(ctx, detectorproc.Options{
			Command:    cfg.Detector.Command,
			Args:       cfg.Detector.Args,
			Weights:    cfg.Detector.Weights,
			Confidence: cfg.Detector.Confidence,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("start detector: %w", err)
		}
		a.detector = worker
		stages.Annotate = annotate.NewStage(worker, sink, log, a.metrics)
	}

	if chat {
		client := openaichat.New(openaichat.Options{
			APIKey:     cfg.Chat.APIKey,
			BaseURL:    cfg.Chat.BaseURL,
			MaxRetries: cfg.Chat.MaxRetries,
		}, log)
		stages.Converse = converse.NewStage(a.fs, client, newLimiter(cfg.Chat.MinRequestInterval), log, a.metrics)
	}

	a.orch = orchestrator.New(stages, sink, log)
	return a, nil
}

// newLimiter allows one request per interval seconds; zero disables pacing.
func newLimiter(seconds float64) *rate.Limiter {
	if seconds <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Duration(seconds*float64(time.Second))), 1)
}

func (a *app) close() {
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			a.log.Warn("Failed to stop detector: %s", err)
		}
	}
	if a.recorder != nil {
		if err := a.recorder.WriteTextfile(a.cfg.MetricsFile); err != nil {
			a.log.Warn("Failed to write metrics: %s", err)
		}
	}
}

// signalContext cancels on SIGINT/SIGTERM. Partial output stays valid.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func runExtract(c *cli.Context) error {
	return run(c, false)
}

func runAnalyze(c *cli.Context) error {
	return run(c, true)
}

func run(c *cli.Context, analyze bool) error {
	log, err := newLogger(c)
	if err != nil {
		return cli.Exit(err, exitUsage)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err, exitUsage)
	}
	if analyze {
		if err := cfg.ValidateChat(); err != nil {
			return cli.Exit(err, exitUsage)
		}
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	a, err := setup(ctx, c, cfg, log, analyze)
	if err != nil {
		return cli.Exit(err, exitFailure)
	}
	defer a.close()

	orchConfig := cfg.ToOrchestratorConfig()
	var result orchestrator.RunResult
	if analyze && c.Bool("skip-extract") {
		result = orchestrator.RunResult{
			SourcePath:      cfg.Video,
			OutputDir:       orchConfig.OutputDir(),
			IntervalSeconds: cfg.IntervalSeconds,
		}
		if ok, err := a.fs.Exists(result.OutputDir); err != nil || !ok {
			return cli.Exit(fmt.Errorf("%w: %s", ports.ErrEmptyOutputDirectory, result.OutputDir), exitFailure)
		}
	} else {
		log.Info("Extracting frames from %s every %s s", cfg.Video, write.FormatInterval(cfg.IntervalSeconds))
		result, err = a.orch.Run(ctx, orchConfig)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("Interrupted before any frame was written")
				return nil
			}
			return cli.Exit(err, exitFailure)
		}
	}

	builder := summarizer.NewBuilder().
		WithTrial(cfg.Trial).
		WithVideo(videoInfo(result)).
		WithSampling(samplingInfo(result)).
		WithAnnotation(summarizer.AnnotationInfo{
			Enabled:    cfg.Detector.Enabled,
			Mode:       cfg.Detector.Mode,
			Classes:    orchConfig.Composite.ClassFilter.IDs(),
			Detections: result.Detections,
		})

	if analyze && !result.Interrupted {
		transcript, err := a.orch.Analyze(ctx, result, cfg.ToConverseConfig())
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("Interrupted during analysis")
				return nil
			}
			return cli.Exit(err, exitFailure)
		}
		builder.WithConversation(conversationInfo(cfg, transcript))
		if transcript.FinalAnswer != "" {
			fmt.Println(transcript.FinalAnswer)
		}
	}

	summary := builder.Build()
	logPath := summary.LogPath(cfg.LogDirectory())
	if err := summarizer.NewWriter(summarizer.NewMarkdownFormatter(), a.fs).Write(logPath, summary); err != nil {
		log.Warn("Failed to write analysis log: %s", err)
	} else {
		log.Info("Analysis log saved to %s", logPath)
	}

	return nil
}

func videoInfo(r orchestrator.RunResult) summarizer.VideoInfo {
	v := summarizer.VideoInfo{
		SourcePath: r.SourcePath,
		FrameRate:  r.Video.FrameRate,
		FrameCount: r.Video.FrameCount,
		Width:      r.Video.Width,
		Height:     r.Video.Height,
	}
	if r.Converted {
		v.ConvertedPath = r.VideoPath
	}
	return v
}

func samplingInfo(r orchestrator.RunResult) summarizer.SamplingInfo {
	s := summarizer.SamplingInfo{
		IntervalSeconds: r.IntervalSeconds,
		Stride:          r.Stride,
		OutputDir:       r.OutputDir,
		Requested:       r.Requested,
		Produced:        r.Produced,
		Written:         r.Written,
		Files:           r.Files,
		Interrupted:     r.Interrupted,
	}
	if r.Gap != nil {
		s.Gap = r.Gap.Error()
	}
	return s
}

func conversationInfo(cfg config.Config, t pipeline.ConverseResult) summarizer.ConversationInfo {
	info := summarizer.ConversationInfo{
		Model:       cfg.Chat.Model,
		GroupSize:   cfg.Chat.GroupSize,
		Prompt:      cfg.Chat.Prompt,
		FollowUp:    t.FollowUp,
		FinalAnswer: t.FinalAnswer,
	}
	for _, g := range t.Groups {
		info.Groups = append(info.Groups, summarizer.GroupInfo{Index: g.Index, Images: g.Images, Reply: g.Reply})
	}
	return info
}
