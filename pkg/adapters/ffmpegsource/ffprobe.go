package ffmpegsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/user/frame2prompt/pkg/ports"
)

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NbFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
}

func runFFprobe(ctx context.Context, ffprobePath, path string) (ports.VideoInfo, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_streams",
		"-of", "json",
		path,
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffprobePath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return ports.VideoInfo{}, fmt.Errorf("ffprobe: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	return parseFFprobe(stdout.Bytes())
}

// parseFFprobe converts `ffprobe -show_streams -of json` output to VideoInfo.
// Missing fields are left at zero.
func parseFFprobe(data []byte) (ports.VideoInfo, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return ports.VideoInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	for _, s := range out.Streams {
		if s.CodecType != "" && s.CodecType != "video" {
			continue
		}

		fps := parseRate(s.AvgFrameRate)
		if fps <= 0 {
			fps = parseRate(s.RFrameRate)
		}

		frames, _ := strconv.Atoi(s.NbFrames)
		if frames <= 0 && fps > 0 {
			if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > 0 {
				frames = int(math.Round(d * fps))
			}
		}

		return ports.VideoInfo{
			FrameRate:  fps,
			FrameCount: frames,
			Width:      s.Width,
			Height:     s.Height,
		}, nil
	}

	return ports.VideoInfo{}, nil
}

// parseRate parses "30000/1001" or "25" style rates. Invalid input yields 0.
func parseRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
