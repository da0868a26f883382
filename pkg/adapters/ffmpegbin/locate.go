// Package ffmpegbin locates the ffmpeg and ffprobe executables.
package ffmpegbin

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

var (
	ErrFFmpegNotFound  = errors.New("ffmpegbin: ffmpeg not found")
	ErrFFprobeNotFound = errors.New("ffmpegbin: ffprobe not found")
)

// Tool names one of the ffmpeg suite binaries.
type Tool string

const (
	FFmpeg  Tool = "ffmpeg"
	FFprobe Tool = "ffprobe"
)

func (t Tool) envVar() string {
	switch t {
	case FFprobe:
		return "FFPROBE_PATH"
	default:
		return "FFMPEG_PATH"
	}
}

func (t Tool) notFound() error {
	if t == FFprobe {
		return ErrFFprobeNotFound
	}
	return ErrFFmpegNotFound
}

// Find resolves the path of tool.
// Priority: 1) explicit, 2) FFMPEG_PATH / FFPROBE_PATH env, 3) PATH, 4) common locations.
// An explicit or env path that does not exist is an error rather than a fallthrough.
func Find(tool Tool, explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", tool.notFound(), explicit)
	}

	if envPath := os.Getenv(tool.envVar()); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", fmt.Errorf("%w: %s %s not found", tool.notFound(), tool.envVar(), envPath)
	}

	execName := string(tool)
	if runtime.GOOS == "windows" {
		execName += ".exe"
	}
	if path, err := exec.LookPath(execName); err == nil {
		return path, nil
	}

	for _, p := range commonPaths(execName) {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", tool.notFound()
}

// Available reports whether tool can be found without an explicit path.
func Available(tool Tool) bool {
	_, err := Find(tool, "")
	return err == nil
}

func commonPaths(execName string) []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			`C:\ffmpeg\bin\` + execName,
			`C:\Program Files\ffmpeg\bin\` + execName,
			`C:\Program Files (x86)\ffmpeg\bin\` + execName,
		}
	case "darwin":
		return []string{
			"/opt/homebrew/bin/" + execName,
			"/usr/local/bin/" + execName,
			"/usr/bin/" + execName,
		}
	default:
		return []string{
			"/usr/bin/" + execName,
			"/usr/local/bin/" + execName,
			"/opt/homebrew/bin/" + execName,
			"/snap/bin/" + execName,
		}
	}
}
