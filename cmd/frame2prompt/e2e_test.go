package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/user/frame2prompt/pkg/adapters/ffmpegbin"
)

// requireE2E skips unless FRAME2PROMPT_E2E=1 and ffmpeg can render a clip.
// It returns the path of a 6 second 30 fps test video.
func requireE2E(t *testing.T) string {
	t.Helper()
	if os.Getenv("FRAME2PROMPT_E2E") != "1" {
		t.Skip("Skipping E2E test (set FRAME2PROMPT_E2E=1 to run)")
	}
	ffmpeg, err := ffmpegbin.Find(ffmpegbin.FFmpeg, "")
	if err != nil {
		t.Skip("ffmpeg not available")
	}

	video := filepath.Join(t.TempDir(), "clip.mp4")
	cmd := exec.Command(ffmpeg, "-v", "error", "-y",
		"-f", "lavfi", "-i", "testsrc=size=64x48:rate=30",
		"-t", "6", "-c:v", "libx264", "-pix_fmt", "yuv420p", video)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("ffmpeg cannot render test video: %v: %s", err, out)
	}
	return video
}

// fakeChat serves /chat/completions and counts requests.
type fakeChat struct {
	mu       sync.Mutex
	requests int
	images   []int
}

func (f *fakeChat) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer test-key" {
		http.Error(w, "unexpected request", http.StatusBadRequest)
		return
	}

	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
			} `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests++
	n := f.requests
	last := req.Messages[len(req.Messages)-1]
	images := 0
	for _, part := range last.Content {
		if part.Type == "image_url" {
			images++
		}
	}
	f.images = append(f.images, images)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":"reply %d"}}],"usage":{"prompt_tokens":10,"completion_tokens":2}}`, n)
}

func TestE2E_Extract(t *testing.T) {
	video := requireE2E(t)
	root := t.TempDir()
	metrics := filepath.Join(root, "metrics.prom")

	err := newApp().Run([]string{"frame2prompt", "extract",
		"--quiet",
		"--output-root", root,
		"--interval", "2",
		"--metrics-file", metrics,
		video,
	})
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	dir := filepath.Join(root, "clip_trial_2s")
	for _, name := range []string{"frame_0000.jpg", "frame_0002.jpg", "frame_0004.jpg"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	logs, _ := filepath.Glob(filepath.Join(root, "logs", "clip_trial_2s_*.md"))
	if len(logs) != 1 {
		t.Fatalf("expected one analysis log, got %v", logs)
	}

	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if !strings.Contains(string(data), "frame2prompt_frames_written_total 3") {
		t.Errorf("unexpected metrics:\n%s", data)
	}
}

func TestE2E_Analyze(t *testing.T) {
	video := requireE2E(t)
	root := t.TempDir()

	chat := &fakeChat{}
	server := httptest.NewServer(chat)
	defer server.Close()
	t.Setenv("OPENAI_API_KEY", "test-key")

	err := newApp().Run([]string{"frame2prompt", "analyze",
		"--quiet",
		"--output-root", root,
		"--trial", "demo",
		"--interval", "1",
		"--group-size", "4",
		"--base-url", server.URL,
		"--min-request-interval", "0",
		video,
	})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	// 6 frames in groups of 4, then the follow-up
	if chat.requests != 3 {
		t.Fatalf("expected 3 chat requests, got %d", chat.requests)
	}
	if chat.images[0] != 4 || chat.images[1] != 2 || chat.images[2] != 0 {
		t.Errorf("unexpected images per request %v", chat.images)
	}

	logs, _ := filepath.Glob(filepath.Join(root, "logs", "demo_1s_*.md"))
	if len(logs) != 1 {
		t.Fatalf("expected one analysis log, got %v", logs)
	}
	data, err := os.ReadFile(logs[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"reply 1", "reply 2", "reply 3", "### Group 2"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("analysis log missing %q", want)
		}
	}
}
