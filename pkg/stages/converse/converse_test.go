package converse

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/user/frame2prompt/pkg/adapters/logger"
	"github.com/user/frame2prompt/pkg/mocks"
	"github.com/user/frame2prompt/pkg/pipeline"
	"github.com/user/frame2prompt/pkg/ports"
)

func seed(fs *mocks.FileSystem, dir string, names ...string) {
	for _, n := range names {
		fs.WriteFile(filepath.Join(dir, n), []byte(n))
	}
}

func TestListImages(t *testing.T) {
	fs := mocks.NewFileSystem()
	seed(fs, "out", "frame_0004.jpg", "notes.txt", "frame_0000.JPG", "a.png", "b.jpeg", "c.gif")

	got, err := ListImages(fs, "out")
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	want := []string{"a.png", "b.jpeg", "frame_0000.JPG", "frame_0004.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestGroup(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	got := Group(items, 2)
	want := [][]string{{"a", "b"}, {"c", "d"}, {"e"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got := Group(items, 10); len(got) != 1 || len(got[0]) != 5 {
		t.Errorf("expected one group, got %v", got)
	}
}

func TestDataURL(t *testing.T) {
	if got := DataURL("x.png", []byte("hi")); got != "data:image/png;base64,aGk=" {
		t.Errorf("unexpected png url %s", got)
	}
	if got := DataURL("x.jpg", []byte("hi")); !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Errorf("unexpected jpeg url %s", got)
	}
}

func newStage(fs *mocks.FileSystem) (*Stage, *mocks.ChatClient, *mocks.Limiter, *mocks.Metrics) {
	client := &mocks.ChatClient{}
	limiter := &mocks.Limiter{}
	metrics := mocks.NewMetrics()
	return NewStage(fs, client, limiter, logger.NewNoop(), metrics), client, limiter, metrics
}

func TestStage_MultiTurnConversation(t *testing.T) {
	fs := mocks.NewFileSystem()
	seed(fs, "out", "frame_0000.jpg", "frame_0002.jpg", "frame_0004.jpg")
	stage, client, limiter, metrics := newStage(fs)

	result, err := stage.Execute(context.Background(), pipeline.ConverseInput{
		Dir:         "out",
		GroupSize:   2,
		Prompt:      "What happens?",
		FollowUp:    "Summarize.",
		Model:       "gpt-4o",
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(result.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(result.Groups))
	}
	if result.Groups[0].Reply != "reply 1" || result.Groups[1].Reply != "reply 2" {
		t.Errorf("unexpected replies %+v", result.Groups)
	}
	if !reflect.DeepEqual(result.Groups[1].Images, []string{"frame_0004.jpg"}) {
		t.Errorf("unexpected last group %v", result.Groups[1].Images)
	}
	if result.FinalAnswer != "reply 3" || result.FollowUp != "Summarize." {
		t.Errorf("unexpected follow-up %+v", result)
	}

	if len(client.Requests) != 3 || limiter.Waits != 3 {
		t.Fatalf("expected 3 rate-limited requests, got %d requests %d waits", len(client.Requests), limiter.Waits)
	}

	// Each request carries the whole history so far.
	for i, wantLen := range []int{1, 3, 5} {
		if got := len(client.Requests[i].Messages); got != wantLen {
			t.Errorf("request %d: expected %d messages, got %d", i, wantLen, got)
		}
	}
	first := client.Requests[0]
	if first.Temperature != 0.7 || first.MaxTokens != DefaultMaxTokens || first.Model != "gpt-4o" {
		t.Errorf("unexpected request params %+v", first)
	}
	parts := first.Messages[0].Parts
	if len(parts) != 3 || parts[0].Text != "What happens?" || !strings.HasPrefix(parts[1].ImageURL, "data:image/jpeg;base64,") {
		t.Errorf("unexpected first message %+v", parts)
	}
	last := client.Requests[2].Messages[4]
	if last.Role != ports.RoleUser || last.Parts[0].Text != "Summarize." || last.Parts[0].ImageURL != "" {
		t.Errorf("expected text-only follow-up, got %+v", last)
	}
	if len(result.Messages) != 6 {
		t.Errorf("expected 6 messages in transcript, got %d", len(result.Messages))
	}
	if metrics.ChatResults["ok"] != 3 {
		t.Errorf("expected 3 ok chat metrics, got %v", metrics.ChatResults)
	}
}

func TestStage_NoFollowUp(t *testing.T) {
	fs := mocks.NewFileSystem()
	seed(fs, "out", "a.jpg")
	stage, client, _, _ := newStage(fs)

	result, err := stage.Execute(context.Background(), pipeline.ConverseInput{Dir: "out", GroupSize: 5, Prompt: "p"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(client.Requests) != 1 || result.FinalAnswer != "" {
		t.Errorf("expected a single request and no final answer, got %d / %q", len(client.Requests), result.FinalAnswer)
	}
}

func TestStage_ZeroTemperatureKept(t *testing.T) {
	fs := mocks.NewFileSystem()
	seed(fs, "out", "a.jpg")
	stage, client, _, _ := newStage(fs)

	if _, err := stage.Execute(context.Background(), pipeline.ConverseInput{Dir: "out", GroupSize: 1, Prompt: "p", Temperature: 0}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := client.Requests[0].Temperature; got != 0 {
		t.Errorf("expected temperature 0 to be sent unchanged, got %v", got)
	}
}

func TestStage_EmptyDirectory(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.MkdirAll("out")
	seed(fs, "out", "readme.txt")
	stage, client, _, _ := newStage(fs)

	_, err := stage.Execute(context.Background(), pipeline.ConverseInput{Dir: "out", GroupSize: 2})
	if !errors.Is(err, ports.ErrEmptyOutputDirectory) {
		t.Errorf("expected ErrEmptyOutputDirectory, got %v", err)
	}
	if len(client.Requests) != 0 {
		t.Error("expected no chat requests")
	}
}

func TestStage_InvalidGroupSize(t *testing.T) {
	stage, _, _, _ := newStage(mocks.NewFileSystem())
	if _, err := stage.Execute(context.Background(), pipeline.ConverseInput{Dir: "out", GroupSize: 0}); !errors.Is(err, ErrInvalidGroupSize) {
		t.Errorf("expected ErrInvalidGroupSize, got %v", err)
	}
}

func TestStage_ClientErrorStops(t *testing.T) {
	fs := mocks.NewFileSystem()
	seed(fs, "out", "a.jpg", "b.jpg")
	stage, client, _, metrics := newStage(fs)
	boom := errors.New("api down")
	client.CompleteFunc = func(context.Context, ports.ChatRequest) (ports.ChatResponse, error) {
		return ports.ChatResponse{}, boom
	}

	result, err := stage.Execute(context.Background(), pipeline.ConverseInput{Dir: "out", GroupSize: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected client error, got %v", err)
	}
	if len(result.Groups) != 0 || len(client.Requests) != 1 {
		t.Errorf("expected to stop after first failure, got %d groups %d requests", len(result.Groups), len(client.Requests))
	}
	if metrics.ChatResults["error"] != 1 {
		t.Errorf("expected error metric, got %v", metrics.ChatResults)
	}
}

func TestStage_LimiterCancellation(t *testing.T) {
	fs := mocks.NewFileSystem()
	seed(fs, "out", "a.jpg")
	stage, client, limiter, _ := newStage(fs)
	limiter.WaitFunc = func(context.Context) error { return context.Canceled }

	_, err := stage.Execute(context.Background(), pipeline.ConverseInput{Dir: "out", GroupSize: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(client.Requests) != 0 {
		t.Error("expected no request when limiter fails")
	}
}
