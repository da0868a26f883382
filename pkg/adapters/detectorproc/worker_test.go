package detectorproc

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/user/frame2prompt/pkg/adapters/logger"
	"github.com/user/frame2prompt/pkg/ports"
)

// startFake wires a Worker to an in-process responder over a pipe pair.
func startFake(t *testing.T, reply func(req request) response) *Worker {
	t.Helper()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	go func() {
		defer respW.Close()
		for {
			var req request
			if err := readMessage(reqR, &req); err != nil {
				return
			}
			if err := writeMessage(respW, reply(req)); err != nil {
				return
			}
		}
	}()

	w := newWorker(Options{}, logger.NewNoop(), reqW, respR)
	t.Cleanup(func() { w.Close() })
	return w
}

func testFrame(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 100, 255})
		}
	}
	return img
}

func TestMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := response{Seq: 7, Detections: []wireDetection{{Box: [4]float64{1, 2, 3, 4}, Label: 2}}}
	if err := writeMessage(&buf, in); err != nil {
		t.Fatalf("writeMessage failed: %v", err)
	}

	if got := buf.Bytes()[:4]; got[0] != 0 || got[1] != 0 {
		t.Errorf("expected small big-endian length prefix, got % x", got)
	}

	var out response
	if err := readMessage(&buf, &out); err != nil {
		t.Fatalf("readMessage failed: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("expected %+v, got %+v", in, out)
	}
}

func TestReadMessage_Oversized(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	var out response
	if err := readMessage(bytes.NewReader(data), &out); !errors.Is(err, ErrProtocol) {
		t.Errorf("expected ErrProtocol, got %v", err)
	}
}

func TestWorker_Infer(t *testing.T) {
	w := startFake(t, func(req request) response {
		if req.Width != 8 || req.Height != 6 {
			return response{Seq: req.Seq, Error: "bad size"}
		}
		if len(req.Image) < 2 || req.Image[0] != 0xFF || req.Image[1] != 0xD8 {
			return response{Seq: req.Seq, Error: "not jpeg"}
		}
		return response{Seq: req.Seq, Detections: []wireDetection{
			{Box: [4]float64{0.4, 1, 4.6, 5}, Confidence: 0.87, Label: 0,
				MaskWidth: 2, MaskHeight: 2, Mask: []byte{1, 0, 0, 1}},
			{Box: [4]float64{5, 0, 8, 3}, Confidence: 0.5, Label: 2},
		}}
	})

	dets, err := w.Infer(context.Background(), testFrame(8, 6))
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if len(dets) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(dets))
	}
	if dets[0].Box != image.Rect(0, 1, 5, 5) {
		t.Errorf("expected rounded box, got %v", dets[0].Box)
	}
	if dets[0].Mask == nil || !dets[0].Mask.At(0, 0) || dets[0].Mask.At(1, 0) {
		t.Errorf("unexpected mask %+v", dets[0].Mask)
	}
	if dets[1].Mask != nil {
		t.Error("expected nil mask for box-only detection")
	}

	// Sequence numbers advance per request
	if _, err := w.Infer(context.Background(), testFrame(8, 6)); err != nil {
		t.Fatalf("second Infer failed: %v", err)
	}
}

func TestWorker_InferEmpty(t *testing.T) {
	w := startFake(t, func(req request) response {
		return response{Seq: req.Seq}
	})

	dets, err := w.Infer(context.Background(), testFrame(4, 4))
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if len(dets) != 0 {
		t.Errorf("expected no detections, got %d", len(dets))
	}
}

func TestWorker_ReportedError(t *testing.T) {
	w := startFake(t, func(req request) response {
		return response{Seq: req.Seq, Error: "CUDA out of memory"}
	})

	if _, err := w.Infer(context.Background(), testFrame(4, 4)); !errors.Is(err, ErrWorker) {
		t.Errorf("expected ErrWorker, got %v", err)
	}
}

func TestWorker_SequenceMismatch(t *testing.T) {
	w := startFake(t, func(req request) response {
		return response{Seq: req.Seq + 1}
	})

	if _, err := w.Infer(context.Background(), testFrame(4, 4)); !errors.Is(err, ErrProtocol) {
		t.Errorf("expected ErrProtocol, got %v", err)
	}
	if _, err := w.Infer(context.Background(), testFrame(4, 4)); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected worker to be unusable after mismatch, got %v", err)
	}
}

func TestWorker_InvalidMask(t *testing.T) {
	w := startFake(t, func(req request) response {
		return response{Seq: req.Seq, Detections: []wireDetection{
			{MaskWidth: 3, MaskHeight: 3, Mask: []byte{1}},
		}}
	})

	if _, err := w.Infer(context.Background(), testFrame(4, 4)); !errors.Is(err, ErrProtocol) {
		t.Errorf("expected ErrProtocol, got %v", err)
	}
}

func TestWorker_CancelledContext(t *testing.T) {
	block := make(chan struct{})
	w := startFake(t, func(req request) response {
		<-block
		return response{Seq: req.Seq}
	})
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := w.Infer(ctx, testFrame(4, 4)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStart_NoCommand(t *testing.T) {
	if _, err := Start(context.Background(), Options{}, nil); !errors.Is(err, ErrNoCommand) {
		t.Errorf("expected ErrNoCommand, got %v", err)
	}
}

func TestStart_MissingExecutable(t *testing.T) {
	_, err := Start(context.Background(), Options{Command: "/nonexistent/detector-worker"}, nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

// The reference worker in examples/detector speaks the same protocol.
func TestStart_ReferenceWorker(t *testing.T) {
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	if err := exec.Command(python, "-c", "import msgpack").Run(); err != nil {
		t.Skip("python msgpack module not installed")
	}

	script := filepath.Join("..", "..", "..", "examples", "detector", "worker.py")
	w, err := Start(context.Background(), Options{Command: python, Args: []string{script, "--fake"}}, logger.NewNoop())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		dets, err := w.Infer(context.Background(), testFrame(64, 48))
		if err != nil {
			t.Fatalf("Infer %d failed: %v", i, err)
		}
		if len(dets) != 1 {
			t.Fatalf("expected one detection, got %d", len(dets))
		}
		d := dets[0]
		if d.Box != image.Rect(16, 12, 48, 36) || d.Label != 0 {
			t.Errorf("unexpected detection %+v", d)
		}
		if d.Mask == nil || d.Mask.Width != 16 || d.Mask.Height != 12 || d.Mask.Bits[6*16+8] == 0 || d.Mask.Bits[0] != 0 {
			t.Errorf("unexpected mask %+v", d.Mask)
		}
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestOptions_Args(t *testing.T) {
	opts := Options{Args: []string{"worker.py"}, Weights: "yolov8n-seg.pt", Confidence: 0.25}
	want := []string{"worker.py", "--weights", "yolov8n-seg.pt", "--confidence", "0.25"}
	if got := opts.args(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

var _ ports.Detector = (*Worker)(nil)
