// Package detectorproc runs a detection/segmentation model in a long-lived
// worker process.
//
// The worker is started once per run as
//
//	<command> <args...> [--weights PATH] [--confidence C]
//
// It reads requests from stdin and writes replies to stdout. Each message is
// a 4-byte big-endian length followed by a msgpack map:
//
//	request:   {seq uint, width int, height int, image bin}   image is JPEG
//	response:  {seq uint, detections [detection], error str}
//	detection: {box [x1, y1, x2, y2 float], confidence float, label int,
//	            mask_width int, mask_height int, mask bin}
//
// The reply echoes the request seq. Boxes are in frame pixels. A mask is
// mask_width*mask_height bytes, row-major, non-zero for object pixels, at any
// resolution; an absent mask has zero size. A non-empty error aborts the run.
// The worker logs to stderr. Closing stdin asks it to exit.
//
// examples/detector/worker.py is a reference worker.
package detectorproc

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/user/frame2prompt/pkg/adapters/logger"
	"github.com/user/frame2prompt/pkg/ports"
)

var (
	ErrProtocol    = errors.New("detectorproc: protocol error")
	ErrWorker      = errors.New("detectorproc: worker reported error")
	ErrUnavailable = errors.New("detectorproc: worker unavailable")
	ErrNoCommand   = errors.New("detectorproc: no worker command configured")
)

const (
	defaultJPEGQuality = 90
	defaultStopTimeout = 2 * time.Second
)

// Options configures the worker process.
type Options struct {
	Command     string   // Executable, e.g. "models/run_worker.sh"
	Args        []string // Extra arguments placed before the generated flags
	Weights     string   // Passed as --weights
	Confidence  float64  // Passed as --confidence when > 0
	JPEGQuality int      // Frame encoding quality for requests
	StopTimeout time.Duration
}

func (o Options) args() []string {
	args := append([]string{}, o.Args...)
	if o.Weights != "" {
		args = append(args, "--weights", o.Weights)
	}
	if o.Confidence > 0 {
		args = append(args, "--confidence", strconv.FormatFloat(o.Confidence, 'f', 2, 64))
	}
	return args
}

// Worker is a running model process. Requests are strictly sequential.
type Worker struct {
	opts   Options
	logger ports.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	exited chan struct{}

	mu        sync.Mutex
	seq       uint64
	broken    error
	closeOnce sync.Once
	closeErr  error
}

// Start launches the worker process. It is called once per run.
func Start(ctx context.Context, opts Options, log ports.Logger) (*Worker, error) {
	if opts.Command == "" {
		return nil, ErrNoCommand
	}
	if log == nil {
		log = logger.NewNoop()
	}
	log = log.WithComponent("detector")

	cmd := exec.CommandContext(ctx, opts.Command, opts.args()...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	log.Info("Detector worker started (pid %d)", cmd.Process.Pid)

	w := newWorker(opts, log, stdin, stdout)
	w.cmd = cmd

	go w.logStderr(stderr)
	go func() {
		err := cmd.Wait()
		if err != nil {
			log.Debug("Detector worker exited: %v", err)
		}
		close(w.exited)
	}()

	return w, nil
}

func newWorker(opts Options, log ports.Logger, stdin io.WriteCloser, stdout io.Reader) *Worker {
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = defaultJPEGQuality
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	return &Worker{
		opts:   opts,
		logger: log,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		exited: make(chan struct{}),
	}
}

// Infer sends img to the worker and waits for its detections.
// After a cancelled or failed exchange the worker is unusable.
func (w *Worker) Infer(ctx context.Context, img image.Image) ([]ports.Detection, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.broken != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, w.broken)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: w.opts.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	w.seq++
	bounds := img.Bounds()
	req := request{
		Seq:    w.seq,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Image:  buf.Bytes(),
	}

	type result struct {
		resp response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		if r.err = writeMessage(w.stdin, req); r.err == nil {
			r.err = readMessage(w.stdout, &r.resp)
		}
		done <- r
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		w.broken = ctx.Err()
		return nil, ctx.Err()
	}

	if r.err != nil {
		w.broken = r.err
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, r.err)
	}
	if r.resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrWorker, r.resp.Error)
	}
	if r.resp.Seq != req.Seq {
		w.broken = ErrProtocol
		return nil, fmt.Errorf("%w: expected seq %d, got %d", ErrProtocol, req.Seq, r.resp.Seq)
	}

	detections := make([]ports.Detection, 0, len(r.resp.Detections))
	for _, d := range r.resp.Detections {
		det, err := d.toDetection()
		if err != nil {
			return nil, err
		}
		detections = append(detections, det)
	}
	return detections, nil
}

// Close closes stdin and waits for the worker to exit, killing it after StopTimeout.
func (w *Worker) Close() error {
	w.closeOnce.Do(func() {
		if err := w.stdin.Close(); err != nil {
			w.logger.Debug("close stdin: %v", err)
		}
		if w.cmd == nil || w.cmd.Process == nil {
			return
		}

		select {
		case <-w.exited:
		case <-time.After(w.opts.StopTimeout):
			w.logger.Warn("Detector worker did not exit, killing")
			if err := w.cmd.Process.Kill(); err != nil {
				w.closeErr = fmt.Errorf("kill worker: %w", err)
			}
			<-w.exited
		}
	})
	return w.closeErr
}

func (w *Worker) logStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "[ERROR]") || strings.Contains(line, "[CRITICAL]"):
			w.logger.Error("Detector worker: %s", line)
		case strings.Contains(line, "[WARNING]") || strings.Contains(line, "[WARN]"):
			w.logger.Warn("Detector worker: %s", line)
		default:
			w.logger.Debug("Detector worker: %s", line)
		}
	}
}

var _ ports.Detector = (*Worker)(nil)
