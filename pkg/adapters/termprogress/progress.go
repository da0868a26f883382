// Package termprogress shows a terminal progress bar over sampled frames.
package termprogress

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/user/frame2prompt/pkg/ports"
)

// Bar implements ports.Progress with a progressbar on the given writer.
type Bar struct {
	out         io.Writer
	description string
	bar         *progressbar.ProgressBar
}

// New creates a Bar writing to out.
func New(out io.Writer, description string) *Bar {
	return &Bar{out: out, description: description}
}

// ForTerminal returns a Bar on stderr when it is a terminal, otherwise a Noop.
func ForTerminal(description string) ports.Progress {
	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return New(os.Stderr, description)
	}
	return Noop{}
}

func (b *Bar) Start(total int) {
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.out),
		progressbar.OptionSetDescription(b.description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

func (b *Bar) Advance() {
	if b.bar != nil {
		_ = b.bar.Add(1)
	}
}

func (b *Bar) Finish() {
	if b.bar != nil {
		_ = b.bar.Finish()
	}
}

// Noop discards progress.
type Noop struct{}

func (Noop) Start(int) {}
func (Noop) Advance()  {}
func (Noop) Finish()   {}

var (
	_ ports.Progress = (*Bar)(nil)
	_ ports.Progress = Noop{}
)
