// Package progress draws a progress bar for batches of Canvas requests.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/Brehove/canvas-cli-for-codex/internal/logging"
	"github.com/Brehove/canvas-cli-for-codex/internal/ui"
)

// Bar is a progress bar that falls back to debug logging when the output
// is not an interactive terminal. It is safe for concurrent use.
type Bar struct {
	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	enabled bool
	desc    string
	done    int
	max     int
}

// Options configures the progress bar behavior.
type Options struct {
	// Max is the total number of steps.
	Max int
	// Description is the prefix text shown before the bar.
	Description string
	// Writer is the output destination. Defaults to os.Stderr.
	Writer io.Writer
	// Quiet suppresses the bar regardless of the terminal.
	Quiet bool
}

// New creates a progress bar. The bar is only drawn when colors are
// enabled, the writer is a terminal and debug logging is off.
func New(opts Options) *Bar {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}

	b := &Bar{
		enabled: !opts.Quiet && shouldShowProgress(opts.Writer),
		desc:    opts.Description,
		max:     opts.Max,
	}
	if !b.enabled {
		logging.Debug(fmt.Sprintf("%s started", opts.Description), logging.Count(opts.Max))
		return b
	}

	b.bar = progressbar.NewOptions(
		opts.Max,
		progressbar.OptionSetDescription(opts.Description),
		progressbar.OptionSetWriter(opts.Writer),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprint(opts.Writer, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(ui.IsColorEnabled()),
	)
	return b
}

// Add advances the bar by n steps.
func (b *Bar) Add(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done += n
	if b.enabled {
		_ = b.bar.Add(n)
	}
}

// Describe updates the description.
func (b *Bar) Describe(desc string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.desc = desc
	if b.enabled {
		b.bar.Describe(desc)
	}
}

// Done returns the number of completed steps.
func (b *Bar) Done() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Finish completes the bar.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.enabled {
		logging.Debug(fmt.Sprintf("%s completed", b.desc), logging.Count(b.done))
		return
	}
	_ = b.bar.Finish()
}

// shouldShowProgress reports whether w is a color-enabled terminal and
// the logger is not at debug level, where the bar would interleave with
// log lines.
func shouldShowProgress(w io.Writer) bool {
	if !ui.IsColorEnabled() {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice == 0 {
		return false
	}
	return !logging.Default().Enabled(context.Background(), logging.LevelDebug)
}
