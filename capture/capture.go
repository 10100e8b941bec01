package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
)

// KeyEsc cancels a running capture.
const KeyEsc = 27

var (
	ErrCancelled = errors.New("capture cancelled")
	ErrNoFrame   = errors.New("device stopped producing frames")
	ErrExhausted = errors.New("no face verified")
)

type Frame interface {
	Save(path string) error
	Close() error
}

type Source interface {
	Read() (Frame, error)
	Close() error
}

type Preview interface {
	Show(frame Frame)
	// Key polls the keyboard, returning -1 when nothing was pressed.
	Key() int
	Close() error
}

type Detector interface {
	// Faces counts faces in a live frame.
	Faces(frame Frame) int
	// HasFace reports whether the saved image at path contains a face.
	HasFace(path string) bool
}

// Processor handles one frame and reports whether to keep reading.
type Processor func(frame Frame) (bool, error)

// Capturer runs the capture-and-verify loops. Zero tunables fall back to
// the defaults below.
type Capturer struct {
	Open     func() (Source, error)
	Preview  func(title string) Preview
	Detector Detector

	Interval     int
	Stabilize    int
	MaxAttempts  int
	AttemptDelay time.Duration
	CancelKey    int

	Out   io.Writer
	Log   *slog.Logger
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

func (c *Capturer) interval() int {
	if c.Interval > 0 {
		return c.Interval
	}
	return 30
}

func (c *Capturer) stabilize() int {
	if c.Stabilize > 0 {
		return c.Stabilize
	}
	return 60
}

func (c *Capturer) maxAttempts() int {
	if c.MaxAttempts > 0 {
		return c.MaxAttempts
	}
	return 10
}

func (c *Capturer) cancelKey() int {
	if c.CancelKey > 0 {
		return c.CancelKey
	}
	return KeyEsc
}

func (c *Capturer) out() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return io.Discard
}

func (c *Capturer) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

func (c *Capturer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Capturer) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

func (c *Capturer) openPreview(title string) Preview {
	if c.Preview == nil {
		return nil
	}
	return c.Preview(title)
}

// stream feeds frames from src to process until it returns false. Every
// frame is shown on view and the keyboard polled once.
func (c *Capturer) stream(ctx context.Context, src Source, view Preview, process Processor) error {
	for {
		if ctx.Err() != nil {
			return errors.Wrap(ErrCancelled, ctx.Err().Error())
		}

		frame, err := src.Read()
		if err != nil {
			if errors.Is(err, ErrNoFrame) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrNoFrame, err)
		}

		cont, err := func() (bool, error) {
			defer frame.Close()
			if view != nil {
				view.Show(frame)
			}
			return process(frame)
		}()
		if err != nil {
			return err
		}

		if view != nil && view.Key() == c.cancelKey() {
			return ErrCancelled
		}
		if !cont {
			return nil
		}
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Stamp formats t as YYYYMMDD_HHMMSS_ffffff.
func Stamp(t time.Time) string {
	return fmt.Sprintf("%s_%06d", t.Format("20060102_150405"), t.Nanosecond()/1000)
}

func removeFiles(log *slog.Logger, paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Warn("Could not remove image", "path", p, "error", err)
		}
	}
}
