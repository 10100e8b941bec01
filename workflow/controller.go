// Package workflow drives the interactive menu: owner selection, training
// image registration and face-log verification.
package workflow

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/abihf/facelog/backend"
	"github.com/abihf/facelog/capture"
	"github.com/abihf/facelog/config"
	"github.com/abihf/facelog/protocol"
)

type Backend interface {
	ListOwners(ctx context.Context) (*backend.Response[[]protocol.Owner], error)
	CheckUserImages(ctx context.Context, username string) (*backend.Response[protocol.ImagesResponse], error)
	UploadImages(ctx context.Context, username string, paths []string) (*backend.Response[protocol.UploadResponse], error)
	SubmitFaceLog(ctx context.Context, path string) (*backend.Response[protocol.FaceLogResponse], error)
}

type Capture interface {
	Batch(ctx context.Context, dir, username string, target int) ([]string, error)
	Single(ctx context.Context, dir string) (string, error)
}

// next tells a menu what to do after a flow returns.
type next int

const (
	stay next = iota
	backToMain
)

type Controller struct {
	conf    *config.Config
	backend Backend
	capture Capture

	in    *bufio.Reader
	out   io.Writer
	log   *slog.Logger
	sleep func(ctx context.Context, d time.Duration) error
	clear func()
}

type Option func(*Controller)

func WithIO(in io.Reader, out io.Writer) Option {
	return func(c *Controller) {
		c.in = bufio.NewReader(in)
		c.out = out
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) { c.sleep = fn }
}

// WithClear sets the screen clearing function, a no-op by default.
func WithClear(fn func()) Option {
	return func(c *Controller) { c.clear = fn }
}

func New(conf *config.Config, b Backend, capturer Capture, opts ...Option) *Controller {
	c := &Controller{
		conf:    conf,
		backend: b,
		capture: capturer,
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		log:     slog.Default(),
		sleep:   capture.Sleep,
		clear:   func() {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run shows the main menu until the user quits, stdin ends or ctx is
// cancelled. Temporary images are removed before it returns.
func (c *Controller) Run(ctx context.Context) error {
	defer c.Cleanup()

	err := c.mainMenu(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(c.out, "\nThank you! Program finished.")
		return nil
	}
	return err
}

// Cleanup removes everything under the temporary root.
func (c *Controller) Cleanup() {
	root := c.conf.TempDir
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("Can not read temp dir", "dir", root, "error", err)
		}
		return
	}
	for _, e := range entries {
		path := filepath.Join(root, e.Name())
		if err := os.RemoveAll(path); err != nil {
			c.log.Warn("Can not remove temp data", "path", path, "error", err)
			fmt.Fprintf(c.out, "Error cleaning up %s: %v\n", path, err)
		}
	}
	c.log.Debug("Temp dir cleaned", "dir", root)
}
