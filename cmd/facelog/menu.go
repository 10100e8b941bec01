package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/abihf/facelog"
	"github.com/abihf/facelog/backend"
	"github.com/abihf/facelog/capture"
	"github.com/abihf/facelog/config"
	"github.com/abihf/facelog/logging"
	"github.com/abihf/facelog/workflow"
)

// exitGrace is how long an interrupted menu gets to unwind before the
// process exits on its own.
const exitGrace = 3 * time.Second

var errInterrupted = errors.New("interrupted")

func runMenu(cmd *cobra.Command, _ []string) error {
	conf := config.Load(configFile)
	log := logging.New(conf, os.Stderr)
	slog.SetDefault(log)

	client, err := backend.New(conf.BaseURL, backend.WithLogger(log), backend.WithProgress(os.Stdout))
	if err != nil {
		return err
	}

	detector := facelog.NewCascadeDetector(conf.CascadeFile, log)
	defer detector.Close()
	if !detector.Loaded() {
		fmt.Fprintf(os.Stderr, "⚠ Cascade file %s not found, no face will ever be detected\n", conf.CascadeFile)
	}

	capturer := &capture.Capturer{
		Open:         facelog.OpenSource(conf, log),
		Detector:     detector,
		Interval:     conf.CaptureInterval,
		Stabilize:    conf.StabilizeFrames,
		MaxAttempts:  conf.MaxAttempts,
		AttemptDelay: conf.RetryInterval(),
		Out:          os.Stdout,
		Log:          log,
	}
	if !conf.Headless {
		capturer.Preview = facelog.NewWindow
	}

	ctrl := workflow.New(conf, client, capturer,
		workflow.WithLogger(log),
		workflow.WithClear(screenClearer()),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	defer close(done)
	go exitOnInterrupt(ctx, done, ctrl)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	err = ctrl.Run(ctx)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if errors.Is(err, context.Canceled) {
		fmt.Println("\n\n⚠ Program stopped by user")
		return errInterrupted
	}
	return err
}

// exitOnInterrupt ends the process when an interrupt arrives while the menu
// is blocked on stdin and cannot observe ctx.
func exitOnInterrupt(ctx context.Context, done <-chan struct{}, ctrl *workflow.Controller) {
	select {
	case <-done:
		return
	case <-ctx.Done():
	}

	select {
	case <-done:
	case <-time.After(exitGrace):
		fmt.Println("\n\n⚠ Program stopped by user")
		ctrl.Cleanup()
		os.Exit(130)
	}
}

func screenClearer() func() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return func() {}
	}
	return func() { fmt.Print("\033[H\033[2J") }
}
