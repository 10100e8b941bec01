package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Single captures one verified face-log image in dir. Each attempt lets the
// picture settle for Stabilize frames before taking the snapshot. It stops at
// the first verified image; after MaxAttempts failures it returns
// ErrExhausted.
func (c *Capturer) Single(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", errors.Wrapf(err, "could not create %s", dir)
	}

	src, err := c.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	view := c.openPreview("Face Verification")
	if view != nil {
		defer view.Close()
	}

	out := c.out()
	fmt.Fprintln(out, "\n⏳ Starting face verification capture...")
	fmt.Fprintln(out, "Press ESC to cancel")

	attempts := c.maxAttempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		fmt.Fprintf(out, "\n--- Attempt %d ---\n", attempt)

		frames := 0
		err := c.stream(ctx, src, view, func(Frame) (bool, error) {
			frames++
			return frames < c.stabilize(), nil
		})
		if errors.Is(err, ErrCancelled) {
			fmt.Fprintln(out, "\n⚠ Face verification cancelled by user")
			return "", err
		}
		if err != nil {
			fmt.Fprintln(out, "Error: cannot read frame from webcam")
		}

		path, err := c.snapshot(src, dir)
		if err != nil {
			c.log().Warn("Snapshot failed", "attempt", attempt, "error", err)
			fmt.Fprintln(out, "Error: cannot read frame for capture")
			continue
		}
		fmt.Fprintf(out, "📸 Image captured: %s\n", filepath.Base(path))

		if c.Detector.HasFace(path) {
			fmt.Fprintln(out, "✓ Face detected! Image verified.")
			fmt.Fprintf(out, "\n✓ Success! Verified face image: %s\n", filepath.Base(path))
			return path, nil
		}

		removeFiles(c.log(), path)
		fmt.Fprintln(out, "✗ No face detected, retrying...")
		if attempt < attempts {
			fmt.Fprintf(out, "⏳ Waiting %s before the next attempt...\n", c.AttemptDelay)
			if err := c.sleep(ctx, c.AttemptDelay); err != nil {
				return "", errors.Wrap(ErrCancelled, err.Error())
			}
		}
	}

	fmt.Fprintf(out, "\n✗ Could not verify a face after %d attempts\n", attempts)
	return "", ErrExhausted
}

func (c *Capturer) snapshot(src Source, dir string) (string, error) {
	frame, err := src.Read()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	defer frame.Close()

	path := filepath.Join(dir, fmt.Sprintf("face_log_%s.jpg", Stamp(c.now())))
	if err := frame.Save(path); err != nil {
		removeFiles(c.log(), path)
		return "", err
	}
	return path, nil
}
