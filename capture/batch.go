package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Batch captures until target verified images of username are stored in
// dir. A snapshot is attempted once Interval frames have passed and the live
// frame shows a face; snapshots that fail verification are deleted.
//
// Cancelling deletes every image this batch wrote and returns ErrCancelled.
// If the device stops producing frames, the images verified so far are
// returned together with an error wrapping ErrNoFrame.
func (c *Capturer) Batch(ctx context.Context, dir, username string, target int) ([]string, error) {
	if target <= 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "could not create %s", dir)
	}

	src, err := c.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	view := c.openPreview("Auto Capture Images")
	if view != nil {
		defer view.Close()
	}

	out := c.out()
	fmt.Fprintf(out, "\nStarting capture of %d images for user: %s\n", target, username)
	fmt.Fprintln(out, "Automatic capture started...")
	fmt.Fprintln(out, "Press ESC to cancel")
	fmt.Fprintln(out)

	var verified []string
	captured, frames := 0, 0
	err = c.stream(ctx, src, view, func(frame Frame) (bool, error) {
		frames++
		if frames < c.interval() || c.Detector.Faces(frame) == 0 {
			return true, nil
		}
		frames = 0
		captured++

		name := fmt.Sprintf("%s_%d_%s.jpg", username, captured, Stamp(c.now()))
		path := filepath.Join(dir, name)
		if err := frame.Save(path); err != nil {
			c.log().Warn("Could not save snapshot", "path", path, "error", err)
		} else if c.Detector.HasFace(path) {
			verified = append(verified, path)
			fmt.Fprintf(out, "✓ Image %d captured and verified (total captured: %d)\n", len(verified), captured)
			return len(verified) < target, nil
		}

		removeFiles(c.log(), path)
		fmt.Fprintf(out, "✗ Image %d failed verification, removed (verified: %d/%d)\n", captured, len(verified), target)
		return true, nil
	})

	switch {
	case errors.Is(err, ErrCancelled):
		fmt.Fprintln(out, "\n⚠ Capture cancelled by user")
		removeFiles(c.log(), verified...)
		return nil, err
	case err != nil:
		fmt.Fprintln(out, "Error: cannot read frame from webcam")
		c.log().Warn("Batch ended early", "username", username, "verified", len(verified), "error", err)
		return verified, err
	}

	fmt.Fprintf(out, "\n✓ Done! Verified images: %d\n", len(verified))
	return verified, nil
}
