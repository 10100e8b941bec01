package workflow

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/abihf/facelog/backend"
	"github.com/abihf/facelog/capture"
	"github.com/abihf/facelog/protocol"
)

// registerNew captures the first training set of an owner that has none.
func (c *Controller) registerNew(ctx context.Context, username string) (next, error) {
	fmt.Fprintf(c.out, "\n⏳ Checking images of user %s...\n", username)
	res, err := c.backend.CheckUserImages(ctx, username)
	if err != nil {
		return c.checkFailed(ctx, err)
	}

	switch res.Outcome() {
	case backend.OutcomeOK:
		fmt.Fprintln(c.out, "\n✓ User images already registered!")
		fmt.Fprintf(c.out, "Image count: %d images\n", imageCount(res))
		fmt.Fprintln(c.out, "Please choose another option")
		return backToMain, c.waitEnter(ctx, "Press Enter to continue...")
	case backend.OutcomeRejected:
		fmt.Fprintln(c.out, "\n⚠ User images not found, new images must be registered")
		target, err := c.readCount(ctx, "\nHow many images to capture? ")
		if err != nil {
			return stay, err
		}
		return c.captureAndUpload(ctx, username, target)
	default:
		fmt.Fprintf(c.out, "\n✗ Error checking user images (status %d)\n", res.StatusCode)
		return stay, c.waitEnter(ctx, "Press Enter to continue...")
	}
}

// addImages extends the training set of an owner that already has one.
func (c *Controller) addImages(ctx context.Context, username string) (next, error) {
	fmt.Fprintf(c.out, "\n⏳ Checking images of user %s...\n", username)
	res, err := c.backend.CheckUserImages(ctx, username)
	if err != nil {
		return c.checkFailed(ctx, err)
	}

	switch res.Outcome() {
	case backend.OutcomeRejected:
		fmt.Fprintln(c.out, "\n⚠ User has no images yet")
		fmt.Fprintln(c.out, "Please use menu 1 (Register user owner images) first")
		return backToMain, c.waitEnter(ctx, "Press Enter to continue...")
	case backend.OutcomeOK:
		fmt.Fprintln(c.out, "\n✓ User already has images")
		fmt.Fprintf(c.out, "Current image count: %d images\n", imageCount(res))
		target, err := c.readCount(ctx, "\nHow many images to add? ")
		if err != nil {
			return stay, err
		}
		return c.captureAndUpload(ctx, username, target)
	default:
		fmt.Fprintf(c.out, "\n✗ Error checking user images (status %d)\n", res.StatusCode)
		return stay, c.waitEnter(ctx, "Press Enter to continue...")
	}
}

func (c *Controller) checkFailed(ctx context.Context, err error) (next, error) {
	if ctx.Err() != nil {
		return stay, ctx.Err()
	}
	c.log.Error("Check user images failed", "error", err)
	fmt.Fprintf(c.out, "\n✗ Error checking user images: %v\n", err)
	return stay, c.waitEnter(ctx, "Press Enter to continue...")
}

func imageCount(res *backend.Response[protocol.ImagesResponse]) int {
	if res.Body == nil {
		return 0
	}
	return len(res.Body.Data)
}

// captureAndUpload collects target verified images in rounds, uploads them
// and removes them again, whatever the outcome.
func (c *Controller) captureAndUpload(ctx context.Context, username string, target int) (next, error) {
	session, err := capture.NewSession(c.conf.TempDir, username, target)
	if err != nil {
		c.log.Error("Can not start capture session", "username", username, "error", err)
		fmt.Fprintf(c.out, "\n✗ Can not capture images for this user: %v\n", err)
		return stay, c.waitEnter(ctx, "Press Enter to go back...")
	}
	defer c.cleanupSession(session)

	_, err = Accumulate(ctx, c.conf.MaxRounds, c.conf.RetryInterval(),
		func(ctx context.Context, n int, _ []string) ([]string, error) {
			remaining := session.Remaining()
			if n > 1 {
				fmt.Fprintf(c.out, "\n⚠ Still missing %d verified images\n", remaining)
				fmt.Fprintf(c.out, "Continuing capture (attempt %d)...\n", n)
			}
			fmt.Fprintf(c.out, "\n--- Capture batch %d: target %d images ---\n", n, remaining)
			got, err := c.capture.Batch(ctx, session.Dir, username, remaining)
			session.Add(got...)
			return got, err
		},
		func([]string) bool { return session.Complete() },
	)

	if err != nil {
		if ctx.Err() != nil {
			return stay, ctx.Err()
		}
		c.log.Warn("Capture failed", "username", username, "verified", len(session.Images), "error", err)
		switch {
		case errors.Is(err, ErrTooManyRounds):
			fmt.Fprintln(c.out, "\n✗ Too many attempts. Process cancelled.")
		case errors.Is(err, capture.ErrCancelled):
			fmt.Fprintln(c.out, "\n⚠ Image capture cancelled")
		default:
			fmt.Fprintln(c.out, "\n⚠ Image capture cancelled")
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
		c.cleanupSession(session)
		return stay, c.waitEnter(ctx, "Press Enter to go back...")
	}

	fmt.Fprintf(c.out, "\n✓ SUCCESS! Collected %d verified images\n", len(session.Images))
	fmt.Fprintln(c.out, "\n⏳ Uploading images to server...")
	c.upload(ctx, session)
	c.cleanupSession(session)

	if ctx.Err() != nil {
		return stay, ctx.Err()
	}
	return backToMain, c.waitEnter(ctx, "Press Enter to return to main menu...")
}

func (c *Controller) upload(ctx context.Context, session *capture.Session) {
	res, err := c.backend.UploadImages(ctx, session.Username, session.Images)
	if err != nil {
		c.log.Error("Upload failed", "username", session.Username, "error", err)
		fmt.Fprintf(c.out, "✗ Failed to upload images: %v\n", err)
		return
	}
	if res.Outcome() != backend.OutcomeOK {
		fmt.Fprintf(c.out, "✗ Failed to upload images (status %d)\n", res.StatusCode)
		fmt.Fprintf(c.out, "Response: %s\n", res.Raw)
		return
	}

	uploaded := 0
	message := ""
	if res.Body != nil {
		uploaded = len(res.Body.Data)
		message = res.Body.Message
	}
	fmt.Fprintln(c.out)
	c.banner("✓ IMAGES UPLOADED TO SERVER!")
	fmt.Fprintf(c.out, "Message: %s\n", message)
	fmt.Fprintf(c.out, "Uploaded images: %d\n", uploaded)
}

func (c *Controller) cleanupSession(session *capture.Session) {
	if err := session.Cleanup(); err != nil {
		c.log.Warn("Session cleanup failed", "dir", session.Dir, "error", err)
		fmt.Fprintf(c.out, "Error cleaning up %s: %v\n", session.Dir, err)
	}
}
