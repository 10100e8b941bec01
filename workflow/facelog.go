package workflow

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/abihf/facelog/backend"
	"github.com/abihf/facelog/protocol"
)

// faceLog takes one verified snapshot and submits it as an access attempt.
// The face-log directory is emptied on every path out.
func (c *Controller) faceLog(ctx context.Context) error {
	c.clear()
	c.banner("VERIFY USER FACE (FACE LOG)")
	fmt.Fprintln(c.out, "\nThe system will take one picture of your face for verification.")
	fmt.Fprintln(c.out, "Make sure your face is clearly visible to the camera.")
	if err := c.waitEnter(ctx, "Press Enter to start..."); err != nil {
		return err
	}

	dir := c.conf.FaceLogPath()
	defer c.cleanupDir(dir)

	path, err := c.capture.Single(ctx, dir)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("Face log capture failed", "error", err)
		fmt.Fprintln(c.out, "\n✗ Face verification failed or was cancelled")
		c.cleanupDir(dir)
		return c.waitEnter(ctx, "Press Enter to return to main menu...")
	}

	fmt.Fprintln(c.out, "\n⏳ Sending image for verification...")
	res, err := c.backend.SubmitFaceLog(ctx, path)
	c.cleanupDir(dir)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err != nil || res.Outcome() != backend.OutcomeOK || emptyBody(res.Raw) {
		c.verificationFailed(res, err)
		return c.waitEnter(ctx, "Press Enter to return to main menu...")
	}

	fmt.Fprintln(c.out)
	c.banner("✓ VERIFICATION SUCCEEDED!")
	entry, ok := res.Body.First()
	if !ok {
		fmt.Fprintln(c.out, "\n⚠ Verification result is incomplete")
		return c.waitEnter(ctx, "Press Enter to return to main menu...")
	}
	c.printEntry(entry, res.Body.Confidence)

	fmt.Fprintf(c.out, "\n⏳ Returning to the menu in %s...\n", c.conf.ResultPause())
	return c.sleep(ctx, c.conf.ResultPause())
}

// emptyBody reports a 200 that carries no result object at all.
func emptyBody(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "", "{}", "null":
		return true
	}
	return false
}

func (c *Controller) verificationFailed(res *backend.Response[protocol.FaceLogResponse], err error) {
	fmt.Fprintln(c.out)
	c.banner("✗ VERIFICATION FAILED!")
	if err != nil {
		c.log.Error("Submit face log failed", "error", err)
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Status code: %d\n", res.StatusCode)
	fmt.Fprintf(c.out, "Response: %s\n", res.Raw)
}

func (c *Controller) printEntry(entry protocol.FaceLogEntry, confidence protocol.Value) {
	status := entry.Status
	if status == "" {
		status = "Unknown"
	}
	fmt.Fprintln(c.out, "\nVerification details:")
	fmt.Fprintf(c.out, "  Status      : %s\n", status)
	fmt.Fprintf(c.out, "  Confidence  : %s\n", confidence)
	fmt.Fprintf(c.out, "  User ID     : %s\n", entry.IDFaceUser)
	fmt.Fprintf(c.out, "  Log ID      : %s\n", entry.LogID)
	fmt.Fprintf(c.out, "  Access time : %s\n", entry.AccessTime)

	fmt.Fprintln(c.out)
	if entry.Authorized() {
		fmt.Fprintln(c.out, "✅ STATUS: AUTHORIZED - Access granted")
	} else {
		fmt.Fprintln(c.out, "❌ STATUS: UNAUTHORIZED - Access denied")
	}
}

func (c *Controller) cleanupDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		c.log.Warn("Can not remove dir", "dir", dir, "error", err)
		fmt.Fprintf(c.out, "Error cleaning up %s: %v\n", dir, err)
	}
}
