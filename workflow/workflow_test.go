package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abihf/facelog/backend"
	"github.com/abihf/facelog/capture"
	"github.com/abihf/facelog/config"
	"github.com/abihf/facelog/protocol"
)

type fakeBackend struct {
	owners    []protocol.Owner
	ownersErr error

	imageStatus int
	imageCount  int

	uploadStatus int
	uploaded     [][]string
	uploadSeen   []bool

	faceLogStatus int
	faceLogBody   string
	submitted     []string
}

func (b *fakeBackend) ListOwners(context.Context) (*backend.Response[[]protocol.Owner], error) {
	if b.ownersErr != nil {
		return nil, b.ownersErr
	}
	owners := b.owners
	return &backend.Response[[]protocol.Owner]{StatusCode: http.StatusOK, Body: &owners}, nil
}

func (b *fakeBackend) CheckUserImages(_ context.Context, username string) (*backend.Response[protocol.ImagesResponse], error) {
	res := &backend.Response[protocol.ImagesResponse]{StatusCode: b.imageStatus}
	if b.imageStatus == http.StatusOK {
		res.Body = &protocol.ImagesResponse{Data: make([]json.RawMessage, b.imageCount)}
	}
	return res, nil
}

func (b *fakeBackend) UploadImages(_ context.Context, _ string, paths []string) (*backend.Response[protocol.UploadResponse], error) {
	b.uploaded = append(b.uploaded, append([]string{}, paths...))
	seen := true
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			seen = false
		}
	}
	b.uploadSeen = append(b.uploadSeen, seen)

	status := b.uploadStatus
	if status == 0 {
		status = http.StatusOK
	}
	res := &backend.Response[protocol.UploadResponse]{StatusCode: status, Raw: "raw upload"}
	if status == http.StatusOK {
		res.Body = &protocol.UploadResponse{Message: "stored", Data: make([]json.RawMessage, len(paths))}
	}
	return res, nil
}

func (b *fakeBackend) SubmitFaceLog(_ context.Context, path string) (*backend.Response[protocol.FaceLogResponse], error) {
	b.submitted = append(b.submitted, path)
	res := &backend.Response[protocol.FaceLogResponse]{StatusCode: b.faceLogStatus, Raw: b.faceLogBody}
	if b.faceLogStatus == http.StatusOK {
		body, err := protocol.ReadFaceLog(strings.NewReader(b.faceLogBody))
		if err != nil {
			return nil, err
		}
		res.Body = body
	}
	return res, nil
}

type batchResult struct {
	count int
	err   error
}

// fakeCapture writes real files so cleanup can be checked on disk.
type fakeCapture struct {
	batches []batchResult
	targets []int
	files   int

	singleErr error
}

func (f *fakeCapture) write(dir, name string) string {
	_ = os.MkdirAll(dir, 0o750)
	path := filepath.Join(dir, name)
	_ = os.WriteFile(path, []byte("face"), 0o600)
	return path
}

func (f *fakeCapture) Batch(_ context.Context, dir, username string, target int) ([]string, error) {
	f.targets = append(f.targets, target)
	if len(f.batches) == 0 {
		return nil, capture.ErrNoFrame
	}
	r := f.batches[0]
	f.batches = f.batches[1:]

	var paths []string
	for i := 0; i < r.count && i < target; i++ {
		f.files++
		paths = append(paths, f.write(dir, fmt.Sprintf("%s_%d.jpg", username, f.files)))
	}
	if r.err != nil && len(paths) == 0 {
		return nil, r.err
	}
	return paths, r.err
}

func (f *fakeCapture) Single(_ context.Context, dir string) (string, error) {
	if f.singleErr != nil {
		return "", f.singleErr
	}
	return f.write(dir, "face_log_1.jpg"), nil
}

type harness struct {
	ctrl    *Controller
	backend *fakeBackend
	capture *fakeCapture
	out     *bytes.Buffer
	slept   []time.Duration
	conf    *config.Config
}

func newHarness(t *testing.T, input string, b *fakeBackend, fc *fakeCapture) *harness {
	t.Helper()
	h := &harness{
		backend: b,
		capture: fc,
		out:     &bytes.Buffer{},
		conf:    &config.Config{TempDir: filepath.Join(t.TempDir(), "temp_images"), MaxRounds: 10, ResultDelay: 5},
	}
	h.ctrl = New(h.conf, b, fc,
		WithIO(strings.NewReader(input), h.out),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithSleep(func(_ context.Context, d time.Duration) error {
			h.slept = append(h.slept, d)
			return nil
		}),
	)
	return h
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.Run(context.Background()))
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(root, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

var owners = []protocol.Owner{{Username: "alice", Email: "a@x.com"}, {Username: "bob", Email: "b@x.com"}}

func TestRegisterNew_CapturesAcrossRounds(t *testing.T) {
	b := &fakeBackend{owners: owners[:1], imageStatus: http.StatusForbidden}
	fc := &fakeCapture{batches: []batchResult{{count: 2, err: capture.ErrNoFrame}, {count: 1}}}
	h := newHarness(t, "1\n1\n3\n\n4\n", b, fc)

	h.run(t)

	assert.Equal(t, []int{3, 1}, fc.targets)
	require.Len(t, b.uploaded, 1)
	assert.Len(t, b.uploaded[0], 3)
	assert.True(t, b.uploadSeen[0])
	assert.Zero(t, countFiles(t, h.conf.TempDir))

	out := h.out.String()
	assert.Contains(t, out, "alice (a@x.com)")
	assert.Contains(t, out, "Still missing 1 verified images")
	assert.Contains(t, out, "IMAGES UPLOADED TO SERVER!")
	assert.Contains(t, out, "Uploaded images: 3")
}

func TestRegisterNew_AlreadyRegistered(t *testing.T) {
	b := &fakeBackend{owners: owners, imageStatus: http.StatusOK, imageCount: 5}
	fc := &fakeCapture{}
	h := newHarness(t, "1\n2\n\n4\n", b, fc)

	h.run(t)

	out := h.out.String()
	assert.Contains(t, out, "already registered")
	assert.Contains(t, out, "Image count: 5 images")
	assert.Empty(t, fc.targets)
	assert.Empty(t, b.uploaded)
}

func TestRegisterNew_ServerErrorStaysOnOwnerList(t *testing.T) {
	b := &fakeBackend{owners: owners[:1], imageStatus: http.StatusInternalServerError}
	h := newHarness(t, "1\n1\n\n2\n4\n", b, &fakeCapture{})

	h.run(t)

	out := h.out.String()
	assert.Contains(t, out, "status 500")
	assert.Equal(t, 2, strings.Count(out, "SELECT USER OWNER"))
}

func TestRegisterNew_CancelLeavesNothing(t *testing.T) {
	b := &fakeBackend{owners: owners[:1], imageStatus: http.StatusForbidden}
	fc := &fakeCapture{batches: []batchResult{{err: capture.ErrCancelled}}}
	h := newHarness(t, "1\n1\n2\n\n2\n4\n", b, fc)

	h.run(t)

	assert.Len(t, fc.targets, 1)
	assert.Empty(t, b.uploaded)
	assert.Zero(t, countFiles(t, h.conf.TempDir))
	assert.Contains(t, h.out.String(), "Image capture cancelled")
}

func TestRegisterNew_TooManyRounds(t *testing.T) {
	b := &fakeBackend{owners: owners[:1], imageStatus: http.StatusForbidden}
	var batches []batchResult
	for i := 0; i < 3; i++ {
		batches = append(batches, batchResult{count: 1, err: capture.ErrNoFrame})
	}
	fc := &fakeCapture{batches: batches}
	h := newHarness(t, "1\n1\n5\n\n2\n4\n", b, fc)
	h.conf.MaxRounds = 3

	h.run(t)

	assert.Equal(t, []int{5, 4, 3}, fc.targets)
	assert.Empty(t, b.uploaded)
	assert.Zero(t, countFiles(t, h.conf.TempDir))
	assert.Contains(t, h.out.String(), "Too many attempts")
}

func TestRegisterNew_CountReprompts(t *testing.T) {
	b := &fakeBackend{owners: owners[:1], imageStatus: http.StatusForbidden}
	fc := &fakeCapture{batches: []batchResult{{count: 2}}}
	h := newHarness(t, "1\n1\nabc\n0\n-3\n2\n\n4\n", b, fc)

	h.run(t)

	out := h.out.String()
	assert.Contains(t, out, "Invalid input, enter a number!")
	assert.Equal(t, 2, strings.Count(out, "Count must be greater than 0!"))
	assert.Equal(t, []int{2}, fc.targets)
	require.Len(t, b.uploaded, 1)
}

func TestUploadFailureStillCleansUp(t *testing.T) {
	b := &fakeBackend{owners: owners[:1], imageStatus: http.StatusForbidden, uploadStatus: http.StatusBadRequest}
	fc := &fakeCapture{batches: []batchResult{{count: 1}}}
	h := newHarness(t, "1\n1\n1\n\n4\n", b, fc)

	h.run(t)

	out := h.out.String()
	assert.Contains(t, out, "Failed to upload images (status 400)")
	assert.Contains(t, out, "raw upload")
	assert.Zero(t, countFiles(t, h.conf.TempDir))
}

func TestAddImages_NoImagesYet(t *testing.T) {
	b := &fakeBackend{owners: owners[:1], imageStatus: http.StatusForbidden}
	fc := &fakeCapture{}
	h := newHarness(t, "2\n1\n\n4\n", b, fc)

	h.run(t)

	assert.Contains(t, h.out.String(), "Please use menu 1")
	assert.Empty(t, fc.targets)
}

func TestAddImages_Existing(t *testing.T) {
	b := &fakeBackend{owners: owners, imageStatus: http.StatusOK, imageCount: 4}
	fc := &fakeCapture{batches: []batchResult{{count: 2}}}
	h := newHarness(t, "2\n2\n2\n\n4\n", b, fc)

	h.run(t)

	assert.Contains(t, h.out.String(), "Current image count: 4 images")
	require.Len(t, b.uploaded, 1)
	assert.Contains(t, filepath.Base(b.uploaded[0][0]), "bob_")
}

func TestOwnerMenu_EmptyList(t *testing.T) {
	h := newHarness(t, "1\n\n4\n", &fakeBackend{}, &fakeCapture{})

	h.run(t)

	assert.Contains(t, h.out.String(), "No user owner data")
}

func TestOwnerMenu_ListError(t *testing.T) {
	b := &fakeBackend{ownersErr: fmt.Errorf("connection refused")}
	h := newHarness(t, "2\n\n4\n", b, &fakeCapture{})

	h.run(t)

	assert.Contains(t, h.out.String(), "connection refused")
}

func TestOwnerMenu_InvalidChoice(t *testing.T) {
	h := newHarness(t, "1\n9\nx\n2\n4\n", &fakeBackend{owners: owners[:1]}, &fakeCapture{})

	h.run(t)

	assert.Equal(t, 2, strings.Count(h.out.String(), "Invalid input!"))
	assert.Equal(t, []time.Duration{time.Second, time.Second}, h.slept)
}

func TestMainMenu_InvalidChoiceAndEOF(t *testing.T) {
	h := newHarness(t, "7\n", &fakeBackend{}, &fakeCapture{})

	h.run(t)

	out := h.out.String()
	assert.Contains(t, out, "Invalid choice!")
	assert.Contains(t, out, "Thank you! Program finished.")
	assert.Equal(t, []time.Duration{time.Second}, h.slept)
}

func TestRun_ContextCancelled(t *testing.T) {
	h := newHarness(t, "4\n", &fakeBackend{}, &fakeCapture{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.ctrl.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

const authorizedBody = `{"result":[{"status":"Authorized","log_id":12,"id_face_user":7,"access_time":"2024-01-01T10:00:00"}],"confidence":0.93}`

func TestFaceLog_Authorized(t *testing.T) {
	b := &fakeBackend{faceLogStatus: http.StatusOK, faceLogBody: authorizedBody}
	h := newHarness(t, "3\n\n4\n", b, &fakeCapture{})

	h.run(t)

	out := h.out.String()
	assert.Contains(t, out, "VERIFICATION SUCCEEDED!")
	assert.Contains(t, out, "AUTHORIZED - Access granted")
	assert.NotContains(t, out, "UNAUTHORIZED")
	assert.Contains(t, out, "Confidence  : 0.93")
	assert.Contains(t, out, "Log ID      : 12")
	assert.Equal(t, []time.Duration{5 * time.Second}, h.slept)
	require.Len(t, b.submitted, 1)
	assert.Zero(t, countFiles(t, h.conf.TempDir))
}

func TestFaceLog_Unauthorized(t *testing.T) {
	body := `{"result":[{"status":"unauthorized"}]}`
	b := &fakeBackend{faceLogStatus: http.StatusOK, faceLogBody: body}
	h := newHarness(t, "3\n\n4\n", b, &fakeCapture{})

	h.run(t)

	out := h.out.String()
	assert.Contains(t, out, "UNAUTHORIZED - Access denied")
	assert.Contains(t, out, "Confidence  : N/A")
}

func TestFaceLog_IncompleteResult(t *testing.T) {
	b := &fakeBackend{faceLogStatus: http.StatusOK, faceLogBody: `{"result":[]}`}
	h := newHarness(t, "3\n\n\n4\n", b, &fakeCapture{})

	h.run(t)

	assert.Contains(t, h.out.String(), "Verification result is incomplete")
	assert.Empty(t, h.slept)
}

func TestFaceLog_EmptyBodyFails(t *testing.T) {
	for _, body := range []string{`{}`, " {}\n", "null"} {
		b := &fakeBackend{faceLogStatus: http.StatusOK, faceLogBody: body}
		h := newHarness(t, "3\n\n\n4\n", b, &fakeCapture{})

		h.run(t)

		out := h.out.String()
		assert.Contains(t, out, "VERIFICATION FAILED!", body)
		assert.Contains(t, out, "Status code: 200", body)
		assert.NotContains(t, out, "VERIFICATION SUCCEEDED!", body)
		assert.Empty(t, h.slept, body)
	}
}

func TestFaceLog_ServerFailure(t *testing.T) {
	b := &fakeBackend{faceLogStatus: http.StatusInternalServerError, faceLogBody: "boom"}
	h := newHarness(t, "3\n\n\n4\n", b, &fakeCapture{})

	h.run(t)

	out := h.out.String()
	assert.Contains(t, out, "VERIFICATION FAILED!")
	assert.Contains(t, out, "Status code: 500")
	assert.Contains(t, out, "Response: boom")
	assert.Zero(t, countFiles(t, h.conf.TempDir))
}

func TestFaceLog_CaptureFailedSkipsSubmit(t *testing.T) {
	b := &fakeBackend{}
	h := newHarness(t, "3\n\n\n4\n", b, &fakeCapture{singleErr: capture.ErrExhausted})

	h.run(t)

	assert.Contains(t, h.out.String(), "Face verification failed or was cancelled")
	assert.Empty(t, b.submitted)
}

func TestCleanup_RemovesEverything(t *testing.T) {
	h := newHarness(t, "", &fakeBackend{}, &fakeCapture{})
	for _, dir := range []string{"alice", "face_log"} {
		h.capture.write(filepath.Join(h.conf.TempDir, dir), "x.jpg")
	}

	h.ctrl.Cleanup()

	assert.Zero(t, countFiles(t, h.conf.TempDir))
}

func TestRegisterNew_PathUsernameTouchesNothing(t *testing.T) {
	b := &fakeBackend{owners: []protocol.Owner{{Username: "..", Email: "x@x.com"}}, imageStatus: http.StatusForbidden}
	fc := &fakeCapture{batches: []batchResult{{count: 2}}}
	h := newHarness(t, "1\n1\n2\n\n2\n4\n", b, fc)
	require.NoError(t, os.MkdirAll(h.conf.TempDir, 0o750))
	keep := filepath.Join(filepath.Dir(h.conf.TempDir), "keep.txt")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o600))

	h.run(t)

	assert.Empty(t, fc.targets)
	assert.Empty(t, b.uploaded)
	assert.FileExists(t, keep)
	assert.Contains(t, h.out.String(), "Can not capture images for this user")
	assert.Equal(t, 2, strings.Count(h.out.String(), "SELECT USER OWNER"))
}
