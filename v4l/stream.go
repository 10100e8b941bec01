package v4l

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/blackjack/webcam"
	"github.com/pkg/errors"

	"github.com/abihf/facelog/capture"
)

// pixMJPEG is the V4L2 fourcc 'MJPG'.
const pixMJPEG webcam.PixelFormat = 0x47504A4D

// JPEGFrame is one MJPEG frame as delivered by the driver.
type JPEGFrame []byte

func (f JPEGFrame) Bytes() []byte { return f }

func (f JPEGFrame) Save(path string) error {
	return os.WriteFile(path, f, 0o600)
}

func (f JPEGFrame) Close() error { return nil }

// device is the part of *webcam.Webcam a Stream drives.
type device interface {
	WaitForFrame(timeout uint32) error
	ReadFrame() ([]byte, error)
	StopStreaming() error
	Close() error
}

// maxTimeouts is how many one-second frame waits may time out in a row
// before the stream gives up.
const maxTimeouts = 5

// Stream reads MJPEG frames on a background goroutine. Only the latest
// unread frame is buffered; frames arriving while it waits are dropped.
type Stream struct {
	cam         device
	frame       chan []byte
	err         error
	stopped     atomic.Bool
	maxTimeouts int
	log         *slog.Logger
}

// OpenStream starts streaming MJPEG at the requested size (the driver picks
// the closest it supports).
func OpenStream(index int, width, height uint32, log *slog.Logger) (*Stream, error) {
	path := DevicePath(index)
	cam, err := webcam.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can not open device %s", path)
	}

	if _, ok := cam.GetSupportedFormats()[pixMJPEG]; !ok {
		cam.Close()
		return nil, errors.Errorf("%s does not support MJPEG", path)
	}
	_, w, h, err := cam.SetImageFormat(pixMJPEG, width, height)
	if err != nil {
		cam.Close()
		return nil, errors.Wrap(err, "Can not set image format")
	}
	log.Debug("Stream format", "path", path, "size", fmt.Sprintf("%dx%d", w, h))

	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, errors.Wrap(err, "Can not start streaming")
	}
	return newStream(cam, maxTimeouts, log), nil
}

func newStream(cam device, timeouts int, log *slog.Logger) *Stream {
	s := &Stream{
		cam:         cam,
		frame:       make(chan []byte, 1),
		maxTimeouts: timeouts,
		log:         log,
	}
	go s.run()
	return s
}

func (s *Stream) run() {
	defer close(s.frame)

	timeouts := 0
	for !s.stopped.Load() {
		err := s.cam.WaitForFrame(1)
		switch err.(type) {
		case nil:
			timeouts = 0
		case *webcam.Timeout:
			timeouts++
			s.log.Debug("Frame wait timed out", "count", timeouts)
			if timeouts >= s.maxTimeouts {
				s.err = errors.Errorf("no frame after %d waits", timeouts)
				return
			}
			continue
		default:
			s.err = errors.Wrap(err, "Frame wait failed")
			return
		}

		buf, err := s.cam.ReadFrame()
		if err != nil {
			s.err = errors.Wrap(err, "Read frame failed")
			return
		}
		if len(buf) == 0 || len(s.frame) > 0 {
			continue
		}

		// the driver reuses buf for the next frame
		frame := make([]byte, len(buf))
		copy(frame, buf)
		s.frame <- frame
	}
}

// Read blocks for the next frame.
func (s *Stream) Read() (capture.Frame, error) {
	frame, ok := <-s.frame
	if !ok {
		if s.err != nil {
			return nil, fmt.Errorf("%w: %v", capture.ErrNoFrame, s.err)
		}
		return nil, capture.ErrNoFrame
	}
	return JPEGFrame(frame), nil
}

func (s *Stream) Close() error {
	s.stopped.Store(true)
	for range s.frame {
	}
	if err := s.cam.StopStreaming(); err != nil {
		s.log.Debug("Stop streaming failed", "error", err)
	}
	return s.cam.Close()
}
