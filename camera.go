// Package facelog wires OpenCV into the capture loops: cameras, the preview
// window and the Haar cascade face detector.
package facelog

import (
	"log/slog"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/abihf/facelog/capture"
	"github.com/abihf/facelog/config"
	"github.com/abihf/facelog/v4l"
)

var ErrNoCamera = errors.New("no camera could be opened")

// streamWidth and streamHeight are requested from V4L2 stream sources.
const (
	streamWidth  = 640
	streamHeight = 480
)

type Camera struct {
	dev *gocv.VideoCapture
}

// OpenCamera opens the first of indices that works with the V4L2 backend.
func OpenCamera(indices []int, log *slog.Logger) (*Camera, error) {
	for _, idx := range indices {
		dev, err := gocv.OpenVideoCaptureWithAPI(idx, gocv.VideoCaptureV4L2)
		if err != nil || !dev.IsOpened() {
			if dev != nil {
				dev.Close()
			}
			log.Warn("Can not open camera", "index", idx, "error", err)
			continue
		}
		log.Info("Camera opened", "index", idx, "name", deviceName(idx))
		return &Camera{dev: dev}, nil
	}
	return nil, errors.Wrapf(ErrNoCamera, "tried indices %v", indices)
}

func (c *Camera) Read() (capture.Frame, error) {
	mat := gocv.NewMat()
	if ok := c.dev.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, capture.ErrNoFrame
	}
	return &matFrame{mat: mat}, nil
}

func (c *Camera) Close() error {
	return c.dev.Close()
}

// OpenSource returns an opener for the capture source selected in conf.
func OpenSource(conf *config.Config, log *slog.Logger) func() (capture.Source, error) {
	if conf.Source == config.SourceV4L2 {
		return func() (capture.Source, error) {
			return openStream(conf.Devices, log)
		}
	}
	return func() (capture.Source, error) {
		cam, err := OpenCamera(conf.Devices, log)
		if err != nil {
			return nil, err
		}
		return cam, nil
	}
}

func openStream(indices []int, log *slog.Logger) (capture.Source, error) {
	for _, idx := range indices {
		s, err := v4l.OpenStream(idx, streamWidth, streamHeight, log)
		if err != nil {
			log.Warn("Can not open stream", "index", idx, "error", err)
			continue
		}
		log.Info("Stream opened", "index", idx, "name", deviceName(idx))
		return s, nil
	}
	return nil, errors.Wrapf(ErrNoCamera, "tried indices %v", indices)
}

func deviceName(idx int) string {
	dev, err := v4l.Probe(idx)
	if err != nil {
		return ""
	}
	return dev.Name
}

type matFrame struct {
	mat gocv.Mat
}

func (f *matFrame) Save(path string) error {
	if !gocv.IMWrite(path, f.mat) {
		return errors.Errorf("Can not write image %s", path)
	}
	return nil
}

func (f *matFrame) Close() error {
	return f.mat.Close()
}

// toMat returns frame as a BGR image. The second result must be closed by
// the caller when true.
func toMat(frame capture.Frame) (gocv.Mat, bool, error) {
	switch f := frame.(type) {
	case *matFrame:
		return f.mat, false, nil
	case v4l.JPEGFrame:
		mat, err := gocv.IMDecode(f.Bytes(), gocv.IMReadColor)
		if err != nil {
			return mat, false, errors.Wrap(err, "Can not decode image")
		}
		return mat, true, nil
	default:
		return gocv.Mat{}, false, errors.Errorf("unsupported frame %T", frame)
	}
}
