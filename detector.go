package facelog

import (
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/abihf/facelog/capture"
)

// cascadeDirs are searched for the cascade file when the configured path
// does not exist.
var cascadeDirs = []string{
	"/usr/share/opencv4/haarcascades",
	"/usr/share/opencv/haarcascades",
	"/usr/local/share/opencv4/haarcascades",
}

// CascadeDetector finds frontal faces with a Haar cascade. If no cascade
// could be loaded it reports no faces at all.
type CascadeDetector struct {
	classifier gocv.CascadeClassifier
	loaded     bool
	log        *slog.Logger
}

func NewCascadeDetector(file string, log *slog.Logger) *CascadeDetector {
	d := &CascadeDetector{classifier: gocv.NewCascadeClassifier(), log: log}
	for _, path := range cascadeCandidates(file) {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if d.classifier.Load(path) {
			d.loaded = true
			log.Debug("Cascade loaded", "file", path)
			return d
		}
	}
	log.Error("Error reading cascade file, face detection disabled", "file", file)
	return d
}

func cascadeCandidates(file string) []string {
	candidates := []string{file}
	if filepath.IsAbs(file) {
		return candidates
	}
	for _, dir := range cascadeDirs {
		candidates = append(candidates, filepath.Join(dir, filepath.Base(file)))
	}
	return candidates
}

func (d *CascadeDetector) Loaded() bool {
	return d.loaded
}

// HasFace reads the image at path and reports whether it contains a face.
func (d *CascadeDetector) HasFace(path string) bool {
	if !d.loaded {
		return false
	}
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		d.log.Warn("Can not read image", "path", path)
		return false
	}
	return d.detect(img) > 0
}

func (d *CascadeDetector) Faces(frame capture.Frame) int {
	if !d.loaded {
		return 0
	}
	mat, owned, err := toMat(frame)
	if err != nil {
		d.log.Debug("Can not inspect frame", "error", err)
		return 0
	}
	if owned {
		defer mat.Close()
	}
	if mat.Empty() {
		return 0
	}
	return d.detect(mat)
}

func (d *CascadeDetector) detect(img gocv.Mat) int {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	rects := d.classifier.DetectMultiScaleWithParams(gray, 1.1, 5, 0, image.Pt(30, 30), image.Pt(0, 0))
	return len(rects)
}

func (d *CascadeDetector) Close() error {
	return d.classifier.Close()
}
