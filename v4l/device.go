// Package v4l talks to Video4Linux capture devices directly, without OpenCV.
package v4l

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/blackjack/webcam"
	"github.com/pkg/errors"
)

var devicePattern = "/dev/video*"

type Device struct {
	Index   int
	Path    string
	Name    string
	Formats []string
}

func (d Device) String() string {
	name := d.Name
	if name == "" {
		name = "unknown"
	}
	return fmt.Sprintf("%d\t%s\t%s\t%s", d.Index, d.Path, name, strings.Join(d.Formats, ", "))
}

func DevicePath(index int) string {
	return fmt.Sprintf("/dev/video%d", index)
}

// Probe opens the device at index to read its name and pixel formats.
func Probe(index int) (*Device, error) {
	return probePath(index, DevicePath(index))
}

func probePath(index int, path string) (*Device, error) {
	cam, err := webcam.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can not open device %s", path)
	}
	defer cam.Close()

	name, err := cam.GetName()
	if err != nil {
		name = ""
	}

	var formats []string
	for _, desc := range cam.GetSupportedFormats() {
		formats = append(formats, desc)
	}
	sort.Strings(formats)

	return &Device{Index: index, Path: path, Name: name, Formats: formats}, nil
}

// List probes every /dev/video* node in index order. Nodes that cannot be
// opened (metadata nodes, busy devices) are logged and skipped.
func List(log *slog.Logger) ([]Device, error) {
	paths, err := filepath.Glob(devicePattern)
	if err != nil {
		return nil, errors.Wrap(err, "Can not list video devices")
	}

	var devices []Device
	for _, entry := range sortByIndex(paths) {
		dev, err := probePath(entry.index, entry.path)
		if err != nil {
			log.Debug("Skipping video device", "path", entry.path, "error", err)
			continue
		}
		devices = append(devices, *dev)
	}
	return devices, nil
}

type indexedPath struct {
	index int
	path  string
}

func sortByIndex(paths []string) []indexedPath {
	var out []indexedPath
	for _, p := range paths {
		if idx, ok := indexOf(p); ok {
			out = append(out, indexedPath{idx, p})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out
}

// indexOf extracts N from a /dev/videoN path.
func indexOf(path string) (int, bool) {
	s, ok := strings.CutPrefix(filepath.Base(path), "video")
	if !ok || s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
