package facelog

import (
	"gocv.io/x/gocv"

	"github.com/abihf/facelog/capture"
)

type Window struct {
	win *gocv.Window
}

func NewWindow(title string) capture.Preview {
	return &Window{win: gocv.NewWindow(title)}
}

func (w *Window) Show(frame capture.Frame) {
	mat, owned, err := toMat(frame)
	if err != nil {
		return
	}
	if owned {
		defer mat.Close()
	}
	if !mat.Empty() {
		w.win.IMShow(mat)
	}
}

// Key waits 1ms for a key press.
func (w *Window) Key() int {
	return w.win.WaitKey(1)
}

func (w *Window) Close() error {
	return w.win.Close()
}
