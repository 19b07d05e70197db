package ratecontrol

// Window keeps the success flags of the most recent attempts.
type Window struct {
	size     int
	outcomes []bool
}

func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}

	return &Window{
		size:     size,
		outcomes: make([]bool, 0, size),
	}
}

func (w *Window) Record(success bool) {
	w.outcomes = append(w.outcomes, success)
	if len(w.outcomes) > w.size {
		w.outcomes = w.outcomes[len(w.outcomes)-w.size:]
	}
}

// SuccessRate returns the fraction of successful attempts in the window.
// ok is false while the window is empty.
func (w *Window) SuccessRate() (rate float64, ok bool) {
	if len(w.outcomes) == 0 {
		return 0, false
	}

	successes := 0
	for _, s := range w.outcomes {
		if s {
			successes++
		}
	}

	return float64(successes) / float64(len(w.outcomes)), true
}

func (w *Window) Len() int {
	return len(w.outcomes)
}

func (w *Window) Size() int {
	return w.size
}
