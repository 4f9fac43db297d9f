package state

import "errors"

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// History is the authoritative list of committed strokes plus the redo stack.
// It performs no locking: the relay mutates it only from its dispatch loop.
type History struct {
	committed []Stroke
	undone    []Stroke
}

func NewHistory() *History {
	return &History{}
}

// Append commits a stroke and invalidates everything that could be redone.
func (h *History) Append(s Stroke) {
	h.committed = append(h.committed, s)
	h.undone = nil
}

// Undo moves the newest committed stroke onto the redo stack.
func (h *History) Undo() (Stroke, error) {
	if len(h.committed) == 0 {
		return Stroke{}, ErrNothingToUndo
	}
	last := h.committed[len(h.committed)-1]
	h.committed = h.committed[:len(h.committed)-1]
	h.undone = append(h.undone, last)
	return last, nil
}

// Redo moves the most recently undone stroke back onto the canvas.
func (h *History) Redo() (Stroke, error) {
	if len(h.undone) == 0 {
		return Stroke{}, ErrNothingToRedo
	}
	last := h.undone[len(h.undone)-1]
	h.undone = h.undone[:len(h.undone)-1]
	h.committed = append(h.committed, last)
	return last, nil
}

// Snapshot returns the committed strokes oldest first. The result is never nil
// and does not alias the store.
func (h *History) Snapshot() []Stroke {
	out := make([]Stroke, len(h.committed))
	copy(out, h.committed)
	return out
}

func (h *History) Len() int { return len(h.committed) }

func (h *History) RedoLen() int { return len(h.undone) }
