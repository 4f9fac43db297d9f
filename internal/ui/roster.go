package ui

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"LiveBoard/internal/state"
)

// Roster lists the participants currently connected.
type Roster struct {
	box *fyne.Container

	mu      sync.Mutex
	entries []rosterEntry
}

type rosterEntry struct {
	label string
	color string
}

func NewRoster() *Roster {
	return &Roster{box: container.NewVBox(widget.NewLabel("Not connected"))}
}

func (r *Roster) Object() fyne.CanvasObject {
	return container.NewVScroll(r.box)
}

// Set replaces the list. It may be called from any goroutine.
func (r *Roster) Set(selfID string, participants []state.Participant) {
	entries := rosterEntries(selfID, participants)
	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	fyne.Do(r.redraw)
}

func (r *Roster) redraw() {
	r.mu.Lock()
	entries := r.entries
	r.mu.Unlock()

	objects := make([]fyne.CanvasObject, 0, len(entries))
	for _, e := range entries {
		fill, err := state.ParseColor(e.color)
		if err != nil {
			fill = color.NRGBA{A: 255}
		}
		dot := canvas.NewCircle(fill)
		dot.Resize(fyne.NewSquareSize(12))
		objects = append(objects, container.NewHBox(
			container.NewGridWrap(fyne.NewSquareSize(12), dot),
			widget.NewLabel(e.label),
		))
	}
	r.box.Objects = objects
	r.box.Refresh()
}

func rosterEntries(selfID string, participants []state.Participant) []rosterEntry {
	out := make([]rosterEntry, 0, len(participants))
	for _, p := range participants {
		label := shortID(p.ID)
		if p.ID == selfID {
			label += " (you)"
		}
		out = append(out, rosterEntry{label: label, color: p.Color})
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
