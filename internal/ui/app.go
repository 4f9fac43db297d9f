package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"pkt.systems/pslog"
)

// Window is the desktop client: toolbar on top, participants on the right,
// the canvas in the middle and a status line at the bottom.
type Window struct {
	app    fyne.App
	window fyne.Window
	board  *BoardWidget
	roster *Roster
	status *widget.Label
	log    pslog.Logger
}

func NewWindow(title string, logger pslog.Logger) *Window {
	a := app.New()
	w := a.NewWindow(title)
	w.Resize(fyne.NewSize(1024, 768))

	roster := NewRoster()
	return &Window{
		app:    a,
		window: w,
		board:  NewBoardWidget(roster, logger),
		roster: roster,
		status: widget.NewLabel("Connecting..."),
		log:    logger,
	}
}

// Canvas is the state.Renderer to hand to the Board.
func (w *Window) Canvas() *BoardWidget { return w.board }

// Bind wires the toolbar and canvas input to the client and lays out the
// window. Call it once before ShowAndRun.
func (w *Window) Bind(style Style, actions Actions) {
	w.board.SetActions(actions)

	onError := func(name string, err error) {
		w.log.Warn("board action failed", "action", name, "err", err)
		w.SetStatus(name + " failed: " + err.Error())
	}
	toolbar := NewToolbar(style, actions, onError)

	c := w.window.Canvas()
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		if err := actions.Undo(); err != nil {
			onError("undo", err)
		}
	})
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		if err := actions.Redo(); err != nil {
			onError("redo", err)
		}
	})

	side := container.NewBorder(widget.NewLabel("Participants"), nil, nil, nil, w.roster.Object())
	split := container.NewHSplit(w.board, side)
	split.Offset = 0.82
	w.window.SetContent(container.NewBorder(toolbar, w.status, nil, nil, split))
}

// SetStatus updates the status line from any goroutine.
func (w *Window) SetStatus(text string) {
	fyne.Do(func() { w.status.SetText(text) })
}

// OnClosed registers fn to run when the window closes.
func (w *Window) OnClosed(fn func()) {
	w.window.SetOnClosed(fn)
}

// ShowAndRun blocks until the window closes.
func (w *Window) ShowAndRun() {
	w.window.ShowAndRun()
}

// Quit closes the app from any goroutine.
func (w *Window) Quit() {
	fyne.Do(w.app.Quit)
}
