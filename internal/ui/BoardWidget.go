package ui

import (
	"image/color"
	"math"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"pkt.systems/pslog"

	"LiveBoard/internal/state"
)

// Actions is what the canvas reports local input to.
type Actions interface {
	PointerDown(p state.Point) error
	PointerMove(p state.Point) error
	PointerUp(p state.Point) error
	Undo() error
	Redo() error
}

var background = color.White

// BoardWidget paints the shared canvas and captures pointer input. It is the
// state.Renderer of the client's Board.
//
// The canvas is three layers in board coordinates: committed strokes,
// in-progress strokes and remote cursors. Each layer is only rebuilt when its
// own content changes, and panning moves the layers without rebuilding them.
// Layers are touched on the fyne goroutine only.
type BoardWidget struct {
	widget.BaseWidget

	committed  *fyne.Container
	inProgress *fyne.Container
	cursors    *fyne.Container

	mu      sync.Mutex
	offset  fyne.Position
	pressed bool
	last    state.Point

	actions Actions
	roster  *Roster
	log     pslog.Logger
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ fyne.Scrollable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)
var _ desktop.Hoverable = (*BoardWidget)(nil)
var _ state.Renderer = (*BoardWidget)(nil)

func NewBoardWidget(roster *Roster, logger pslog.Logger) *BoardWidget {
	b := &BoardWidget{
		committed:  container.NewWithoutLayout(),
		inProgress: container.NewWithoutLayout(),
		cursors:    container.NewWithoutLayout(),
		roster:     roster,
		log:        logger,
	}
	b.ExtendBaseWidget(b)
	return b
}

// SetActions attaches the input sink. Input before this is ignored.
func (b *BoardWidget) SetActions(a Actions) {
	b.mu.Lock()
	b.actions = a
	b.mu.Unlock()
}

// Renderer calls arrive from the network goroutine with the Board locked, so
// they hand copies to the fyne goroutine.

func (b *BoardWidget) DrawCommitted(s state.Stroke) {
	s = s.Clone()
	fyne.Do(func() { b.appendCommitted(s) })
}

func (b *BoardWidget) ResetCommitted(history []state.Stroke) {
	history = cloneStrokes(history)
	fyne.Do(func() { b.resetCommitted(history) })
}

func (b *BoardWidget) DrawInProgress(strokes []state.Stroke) {
	strokes = cloneStrokes(strokes)
	fyne.Do(func() { b.setInProgress(strokes) })
}

func (b *BoardWidget) SetParticipants(selfID string, participants []state.Participant) {
	if b.roster != nil {
		b.roster.Set(selfID, participants)
	}
}

// SetCursors replaces the remote cursor overlay.
func (b *BoardWidget) SetCursors(cursors []state.RemoteCursor) {
	fyne.Do(func() { b.setCursors(cursors) })
}

func (b *BoardWidget) appendCommitted(s state.Stroke) {
	b.committed.Objects = append(b.committed.Objects, strokeObjects(s)...)
	canvas.Refresh(b.committed)
}

func (b *BoardWidget) resetCommitted(history []state.Stroke) {
	b.committed.Objects = strokeLayer(history)
	canvas.Refresh(b.committed)
}

func (b *BoardWidget) setInProgress(strokes []state.Stroke) {
	b.inProgress.Objects = strokeLayer(strokes)
	canvas.Refresh(b.inProgress)
}

func (b *BoardWidget) setCursors(cursors []state.RemoteCursor) {
	objects := make([]fyne.CanvasObject, 0, len(cursors))
	for _, c := range cursors {
		objects = append(objects, cursorObject(c))
	}
	b.cursors.Objects = objects
	canvas.Refresh(b.cursors)
}

func (b *BoardWidget) panBy(dx, dy float32) {
	b.mu.Lock()
	b.offset = b.offset.AddXY(dx, dy)
	b.mu.Unlock()
	b.Refresh()
}

func (b *BoardWidget) panOffset() fyne.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.offset
}

// toBoard converts a widget position to board coordinates, rounded to
// hundredths so frames stay short.
func (b *BoardWidget) toBoard(pos fyne.Position) state.Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = state.Point{X: round2(pos.X - b.offset.X), Y: round2(pos.Y - b.offset.Y)}
	return b.last
}

func round2(v float32) float64 {
	return math.Round(float64(v)*100) / 100
}

func (b *BoardWidget) act(name string, do func(Actions) error) {
	b.mu.Lock()
	a := b.actions
	b.mu.Unlock()
	if a == nil {
		return
	}
	if err := do(a); err != nil {
		b.log.Warn("board action failed", "action", name, "err", err)
	}
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	p := b.toBoard(e.Position)
	b.mu.Lock()
	b.pressed = true
	b.mu.Unlock()
	b.act("pointer-down", func(a Actions) error { return a.PointerDown(p) })
}

func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	b.release(e.Position)
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	b.mu.Lock()
	pressed := b.pressed
	b.mu.Unlock()
	if !pressed {
		b.panBy(e.Dragged.DX, e.Dragged.DY)
		return
	}
	p := b.toBoard(e.Position)
	b.act("pointer-move", func(a Actions) error { return a.PointerMove(p) })
}

func (b *BoardWidget) DragEnd() {}

func (b *BoardWidget) MouseIn(*desktop.MouseEvent) {}

func (b *BoardWidget) MouseMoved(e *desktop.MouseEvent) {
	p := b.toBoard(e.Position)
	b.act("pointer-move", func(a Actions) error { return a.PointerMove(p) })
}

// MouseOut ends a stroke dragged off the canvas.
func (b *BoardWidget) MouseOut() {
	b.mu.Lock()
	pressed, last := b.pressed, b.last
	b.pressed = false
	b.mu.Unlock()
	if pressed {
		b.act("pointer-up", func(a Actions) error { return a.PointerUp(last) })
	}
}

func (b *BoardWidget) release(pos fyne.Position) {
	b.mu.Lock()
	pressed := b.pressed
	b.pressed = false
	b.mu.Unlock()
	if !pressed {
		return
	}
	p := b.toBoard(pos)
	b.act("pointer-up", func(a Actions) error { return a.PointerUp(p) })
}

func (b *BoardWidget) Scrolled(e *fyne.ScrollEvent) {
	b.panBy(e.Scrolled.DX, e.Scrolled.DY)
}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(background)
	return &boardWidgetRenderer{
		board:      b,
		background: bg,
		objects:    []fyne.CanvasObject{bg, b.committed, b.inProgress, b.cursors},
	}
}

type boardWidgetRenderer struct {
	board      *BoardWidget
	background *canvas.Rectangle
	objects    []fyne.CanvasObject
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject { return r.objects }

// Refresh follows a pan: the layers move, their contents stay.
func (r *boardWidgetRenderer) Refresh() {
	r.Layout(r.board.Size())
	canvas.Refresh(r.board)
}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
	offset := r.board.panOffset()
	for _, layer := range []*fyne.Container{r.board.committed, r.board.inProgress, r.board.cursors} {
		layer.Move(offset)
		layer.Resize(size)
	}
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}

func (r *boardWidgetRenderer) Destroy() {}

func strokeLayer(strokes []state.Stroke) []fyne.CanvasObject {
	var objects []fyne.CanvasObject
	for _, s := range strokes {
		objects = append(objects, strokeObjects(s)...)
	}
	return objects
}

func cloneStrokes(strokes []state.Stroke) []state.Stroke {
	out := make([]state.Stroke, len(strokes))
	for i, s := range strokes {
		out[i] = s.Clone()
	}
	return out
}

// strokeObjects turns a stroke into canvas primitives: a dot for a single
// point, otherwise one line per segment.
func strokeObjects(s state.Stroke) []fyne.CanvasObject {
	if len(s.Points) == 0 {
		return nil
	}
	c := strokeColor(s)
	width := float32(s.Width)

	if len(s.Points) == 1 {
		dot := canvas.NewCircle(c)
		dot.Move(toPos(s.Points[0]).SubtractXY(width/2, width/2))
		dot.Resize(fyne.NewSquareSize(width))
		return []fyne.CanvasObject{dot}
	}

	out := make([]fyne.CanvasObject, 0, len(s.Points)-1)
	for i := 1; i < len(s.Points); i++ {
		seg := canvas.NewLine(c)
		seg.StrokeWidth = width
		seg.Position1 = toPos(s.Points[i-1])
		seg.Position2 = toPos(s.Points[i])
		out = append(out, seg)
	}
	return out
}

const cursorSize = 10

func cursorObject(c state.RemoteCursor) fyne.CanvasObject {
	fill, err := state.ParseColor(c.Color)
	if err != nil {
		fill = color.NRGBA{A: 255}
	}
	dot := canvas.NewCircle(fill)
	dot.StrokeColor = color.White
	dot.StrokeWidth = 2
	dot.Move(toPos(c.Point).SubtractXY(cursorSize/2, cursorSize/2))
	dot.Resize(fyne.NewSquareSize(cursorSize))
	return dot
}

func strokeColor(s state.Stroke) color.Color {
	if s.Tool == state.ToolEraser {
		return background
	}
	c, err := state.ParseColor(s.Color)
	if err != nil {
		return color.Black
	}
	return c
}

func toPos(p state.Point) fyne.Position {
	return fyne.NewPos(float32(p.X), float32(p.Y))
}
