package ui

import (
	"context"
	"image/color"
	"io"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pkt.systems/pslog"

	"LiveBoard/internal/state"
)

func testLogger() pslog.Logger {
	return pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true})
}

func TestStrokeObjects(t *testing.T) {
	line := state.Stroke{
		ID: "s", Tool: state.ToolBrush, Color: "#ff0000", Width: 4,
		Points: []state.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}},
	}
	objs := strokeObjects(line)
	require.Len(t, objs, 2)
	seg := objs[0].(*canvas.Line)
	assert.Equal(t, fyne.NewPos(0, 0), seg.Position1)
	assert.Equal(t, fyne.NewPos(10, 0), seg.Position2)
	assert.Equal(t, float32(4), seg.StrokeWidth)
	assert.Equal(t, color.NRGBA{R: 0xff, A: 0xff}, seg.StrokeColor)

	dot := state.Stroke{ID: "d", Tool: state.ToolBrush, Color: "#000", Width: 6, Points: []state.Point{{X: 20, Y: 20}}}
	objs = strokeObjects(dot)
	require.Len(t, objs, 1)
	circle := objs[0].(*canvas.Circle)
	assert.Equal(t, fyne.NewPos(17, 17), circle.Position())
	assert.Equal(t, fyne.NewSquareSize(6), circle.Size())

	assert.Empty(t, strokeObjects(state.Stroke{ID: "e", Tool: state.ToolBrush, Width: 1}))
}

func TestEraserPaintsBackground(t *testing.T) {
	s := state.Stroke{Tool: state.ToolEraser, Color: "#123456"}
	assert.Equal(t, background, strokeColor(s))
	assert.Equal(t, color.Black, strokeColor(state.Stroke{Tool: state.ToolBrush, Color: "nope"}))
}

func TestRosterEntries(t *testing.T) {
	entries := rosterEntries("abcdefghijk", []state.Participant{
		{ID: "abcdefghijk", Color: "#FF6B6B"},
		{ID: "p2", Color: "#4ECDC4"},
	})
	assert.Equal(t, []rosterEntry{
		{label: "abcdefgh (you)", color: "#FF6B6B"},
		{label: "p2", color: "#4ECDC4"},
	}, entries)
}

func TestSwatchesParse(t *testing.T) {
	for _, hex := range Swatches {
		_, err := state.ParseColor(hex)
		assert.NoError(t, err, hex)
	}
}

type fixedCursors struct {
	mu  sync.Mutex
	cur []state.RemoteCursor
}

func (f *fixedCursors) Cursors() []state.RemoteCursor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]state.RemoteCursor(nil), f.cur...)
}

type recordingOverlay struct {
	got chan []state.RemoteCursor
}

func (o *recordingOverlay) SetCursors(c []state.RemoteCursor) { o.got <- c }

func TestRunCursorLoop(t *testing.T) {
	src := &fixedCursors{cur: []state.RemoteCursor{{ParticipantID: "p", Color: "#000000", Point: state.Point{X: 1, Y: 2}}}}
	overlay := &recordingOverlay{got: make(chan []state.RemoteCursor, 16)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunCursorLoop(ctx, 200, src, overlay)
	}()

	select {
	case got := <-overlay.got:
		assert.Equal(t, src.Cursors(), got)
	case <-time.After(2 * time.Second):
		t.Fatal("overlay never painted")
	}

	// unchanged cursors are not repainted
	select {
	case <-overlay.got:
		t.Fatal("repainted unchanged cursors")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	<-done
}

func segment(id string, x float64) state.Stroke {
	return state.Stroke{ID: id, Tool: state.ToolBrush, Color: "#000000", Width: 2,
		Points: []state.Point{{X: x, Y: 0}, {X: x, Y: 5}, {X: x, Y: 10}}}
}

func TestBoardWidgetLayersAreIndependent(t *testing.T) {
	test.NewTempApp(t)
	b := NewBoardWidget(nil, testLogger())

	b.resetCommitted([]state.Stroke{segment("a", 0), segment("b", 10)})
	b.appendCommitted(segment("c", 20))
	require.Len(t, b.committed.Objects, 6)
	committed := append([]fyne.CanvasObject(nil), b.committed.Objects...)

	b.setInProgress([]state.Stroke{segment("remote", 30)})
	b.setCursors([]state.RemoteCursor{
		{ParticipantID: "p1", Color: "#FF6B6B", Point: state.Point{X: 1, Y: 1}},
		{ParticipantID: "p2", Color: "#4ECDC4", Point: state.Point{X: 2, Y: 2}},
	})
	b.setCursors([]state.RemoteCursor{{ParticipantID: "p1", Color: "#FF6B6B", Point: state.Point{X: 3, Y: 3}}})

	assert.Len(t, b.inProgress.Objects, 2)
	assert.Len(t, b.cursors.Objects, 1)
	require.Len(t, b.committed.Objects, len(committed))
	for i := range committed {
		assert.Same(t, committed[i], b.committed.Objects[i], "committed layer rebuilt at %d", i)
	}

	b.setInProgress(nil)
	assert.Empty(t, b.inProgress.Objects)
	assert.Len(t, b.committed.Objects, len(committed))
}

func TestBoardWidgetPanMovesLayers(t *testing.T) {
	test.NewTempApp(t)
	b := NewBoardWidget(nil, testLogger())
	b.resetCommitted([]state.Stroke{segment("a", 0)})
	r := test.WidgetRenderer(b)
	first := b.committed.Objects[0]

	b.Resize(fyne.NewSize(400, 300))
	b.Scrolled(&fyne.ScrollEvent{Scrolled: fyne.Delta{DX: 15, DY: -5}})
	r.Layout(b.Size())

	for _, layer := range []*fyne.Container{b.committed, b.inProgress, b.cursors} {
		assert.Equal(t, fyne.NewPos(15, -5), layer.Position())
	}
	assert.Same(t, first, b.committed.Objects[0])
	assert.Equal(t, state.Point{X: 85, Y: 55}, b.toBoard(fyne.NewPos(100, 50)))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 123.46, round2(float32(123.456)))
	assert.Equal(t, -0.5, round2(float32(-0.5)))
}
