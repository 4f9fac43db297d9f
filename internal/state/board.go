package state

import (
	"slices"
	"strings"
	"sync"
)

// Renderer paints what the Board tells it to. Implementations must not call
// back into the Board: every method runs while the Board holds its lock.
type Renderer interface {
	// DrawCommitted paints one stroke on top of the permanent layer.
	DrawCommitted(s Stroke)
	// ResetCommitted clears the permanent layer and paints history in order.
	ResetCommitted(history []Stroke)
	// DrawInProgress repaints the whole ephemeral layer.
	DrawInProgress(strokes []Stroke)
	SetParticipants(selfID string, participants []Participant)
}

// Board is the client's view of the shared canvas: the stroke being drawn
// locally, other participants' uncommitted strokes, their cursors, and the
// participant list.
type Board struct {
	mu       sync.Mutex
	renderer Renderer
	ids      *IDSource

	self    Participant
	own     *Stroke
	drawing bool

	tool  Tool
	color string
	width float64

	inProgress      map[string]Stroke
	inProgressOrder []string

	cursors      map[string]Point
	participants map[string]Participant
	order        []string
}

func NewBoard(renderer Renderer, ids *IDSource) *Board {
	if ids == nil {
		ids = NewIDSource()
	}
	return &Board{
		renderer:     renderer,
		ids:          ids,
		tool:         ToolBrush,
		color:        DefaultColor,
		width:        DefaultWidth,
		inProgress:   make(map[string]Stroke),
		cursors:      make(map[string]Point),
		participants: make(map[string]Participant),
	}
}

func (b *Board) SetTool(t Tool) {
	if !t.Valid() {
		return
	}
	b.mu.Lock()
	b.tool = t
	b.mu.Unlock()
}

func (b *Board) SetColor(c string) {
	if strings.TrimSpace(c) == "" {
		return
	}
	b.mu.Lock()
	b.color = c
	b.mu.Unlock()
}

func (b *Board) SetWidth(w float64) {
	if w <= 0 {
		return
	}
	b.mu.Lock()
	b.width = w
	b.mu.Unlock()
}

func (b *Board) Self() Participant {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.self
}

// BeginStroke opens a new local stroke at p with the current style.
func (b *Board) BeginStroke(p Point) Stroke {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.own = &Stroke{
		ID:     b.ids.Next(),
		Tool:   b.tool,
		Color:  b.color,
		Width:  b.width,
		Points: []Point{p},
	}
	b.drawing = true
	b.paintInProgress()
	return b.own.Clone()
}

// ExtendStroke appends p to the open stroke. It reports false when no stroke
// is being drawn.
func (b *Board) ExtendStroke(p Point) (Stroke, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.drawing || b.own == nil {
		return Stroke{}, false
	}
	b.own.Points = append(b.own.Points, p)
	b.paintInProgress()
	return b.own.Clone(), true
}

// EndStroke stops drawing and returns the stroke to commit. The local copy
// stays on the ephemeral layer until the server echoes the commit.
func (b *Board) EndStroke() (Stroke, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.drawing || b.own == nil {
		return Stroke{}, false
	}
	b.drawing = false
	return b.own.Clone(), true
}

// OpenStrokeID is the id of the local stroke awaiting its commit echo.
func (b *Board) OpenStrokeID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.own == nil {
		return ""
	}
	return b.own.ID
}

// Drawing reports whether the pointer is still down on a local stroke.
func (b *Board) Drawing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drawing
}

// ApplyWelcome resynchronizes everything from the server's view.
func (b *Board) ApplyWelcome(self Participant, history []Stroke, participants []Participant) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.self = self
	b.participants = make(map[string]Participant, len(participants))
	b.order = b.order[:0]
	for _, p := range participants {
		b.addParticipant(p)
	}
	b.addParticipant(self)
	b.cursors = make(map[string]Point)
	b.rebuild(history)
	b.renderer.SetParticipants(b.self.ID, b.participantList())
}

func (b *Board) ApplyJoined(p Participant) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addParticipant(p)
	b.renderer.SetParticipants(b.self.ID, b.participantList())
}

// ApplyLeft forgets a participant and their cursor. Their abandoned
// in-progress stroke stays until a commit or rebuild clears it.
func (b *Board) ApplyLeft(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.cursors, id)
	if _, ok := b.participants[id]; !ok {
		return
	}
	delete(b.participants, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.renderer.SetParticipants(b.self.ID, b.participantList())
}

func (b *Board) ApplyRemotePoints(sp StrokePoints) {
	if strings.TrimSpace(sp.StrokeID) == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.inProgress[sp.StrokeID]; !ok {
		b.inProgressOrder = append(b.inProgressOrder, sp.StrokeID)
	}
	b.inProgress[sp.StrokeID] = sp.Stroke()
	b.paintInProgress()
}

// ApplyCommit paints the canonical stroke. When it is the local open stroke
// the local copy is discarded in its favor.
func (b *Board) ApplyCommit(s Stroke) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropInProgress(s.ID)
	b.renderer.DrawCommitted(s)
	if b.own != nil && b.own.ID == s.ID {
		b.own = nil
		b.drawing = false
	}
	b.paintInProgress()
}

// ApplyRebuild replaces the permanent layer and forgets every remote
// in-progress stroke.
func (b *Board) ApplyRebuild(history []Stroke) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rebuild(history)
}

func (b *Board) ApplyCursor(id string, p Point) {
	if id == "" {
		return
	}
	b.mu.Lock()
	b.cursors[id] = p
	b.mu.Unlock()
}

// Cursors lists remote cursors in participant order. Cursors of unknown
// participants come last, sorted by id.
func (b *Board) Cursors() []RemoteCursor {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RemoteCursor, 0, len(b.cursors))
	seen := make(map[string]bool, len(b.cursors))
	for _, id := range b.order {
		if p, ok := b.cursors[id]; ok {
			out = append(out, RemoteCursor{ParticipantID: id, Color: b.participants[id].Color, Point: p})
			seen[id] = true
		}
	}
	var unknown []string
	for id := range b.cursors {
		if !seen[id] {
			unknown = append(unknown, id)
		}
	}
	slices.Sort(unknown)
	for _, id := range unknown {
		out = append(out, RemoteCursor{ParticipantID: id, Color: DefaultColor, Point: b.cursors[id]})
	}
	return out
}

func (b *Board) Participants() []Participant {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.participantList()
}

// InProgress returns the remote in-progress strokes in arrival order.
func (b *Board) InProgress() []Stroke {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Stroke, 0, len(b.inProgressOrder))
	for _, id := range b.inProgressOrder {
		out = append(out, b.inProgress[id].Clone())
	}
	return out
}

func (b *Board) rebuild(history []Stroke) {
	b.inProgress = make(map[string]Stroke)
	b.inProgressOrder = b.inProgressOrder[:0]
	b.renderer.ResetCommitted(append([]Stroke(nil), history...))
	b.paintInProgress()
}

func (b *Board) dropInProgress(id string) {
	if _, ok := b.inProgress[id]; !ok {
		return
	}
	delete(b.inProgress, id)
	for i, existing := range b.inProgressOrder {
		if existing == id {
			b.inProgressOrder = append(b.inProgressOrder[:i], b.inProgressOrder[i+1:]...)
			break
		}
	}
}

// paintInProgress repaints the ephemeral layer: own stroke first, then
// everyone else's in arrival order.
func (b *Board) paintInProgress() {
	strokes := make([]Stroke, 0, len(b.inProgressOrder)+1)
	if b.own != nil {
		strokes = append(strokes, b.own.Clone())
	}
	for _, id := range b.inProgressOrder {
		strokes = append(strokes, b.inProgress[id].Clone())
	}
	b.renderer.DrawInProgress(strokes)
}

func (b *Board) addParticipant(p Participant) {
	if p.ID == "" {
		return
	}
	if _, ok := b.participants[p.ID]; !ok {
		b.order = append(b.order, p.ID)
	}
	b.participants[p.ID] = p
}

func (b *Board) participantList() []Participant {
	out := make([]Participant, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.participants[id])
	}
	return out
}
