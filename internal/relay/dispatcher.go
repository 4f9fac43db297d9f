package relay

import (
	"fmt"

	"pkt.systems/pslog"

	"LiveBoard/internal/state"
)

// Sender delivers frames from a client to the server.
type Sender interface {
	Send(Frame) error
}

// Dispatcher is the client side of the sync protocol. It applies server frames
// to a Board and turns local pointer and toolbar actions into frames.
type Dispatcher struct {
	board *state.Board
	out   Sender
	log   pslog.Logger
}

func NewDispatcher(board *state.Board, out Sender, logger pslog.Logger) *Dispatcher {
	return &Dispatcher{board: board, out: out, log: logger}
}

// Handle applies one frame received from the server. Unknown or malformed
// frames are reported and leave the board untouched.
func (d *Dispatcher) Handle(f Frame) error {
	switch f.Type {
	case EventWelcome:
		var p WelcomePayload
		if err := f.Decode(&p); err != nil {
			return err
		}
		d.board.ApplyWelcome(p.Participant, p.CommittedHistory, p.Participants)
		d.log.Info("joined board", "participant", p.Participant.ID, "strokes", len(p.CommittedHistory), "participants", len(p.Participants))
	case EventParticipantJoined:
		var p ParticipantJoinedPayload
		if err := f.Decode(&p); err != nil {
			return err
		}
		d.board.ApplyJoined(p.Participant)
	case EventParticipantLeft:
		var p ParticipantLeftPayload
		if err := f.Decode(&p); err != nil {
			return err
		}
		d.board.ApplyLeft(p.ParticipantID)
	case EventStrokePoints:
		var p state.StrokePoints
		if err := f.Decode(&p); err != nil {
			return err
		}
		d.board.ApplyRemotePoints(p)
	case EventStrokeCommit:
		var p StrokeCommitPayload
		if err := f.Decode(&p); err != nil {
			return err
		}
		d.board.ApplyCommit(p.Stroke)
	case EventHistoryRebuild:
		var p HistoryRebuildPayload
		if err := f.Decode(&p); err != nil {
			return err
		}
		d.board.ApplyRebuild(p.CommittedHistory)
	case EventCursorMove:
		var p CursorMovePayload
		if err := f.Decode(&p); err != nil {
			return err
		}
		d.board.ApplyCursor(p.ParticipantID, state.Point{X: p.X, Y: p.Y})
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, f.Type)
	}
	return nil
}

// PointerDown opens a local stroke.
func (d *Dispatcher) PointerDown(p state.Point) error {
	d.board.BeginStroke(p)
	return nil
}

// PointerMove extends the open stroke and streams its points so far, then
// reports the cursor.
func (d *Dispatcher) PointerMove(p state.Point) error {
	if s, ok := d.board.ExtendStroke(p); ok {
		err := d.send(EventStrokePoints, state.StrokePoints{
			StrokeID: s.ID,
			Points:   s.Points,
			Tool:     s.Tool,
			Color:    s.Color,
			Width:    s.Width,
		})
		if err != nil {
			return err
		}
	}
	return d.send(EventCursorMove, CursorMovePayload{X: p.X, Y: p.Y})
}

// PointerUp closes the local stroke at p and commits it.
func (d *Dispatcher) PointerUp(p state.Point) error {
	if _, ok := d.board.ExtendStroke(p); !ok {
		return nil
	}
	s, ok := d.board.EndStroke()
	if !ok {
		return nil
	}
	return d.send(EventStrokeCommit, StrokeCommitPayload{Stroke: s})
}

func (d *Dispatcher) Undo() error { return d.send(EventUndoRequest, nil) }

func (d *Dispatcher) Redo() error { return d.send(EventRedoRequest, nil) }

func (d *Dispatcher) send(eventType string, payload any) error {
	f, err := NewFrame(eventType, payload)
	if err != nil {
		return err
	}
	if err := d.out.Send(f); err != nil {
		return fmt.Errorf("send %s: %w", eventType, err)
	}
	return nil
}
