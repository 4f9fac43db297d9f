// Package relay routes drawing events between connected participants and
// owns the authoritative stroke history.
//
// All state changes happen on the goroutine running Relay.Run, one event at a
// time, so every client observes commits, undos and redos in the same order.
package relay

import (
	"context"
	"errors"
	"strings"

	"pkt.systems/pslog"

	"LiveBoard/internal/state"
)

const defaultEventQueue = 1024

// ErrClosed is returned when events are submitted after Run has returned.
var ErrClosed = errors.New("relay closed")

// Peer is one connected client as seen by the relay. Send must not block; it
// reports false when the peer cannot accept more frames.
type Peer interface {
	ID() string
	Send(Frame) bool
	Close()
}

type eventKind int

const (
	eventConnect eventKind = iota
	eventDisconnect
	eventFrame
	eventSnapshot
)

type event struct {
	kind     eventKind
	peer     Peer
	peerID   string
	frame    Frame
	snapshot chan []state.Stroke
}

// Relay is the server side of the sync protocol.
type Relay struct {
	history  *state.History
	registry *state.Registry
	log      pslog.Logger

	events chan event
	done   chan struct{}
	peers  []Peer
}

// New returns a relay that exclusively owns history and registry.
func New(history *state.History, registry *state.Registry, logger pslog.Logger) *Relay {
	if history == nil {
		history = state.NewHistory()
	}
	if registry == nil {
		registry = state.NewRegistry(nil)
	}
	return &Relay{
		history:  history,
		registry: registry,
		log:      logger,
		events:   make(chan event, defaultEventQueue),
		done:     make(chan struct{}),
	}
}

// Run dispatches events until ctx ends, then closes every peer.
func (r *Relay) Run(ctx context.Context) error {
	defer func() {
		close(r.done)
		for _, p := range r.peers {
			p.Close()
		}
		r.peers = nil
	}()
	r.log.Info("relay started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopped", "participants", len(r.peers), "strokes", r.history.Len())
			return nil
		case ev := <-r.events:
			r.handle(ev)
		}
	}
}

// Connect registers p and sends it the welcome frame.
func (r *Relay) Connect(ctx context.Context, p Peer) error {
	return r.submit(ctx, event{kind: eventConnect, peer: p})
}

// Disconnect removes the peer with id. Unknown ids are ignored.
func (r *Relay) Disconnect(ctx context.Context, id string) error {
	return r.submit(ctx, event{kind: eventDisconnect, peerID: id})
}

// Deliver hands an inbound frame from peer id to the dispatch loop.
func (r *Relay) Deliver(ctx context.Context, id string, f Frame) error {
	return r.submit(ctx, event{kind: eventFrame, peerID: id, frame: f})
}

// Snapshot reads the committed history from the dispatch loop.
func (r *Relay) Snapshot(ctx context.Context) ([]state.Stroke, error) {
	reply := make(chan []state.Stroke, 1)
	if err := r.submit(ctx, event{kind: eventSnapshot, snapshot: reply}); err != nil {
		return nil, err
	}
	select {
	case strokes := <-reply:
		return strokes, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return nil, ErrClosed
	}
}

func (r *Relay) submit(ctx context.Context, ev event) error {
	select {
	case <-r.done:
		return ErrClosed
	default:
	}
	select {
	case r.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrClosed
	}
}

func (r *Relay) handle(ev event) {
	switch ev.kind {
	case eventConnect:
		r.connect(ev.peer)
	case eventDisconnect:
		r.remove(ev.peerID, "disconnected")
	case eventFrame:
		r.route(ev.peerID, ev.frame)
	case eventSnapshot:
		ev.snapshot <- r.history.Snapshot()
	}
}

func (r *Relay) connect(p Peer) {
	id := p.ID()
	if r.peer(id) != nil {
		r.log.Warn("duplicate participant id", "participant", id)
		p.Close()
		return
	}
	participant := r.registry.Register(id)
	r.peers = append(r.peers, p)
	r.log.Info("participant joined", "participant", id, "color", participant.Color, "participants", len(r.peers))

	r.unicast(p, EventWelcome, WelcomePayload{
		Participant:      participant,
		CommittedHistory: r.history.Snapshot(),
		Participants:     r.registry.List(),
	})
	r.broadcast(EventParticipantJoined, ParticipantJoinedPayload{Participant: participant}, id)
}

func (r *Relay) remove(id, reason string) {
	idx := -1
	for i, p := range r.peers {
		if p.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	p := r.peers[idx]
	r.peers = append(r.peers[:idx], r.peers[idx+1:]...)
	r.registry.Unregister(id)
	p.Close()
	r.log.Info("participant left", "participant", id, "reason", reason, "participants", len(r.peers))

	r.broadcast(EventParticipantLeft, ParticipantLeftPayload{ParticipantID: id}, "")
}

func (r *Relay) route(id string, f Frame) {
	if r.peer(id) == nil {
		r.log.Debug("frame from departed participant dropped", "participant", id, "type", f.Type)
		return
	}
	log := r.log.With("participant", id, "type", f.Type)

	switch f.Type {
	case EventStrokePoints:
		var sp state.StrokePoints
		if err := f.Decode(&sp); err != nil {
			log.Warn("frame dropped", "err", err)
			return
		}
		if strings.TrimSpace(sp.StrokeID) == "" {
			log.Warn("frame dropped", "err", "stroke id is required")
			return
		}
		sp = sp.Normalize()
		sp.ParticipantID = id
		r.broadcast(EventStrokePoints, sp, id)

	case EventStrokeCommit:
		var payload StrokeCommitPayload
		if err := f.Decode(&payload); err != nil {
			log.Warn("frame dropped", "err", err)
			return
		}
		if err := payload.Stroke.Validate(); err != nil {
			log.Warn("frame dropped", "err", err)
			return
		}
		r.history.Append(payload.Stroke)
		log.Debug("stroke committed", "stroke", payload.Stroke.ID, "history", r.history.Len())
		r.broadcast(EventStrokeCommit, payload, "")

	case EventUndoRequest:
		undone, err := r.history.Undo()
		if err != nil {
			log.Debug("undo ignored", "err", err)
			return
		}
		log.Debug("stroke undone", "stroke", undone.ID, "history", r.history.Len())
		r.broadcast(EventHistoryRebuild, HistoryRebuildPayload{CommittedHistory: r.history.Snapshot()}, "")

	case EventRedoRequest:
		redone, err := r.history.Redo()
		if err != nil {
			log.Debug("redo ignored", "err", err)
			return
		}
		log.Debug("stroke redone", "stroke", redone.ID, "history", r.history.Len())
		r.broadcast(EventHistoryRebuild, HistoryRebuildPayload{CommittedHistory: r.history.Snapshot()}, "")

	case EventCursorMove:
		var payload CursorMovePayload
		if err := f.Decode(&payload); err != nil {
			log.Warn("frame dropped", "err", err)
			return
		}
		payload.ParticipantID = id
		r.broadcast(EventCursorMove, payload, id)

	default:
		log.Warn("frame dropped", "err", ErrUnknownEvent)
	}
}

func (r *Relay) unicast(p Peer, eventType string, payload any) {
	f, err := NewFrame(eventType, payload)
	if err != nil {
		r.log.Error("encode frame", "type", eventType, "err", err)
		return
	}
	if !p.Send(f) {
		r.remove(p.ID(), "send queue full")
	}
}

// broadcast sends to every peer except the one with id except. An empty
// except reaches everyone, sender included.
func (r *Relay) broadcast(eventType string, payload any, except string) {
	f, err := NewFrame(eventType, payload)
	if err != nil {
		r.log.Error("encode frame", "type", eventType, "err", err)
		return
	}
	var slow []string
	for _, p := range r.peers {
		if p.ID() == except {
			continue
		}
		if !p.Send(f) {
			slow = append(slow, p.ID())
		}
	}
	for _, id := range slow {
		r.remove(id, "send queue full")
	}
}

func (r *Relay) peer(id string) Peer {
	for _, p := range r.peers {
		if p.ID() == id {
			return p
		}
	}
	return nil
}
