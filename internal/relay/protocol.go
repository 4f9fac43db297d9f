package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"LiveBoard/internal/state"
)

// Event names carried in Frame.Type.
const (
	EventWelcome           = "welcome"
	EventParticipantJoined = "participant-joined"
	EventParticipantLeft   = "participant-left"
	EventStrokePoints      = "stroke-points"
	EventStrokeCommit      = "stroke-commit"
	EventUndoRequest       = "undo-request"
	EventRedoRequest       = "redo-request"
	EventHistoryRebuild    = "history-rebuild"
	EventCursorMove        = "cursor-move"
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Frame is the envelope for every message in both directions.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type WelcomePayload struct {
	Participant      state.Participant   `json:"participant"`
	CommittedHistory []state.Stroke      `json:"committedHistory"`
	Participants     []state.Participant `json:"participants"`
}

type ParticipantJoinedPayload struct {
	Participant state.Participant `json:"participant"`
}

type ParticipantLeftPayload struct {
	ParticipantID string `json:"participantId"`
}

type StrokeCommitPayload struct {
	Stroke state.Stroke `json:"stroke"`
}

type HistoryRebuildPayload struct {
	CommittedHistory []state.Stroke `json:"committedHistory"`
}

// CursorMovePayload carries a participant id only on the server-to-client leg.
type CursorMovePayload struct {
	ParticipantID string  `json:"participantId,omitempty"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
}

// NewFrame encodes payload under eventType. A nil payload leaves the frame
// body empty.
func NewFrame(eventType string, payload any) (Frame, error) {
	if payload == nil {
		return Frame{Type: eventType}, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Frame{Type: eventType, Payload: b}, nil
}

// Decode unmarshals the frame payload into v.
func (f Frame) Decode(v any) error {
	if len(f.Payload) == 0 {
		return fmt.Errorf("%w: %s frame has no payload", ErrInvalidPayload, f.Type)
	}
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, f.Type, err)
	}
	return nil
}
