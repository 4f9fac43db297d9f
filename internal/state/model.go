package state

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ErrInvalidStroke is wrapped by every stroke validation failure.
var ErrInvalidStroke = errors.New("invalid stroke")

// Defaults applied to in-progress points that arrive without a style.
const (
	DefaultColor = "#000000"
	DefaultWidth = 3.0
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Tool string

const (
	ToolBrush  Tool = "brush"
	ToolEraser Tool = "eraser"
)

func (t Tool) Valid() bool {
	return t == ToolBrush || t == ToolEraser
}

// Stroke is one continuous gesture. The ID is chosen by the drawing client
// and shared by every streaming update and the final commit.
type Stroke struct {
	ID     string  `json:"id"`
	Tool   Tool    `json:"tool"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
	Points []Point `json:"points"`
}

// Validate reports whether the stroke can be committed.
func (s Stroke) Validate() error {
	switch {
	case strings.TrimSpace(s.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidStroke)
	case !s.Tool.Valid():
		return fmt.Errorf("%w: unknown tool %q", ErrInvalidStroke, s.Tool)
	case s.Width <= 0:
		return fmt.Errorf("%w: width must be positive", ErrInvalidStroke)
	case len(s.Points) == 0:
		return fmt.Errorf("%w: no points", ErrInvalidStroke)
	}
	return nil
}

// Clone returns a copy that does not share the point slice.
func (s Stroke) Clone() Stroke {
	s.Points = append([]Point(nil), s.Points...)
	return s
}

// StrokePoints is the growing point list of a stroke that has not been
// committed yet.
type StrokePoints struct {
	StrokeID      string  `json:"strokeId"`
	ParticipantID string  `json:"participantId,omitempty"`
	Points        []Point `json:"points"`
	Tool          Tool    `json:"tool,omitempty"`
	Color         string  `json:"color,omitempty"`
	Width         float64 `json:"width,omitempty"`
}

// Normalize fills in the style fields a sender left out.
func (p StrokePoints) Normalize() StrokePoints {
	if !p.Tool.Valid() {
		p.Tool = ToolBrush
	}
	if strings.TrimSpace(p.Color) == "" {
		p.Color = DefaultColor
	}
	if p.Width <= 0 {
		p.Width = DefaultWidth
	}
	return p
}

func (p StrokePoints) Stroke() Stroke {
	p = p.Normalize()
	return Stroke{
		ID:     p.StrokeID,
		Tool:   p.Tool,
		Color:  p.Color,
		Width:  p.Width,
		Points: append([]Point(nil), p.Points...),
	}
}

type Participant struct {
	ID    string `json:"id"`
	Color string `json:"color"`
}

// RemoteCursor is the last known pointer position of another participant.
type RemoteCursor struct {
	ParticipantID string
	Color         string
	Point
}

// ParseColor decodes "#rrggbb" or "#rgb" into an opaque color.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("parse color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
