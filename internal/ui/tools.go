package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"LiveBoard/internal/state"
)

// Swatches offered in the toolbar, as hex strings sent on the wire.
var Swatches = []string{"#000000", "#FF6B6B", "#4ECDC4", "#45B7D1", "#F7DC6F", "#BB8FCE"}

const (
	minWidth    = 1.0
	maxWidth    = 50.0
	eraserWidth = 20.0
)

// Style is the part of the Board the toolbar drives.
type Style interface {
	SetTool(t state.Tool)
	SetColor(c string)
	SetWidth(w float64)
}

type colorSwatch struct {
	widget.BaseWidget
	hex      string
	fill     color.Color
	OnTapped func(hex string)
}

func newColorSwatch(hex string, tapped func(string)) *colorSwatch {
	fill, err := state.ParseColor(hex)
	if err != nil {
		fill = color.NRGBA{A: 255}
	}
	s := &colorSwatch{hex: hex, fill: fill, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(s.fill)
	rect.SetMinSize(fyne.NewSize(28, 28))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.hex)
	}
}

// NewToolbar builds the tool row: brush, eraser, undo, redo, colors and width.
func NewToolbar(style Style, actions Actions, onError func(string, error)) fyne.CanvasObject {
	slider := widget.NewSlider(minWidth, maxWidth)
	slider.SetValue(state.DefaultWidth)
	slider.OnChanged = func(w float64) { style.SetWidth(w) }

	report := func(name string, err error) {
		if err != nil && onError != nil {
			onError(name, err)
		}
	}

	tb := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentCreateIcon(), func() {
			style.SetTool(state.ToolBrush)
			if slider.Value >= eraserWidth {
				slider.SetValue(state.DefaultWidth)
			}
		}),
		widget.NewToolbarAction(theme.DeleteIcon(), func() {
			style.SetTool(state.ToolEraser)
			slider.SetValue(eraserWidth)
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { report("undo", actions.Undo()) }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { report("redo", actions.Redo()) }),
	)

	swatches := container.NewHBox()
	for _, hex := range Swatches {
		swatches.Add(newColorSwatch(hex, func(h string) {
			style.SetTool(state.ToolBrush)
			style.SetColor(h)
		}))
	}

	return container.NewHBox(
		tb,
		widget.NewSeparator(),
		swatches,
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), slider),
		layout.NewSpacer(),
	)
}
