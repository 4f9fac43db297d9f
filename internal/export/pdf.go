package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"LiveBoard/internal/state"
)

// canvas units per millimetre on the exported page
const unitsPerMM = 4.0

// WritePDF draws the committed strokes in order onto a landscape A4 page.
// Eraser strokes paint white, matching the canvas background.
func WritePDF(w io.Writer, strokes []state.Stroke) error {
	p := gofpdf.New("L", "mm", "A4", "")
	p.SetTitle("LiveBoard", true)
	p.AddPage()
	p.SetLineCapStyle("round")
	p.SetLineJoinStyle("round")

	for _, st := range strokes {
		r, g, b := strokeRGB(st)
		p.SetDrawColor(r, g, b)
		p.SetFillColor(r, g, b)
		p.SetLineWidth(st.Width / unitsPerMM)

		if len(st.Points) == 1 {
			pt := st.Points[0]
			p.Circle(pt.X/unitsPerMM, pt.Y/unitsPerMM, st.Width/unitsPerMM/2, "F")
			continue
		}
		for i := 1; i < len(st.Points); i++ {
			p.Line(
				st.Points[i-1].X/unitsPerMM, st.Points[i-1].Y/unitsPerMM,
				st.Points[i].X/unitsPerMM, st.Points[i].Y/unitsPerMM,
			)
		}
	}
	if err := p.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func strokeRGB(s state.Stroke) (int, int, int) {
	if s.Tool == state.ToolEraser {
		return 255, 255, 255
	}
	c, err := state.ParseColor(s.Color)
	if err != nil {
		return 0, 0, 0
	}
	return int(c.R), int(c.G), int(c.B)
}
