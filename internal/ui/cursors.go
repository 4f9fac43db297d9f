package ui

import (
	"context"
	"slices"
	"time"

	"LiveBoard/internal/state"
)

// CursorSource reports the latest known remote cursors.
type CursorSource interface {
	Cursors() []state.RemoteCursor
}

// CursorOverlay displays remote cursors.
type CursorOverlay interface {
	SetCursors(cursors []state.RemoteCursor)
}

// RunCursorLoop repaints the overlay fps times a second until ctx ends,
// skipping ticks where nothing moved.
func RunCursorLoop(ctx context.Context, fps int, src CursorSource, overlay CursorOverlay) {
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	var last []state.RemoteCursor
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := src.Cursors()
			if slices.Equal(cur, last) {
				continue
			}
			overlay.SetCursors(cur)
			last = cur
		}
	}
}
