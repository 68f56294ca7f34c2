package gallery

import "math"

// Layout constants shared by every grid instance. The gap also acts as the
// row gap, so rowHeight = cellHeight + Gap.
const (
	Gap     = 8
	Padding = 16

	// BufferRows is rendered above and below the visible band so row
	// churn during scrolling stays off-screen.
	BufferRows = 2

	MinPreviewSize = 50
	MaxPreviewSize = 400
)

// ClampPreviewSize bounds the user-controlled cell width driver to [50,400].
func ClampPreviewSize(px int) int {
	if px < MinPreviewSize {
		return MinPreviewSize
	}
	if px > MaxPreviewSize {
		return MaxPreviewSize
	}
	return px
}

// GridMetrics is the derived geometry for one layout pass. It must be
// recomputed whenever container width, preview size, or item count changes.
type GridMetrics struct {
	Columns     int
	CellHeight  int
	RowHeight   int
	TotalRows   int
	TotalHeight int
}

// ComputeMetrics derives grid geometry from the container width, the clamped
// preview size, and the item count. Columns is always at least 1, even for
// arbitrarily narrow containers.
func ComputeMetrics(containerWidth, previewSize, itemCount int) GridMetrics {
	previewSize = ClampPreviewSize(previewSize)
	cols := (containerWidth - Padding + Gap) / (previewSize + Gap)
	if cols < 1 {
		cols = 1
	}
	cellH := int(math.Round(float64(previewSize) * 1.1))
	rowH := cellH + Gap
	rows := 0
	if itemCount > 0 {
		rows = (itemCount + cols - 1) / cols
	}
	return GridMetrics{
		Columns:     cols,
		CellHeight:  cellH,
		RowHeight:   rowH,
		TotalRows:   rows,
		TotalHeight: rows * rowH,
	}
}

// Window is a half-open [Start, End) index range into the filtered item
// sequence that is materialized as rendered cells.
type Window struct {
	Start int
	End   int
}

// VisibleRange computes the window of items whose rows intersect the band
// [scrollOffset, scrollOffset+viewportHeight), widened by BufferRows on each
// side. Every row touching the visible band is always included.
func (g GridMetrics) VisibleRange(scrollOffset, viewportHeight, itemCount int) Window {
	if itemCount == 0 || g.TotalRows == 0 {
		return Window{}
	}
	if scrollOffset < 0 {
		scrollOffset = 0
	}
	startRow := scrollOffset/g.RowHeight - BufferRows
	if startRow < 0 {
		startRow = 0
	}
	endRow := ceilDiv(scrollOffset+viewportHeight, g.RowHeight) + BufferRows
	if endRow > g.TotalRows {
		endRow = g.TotalRows
	}
	start := startRow * g.Columns
	end := endRow * g.Columns
	if end > itemCount {
		end = itemCount
	}
	if start > end {
		start = end
	}
	return Window{Start: start, End: end}
}

// RowRange converts a window back to its covered row span.
func (g GridMetrics) RowRange(w Window) (startRow, endRow int) {
	if g.Columns == 0 {
		return 0, 0
	}
	startRow = w.Start / g.Columns
	endRow = ceilDiv(w.End, g.Columns)
	return startRow, endRow
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
