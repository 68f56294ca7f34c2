package gallery

// Cell is one materialized grid entry handed to the view adapter.
type Cell struct {
	Item     ItemRecord
	Index    int
	Selected bool
}

// ViewAdapter is the capability set the viewport needs from a concrete
// renderer. Keeping it this narrow isolates the grid math from the rendering
// technology; the TUI supplies a text-cell implementation and tests supply a
// recording fake.
type ViewAdapter interface {
	// RenderCells replaces the materialized content with a leading spacer,
	// the given cells, and a trailing spacer. Spacer heights are in pixels;
	// a trailing spacer of 0 must not be rendered.
	RenderCells(leadingSpacer int, cells []Cell, trailingSpacer int)
	// RenderEmpty shows the empty-state placeholder spanning the grid.
	RenderEmpty()
	// SetScrollTop moves the scroll position, e.g. after a filter reset.
	SetScrollTop(offset int)
}

// Frame is one set of viewport inputs. Items must already be filtered and
// sorted by the caller.
type Frame struct {
	Items          []ItemRecord
	Selection      SelectionState
	ScrollOffset   int
	ViewportHeight int
	ContainerWidth int
	PreviewSize    int
}

// Viewport renders only the items whose row falls within or near the visible
// scroll band, keeping render cost independent of collection size. Render is
// idempotent per window: callers may invoke it on every scroll event.
type Viewport struct {
	adapter  ViewAdapter
	last     Window
	rendered bool
	wasEmpty bool
}

// NewViewport wraps the given adapter.
func NewViewport(adapter ViewAdapter) *Viewport {
	return &Viewport{adapter: adapter}
}

// Window returns the most recently rendered window.
func (v *Viewport) Window() Window { return v.last }

// Invalidate forgets the last rendered window so the next Render call emits
// cells again even if the computed range is unchanged. Selection changes use
// this so the per-cell selected flag is recomputed against fresh cells.
func (v *Viewport) Invalidate() {
	v.rendered = false
}

// Reset invalidates the window and moves the scroll position to the top.
// Used on filter and source changes, where the new index space is unrelated
// to the previous one.
func (v *Viewport) Reset() {
	v.last = Window{}
	v.rendered = false
	v.adapter.SetScrollTop(0)
}

// Render computes the visible range for the frame and re-renders through the
// adapter only when the range changed since the last pass (or after
// Invalidate). It returns the metrics and window used, and whether the
// adapter was invoked.
func (v *Viewport) Render(f Frame) (GridMetrics, Window, bool) {
	n := len(f.Items)
	m := ComputeMetrics(f.ContainerWidth, f.PreviewSize, n)

	if n == 0 {
		w := Window{}
		if v.rendered && v.wasEmpty {
			return m, w, false
		}
		v.adapter.RenderEmpty()
		v.last = w
		v.rendered = true
		v.wasEmpty = true
		return m, w, true
	}

	w := m.VisibleRange(f.ScrollOffset, f.ViewportHeight, n)
	if v.rendered && !v.wasEmpty && w == v.last {
		return m, w, false
	}

	startRow, endRow := m.RowRange(w)
	cells := make([]Cell, 0, w.End-w.Start)
	for i := w.Start; i < w.End; i++ {
		cells = append(cells, Cell{
			Item:     f.Items[i],
			Index:    i,
			Selected: f.Selection.Matches(f.Items[i]),
		})
	}
	leading := startRow * m.RowHeight
	trailing := m.TotalHeight - endRow*m.RowHeight
	if trailing < 0 {
		trailing = 0
	}
	v.adapter.RenderCells(leading, cells, trailing)
	v.last = w
	v.rendered = true
	v.wasEmpty = false
	return m, w, true
}
