package gallery

import "testing"

func TestComputeMetrics_ColumnsAtLeastOne(t *testing.T) {
	widths := []int{0, 1, 10, 49, 50, 120, 640, 1920, 5000}
	sizes := []int{-10, 0, 50, 110, 200, 400, 900}
	for _, w := range widths {
		for _, s := range sizes {
			m := ComputeMetrics(w, s, 10)
			if m.Columns < 1 {
				t.Errorf("width=%d preview=%d: columns=%d, want >= 1", w, s, m.Columns)
			}
			if m.CellHeight <= 0 {
				t.Errorf("width=%d preview=%d: cellHeight=%d, want > 0", w, s, m.CellHeight)
			}
		}
	}
}

func TestComputeMetrics_GeometryFormulas(t *testing.T) {
	// previewSize 110: cellHeight = round(110*1.1) = 121, rowHeight = 129.
	m := ComputeMetrics(480, 110, 40)
	if m.CellHeight != 121 {
		t.Errorf("cellHeight=%d, want 121", m.CellHeight)
	}
	if m.RowHeight != 129 {
		t.Errorf("rowHeight=%d, want 129", m.RowHeight)
	}
	// columns = floor((480-16+8)/(110+8)) = floor(472/118) = 4
	if m.Columns != 4 {
		t.Errorf("columns=%d, want 4", m.Columns)
	}
	if m.TotalRows != 10 {
		t.Errorf("totalRows=%d, want 10", m.TotalRows)
	}
	if m.TotalHeight != 10*129 {
		t.Errorf("totalHeight=%d, want %d", m.TotalHeight, 10*129)
	}
}

func TestComputeMetrics_ZeroItems(t *testing.T) {
	m := ComputeMetrics(480, 110, 0)
	if m.TotalRows != 0 || m.TotalHeight != 0 {
		t.Errorf("zero items: rows=%d height=%d, want 0/0", m.TotalRows, m.TotalHeight)
	}
}

func TestVisibleRange_BufferedScenario(t *testing.T) {
	// viewport 400px, previewSize 110 => rowHeight 129, scroll 0, buffer 2:
	// startRow 0, endRow = ceil(400/129)+2 = 6, so rows 0-5 materialize even
	// though only ~3 rows are visible.
	m := ComputeMetrics(480, 110, 40)
	w := m.VisibleRange(0, 400, 40)
	if w.Start != 0 {
		t.Errorf("start=%d, want 0", w.Start)
	}
	if w.End != 6*m.Columns {
		t.Errorf("end=%d, want %d", w.End, 6*m.Columns)
	}
}

func TestVisibleRange_CoversVisibleBand(t *testing.T) {
	const n = 500
	m := ComputeMetrics(640, 90, n)
	viewportH := 400
	maxScroll := m.TotalHeight - viewportH
	for scroll := 0; scroll <= maxScroll; scroll += 7 {
		w := m.VisibleRange(scroll, viewportH, n)
		if w.Start < 0 || w.Start > w.End || w.End > n {
			t.Fatalf("scroll=%d: invalid window %+v", scroll, w)
		}
		startRow, endRow := m.RowRange(w)
		firstVisible := scroll / m.RowHeight
		lastVisible := (scroll + viewportH - 1) / m.RowHeight
		if lastVisible > m.TotalRows-1 {
			lastVisible = m.TotalRows - 1
		}
		if startRow > firstVisible {
			t.Fatalf("scroll=%d: startRow %d skips visible row %d", scroll, startRow, firstVisible)
		}
		if endRow <= lastVisible {
			t.Fatalf("scroll=%d: endRow %d excludes visible row %d", scroll, endRow, lastVisible)
		}
	}
}

func TestVisibleRange_TailClampsToItemCount(t *testing.T) {
	// 10 items in 4 columns = 3 rows; the last row is partial.
	m := ComputeMetrics(480, 110, 10)
	w := m.VisibleRange(0, 4000, 10)
	if w.End != 10 {
		t.Errorf("end=%d, want 10 (clamped to item count)", w.End)
	}
}

func TestClampPreviewSize(t *testing.T) {
	cases := []struct{ in, want int }{
		{-5, 50}, {0, 50}, {49, 50}, {50, 50}, {110, 110}, {400, 400}, {401, 400}, {9999, 400},
	}
	for _, c := range cases {
		if got := ClampPreviewSize(c.in); got != c.want {
			t.Errorf("ClampPreviewSize(%d)=%d, want %d", c.in, got, c.want)
		}
	}
}
