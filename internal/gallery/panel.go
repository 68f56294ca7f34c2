package gallery

import (
	"strings"

	"github.com/google/uuid"
)

// Sort orders accepted by the image API.
const (
	SortName    = "name"
	SortDate    = "date"
	SortDateAsc = "date_asc"
)

// Metadata filter values accepted by the image API.
const (
	MetaAll     = "all"
	MetaWith    = "with"
	MetaWithout = "without"
)

// SourceAll asks the server to merge every registered folder.
const SourceAll = "__ALL__"

// Panel owns the item collection, selection, filter, and paging state for one
// gallery instance. All mutation goes through named methods so the
// toggle/filter invariants hold; nothing here is shared across instances.
type Panel struct {
	PanelID    string
	InstanceID string

	items []ItemRecord
	seen  map[string]struct{}

	search      string
	sort        string
	metaFilter  string
	source      string
	selection   SelectionState
	scroll      int
	previewSize int

	page       int
	totalPages int
	loading    bool
}

// NewPanel creates an empty panel with a fresh instance ID.
func NewPanel(panelID string) *Panel {
	return &Panel{
		PanelID:     panelID,
		InstanceID:  uuid.NewString(),
		seen:        map[string]struct{}{},
		sort:        SortName,
		metaFilter:  MetaAll,
		previewSize: 110,
		page:        1,
		totalPages:  1,
	}
}

// ReplaceItems swaps the collection wholesale, as after any non-append fetch.
// Selection is kept; a selection no longer present simply highlights nothing.
func (p *Panel) ReplaceItems(items []ItemRecord, page, totalPages int) {
	p.items = append(p.items[:0:0], items...)
	p.seen = make(map[string]struct{}, len(items))
	for _, it := range items {
		p.seen[it.CanonicalName] = struct{}{}
	}
	p.page = page
	p.totalPages = totalPages
}

// AppendItems merges a pagination page into the collection, dropping entries
// whose canonical name is already present.
func (p *Panel) AppendItems(items []ItemRecord, page, totalPages int) {
	for _, it := range items {
		if _, dup := p.seen[it.CanonicalName]; dup {
			continue
		}
		p.seen[it.CanonicalName] = struct{}{}
		p.items = append(p.items, it)
	}
	p.page = page
	p.totalPages = totalPages
}

// Items returns the unfiltered collection.
func (p *Panel) Items() []ItemRecord { return p.items }

// Filtered returns the items whose display name contains the live search
// string, case-insensitively. Order is preserved.
func (p *Panel) Filtered() []ItemRecord {
	if p.search == "" {
		return p.items
	}
	needle := strings.ToLower(p.search)
	out := make([]ItemRecord, 0, len(p.items))
	for _, it := range p.items {
		if strings.Contains(strings.ToLower(it.DisplayName), needle) {
			out = append(out, it)
		}
	}
	return out
}

// SetSearch updates the live search string. A change resets the scroll
// position because the filtered index space is unrelated to the previous
// one; the caller must also reset its viewport window. Reports whether the
// value changed.
func (p *Panel) SetSearch(s string) bool {
	if s == p.search {
		return false
	}
	p.search = s
	p.scroll = 0
	return true
}

// Search returns the live search string.
func (p *Panel) Search() string { return p.search }

// ToggleSelect applies the toggle-selection rule: activating the selected
// item clears the selection, activating any other item replaces it. Returns
// true if the item is selected afterwards.
func (p *Panel) ToggleSelect(it ItemRecord) bool {
	if p.selection.Matches(it) {
		p.selection = SelectionState{}
		return false
	}
	p.selection = SelectionState{CanonicalName: it.CanonicalName, SourceID: it.SourceID}
	return true
}

// ClearSelection resets the selection to empty.
func (p *Panel) ClearSelection() { p.selection = SelectionState{} }

// SetSelection restores a previously persisted selection.
func (p *Panel) SetSelection(s SelectionState) { p.selection = s }

// Selection returns the current selection state.
func (p *Panel) Selection() SelectionState { return p.selection }

// RemoveItem drops an item from the in-memory collection without a re-fetch,
// clearing the selection if the removed item was selected. Reports whether
// an item was removed.
func (p *Panel) RemoveItem(canonicalName, sourceID string) bool {
	for i, it := range p.items {
		if it.CanonicalName == canonicalName && it.SourceID == sourceID {
			if p.selection.Matches(it) {
				p.selection = SelectionState{}
			}
			p.items = append(p.items[:i], p.items[i+1:]...)
			delete(p.seen, canonicalName)
			return true
		}
	}
	return false
}

// BeginFetch marks a page fetch as in flight. It returns false when one is
// already outstanding, which prevents duplicate concurrent page requests and
// out-of-order merges.
func (p *Panel) BeginFetch() bool {
	if p.loading {
		return false
	}
	p.loading = true
	return true
}

// EndFetch clears the in-flight flag.
func (p *Panel) EndFetch() { p.loading = false }

// Loading reports whether a fetch is outstanding.
func (p *Panel) Loading() bool { return p.loading }

// HasMorePages reports whether pagination can continue.
func (p *Panel) HasMorePages() bool { return p.page < p.totalPages }

// Page returns the current page number.
func (p *Panel) Page() int { return p.page }

// TotalPages returns the last reported page count.
func (p *Panel) TotalPages() int { return p.totalPages }

// SetScroll stores the scroll offset in pixels, floored at zero.
func (p *Panel) SetScroll(offset int) {
	if offset < 0 {
		offset = 0
	}
	p.scroll = offset
}

// Scroll returns the current scroll offset.
func (p *Panel) Scroll() int { return p.scroll }

// SetPreviewSize stores the clamped cell-width driver.
func (p *Panel) SetPreviewSize(px int) { p.previewSize = ClampPreviewSize(px) }

// AdjustPreviewSize nudges the preview size by delta, clamped.
func (p *Panel) AdjustPreviewSize(delta int) {
	p.SetPreviewSize(p.previewSize + delta)
}

// PreviewSize returns the current preview size.
func (p *Panel) PreviewSize() int { return p.previewSize }

// SetSort selects the sort order, falling back to name ordering on unknown
// values, and rewinds to page 1.
func (p *Panel) SetSort(order string) {
	switch order {
	case SortName, SortDate, SortDateAsc:
		p.sort = order
	default:
		p.sort = SortName
	}
	p.page = 1
	p.scroll = 0
}

// Sort returns the active sort order.
func (p *Panel) Sort() string { return p.sort }

// SetMetadataFilter selects the metadata filter, falling back to "all" on
// unknown values, and rewinds to page 1.
func (p *Panel) SetMetadataFilter(f string) {
	switch f {
	case MetaAll, MetaWith, MetaWithout:
		p.metaFilter = f
	default:
		p.metaFilter = MetaAll
	}
	p.page = 1
	p.scroll = 0
}

// MetadataFilter returns the active metadata filter.
func (p *Panel) MetadataFilter() string { return p.metaFilter }

// SetSource switches the source folder. The collection indices become
// meaningless, so scroll and paging rewind.
func (p *Panel) SetSource(source string) {
	p.source = source
	p.page = 1
	p.scroll = 0
}

// Source returns the active source folder path ("" = default).
func (p *Panel) Source() string { return p.source }

// StateMap captures the persistable UI state as a shallow map, suitable for
// Persister.Schedule partial updates.
func (p *Panel) StateMap() map[string]any {
	return map[string]any{
		"selected_image":  p.selection.CanonicalName,
		"selected_source": p.selection.SourceID,
		"search":          p.search,
		"sort":            p.sort,
		"metadata_filter": p.metaFilter,
		"source_folder":   p.source,
		"preview_size":    p.previewSize,
	}
}

// ApplyState restores panel state from a previously persisted map. Unknown
// keys are ignored; malformed values keep the current setting.
func (p *Panel) ApplyState(state map[string]any) {
	if v, ok := state["selected_image"].(string); ok {
		p.selection.CanonicalName = v
	}
	if v, ok := state["selected_source"].(string); ok {
		p.selection.SourceID = v
	}
	if v, ok := state["search"].(string); ok {
		p.search = v
	}
	if v, ok := state["sort"].(string); ok {
		p.SetSort(v)
	}
	if v, ok := state["metadata_filter"].(string); ok {
		p.SetMetadataFilter(v)
	}
	if v, ok := state["source_folder"].(string); ok {
		p.source = v
	}
	switch v := state["preview_size"].(type) {
	case float64:
		p.SetPreviewSize(int(v))
	case int:
		p.SetPreviewSize(v)
	}
}
