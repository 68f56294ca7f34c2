package gallery

// ItemRecord describes one gallery entry as returned by the image API.
// CanonicalName plus SourceID identify an item uniquely across the whole
// collection; DisplayName is the last path segment (optionally prefixed with
// the folder label in multi-source mode) and is not unique.
type ItemRecord struct {
	DisplayName   string `json:"name"`
	CanonicalName string `json:"original_name"`
	SourceID      string `json:"source"`
	PreviewRef    string `json:"preview_url,omitempty"`
	ModTime       int64  `json:"mtime,omitempty"`
	Size          int64  `json:"size,omitempty"`
}

// Key returns the identity key for de-duplication and selection matching.
func (it ItemRecord) Key() string {
	return it.CanonicalName + "|" + it.SourceID
}

// SelectionState holds the current single selection. The zero value means
// no selection. A selection pointing at a since-deleted item is tolerated;
// it simply matches no rendered cell.
type SelectionState struct {
	CanonicalName string `json:"selected_image"`
	SourceID      string `json:"selected_source"`
}

// Empty reports whether nothing is selected.
func (s SelectionState) Empty() bool {
	return s.CanonicalName == "" && s.SourceID == ""
}

// Matches reports whether the selection refers to the given item.
func (s SelectionState) Matches(it ItemRecord) bool {
	if s.Empty() {
		return false
	}
	return s.CanonicalName == it.CanonicalName && s.SourceID == it.SourceID
}
