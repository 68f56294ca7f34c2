package tui

import (
	"context"
	"time"

	"imagegallery/internal/client"
	"imagegallery/internal/config"
	"imagegallery/internal/gallery"
	"imagegallery/internal/logging"
)

const requestTimeout = 30 * time.Second

// TUIModel manages core data and business logic for the gallery TUI.
type TUIModel struct {
	cfg       *config.Config
	client    *client.Client
	log       *logging.Logger
	panel     *gallery.Panel
	persister *gallery.Persister
	folders   []client.Folder
	sourceIdx int
}

// NewTUIModel creates a new TUIModel with a fresh panel instance.
func NewTUIModel(cfg *config.Config, cl *client.Client, log *logging.Logger) *TUIModel {
	panel := gallery.NewPanel("gallery")
	if cfg.UI.PreviewSize > 0 {
		panel.SetPreviewSize(cfg.UI.PreviewSize)
	}
	return &TUIModel{
		cfg:       cfg,
		client:    cl,
		log:       log.WithScope("tui"),
		panel:     panel,
		persister: gallery.NewPersister(cl, log),
	}
}

// Panel returns the panel state owned by this instance.
func (m *TUIModel) Panel() *gallery.Panel { return m.panel }

// SearchDebounce returns the configured typing debounce.
func (m *TUIModel) SearchDebounce() time.Duration {
	if m.cfg.UI.SearchDebounceMS > 0 {
		return time.Duration(m.cfg.UI.SearchDebounceMS) * time.Millisecond
	}
	return 150 * time.Millisecond
}

// SetFolders stores the registry listing and re-syncs the source index with
// the panel's active source.
func (m *TUIModel) SetFolders(folders []client.Folder) {
	m.folders = folders
	m.sourceIdx = 0
	for i, opt := range m.SourceOptions() {
		if opt == m.panel.Source() {
			m.sourceIdx = i
		}
	}
}

// Folders returns the registry listing, default first.
func (m *TUIModel) Folders() []client.Folder { return m.folders }

// SourceOptions lists the selectable sources: the default (empty string),
// each extra folder by name, then the merged view.
func (m *TUIModel) SourceOptions() []string {
	opts := []string{""}
	for _, f := range m.folders {
		if !f.IsDefault {
			opts = append(opts, f.Name)
		}
	}
	if len(m.folders) > 1 {
		opts = append(opts, gallery.SourceAll)
	}
	return opts
}

// CycleSource advances to the next source option and rewinds the panel.
func (m *TUIModel) CycleSource() {
	opts := m.SourceOptions()
	m.sourceIdx = (m.sourceIdx + 1) % len(opts)
	m.panel.SetSource(opts[m.sourceIdx])
}

// CycleSort advances name -> date -> date_asc -> name.
func (m *TUIModel) CycleSort() {
	switch m.panel.Sort() {
	case gallery.SortName:
		m.panel.SetSort(gallery.SortDate)
	case gallery.SortDate:
		m.panel.SetSort(gallery.SortDateAsc)
	default:
		m.panel.SetSort(gallery.SortName)
	}
}

// CycleMetadataFilter advances all -> with -> without -> all.
func (m *TUIModel) CycleMetadataFilter() {
	switch m.panel.MetadataFilter() {
	case gallery.MetaAll:
		m.panel.SetMetadataFilter(gallery.MetaWith)
	case gallery.MetaWith:
		m.panel.SetMetadataFilter(gallery.MetaWithout)
	default:
		m.panel.SetMetadataFilter(gallery.MetaAll)
	}
}

// PageOptions builds the fetch parameters for a page from the panel state.
// Every fetch carries the current search string so server pages stay
// consistent with the visible filter; typing alone never triggers a fetch,
// it only re-filters the loaded items until the next fetch fires.
func (m *TUIModel) PageOptions(page int, serverSearch string) client.PageOptions {
	return client.PageOptions{
		Page:           page,
		Search:         serverSearch,
		Sort:           m.panel.Sort(),
		MetadataFilter: m.panel.MetadataFilter(),
		Source:         m.panel.Source(),
	}
}

// ApplyPage merges a fetched page into the panel.
func (m *TUIModel) ApplyPage(p client.Page, replace bool) {
	if replace {
		m.panel.ReplaceItems(p.Images, p.Page, p.TotalPages)
	} else {
		m.panel.AppendItems(p.Images, p.Page, p.TotalPages)
	}
}

func (m *TUIModel) persistKey() gallery.PersistKey {
	return gallery.PersistKey{PanelID: m.panel.PanelID, InstanceID: m.panel.InstanceID}
}

// SchedulePersist queues the full panel state at the general debounce.
func (m *TUIModel) SchedulePersist() {
	m.persister.Schedule(m.persistKey(), m.panel.StateMap())
}

// SchedulePersistFast queues a partial update at the slider debounce.
func (m *TUIModel) SchedulePersistFast(partial map[string]any) {
	m.persister.ScheduleFast(m.persistKey(), partial)
}

// Shutdown flushes pending persistence and stops the persister.
func (m *TUIModel) Shutdown() {
	m.persister.Flush()
	m.persister.Close()
}

// RestoreState loads previously saved panel state from the server.
func (m *TUIModel) RestoreState(ctx context.Context) (map[string]any, error) {
	return m.client.LoadUIState(ctx, m.panel.PanelID, m.panel.InstanceID)
}
