package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"imagegallery/internal/gallery"
)

type uiMode int

const (
	modeGrid uiMode = iota
	modeSearch
	modeFolders
	modeFolderAdd
	modeConfirmDelete
	modeHelp
)

// Terminal cells are not pixels; the grid math works in pixel units, so one
// character column maps to a fixed pixel width and each grid row renders as
// one terminal line.
const charPxWidth = 10

type TUIController struct {
	model *TUIModel
	view  *TUIView

	adapter  *textAdapter
	viewport *gallery.Viewport
	metrics  gallery.GridMetrics

	mode          uiMode
	cursor        int
	pendingSelect string
	width         int
	height        int
	status        string
	searchGen     int
	searchInput   textinput.Model
	pathInput     textinput.Model
	nameInput     textinput.Model
	addStep       int
	folderCursor  int
}

func NewTUIController(model *TUIModel, view *TUIView) *TUIController {
	searchInput := textinput.New()
	searchInput.Placeholder = "Search images..."

	pathInput := textinput.New()
	pathInput.Placeholder = "/path/to/folder"

	nameInput := textinput.New()
	nameInput.Placeholder = "Display name (optional)"

	adapter := &textAdapter{}
	return &TUIController{
		model:       model,
		view:        view,
		adapter:     adapter,
		viewport:    gallery.NewViewport(adapter),
		searchInput: searchInput,
		pathInput:   pathInput,
		nameInput:   nameInput,
	}
}

func (c *TUIController) wrapModel() tea.Model {
	return &model{tuiModel: c.model, tuiView: c.view, tuiController: c}
}

func (c *TUIController) Init() tea.Cmd {
	return tea.Batch(c.loadStateCmd(), c.foldersCmd())
}

func (c *TUIController) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height
		c.view.SetSize(msg.Width, msg.Height)
		c.viewport.Invalidate()
		c.refreshGrid()
		return c.wrapModel(), nil

	case tea.KeyMsg:
		return c.handleKeyMsg(msg)

	case searchTickMsg:
		if msg.gen != c.searchGen {
			return c.wrapModel(), nil
		}
		c.applySearch(c.searchInput.Value())
		return c.wrapModel(), nil

	case pageMsg:
		c.model.Panel().EndFetch()
		c.model.ApplyPage(msg.page, msg.replace)
		if msg.replace {
			c.cursor = 0
			c.viewport.Reset()
			if c.pendingSelect != "" {
				c.selectCanonical(c.pendingSelect)
				c.pendingSelect = ""
			}
		} else {
			c.viewport.Invalidate()
		}
		c.refreshGrid()
		c.status = fmt.Sprintf("%d of %d images", len(c.model.Panel().Items()), msg.page.Total)
		return c.wrapModel(), nil

	case foldersMsg:
		c.model.SetFolders(msg.folders)
		return c.wrapModel(), nil

	case savedStateMsg:
		c.model.Panel().ApplyState(msg.state)
		c.searchInput.SetValue(c.model.Panel().Search())
		return c.wrapModel(), c.fetchCmd(1, true)

	case statusMsg:
		c.status = msg.note
		return c.wrapModel(), tea.Batch(c.foldersCmd(), c.fetchCmd(1, true))

	case pastedMsg:
		// A stored image lands in the default folder; drop the live search
		// so the refetched view can show it, then select it when the page
		// arrives.
		c.status = "pasted " + strings.Join(msg.saved, ", ")
		if len(msg.saved) > 0 {
			c.pendingSelect = msg.saved[0]
		}
		c.searchGen++
		c.searchInput.SetValue("")
		c.model.Panel().SetSearch("")
		return c.wrapModel(), c.fetchCmd(1, true)

	case deletedMsg:
		panel := c.model.Panel()
		panel.RemoveItem(msg.item.CanonicalName, msg.item.SourceID)
		if c.cursor >= len(panel.Filtered()) && c.cursor > 0 {
			c.cursor--
		}
		c.viewport.Invalidate()
		c.refreshGrid()
		c.model.SchedulePersist()
		c.status = "deleted " + msg.item.DisplayName
		return c.wrapModel(), nil

	case fetchErrMsg:
		c.model.Panel().EndFetch()
		c.status = msg.err.Error()
		return c.wrapModel(), nil

	case errMsg:
		c.status = msg.err.Error()
		return c.wrapModel(), nil
	}

	return c.wrapModel(), nil
}

func (c *TUIController) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch c.mode {
	case modeHelp:
		return c.handleHelpKeys(msg)
	case modeSearch:
		return c.handleSearchKeys(msg)
	case modeFolders:
		return c.handleFolderKeys(msg)
	case modeFolderAdd:
		return c.handleFolderAddKeys(msg)
	case modeConfirmDelete:
		return c.handleConfirmKeys(msg)
	}
	return c.handleGridKeys(msg)
}

func (c *TUIController) handleGridKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	panel := c.model.Panel()

	switch msg.String() {
	case "q", "ctrl+c":
		c.model.Shutdown()
		return c.wrapModel(), tea.Quit

	case "?":
		c.mode = modeHelp

	case "/":
		c.mode = modeSearch
		c.searchInput.Focus()

	case "left", "h":
		return c.moveCursor(-1)
	case "right", "l":
		return c.moveCursor(1)
	case "up", "k":
		return c.moveCursor(-c.columns())
	case "down", "j":
		return c.moveCursor(c.columns())

	case "enter", " ":
		if it, ok := c.cursorItem(); ok {
			selected := panel.ToggleSelect(it)
			c.viewport.Invalidate()
			c.refreshGrid()
			c.model.SchedulePersist()
			if selected {
				c.status = "selected " + it.DisplayName
			} else {
				c.status = "selection cleared"
			}
		}

	case "c":
		panel.ClearSelection()
		c.viewport.Invalidate()
		c.refreshGrid()
		c.model.SchedulePersist()

	case "s":
		c.model.CycleSort()
		c.model.SchedulePersist()
		return c.wrapModel(), c.fetchCmd(1, true)

	case "t":
		c.model.CycleMetadataFilter()
		c.model.SchedulePersist()
		return c.wrapModel(), c.fetchCmd(1, true)

	case "tab":
		c.model.CycleSource()
		c.viewport.Reset()
		c.model.SchedulePersist()
		return c.wrapModel(), c.fetchCmd(1, true)

	case "+", "=":
		panel.AdjustPreviewSize(10)
		c.viewport.Invalidate()
		c.refreshGrid()
		c.model.SchedulePersistFast(map[string]any{"preview_size": panel.PreviewSize()})
	case "-", "_":
		panel.AdjustPreviewSize(-10)
		c.viewport.Invalidate()
		c.refreshGrid()
		c.model.SchedulePersistFast(map[string]any{"preview_size": panel.PreviewSize()})

	case "p":
		return c.wrapModel(), c.pasteCmd()

	case "x":
		if _, ok := c.cursorItem(); ok {
			c.mode = modeConfirmDelete
		}

	case "f":
		c.mode = modeFolders
		c.folderCursor = 0
		return c.wrapModel(), c.foldersCmd()

	case "r":
		return c.wrapModel(), c.refreshCmd()
	}

	return c.wrapModel(), nil
}

func (c *TUIController) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "?", "esc", "q":
		c.mode = modeGrid
	}
	return c.wrapModel(), nil
}

func (c *TUIController) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		c.mode = modeGrid
		c.searchInput.Blur()
		return c.wrapModel(), nil

	case "enter":
		// Submit bypasses the debounce and asks the server directly so
		// results beyond the loaded pages are included.
		c.mode = modeGrid
		c.searchInput.Blur()
		c.searchGen++
		c.applySearch(c.searchInput.Value())
		return c.wrapModel(), c.fetchCmd(1, true)
	}

	var cmd tea.Cmd
	before := c.searchInput.Value()
	c.searchInput, cmd = c.searchInput.Update(msg)
	if c.searchInput.Value() != before {
		c.searchGen++
		return c.wrapModel(), tea.Batch(cmd, searchTickCmd(c.searchGen, c.model.SearchDebounce()))
	}
	return c.wrapModel(), cmd
}

func (c *TUIController) handleFolderKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	folders := c.model.Folders()

	switch msg.String() {
	case "esc", "q", "f":
		c.mode = modeGrid

	case "up", "k":
		if c.folderCursor > 0 {
			c.folderCursor--
		}
	case "down", "j":
		if c.folderCursor < len(folders)-1 {
			c.folderCursor++
		}

	case "a":
		c.mode = modeFolderAdd
		c.addStep = 0
		c.pathInput.SetValue("")
		c.nameInput.SetValue("")
		c.pathInput.Focus()

	case "x":
		if c.folderCursor < len(folders) {
			f := folders[c.folderCursor]
			return c.wrapModel(), c.removeFolderCmd(f.Path)
		}
	}

	return c.wrapModel(), nil
}

func (c *TUIController) handleFolderAddKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		c.mode = modeFolders
		return c.wrapModel(), nil

	case "enter":
		if c.addStep == 0 {
			if strings.TrimSpace(c.pathInput.Value()) == "" {
				return c.wrapModel(), nil
			}
			c.addStep = 1
			c.pathInput.Blur()
			c.nameInput.Focus()
			return c.wrapModel(), nil
		}
		c.mode = modeFolders
		c.nameInput.Blur()
		return c.wrapModel(), c.addFolderCmd(
			strings.TrimSpace(c.pathInput.Value()),
			strings.TrimSpace(c.nameInput.Value()),
		)
	}

	var cmd tea.Cmd
	if c.addStep == 0 {
		c.pathInput, cmd = c.pathInput.Update(msg)
	} else {
		c.nameInput, cmd = c.nameInput.Update(msg)
	}
	return c.wrapModel(), cmd
}

func (c *TUIController) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		c.mode = modeGrid
		if it, ok := c.cursorItem(); ok {
			return c.wrapModel(), c.deleteCmd(it)
		}
	case "n", "esc":
		c.mode = modeGrid
	}
	return c.wrapModel(), nil
}

// applySearch installs the live search string: local filter only, scroll and
// window reset, state persisted.
func (c *TUIController) applySearch(value string) {
	if !c.model.Panel().SetSearch(value) {
		return
	}
	c.cursor = 0
	c.viewport.Reset()
	c.refreshGrid()
	c.model.SchedulePersist()
}

// selectCanonical moves the selection and cursor to the named item after a
// replace fetch, as when a pasted or uploaded image lands.
func (c *TUIController) selectCanonical(name string) {
	filtered := c.model.Panel().Filtered()
	for i, it := range filtered {
		if it.CanonicalName == name {
			c.model.Panel().SetSelection(gallery.SelectionState{
				CanonicalName: it.CanonicalName,
				SourceID:      it.SourceID,
			})
			c.cursor = i
			c.ensureCursorVisible(len(filtered))
			c.model.SchedulePersist()
			return
		}
	}
}

func (c *TUIController) moveCursor(delta int) (tea.Model, tea.Cmd) {
	filtered := c.model.Panel().Filtered()
	if len(filtered) == 0 {
		return c.wrapModel(), nil
	}
	c.cursor += delta
	if c.cursor < 0 {
		c.cursor = 0
	}
	if c.cursor >= len(filtered) {
		c.cursor = len(filtered) - 1
	}
	c.ensureCursorVisible(len(filtered))
	c.refreshGrid()

	// Fetch the next page before the cursor runs out of loaded items.
	panel := c.model.Panel()
	if panel.HasMorePages() && c.cursor >= len(filtered)-2*c.columns() {
		return c.wrapModel(), c.fetchCmd(panel.Page()+1, false)
	}
	return c.wrapModel(), nil
}

func (c *TUIController) ensureCursorVisible(itemCount int) {
	panel := c.model.Panel()
	m := gallery.ComputeMetrics(c.containerWidth(), panel.PreviewSize(), itemCount)
	row := c.cursor / m.Columns
	topRow := panel.Scroll() / m.RowHeight
	vis := c.visibleRows()
	switch {
	case row < topRow:
		panel.SetScroll(row * m.RowHeight)
	case row >= topRow+vis:
		panel.SetScroll((row - vis + 1) * m.RowHeight)
	}
}

// refreshGrid recomputes the visible window through the viewport. Cheap when
// nothing moved; the viewport no-ops on an unchanged window.
func (c *TUIController) refreshGrid() {
	panel := c.model.Panel()
	filtered := panel.Filtered()
	m := gallery.ComputeMetrics(c.containerWidth(), panel.PreviewSize(), len(filtered))
	c.metrics, _, _ = c.viewport.Render(gallery.Frame{
		Items:          filtered,
		Selection:      panel.Selection(),
		ScrollOffset:   panel.Scroll(),
		ViewportHeight: c.visibleRows() * m.RowHeight,
		ContainerWidth: c.containerWidth(),
		PreviewSize:    panel.PreviewSize(),
	})
}

func (c *TUIController) containerWidth() int {
	if c.width <= 0 {
		return 80 * charPxWidth
	}
	return c.width * charPxWidth
}

// visibleRows is how many grid rows fit in the terminal under the chrome.
func (c *TUIController) visibleRows() int {
	rows := c.height - 6
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (c *TUIController) columns() int {
	m := gallery.ComputeMetrics(c.containerWidth(), c.model.Panel().PreviewSize(), len(c.model.Panel().Filtered()))
	return m.Columns
}

func (c *TUIController) cursorItem() (gallery.ItemRecord, bool) {
	filtered := c.model.Panel().Filtered()
	if c.cursor < 0 || c.cursor >= len(filtered) {
		return gallery.ItemRecord{}, false
	}
	return filtered[c.cursor], true
}

func (c *TUIController) fetchCmd(page int, replace bool) tea.Cmd {
	m := c.model
	if !m.Panel().BeginFetch() {
		return nil
	}
	opts := m.PageOptions(page, m.Panel().Search())
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		p, err := m.client.FetchPage(ctx, opts)
		if err != nil {
			return fetchErrMsg{err}
		}
		return pageMsg{page: p, replace: replace}
	}
}

func (c *TUIController) foldersCmd() tea.Cmd {
	m := c.model
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		folders, err := m.client.Folders(ctx)
		if err != nil {
			return errMsg{err}
		}
		return foldersMsg{folders: folders}
	}
}

func (c *TUIController) loadStateCmd() tea.Cmd {
	m := c.model
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		st, err := m.RestoreState(ctx)
		if err != nil {
			// A fresh instance has nothing saved; start clean either way.
			return savedStateMsg{state: map[string]any{}}
		}
		return savedStateMsg{state: st}
	}
}

func (c *TUIController) pasteCmd() tea.Cmd {
	m := c.model
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := m.client.PasteFromClipboard(ctx)
		if err != nil {
			return errMsg{err}
		}
		return pastedMsg{saved: res.Saved}
	}
}

func (c *TUIController) deleteCmd(it gallery.ItemRecord) tea.Cmd {
	m := c.model
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := m.client.Delete(ctx, it.CanonicalName, it.SourceID); err != nil {
			return errMsg{err}
		}
		return deletedMsg{item: it}
	}
}

func (c *TUIController) addFolderCmd(path, name string) tea.Cmd {
	m := c.model
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := m.client.AddFolder(ctx, path, name); err != nil {
			return errMsg{err}
		}
		return statusMsg{note: "added folder " + path}
	}
}

func (c *TUIController) removeFolderCmd(path string) tea.Cmd {
	m := c.model
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := m.client.RemoveFolder(ctx, path); err != nil {
			return errMsg{err}
		}
		return statusMsg{note: "removed folder " + path}
	}
}

func (c *TUIController) refreshCmd() tea.Cmd {
	m := c.model
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := m.client.InvalidateCache(ctx); err != nil {
			return errMsg{err}
		}
		return statusMsg{note: "cache invalidated"}
	}
}
