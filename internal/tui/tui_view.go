package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mattn/go-runewidth"

	"imagegallery/internal/gallery"
)

// textAdapter is the terminal implementation of gallery.ViewAdapter. It only
// stores what the viewport materialized; drawing happens in the view pass.
type textAdapter struct {
	leading   int
	trailing  int
	cells     []gallery.Cell
	empty     bool
	scrollTop int
}

func (a *textAdapter) RenderCells(leadingSpacer int, cells []gallery.Cell, trailingSpacer int) {
	a.leading = leadingSpacer
	a.cells = cells
	a.trailing = trailingSpacer
	a.empty = false
}

func (a *textAdapter) RenderEmpty() {
	a.leading = 0
	a.trailing = 0
	a.cells = nil
	a.empty = true
}

func (a *textAdapter) SetScrollTop(offset int) {
	a.scrollTop = offset
}

type TUIView struct {
	styles uiStyles
	width  int
	height int
}

type uiStyles struct {
	header  lipgloss.Style
	cell    lipgloss.Style
	sel     lipgloss.Style
	cursor  lipgloss.Style
	status  lipgloss.Style
	dim     lipgloss.Style
	errText lipgloss.Style
}

func NewTUIView() *TUIView {
	return &TUIView{
		styles: uiStyles{
			header:  lipgloss.NewStyle().Bold(true),
			cell:    lipgloss.NewStyle(),
			sel:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
			cursor:  lipgloss.NewStyle().Reverse(true),
			status:  lipgloss.NewStyle().Faint(true),
			dim:     lipgloss.NewStyle().Faint(true),
			errText: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		},
	}
}

func (v *TUIView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

func (v *TUIView) View(model *TUIModel, controller *TUIController) string {
	if v.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(v.renderHeader(model))
	b.WriteString("\n")

	switch controller.mode {
	case modeHelp:
		b.WriteString(v.helpView())
		return b.String()
	case modeFolders, modeFolderAdd:
		b.WriteString(v.foldersView(model, controller))
		return b.String()
	case modeConfirmDelete:
		b.WriteString(v.confirmView(controller))
		return b.String()
	}

	if controller.mode == modeSearch {
		b.WriteString(v.searchView(model, controller))
		b.WriteString("\n")
	}

	b.WriteString(v.renderGrid(model, controller))
	b.WriteString("\n")
	b.WriteString(v.renderStatus(model, controller))
	return b.String()
}

func (v *TUIView) renderHeader(model *TUIModel) string {
	panel := model.Panel()
	source := panel.Source()
	switch source {
	case "":
		source = "input"
	case gallery.SourceAll:
		source = "all folders"
	}
	line := fmt.Sprintf("Image Gallery  •  source:%s  sort:%s  filter:%s  size:%d",
		source, panel.Sort(), panel.MetadataFilter(), panel.PreviewSize())
	if panel.Search() != "" {
		line += fmt.Sprintf("  search:%q", panel.Search())
	}
	if panel.Loading() {
		line += "  loading…"
	}
	return v.styles.header.Render(line)
}

func (v *TUIView) renderGrid(model *TUIModel, controller *TUIController) string {
	a := controller.adapter
	if a.empty {
		if model.Panel().Search() != "" {
			return v.styles.dim.Render("No images match the current search.")
		}
		return v.styles.dim.Render("No images found. Press p to paste or f to manage folders.")
	}

	cols := controller.metrics.Columns
	if cols < 1 {
		cols = 1
	}
	cellChars := model.Panel().PreviewSize() / charPxWidth
	if cellChars < 8 {
		cellChars = 8
	}

	var b strings.Builder
	for i, cell := range a.cells {
		label := padTruncate(cell.Item.DisplayName, cellChars)
		style := v.styles.cell
		if cell.Selected {
			style = v.styles.sel
		}
		if cell.Index == controller.cursor {
			style = v.styles.cursor
		}
		b.WriteString(style.Render(label))
		if (i+1)%cols == 0 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	out := b.String()
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}

func (v *TUIView) renderStatus(model *TUIModel, controller *TUIController) string {
	panel := model.Panel()
	filtered := panel.Filtered()
	parts := []string{fmt.Sprintf("%d images", len(filtered))}
	if panel.TotalPages() > 1 {
		parts = append(parts, fmt.Sprintf("page %d/%d", panel.Page(), panel.TotalPages()))
	}
	if it, ok := controller.cursorItem(); ok && it.Size > 0 {
		parts = append(parts, fmt.Sprintf("%s (%s)", it.DisplayName, humanize.Bytes(uint64(it.Size))))
	}
	line := strings.Join(parts, "  •  ")
	if controller.status != "" {
		line += "   " + v.styles.errText.Render(controller.status)
	}
	keys := "/:search  enter:select  s:sort  t:filter  tab:source  +/-:zoom  p:paste  x:delete  f:folders  ?:help  q:quit"
	return v.styles.status.Render(line) + "\n" + v.styles.dim.Render(keys)
}

func (v *TUIView) searchView(model *TUIModel, controller *TUIController) string {
	var b strings.Builder
	b.WriteString(controller.searchInput.View())
	query := strings.TrimSpace(controller.searchInput.Value())
	if query == "" {
		return b.String()
	}

	// Fuzzy suggestions help recover from partial or misspelled names; the
	// filter itself stays an exact substring match.
	names := make([]string, 0, len(model.Panel().Items()))
	for _, it := range model.Panel().Items() {
		names = append(names, it.DisplayName)
	}
	ranks := fuzzy.RankFindNormalizedFold(query, names)
	if len(ranks) == 0 {
		return b.String()
	}
	if len(ranks) > 3 {
		ranks = ranks[:3]
	}
	var suggestions []string
	for _, r := range ranks {
		suggestions = append(suggestions, r.Target)
	}
	b.WriteString("\n")
	b.WriteString(v.styles.dim.Render("close matches: " + strings.Join(suggestions, ", ")))
	return b.String()
}

func (v *TUIView) foldersView(model *TUIModel, controller *TUIController) string {
	var b strings.Builder
	b.WriteString("Source Folders\n\n")
	for i, f := range model.Folders() {
		style := v.styles.cell
		if i == controller.folderCursor {
			style = v.styles.cursor
		}
		label := fmt.Sprintf("%-20s %s", f.Name, f.Path)
		if f.IsDefault {
			label += "  (default)"
		}
		b.WriteString(style.Render(label))
		b.WriteString("\n")
	}

	if controller.mode == modeFolderAdd {
		b.WriteString("\nAdd folder\n")
		if controller.addStep == 0 {
			b.WriteString("Path: " + controller.pathInput.View())
		} else {
			b.WriteString("Name: " + controller.nameInput.View())
		}
		b.WriteString("\n" + v.styles.dim.Render("enter:next  esc:back"))
	} else {
		b.WriteString("\n" + v.styles.dim.Render("a:add  x:remove  esc:back"))
	}
	return b.String()
}

func (v *TUIView) confirmView(controller *TUIController) string {
	it, ok := controller.cursorItem()
	if !ok {
		return ""
	}
	return fmt.Sprintf("Delete %s from %s? This removes the file on disk.\n\n%s",
		it.DisplayName, it.SourceID, v.styles.dim.Render("y:delete  n:cancel"))
}

func (v *TUIView) helpView() string {
	return `
Image Gallery Help

Navigation:
  ←/h →/l     Move across a row
  ↑/k ↓/j     Move between rows
  enter/space Toggle selection
  c           Clear selection

Filtering:
  /           Search (debounced while typing, enter asks the server)
  s           Cycle sort: name → date → date_asc
  t           Cycle metadata filter: all → with → without
  tab         Cycle source folder

Actions:
  +/-         Grow / shrink preview cells
  p           Paste image path from clipboard
  x           Delete the highlighted image
  f           Manage source folders
  r           Refresh (drop server caches)
  q           Quit
  ?           Toggle help
`
}

// padTruncate fits a label into a fixed cell width in terminal columns.
// Display-width aware, so wide runes never split and columns stay aligned.
func padTruncate(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}
