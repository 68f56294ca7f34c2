package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"imagegallery/internal/client"
	"imagegallery/internal/config"
	"imagegallery/internal/gallery"
	"imagegallery/internal/logging"
)

type model struct {
	tuiModel      *TUIModel
	tuiView       *TUIView
	tuiController *TUIController
}

type searchTickMsg struct{ gen int }

type pageMsg struct {
	page    client.Page
	replace bool
}

type foldersMsg struct{ folders []client.Folder }

type savedStateMsg struct{ state map[string]any }

type statusMsg struct{ note string }

type pastedMsg struct{ saved []string }

type deletedMsg struct{ item gallery.ItemRecord }

type errMsg struct{ err error }

// fetchErrMsg is reported only by page fetches; unlike errMsg it releases the
// panel's in-flight guard.
type fetchErrMsg struct{ err error }

// New creates the gallery TUI as a tea.Model. It orchestrates the MVC
// components: TUIModel, TUIView, and TUIController.
func New(cfg *config.Config, cl *client.Client, log *logging.Logger) tea.Model {
	tuiModel := NewTUIModel(cfg, cl, log)
	tuiView := NewTUIView()
	tuiController := NewTUIController(tuiModel, tuiView)

	return &model{
		tuiModel:      tuiModel,
		tuiView:       tuiView,
		tuiController: tuiController,
	}
}

func (m *model) Init() tea.Cmd {
	return m.tuiController.Init()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m.tuiController.Update(msg)
}

func (m *model) View() string {
	return m.tuiView.View(m.tuiModel, m.tuiController)
}

func searchTickCmd(gen int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return searchTickMsg{gen: gen} })
}
