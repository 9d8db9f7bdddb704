package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chapi192/SpotifyMatcher/internal/formatter"
	"github.com/chapi192/SpotifyMatcher/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SyncView ViewState = iota
	ResultView
)

// SyncFunc runs one sync, reporting progress on the channel. It must not close the channel.
type SyncFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	view         ViewState
	run          SyncFunc
	width        int
	height       int
	spinner      spinner.Model
	bar          progress.Model
	changed      list.Model
	progressChan chan tasks.ProgressUpdate
	done         chan syncOutcome
	finished     chan struct{}
	progress     tasks.ProgressUpdate
	log          []string
	result       *tasks.SyncResult
	err          error
	help         help.Model
	keys         keyMap
}

const logLines = 5

// NewModel creates a new TUI model that runs sync when started.
func NewModel(ctx context.Context, sync SyncFunc) *Model {
	ctx, cancel := context.WithCancel(ctx)
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = NewStyle("#1DB954")

	return &Model{
		ctx:     ctx,
		cancel:  cancel,
		view:    SyncView,
		run:     sync,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Result returns the finished sync result and error. Both are nil until the sync completes.
func (m *Model) Result() (*tasks.SyncResult, error) {
	if m.result == nil && m.err == nil && m.done != nil {
		select {
		case outcome := <-m.done:
			m.result, m.err = outcome.result, outcome.err
		default:
		}
	}
	return m.result, m.err
}

// Wait blocks until a started sync has returned.
func (m *Model) Wait() {
	if m.finished != nil {
		<-m.finished
	}
}

// Init starts the spinner and the sync.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startSync())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(max(msg.Width-4, 10), 80)
		if m.view == ResultView {
			m.changed.SetSize(msg.Width-4, max(msg.Height-16, 12))
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.cancel()
			return m, tea.Quit
		}
		if m.view == ResultView {
			var cmd tea.Cmd
			m.changed, cmd = m.changed.Update(msg)
			return m, cmd
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != SyncView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			update := msg.data.(tasks.ProgressUpdate)
			m.progress = update
			m.log = append(m.log, update.Message)
			if len(m.log) > logLines {
				m.log = m.log[len(m.log)-logLines:]
			}
			return m, m.waitForProgress()

		case MsgSyncComplete:
			outcome := msg.data.(syncOutcome)
			m.result = outcome.result
			m.err = outcome.err
			m.view = ResultView
			m.showChanged()
			return m, nil
		}
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) startSync() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.done = make(chan syncOutcome, 1)
	m.finished = make(chan struct{})

	go func(progress chan tasks.ProgressUpdate, done chan<- syncOutcome, finished chan struct{}) {
		defer close(finished)
		result, err := m.run(m.ctx, progress)
		done <- syncOutcome{result: result, err: err}
		close(progress)
	}(m.progressChan, m.done, m.finished)

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			outcome := <-done
			return syncCompleteMsg(outcome.result, outcome.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) showChanged() {
	var items []list.Item
	if m.result != nil {
		items = changedItems(m.result.Snapshot, m.result.Changed)
	}
	m.changed = list.New(items, list.NewDefaultDelegate(), max(m.width-4, 20), max(m.height-16, 12))
	m.changed.Title = "Re-fetched playlists"
	m.changed.SetShowHelp(false)
}

func (m *Model) percent() float64 {
	if m.progress.Total <= 0 {
		return 0
	}
	return min(float64(m.progress.Step)/float64(m.progress.Total), 1)
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Syncing library")
	status := fmt.Sprintf("%s %s", m.spinner.View(), m.progress.Phase)

	var lines string
	for _, line := range m.log {
		lines += "\n" + styles.help.Render(line)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s\n%s\n\n%s", title, status, m.bar.ViewAs(m.percent()), lines, helpView)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.quit})

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err)), helpView)
	}
	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	title := styles.ok.Render("✓ Sync complete")
	summary := formatter.SyncSummary(m.result)

	body := styles.warn.Render("No playlists changed")
	if len(m.changed.Items()) > 0 {
		body = m.changed.View()
	}
	return fmt.Sprintf("%s\n\n%s\n%s\n\n%s", title, summary, body, helpView)
}
