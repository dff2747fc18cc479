package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"deptree/internal/app"
	"deptree/internal/resolver"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	cycleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	unresolvedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
	isCycle     bool
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list       list.Model
	cycles     [][]string
	unresolved []resolver.Resolution
	lastUpdate time.Time
	nodeCount  int
	fileCount  int
}

type updateMsg struct {
	cycles     [][]string
	unresolved []resolver.Resolution
	nodeCount  int
	fileCount  int
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case updateMsg:
		m.cycles = msg.cycles
		m.unresolved = msg.unresolved
		m.nodeCount = msg.nodeCount
		m.fileCount = msg.fileCount
		m.lastUpdate = time.Now()

		items := []list.Item{}
		for _, c := range m.cycles {
			items = append(items, item{
				title:   "Circular Import",
				desc:    strings.Join(c, " -> "),
				isCycle: true,
			})
		}
		for _, u := range m.unresolved {
			items = append(items, item{
				title:   "Unresolved Import (" + u.Reason.String() + ")",
				desc:    fmt.Sprintf("%s in %s:%d", u.Target, u.FromPath, u.Import.Line),
				isCycle: false,
			})
		}
		m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d files | %d modules",
		m.lastUpdate.Format("15:04:05"), m.fileCount, m.nodeCount))

	var summary string
	if len(m.cycles) == 0 && len(m.unresolved) == 0 {
		summary = successStyle.Render("✅ Graph Clean")
	} else {
		summary = fmt.Sprintf("⚠️  %s | %s",
			cycleStyle.Render(fmt.Sprintf("%d Cycles", len(m.cycles))),
			unresolvedStyle.Render(fmt.Sprintf("%d Unresolved", len(m.unresolved))))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Import Dependency Monitor"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel() model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Detected Issues"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		lastUpdate: time.Now(),
	}
}

func reportMsg(r *app.Report) updateMsg {
	return updateMsg{
		cycles:     r.Cycles.Cycles,
		unresolved: r.Unresolved,
		nodeCount:  r.Graph.NodeCount(),
		fileCount:  r.Stats.Files,
	}
}

// runUI drives the watch loop through a bubbletea program. Every fresh
// report is pushed into the model as an updateMsg.
func runUI(ctx context.Context, a *app.App, initial *app.Report) error {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())

	if err := a.StartWatcher(ctx, func(r *app.Report) {
		p.Send(reportMsg(r))
	}); err != nil {
		return err
	}

	go func() {
		p.Send(reportMsg(initial))
	}()

	_, err := p.Run()
	return err
}
