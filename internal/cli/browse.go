package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mkowalczyk/gantry/internal/cli/formatter"
	"github.com/mkowalczyk/gantry/internal/domain"
)

func newBrowseCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the work breakdown tree interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.Interactive {
				return fmt.Errorf("browse needs a terminal")
			}
			ctx := context.Background()
			projectID, err := resolveProjectID(ctx, app, project)
			if err != nil {
				return err
			}
			model := newBrowseModel(app, projectID)
			_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project ID or name")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

// browseRow is one flattened line of the tree.
type browseRow struct {
	task       *domain.Task
	depth      int
	isLast     bool
	childCount int
}

// treeLoadedMsg signals that tree data has been (re)loaded.
type treeLoadedMsg struct {
	roots    []*domain.Task
	childMap map[string][]*domain.Task
	err      error
}

type browseKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	Filter  key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

var browseKeys = browseKeyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "collapse/expand")),
	Filter:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

type browseModel struct {
	app       *App
	projectID string

	roots     []*domain.Task
	childMap  map[string][]*domain.Task
	rows      []browseRow
	cursor    int
	collapsed map[string]bool

	filter    textinput.Model
	filtering bool

	loading bool
	err     error
}

func newBrowseModel(app *App, projectID string) *browseModel {
	ti := textinput.New()
	ti.Placeholder = "filter tasks"
	ti.CharLimit = 60

	return &browseModel{
		app:       app,
		projectID: projectID,
		collapsed: make(map[string]bool),
		filter:    ti,
		loading:   true,
	}
}

func (m *browseModel) Init() tea.Cmd {
	return m.loadTree
}

func (m *browseModel) loadTree() tea.Msg {
	roots, childMap, err := loadTree(context.Background(), m.app, m.projectID)
	return treeLoadedMsg{roots: roots, childMap: childMap, err: err}
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case treeLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.roots = msg.roots
			m.childMap = msg.childMap
			m.rebuildRows()
		}
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			switch msg.String() {
			case "enter", "esc":
				m.filtering = false
				m.filter.Blur()
				m.rebuildRows()
				return m, nil
			default:
				var cmd tea.Cmd
				m.filter, cmd = m.filter.Update(msg)
				m.rebuildRows()
				return m, cmd
			}
		}

		switch {
		case key.Matches(msg, browseKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, browseKeys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, browseKeys.Down):
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case key.Matches(msg, browseKeys.Toggle):
			if m.cursor < len(m.rows) {
				row := m.rows[m.cursor]
				if row.childCount > 0 {
					m.collapsed[row.task.ID] = !m.collapsed[row.task.ID]
					m.rebuildRows()
				}
			}
		case key.Matches(msg, browseKeys.Filter):
			m.filtering = true
			m.filter.Focus()
			return m, textinput.Blink
		case key.Matches(msg, browseKeys.Refresh):
			m.loading = true
			return m, m.loadTree
		}
	}
	return m, nil
}

// rebuildRows flattens the tree honoring collapse state and the filter.
// Filtering matches titles case-insensitively and keeps matching tasks
// with their full ancestor chain.
func (m *browseModel) rebuildRows() {
	m.rows = m.rows[:0]
	query := strings.ToLower(strings.TrimSpace(m.filter.Value()))

	var walk func(tasks []*domain.Task, depth int)
	walk = func(tasks []*domain.Task, depth int) {
		for i, t := range tasks {
			children := m.childMap[t.ID]
			if query != "" && !m.subtreeMatches(t, query) {
				continue
			}
			m.rows = append(m.rows, browseRow{
				task:       t,
				depth:      depth,
				isLast:     i == len(tasks)-1,
				childCount: len(children),
			})
			if !m.collapsed[t.ID] {
				walk(children, depth+1)
			}
		}
	}
	walk(m.roots, 0)

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *browseModel) subtreeMatches(t *domain.Task, query string) bool {
	if strings.Contains(strings.ToLower(t.Title), query) {
		return true
	}
	for _, c := range m.childMap[t.ID] {
		if m.subtreeMatches(c, query) {
			return true
		}
	}
	return false
}

func (m *browseModel) View() string {
	if m.loading {
		return formatter.Dim("Loading...")
	}
	if m.err != nil {
		return formatter.StyleRed.Render(fmt.Sprintf("Error: %v", m.err))
	}

	var b strings.Builder
	b.WriteString(formatter.Header("Work Breakdown") + "\n\n")

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View() + "\n\n")
	}

	if len(m.rows) == 0 {
		b.WriteString(formatter.Dim("No tasks.") + "\n")
	}

	for i, row := range m.rows {
		items := []formatter.TreeItem{{
			Title:    row.task.Title,
			Level:    row.depth,
			IsLast:   row.isLast,
			Status:   string(row.task.Status),
			Progress: row.task.Progress,
		}}
		line := strings.TrimRight(formatter.RenderTree(items), "\n")
		if row.childCount > 0 && m.collapsed[row.task.ID] {
			line += formatter.Dim(fmt.Sprintf(" (+%d)", row.childCount))
		}
		if i == m.cursor {
			line = formatter.StyleHeader.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + formatter.Dim("↑/↓ move · enter collapse · / filter · r refresh · q quit"))
	return b.String()
}
