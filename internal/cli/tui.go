package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pkglens/pkglens/pkg/registry"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// searchPickerModel - Incremental package search
// =============================================================================

// searchFunc queries the registry for packages matching text.
type searchFunc func(ctx context.Context, text string, size int) ([]registry.SearchResult, error)

// searchDebounceMsg fires after the debounce window for one input state.
// The id ties it to the keystroke generation that scheduled it.
type searchDebounceMsg struct {
	id    int
	query string
}

// searchResultsMsg delivers search results for a query.
type searchResultsMsg struct {
	query   string
	results []registry.SearchResult
	err     error
}

// searchPickerModel is the bubbletea model for incremental package search.
type searchPickerModel struct {
	input    textinput.Model
	spin     spinner.Model
	search   searchFunc
	size     int
	debounce time.Duration

	debounceID int
	lastQuery  string
	results    []registry.SearchResult
	cursor     int
	loading    bool
	err        error

	choice *registry.SearchResult
}

// newSearchPickerModel creates the picker. search runs at most once per
// settled input state.
func newSearchPickerModel(search searchFunc, size int, debounce time.Duration) searchPickerModel {
	input := textinput.New()
	input.Placeholder = "Type a package name..."
	input.CharLimit = 100
	input.Width = 44
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styleIconSpinner

	return searchPickerModel{
		input:    input,
		spin:     spin,
		search:   search,
		size:     size,
		debounce: debounce,
	}
}

func (m searchPickerModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

func (m searchPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down":
			if m.cursor < len(m.results)-1 {
				m.cursor++
			}
			return m, nil
		case "enter":
			if m.cursor < len(m.results) {
				choice := m.results[m.cursor]
				m.choice = &choice
				return m, tea.Quit
			}
			return m, nil
		}
	case searchDebounceMsg:
		// Stale timers carry an old id and are dropped.
		if msg.id == m.debounceID && msg.query != "" {
			m.loading = true
			return m, searchResultsCmd(m.search, msg.query, m.size)
		}
		return m, nil
	case searchResultsMsg:
		if msg.query == m.lastQuery {
			m.loading = false
			m.err = msg.err
			m.results = msg.results
			m.cursor = 0
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	query := strings.TrimSpace(m.input.Value())
	if query != m.lastQuery {
		m.lastQuery = query
		m.debounceID++
		if query == "" {
			m.results = nil
			m.cursor = 0
			m.loading = false
			m.err = nil
			return m, cmd
		}
		id := m.debounceID
		return m, tea.Batch(cmd, tea.Tick(m.debounce, func(time.Time) tea.Msg {
			return searchDebounceMsg{id: id, query: query}
		}))
	}
	return m, cmd
}

// searchResultsCmd performs the registry search off the update loop.
func searchResultsCmd(search searchFunc, query string, size int) tea.Cmd {
	return func() tea.Msg {
		results, err := search(context.Background(), query, size)
		return searchResultsMsg{query: query, results: results, err: err}
	}
}

func (m searchPickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Add a package"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("type to search  ↑/↓ navigate  ⏎ select  esc cancel"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spin.View() + listDimStyle.Render("Searching..."))
		b.WriteString("\n")
	case m.err != nil:
		b.WriteString(styleIconError.Render(iconError) + " " + StyleWarning.Render(m.err.Error()))
		b.WriteString("\n")
	case len(m.results) == 0 && m.lastQuery != "":
		b.WriteString(listDimStyle.Render("No packages found"))
		b.WriteString("\n")
	default:
		for i, r := range m.results {
			if i == m.cursor {
				line := "▸ " + r.Name
				if r.Version != "" {
					line += " " + r.Version
				}
				b.WriteString(listSelectedStyle.Render(line))
			} else {
				line := "  " + listNormalStyle.Render(r.Name)
				if r.Version != "" {
					line += " " + listDimStyle.Render(r.Version)
				}
				b.WriteString(line)
			}
			if r.Description != "" {
				b.WriteString("  " + listDimStyle.Render(truncate(r.Description, 48)))
			}
			b.WriteString("\n")
		}
	}

	if len(m.results) > 0 {
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.results))))
	}

	return b.String()
}

// runSearchPicker runs the incremental search TUI and returns the chosen
// package, or nil when the user cancelled.
func runSearchPicker(ws *workspace) (*registry.SearchResult, error) {
	model := newSearchPickerModel(ws.registry.Search, ws.cfg.Search.Size, ws.cfg.Search.Debounce.Std())
	p := tea.NewProgram(model)
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	final, ok := finalModel.(searchPickerModel)
	if !ok {
		return nil, nil
	}
	return final.choice, nil
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
