// Package tui is the interactive query shell behind `docindex shell`.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docindex/internal/adapter/analyzer"
	"docindex/internal/domain"
	"docindex/internal/port"
)

// Querier is the shell-facing subset of the engine.
type Querier interface {
	Query(ctx context.Context, req domain.QueryRequest) ([]domain.Result, error)
}

// Options fixes the query parameters for a shell session.
type Options struct {
	TopK           int
	NeighborWindow int
	DocumentID     string
	Timeout        time.Duration
	Summary        string
}

// Model is the Bubble Tea model of the shell.
type Model struct {
	engine    Querier
	opts      Options
	tokenizer port.Tokenizer
	input     textinput.Model
	viewport  viewport.Model
	results   []domain.Result
	status    string
	cursor    int
	ready     bool
	searching bool
	lastQuery string
}

// resultsMsg delivers the outcome of an asynchronous query.
type resultsMsg struct {
	query   string
	results []domain.Result
	err     error
}

func New(engine Querier, opts Options) Model {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a query and press Enter"
	ti.Focus()
	return Model{
		engine:    engine,
		opts:      opts,
		tokenizer: analyzer.NewTokenizer(true),
		input:     ti,
		viewport:  viewport.New(0, 0),
		status:    "Ready.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		// header, summary, status and one spacer line
		reserved := 4 + qh
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil

	case resultsMsg:
		m.searching = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.results = nil
		} else {
			m.status = fmt.Sprintf("%d results for %q", len(msg.results), msg.query)
			m.results = msg.results
			m.lastQuery = msg.query
		}
		m.cursor = 0
		m.viewport.SetContent(m.renderCurrentResult())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.searching {
				return m, nil
			}
			m.searching = true
			m.status = "Searching..."
			return m, m.search(q)
		case tea.KeyDown:
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
			}
			return m, nil
		case tea.KeyUp:
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderCurrentResult())
			}
			return m, nil
		case tea.KeyPgDown, tea.KeyPgUp:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) search(q string) tea.Cmd {
	engine, opts := m.engine, m.opts
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		defer cancel()
		results, err := engine.Query(ctx, domain.QueryRequest{
			Query:          q,
			TopK:           opts.TopK,
			DocumentID:     opts.DocumentID,
			NeighborWindow: opts.NeighborWindow,
		})
		return resultsMsg{query: q, results: results, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("docindex") + dimStyle.Render(fmt.Sprintf("  top_k=%d window=%d", m.opts.TopK, m.opts.NeighborWindow))
	summary := dimStyle.Render(m.opts.Summary)
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentResult() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	r := m.results[m.cursor]
	title := fmt.Sprintf("Result %d/%d  distance=%.4f  chunk=%d  document=%s",
		m.cursor+1, len(m.results), r.Distance, r.Index, shortID(r.DocumentID))
	body := m.highlight(r.Text)
	if m.viewport.Width > 0 {
		body = lipgloss.NewStyle().Width(m.viewport.Width).Render(body)
	}
	return titleStyle.Render(title) + "\n\n" + body
}

// highlight marks the words of text that share a stem with the last query.
func (m Model) highlight(text string) string {
	terms := make(map[string]struct{})
	for _, t := range m.tokenizer.Tokenize(m.lastQuery) {
		terms[t] = struct{}{}
	}
	if len(terms) == 0 {
		return text
	}

	words := strings.Fields(text)
	for i, w := range words {
		for _, t := range m.tokenizer.Tokenize(w) {
			if _, ok := terms[t]; ok {
				words[i] = highlightStyle.Render(w)
				break
			}
		}
	}
	return strings.Join(words, " ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Run starts the shell on the terminal and blocks until the user quits.
func Run(engine Querier, opts Options) error {
	_, err := tea.NewProgram(New(engine, opts), tea.WithAltScreen()).Run()
	return err
}
