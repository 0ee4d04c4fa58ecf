package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pdfrag/internal/domain"
	"pdfrag/internal/service"
)

// RAGPort is the TUI-facing subset of the RAG service.
type RAGPort interface {
	Ingest(ctx context.Context, folder string) (int, error)
	Ask(ctx context.Context, query string, k int) (*service.Answer, error)
}

// Highlighter picks the sentence of text that best matches query.
type Highlighter interface {
	BestSentence(query, text string) string
}

const ingestCommand = "/ingest"

type ingestDoneMsg struct {
	folder string
	chunks int
	err    error
}

type answerMsg struct {
	query  string
	answer *service.Answer
	err    error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx         context.Context
	service     RAGPort
	highlighter Highlighter
	topK        int

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	hits      []domain.Hit
	answer    string
	gist      string
	status    string
	cursor    int
	busy      bool
	ready     bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(ctx context.Context, svc RAGPort, highlighter Highlighter, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or /ingest <folder>"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:         ctx,
		service:     svc,
		highlighter: highlighter,
		topK:        topK,
		input:       ti,
		viewport:    viewport.New(0, 0),
		spinner:     sp,
		status:      "Ready. Ask a question or /ingest a folder.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + gist, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderCurrentResult())
		return m, nil

	case ingestDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else if msg.chunks == 0 {
			m.status = fmt.Sprintf("No PDFs found in %s.", msg.folder)
		} else {
			m.status = fmt.Sprintf("Ingested %s: %d chunks.", msg.folder, msg.chunks)
		}
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.hits, m.answer, m.gist = nil, "", ""
		} else {
			m.status = fmt.Sprintf("%d passages for %q", len(msg.answer.Hits), msg.query)
			m.hits = msg.answer.Hits
			m.answer = msg.answer.Text
			m.gist = msg.answer.Gist
			m.cursor = 0
			m.lastQuery = msg.query
		}
		m.viewport.SetContent(m.renderCurrentResult())
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			m.busy = true
			if folder, ok := parseIngest(line); ok {
				m.status = "Ingesting " + folder + "..."
				return m, tea.Batch(m.spinner.Tick, m.ingest(folder))
			}
			m.status = "Searching..."
			return m, tea.Batch(m.spinner.Tick, m.ask(line))
		case "down":
			if len(m.hits) > 0 {
				m.cursor = (m.cursor + 1) % len(m.hits)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "up":
			if len(m.hits) > 0 {
				m.cursor = (m.cursor - 1 + len(m.hits)) % len(m.hits)
				m.viewport.SetContent(m.renderCurrentResult())
				return m, nil
			}
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func parseIngest(line string) (string, bool) {
	if line != ingestCommand && !strings.HasPrefix(line, ingestCommand+" ") {
		return "", false
	}
	folder := strings.TrimSpace(strings.TrimPrefix(line, ingestCommand))
	if folder == "" {
		folder = "."
	}
	return folder, true
}

func (m Model) ingest(folder string) tea.Cmd {
	return func() tea.Msg {
		n, err := m.service.Ingest(m.ctx, folder)
		return ingestDoneMsg{folder: folder, chunks: n, err: err}
	}
}

func (m Model) ask(query string) tea.Cmd {
	return func() tea.Msg {
		ans, err := m.service.Ask(m.ctx, query, m.topK)
		return answerMsg{query: query, answer: ans, err: err}
	}
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("PDF RAG")
	gist := m.gist
	if gist == "" {
		gist = "No gist yet."
	}
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(gist)
	input := queryBoxStyle.Render(m.input.View())
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	statusLine := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + statusLine
}

func (m Model) renderCurrentResult() string {
	if len(m.hits) == 0 {
		if m.answer != "" {
			return "No passages retrieved.\n\n" + answerTitleStyle.Render("Answer") + "\n" + m.answer
		}
		return "No results yet."
	}
	h := m.hits[m.cursor]
	title := fmt.Sprintf("Result %d/%d  %s#%d  score=%.3f", m.cursor+1, len(m.hits), h.Source, h.Ordinal, h.Distance)
	body := m.highlight(h.Text)
	return title + "\n\n" + body + "\n\n" + answerTitleStyle.Render("Answer") + "\n" + m.answer
}

func (m Model) highlight(text string) string {
	if m.highlighter == nil || m.lastQuery == "" {
		return text
	}
	best := m.highlighter.BestSentence(m.lastQuery, text)
	if best == "" {
		return text
	}
	return strings.Replace(text, best, highlightStyle.Render(best), 1)
}

var (
	resultBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	answerTitleStyle = lipgloss.NewStyle().Underline(true)
)

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, svc RAGPort, highlighter Highlighter, topK int) error {
	_, err := tea.NewProgram(New(ctx, svc, highlighter, topK), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
