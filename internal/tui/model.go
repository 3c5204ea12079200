package tui

import (
	"context"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"courserag/internal/domain"
)

// AssistantPort is the TUI-facing subset of the RAG system.
type AssistantPort interface {
	NewSession() string
	Query(ctx context.Context, sessionID, query string) (domain.Answer, error)
}

type exchange struct {
	query  string
	answer domain.Answer
	err    error
}

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	assistant AssistantPort
	sessionID string
	input     textinput.Model
	viewport  viewport.Model
	exchanges []exchange
	summary   string
	status    string
	waiting   bool
	ready     bool
}

type answerMsg exchange

// New creates a chat model. The summary line describes the loaded corpus.
func New(assistant AssistantPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the courses and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		assistant: assistant,
		sessionID: assistant.NewSession(),
		input:     ti,
		viewport:  vp,
		summary:   summary,
		status:    "Ready. Ask a question.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, status, input box, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = maxInt(3, vh-rh)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case answerMsg:
		m.waiting = false
		m.exchanges = append(m.exchanges, exchange(msg))
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else if msg.answer.ToolLoopExceeded {
			m.status = "Answered (search budget reached)."
		} else {
			m.status = "Answered."
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.waiting {
				m.input.SetValue("")
				m.waiting = true
				m.status = "Thinking..."
				return m, m.ask(q)
			}
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(query string) tea.Cmd {
	assistant, sessionID := m.assistant, m.sessionID
	return func() tea.Msg {
		answer, err := assistant.Query(context.Background(), sessionID, query)
		return answerMsg{query: query, answer: answer, err: err}
	}
}

// View renders the TUI layout and transcript.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Course Materials Assistant")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.exchanges) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, ex := range m.exchanges {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(userStyle.Render("You: ") + ex.query + "\n")
		if ex.err != nil {
			b.WriteString(errorStyle.Render("Error: " + ex.err.Error()))
			continue
		}
		b.WriteString(ex.answer.Text)
		if len(ex.answer.Sources) > 0 {
			b.WriteString("\n" + sourceStyle.Render("Sources: "+renderSources(ex.answer.Sources, ex.query)))
		}
	}
	return b.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe      = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// renderSources deduplicates citations and highlights those whose course
// title shares tokens with the query.
func renderSources(citations []domain.Citation, query string) string {
	qTokens := toTokenSet(query)
	var parts []string
	seen := map[string]bool{}
	for _, c := range citations {
		label := c.Display()
		if seen[label] {
			continue
		}
		seen[label] = true
		if tokenOverlapScore(qTokens, c.CourseTitle) > 0 {
			label = highlightStyle.Render(label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, ", ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, text string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
