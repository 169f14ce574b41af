// Package tui mounts the chat client as a toggleable terminal widget: a
// bubbletea model that renders the conversation, dispatches sends in the
// background, and reports its open/closed geometry through the embedding
// host.
package tui

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/jiminy/pkg/chatclient"
	"github.com/go-go-golems/jiminy/pkg/host"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	launcherStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Padding(0, 1)
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const refreshInterval = 80 * time.Millisecond

type refreshMsg struct{}
type sendFinishedMsg struct{}

type Config struct {
	Client *chatclient.Client
	Host   *host.Host
	Title  string
}

// Model is the widget's bubbletea model.
type Model struct {
	client *chatclient.Client
	host   *host.Host
	title  string

	input    textinput.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool
}

func New(cfg Config) Model {
	in := textinput.New()
	in.Placeholder = "Ask a question..."
	in.CharLimit = 2000
	in.Focus()
	title := cfg.Title
	if title == "" {
		title = "Ask the docs"
	}
	return Model{
		client: cfg.Client,
		host:   cfg.Host,
		title:  title,
		input:  in,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// The widget claims the terminal while open; tell the parent context.
		m.host.SetOpenSize(host.Size{Width: msg.Width, Height: msg.Height})
		m.layout()
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+o":
			m.host.Toggle()
			m.refreshViewport()
			return m, nil
		case "ctrl+x":
			// Clear is the only way conversation state is ever reset; any
			// reveal loop over the old log stops on its next step.
			m.client.Clear()
			m.refreshViewport()
			return m, nil
		case "enter":
			query := strings.TrimSpace(m.input.Value())
			if query == "" || m.client.Busy() || !m.host.Open() {
				return m, nil
			}
			m.input.Reset()
			return m, tea.Batch(m.sendCmd(query), refreshTick())
		}

	case refreshMsg:
		m.refreshViewport()
		if m.client.Busy() {
			return m, refreshTick()
		}
		return m, nil

	case sendFinishedMsg:
		m.refreshViewport()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.host.Open() {
		return launcherStyle.Render("● " + m.title + " — ctrl+o to open")
	}
	if !m.ready {
		return "loading..."
	}
	status := ""
	if m.client.Busy() {
		status = " · thinking"
	}
	header := titleStyle.Render(m.title) + sourceStyle.Render(status)
	help := helpStyle.Render("enter send · ctrl+x clear · ctrl+o close · esc quit")
	return header + "\n" + m.viewport.View() + "\n" + m.input.View() + "\n" + help
}

func (m *Model) sendCmd(query string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		client.Send(context.Background(), query)
		return sendFinishedMsg{}
	}
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m *Model) layout() {
	chrome := 3 // header, input, help
	h := m.height - chrome
	if h < 1 {
		h = 1
	}
	if !m.ready {
		m.viewport = viewport.New(m.width, h)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = h
	}
	m.input.Width = m.width - 4
	if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(m.width)); err == nil {
		m.renderer = r
	}
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderConversation())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderConversation() string {
	msgs := m.client.Store().Messages()
	if len(msgs) == 0 {
		return sourceStyle.Render("No messages yet.")
	}
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Role {
		case chatclient.RoleUser:
			b.WriteString(userStyle.Render("You") + "\n" + msg.Text + "\n")
		default:
			b.WriteString(assistantStyle.Render("Assistant") + "\n")
			b.WriteString(m.renderAnswer(msg))
		}
	}
	return b.String()
}

// renderAnswer renders the assistant text as markdown when a renderer is
// available and appends a numbered source list with resolved links. Citation
// links are usable even while the text is still being revealed.
func (m *Model) renderAnswer(msg chatclient.Message) string {
	text := msg.Text
	if m.renderer != nil {
		if out, err := m.renderer.Render(text); err == nil {
			text = strings.Trim(out, "\n") + "\n"
		} else {
			text += "\n"
		}
	} else {
		text += "\n"
	}
	if len(msg.Citations) == 0 {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	b.WriteString(sourceStyle.Render("Sources:") + "\n")
	for i, cit := range msg.Citations {
		line := "  [" + strconv.Itoa(i+1) + "] " + cit.DisplayTitle()
		if href, ok := m.client.ResolveCitation(cit); ok {
			line += " — " + href
		}
		b.WriteString(sourceStyle.Render(line) + "\n")
	}
	return b.String()
}
