package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/campusai/campus/pkg/cliui"
	"github.com/campusai/campus/pkg/llm"
)

const inputHeight = 3

type chatKeyMap struct {
	Send  key.Binding
	Stop  key.Binding
	Reset key.Binding
	Quit  key.Binding
}

func (k chatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Stop, k.Reset, k.Quit}
}

func (k chatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultKeyMap() chatKeyMap {
	return chatKeyMap{
		Send:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Stop:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "stop reply")),
		Reset: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "new chat")),
		Quit:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

type (
	// deltaMsg signals that the streaming turn grew; content is read from
	// the view.
	deltaMsg struct{}

	turnDoneMsg struct{ err error }
)

type chatModel struct {
	ctx   context.Context
	cmder *chatCommander

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model
	keys     chatKeyMap

	events     chan bubbletea.Msg
	cancelTurn context.CancelFunc
	streaming  bool
	status     string

	// rendered caches glamour output by raw assistant content.
	rendered map[string]string

	width int
	ready bool
}

func runTUI(ctx context.Context, c *chatCommander) error {
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)

	program := bubbletea.NewProgram(newChatModel(ctx, c),
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	_, err := program.Run()
	if errors.Is(err, bubbletea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func newChatModel(ctx context.Context, c *chatCommander) chatModel {
	ta := textarea.New()
	ta.Placeholder = "Ask anything..."
	ta.Prompt = "┃ "
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = cliui.AssistantRoleStyle

	return chatModel{
		ctx:      ctx,
		cmder:    c,
		viewport: viewport.New(cliui.DefaultWrap, 20),
		input:    ta,
		spinner:  sp,
		help:     help.New(),
		keys:     defaultKeyMap(),
		rendered: map[string]string{},
		width:    cliui.DefaultWrap,
	}
}

func (m chatModel) Init() bubbletea.Cmd {
	return textarea.Blink
}

func (m chatModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-inputHeight-4, 1)
		m.input.SetWidth(msg.Width)
		m.ready = true
		m.refresh()
		return m, nil

	case deltaMsg:
		m.refresh()
		return m, waitForEvent(m.events)

	case turnDoneMsg:
		m.streaming = false
		m.cancelTurn = nil
		m.events = nil
		if msg.err != nil {
			m.status = errorText(msg.err)
		} else {
			m.status = ""
			m.cmder.save()
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.cancelTurn != nil {
			m.cancelTurn()
		}
		return m, bubbletea.Quit

	case key.Matches(msg, m.keys.Stop):
		if m.cancelTurn != nil {
			m.cancelTurn()
		}
		return m, nil

	case key.Matches(msg, m.keys.Reset):
		if m.streaming {
			return m, nil
		}
		if err := m.cmder.reset(); err != nil {
			m.status = err.Error()
		} else {
			m.status = ""
			m.rendered = map[string]string{}
		}
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Send):
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.streaming {
			return m, nil
		}
		m.input.Reset()
		return m.startTurn(text)

	case msg.String() == "pgup" || msg.String() == "pgdown":
		var cmd bubbletea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startTurn sends text in the background. Deltas are coalesced: the stream
// goroutine only signals that the view changed.
func (m chatModel) startTurn(text string) (chatModel, bubbletea.Cmd) {
	ctx, cancel := context.WithCancel(m.ctx)
	events := make(chan bubbletea.Msg, 1)

	m.cancelTurn = cancel
	m.events = events
	m.streaming = true
	m.status = ""

	c := m.cmder
	go func() {
		defer cancel()
		_, err := c.client.Send(ctx, c.view, c.persona, text, func(string) {
			select {
			case events <- deltaMsg{}:
			default:
			}
		})
		events <- turnDoneMsg{err: err}
	}()

	return m, bubbletea.Batch(waitForEvent(events), m.spinner.Tick)
}

func waitForEvent(events chan bubbletea.Msg) bubbletea.Cmd {
	if events == nil {
		return nil
	}
	return func() bubbletea.Msg {
		return <-events
	}
}

func (m *chatModel) refresh() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript(m.cmder.view.Messages()))
	if atBottom || m.streaming {
		m.viewport.GotoBottom()
	}
}

func (m *chatModel) renderTranscript(messages []llm.ChatMessage) string {
	if len(messages) == 0 {
		return cliui.DimStyle.Render("  New conversation with the " + m.cmder.personaLabel() + " persona.")
	}

	body := lipgloss.NewStyle().Width(max(m.width-2, 10)).PaddingLeft(2)

	var b strings.Builder
	for i, msg := range messages {
		switch msg.Role {
		case llm.RoleUser:
			b.WriteString(cliui.UserRoleStyle.Render("you"))
			b.WriteString("\n")
			b.WriteString(body.Render(msg.Content))
		default:
			b.WriteString(cliui.AssistantRoleStyle.Render("assistant"))
			b.WriteString("\n")
			if m.streaming && i == len(messages)-1 {
				b.WriteString(body.Render(msg.Content))
			} else {
				b.WriteString(m.markdown(msg.Content))
			}
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m *chatModel) markdown(content string) string {
	if out, ok := m.rendered[content]; ok {
		return out
	}
	out, err := cliui.RenderMarkdownWidth(content, max(m.width-4, 20))
	if err != nil {
		return content
	}
	out = strings.TrimRight(out, "\n")
	m.rendered[content] = out
	return out
}

func (m chatModel) View() string {
	if !m.ready {
		return "\n  " + m.spinner.View() + " Starting..."
	}

	header := cliui.HeaderStyle.Render("campus chat") + "  " +
		cliui.KeyStyle.Render("persona:") + " " + cliui.NameStyle.Render(m.cmder.personaLabel())

	var status string
	switch {
	case m.streaming:
		status = m.spinner.View() + " " + cliui.DimStyle.Render("thinking...")
	case m.status != "":
		status = fmt.Sprintf("%s %s", cliui.FailMark, cliui.ErrorStyle.Render(m.status))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		status,
		m.input.View(),
		m.help.View(m.keys),
	)
}
