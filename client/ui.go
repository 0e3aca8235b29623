package main

import (
	"fmt"

	"github.com/CoHammo/jotter/commons"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// UI runs the editor until the user quits or the server goes away.
func UI(conn ConnWriter, msgChan <-chan commons.Message, name string) error {
	p := tea.NewProgram(initialModel(conn, msgChan, name), tea.WithAltScreen())
	return p.Start()
}

type (
	// serverMsg is a message received from the server.
	serverMsg commons.Message

	// closedMsg is sent once the connection to the server is gone.
	closedMsg struct{}
)

type model struct {
	textInput textinput.Model
	textarea  textarea.Model

	conn    ConnWriter
	msgChan <-chan commons.Message

	// text is the content last sent to, or received from, the server.
	text     string
	username string
	users    string
	status   string

	preview     string
	showPreview bool

	Quitting bool
	LoggedIn bool
}

func initialModel(conn ConnWriter, msgChan <-chan commons.Message, name string) model {
	ti := textinput.New()
	ti.Placeholder = "Username"
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 20

	ta := textarea.New()
	ta.Placeholder = "Write some markdown here..."
	ta.CharLimit = 0

	m := model{
		textInput: ti,
		textarea:  ta,
		conn:      conn,
		msgChan:   msgChan,
	}

	// A name given on the command line skips the login prompt.
	if name != "" {
		m.login(name)
	}

	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForMsg(m.msgChan))
}

// waitForMsg returns a command that waits for the next server message.
func waitForMsg(msgChan <-chan commons.Message) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-msgChan
		if !ok {
			return closedMsg{}
		}
		return serverMsg(msg)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.Quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			if !m.LoggedIn {
				m.login(m.textInput.Value())
				return m, nil
			}
		case tea.KeyCtrlS:
			m.send(commons.Message{Type: commons.SaveMessage})
			return m, nil
		case tea.KeyCtrlR:
			m.showPreview = !m.showPreview
			if m.showPreview {
				m.send(commons.Message{Type: commons.RenderMessage})
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.textarea.SetWidth(msg.Width)
		m.textarea.SetHeight(msg.Height - 6)

	case serverMsg:
		m.handleMsg(commons.Message(msg))
		return m, waitForMsg(m.msgChan)

	case closedMsg:
		m.status = "Server closed. Exiting..."
		m.Quitting = true
		return m, tea.Quit
	}

	if !m.LoggedIn {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	m.textarea, cmd = m.textarea.Update(msg)
	m.performOperation()
	return m, cmd
}

// login switches from the username prompt to the editor.
func (m *model) login(name string) {
	m.username = name
	m.LoggedIn = true
	m.textInput.Blur()
	m.textarea.Focus()

	m.send(commons.Message{Type: commons.JoinMessage, Username: name})
}

func loginView(m model) string {
	return fmt.Sprintf(
		"Enter username:\n\n%s\n\n%s",
		m.textInput.View(),
		"(esc to quit)",
	) + "\n"
}

func editorView(m model) string {
	s := fmt.Sprintf(
		"Username: %s  Users: %s\n\n%s\n\n%s\n%s",
		m.username,
		m.users,
		m.textarea.View(),
		m.status,
		"(ctrl+s to save, ctrl+r to preview, ctrl+c to quit)",
	) + "\n"

	if m.showPreview {
		s += "\n" + m.preview
	}
	return s
}

func (m model) View() string {
	if m.Quitting {
		return "\n  See you later!\n\n"
	}
	if !m.LoggedIn {
		return loginView(m)
	}
	return editorView(m)
}
