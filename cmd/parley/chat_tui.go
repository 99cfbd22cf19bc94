// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// chatter is the subset of apiClient the interactive session needs.
type chatter interface {
	chat(ctx context.Context, conversationID, message string) (*chatResponse, error)
	clear(ctx context.Context, conversationID string) error
}

type lineKind int

const (
	lineUser lineKind = iota
	lineAssistant
	lineInfo
	lineError
)

type chatLine struct {
	kind lineKind
	text string
}

type (
	replyMsg   struct{ resp *chatResponse }
	clearedMsg struct{}
	failedMsg  struct{ err error }
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	demoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// chatModel is the bubbletea model for `parley chat` without arguments.
type chatModel struct {
	ctx            context.Context
	client         chatter
	conversationID string

	input   textinput.Model
	spinner spinner.Model
	lines   []chatLine
	waiting bool
	demo    bool
}

func newChatModel(ctx context.Context, client chatter, conversationID string) chatModel {
	in := textinput.New()
	in.Placeholder = "Type a message, /clear to reset, /quit to leave"
	in.CharLimit = 4000
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return chatModel{
		ctx:            ctx,
		client:         client,
		conversationID: conversationID,
		input:          in,
		spinner:        sp,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case replyMsg:
		m.waiting = false
		m.demo = msg.resp.DemoMode
		m.lines = append(m.lines, chatLine{kind: lineAssistant, text: msg.resp.Response})
		return m, nil

	case clearedMsg:
		m.waiting = false
		m.lines = []chatLine{{kind: lineInfo, text: "Conversation cleared."}}
		return m, nil

	case failedMsg:
		m.waiting = false
		m.lines = append(m.lines, chatLine{kind: lineError, text: msg.err.Error()})
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) submit() (tea.Model, tea.Cmd) {
	if m.waiting {
		return m, nil
	}

	text := strings.TrimSpace(m.input.Value())
	m.input.Reset()

	switch text {
	case "":
		return m, nil
	case "/quit", "/exit":
		return m, tea.Quit
	case "/clear":
		m.waiting = true
		return m, tea.Batch(m.spinner.Tick, m.clearCmd())
	}

	m.lines = append(m.lines, chatLine{kind: lineUser, text: text})
	m.waiting = true
	return m, tea.Batch(m.spinner.Tick, m.sendCmd(text))
}

func (m chatModel) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.chat(m.ctx, m.conversationID, text)
		if err != nil {
			return failedMsg{err: err}
		}
		return replyMsg{resp: resp}
	}
}

func (m chatModel) clearCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.client.clear(m.ctx, m.conversationID); err != nil {
			return failedMsg{err: err}
		}
		return clearedMsg{}
	}
}

func (m chatModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Parley"))
	b.WriteString(infoStyle.Render("  conversation " + m.conversationID))
	if m.demo {
		b.WriteString("  " + demoStyle.Render("[demo mode]"))
	}
	b.WriteString("\n\n")

	for _, l := range m.lines {
		switch l.kind {
		case lineUser:
			b.WriteString(userStyle.Render("You: ") + l.text + "\n")
		case lineAssistant:
			b.WriteString(assistantStyle.Render("AI:  "+l.text) + "\n")
		case lineInfo:
			b.WriteString(infoStyle.Render(l.text) + "\n")
		case lineError:
			b.WriteString(errorStyle.Render("Error: "+l.text) + "\n")
		}
		b.WriteString("\n")
	}

	if m.waiting {
		b.WriteString(m.spinner.View() + " thinking…\n\n")
	}

	b.WriteString(m.input.View() + "\n")
	b.WriteString(infoStyle.Render("enter to send  esc to quit"))
	return b.String()
}
