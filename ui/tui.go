// Package ui provides the terminal surface: a sign-in page and the task
// list page, gated by the session holder. While the session state is still
// unknown it renders a neutral placeholder, never the sign-in page, so the
// user is not bounced to sign-in only to be bounced back.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"taskvault/api"
	"taskvault/identity"
	"taskvault/session"
	"taskvault/tasklist"
)

const opTimeout = 3 * time.Second

type mode int

const (
	modeList mode = iota
	modeAdd
)

// Deps are the collaborators the UI renders and drives.
type Deps struct {
	Holder   *session.Holder
	Provider identity.Provider
	Tasks    *tasklist.Store
	Logger   *log.Logger
}

type sessionMsg api.Session

type authFailedMsg struct{ err error }

type registeredMsg struct{ email string }

// Model is the bubbletea model for both pages.
type Model struct {
	deps      Deps
	sessionCh chan api.Session

	sess   api.Session
	mode   mode
	status string

	// sign-in page
	email    textinput.Model
	password textinput.Model
	focus    int

	// task list page
	entry  textinput.Model
	tasks  []string
	cursor int
}

// Run starts the UI and blocks until it exits.
func Run(deps Deps) error {
	ch := make(chan api.Session, 8)
	cancel := deps.Holder.Watch(func(s api.Session) { ch <- s })
	defer cancel()

	m := newModel(deps, ch)
	// The watch only reports future changes; seed with whatever the
	// holder already knows.
	m.sess = deps.Holder.Current()
	if m.sess.State == api.SessionPresent {
		m.tasks = deps.Tasks.Load(context.Background())
	}

	_, err := tea.NewProgram(m).Run()
	return err
}

func newModel(deps Deps, ch chan api.Session) Model {
	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 128
	email.Width = 40
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.Width = 40
	password.EchoMode = textinput.EchoPassword

	entry := textinput.New()
	entry.Placeholder = "New task"
	entry.CharLimit = 512
	entry.Width = 40

	return Model{
		deps:      deps,
		sessionCh: ch,
		sess:      api.Session{State: api.SessionUnknown},
		email:     email,
		password:  password,
		entry:     entry,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitSession(), textinput.Blink)
}

func (m Model) waitSession() tea.Cmd {
	ch := m.sessionCh
	return func() tea.Msg {
		return sessionMsg(<-ch)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionMsg:
		return m.applySession(api.Session(msg))
	case authFailedMsg:
		m.status = identity.UserMessage(msg.err)
		return m, nil
	case registeredMsg:
		m.status = fmt.Sprintf("registered %s, sign in to continue", msg.email)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.sess.State {
		case api.SessionAbsent:
			return m.updateSignIn(msg)
		case api.SessionPresent:
			return m.updateTasks(msg)
		default:
			// Session state still unknown: hold, decide nothing.
			return m, nil
		}
	case tea.WindowSizeMsg:
		width := msg.Width - 10
		if width > 10 {
			m.email.Width = width
			m.password.Width = width
			m.entry.Width = width
		}
	}
	return m, nil
}

func (m Model) applySession(sess api.Session) (tea.Model, tea.Cmd) {
	prev := m.sess.State
	m.sess = sess
	switch sess.State {
	case api.SessionPresent:
		m.tasks = m.deps.Tasks.Load(context.Background())
		m.cursor = clampCursor(m.cursor, len(m.tasks))
		m.mode = modeList
		if prev != api.SessionPresent {
			m.status = fmt.Sprintf("signed in as %s", sess.Identity.Email)
		}
	case api.SessionAbsent:
		m.tasks = nil
		m.cursor = 0
		m.mode = modeList
		m.password.SetValue("")
		m.focus = 0
		m.email.Focus()
		m.password.Blur()
		if prev == api.SessionPresent {
			m.status = "signed out"
		}
	}
	return m, m.waitSession()
}

func (m Model) updateSignIn(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab":
		m.focus = 1 - m.focus
		if m.focus == 0 {
			m.email.Focus()
			m.password.Blur()
		} else {
			m.password.Focus()
			m.email.Blur()
		}
		return m, nil
	case "enter":
		if m.focus == 0 {
			m.focus = 1
			m.password.Focus()
			m.email.Blur()
			return m, nil
		}
		m.status = "signing in…"
		return m, m.signInCmd(m.email.Value(), m.password.Value())
	case "ctrl+r":
		return m, m.registerCmd(m.email.Value(), m.password.Value())
	case "esc":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m Model) signInCmd(email, password string) tea.Cmd {
	provider := m.deps.Provider
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if _, err := provider.SignIn(ctx, email, password); err != nil {
			return authFailedMsg{err: err}
		}
		// The resulting session change arrives through the holder watch.
		return nil
	}
}

func (m Model) registerCmd(email, password string) tea.Cmd {
	reg, ok := m.deps.Provider.(identity.Registrar)
	if !ok {
		return func() tea.Msg {
			return authFailedMsg{err: fmt.Errorf("registration not supported")}
		}
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		id, err := reg.Register(ctx, email, password)
		if err != nil {
			return authFailedMsg{err: err}
		}
		return registeredMsg{email: id.Email}
	}
}

func (m Model) updateTasks(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeAdd {
		return m.updateAddMode(msg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		m.cursor = clampCursor(m.cursor-1, len(m.tasks))
	case "down", "j":
		m.cursor = clampCursor(m.cursor+1, len(m.tasks))
	case "a":
		m.mode = modeAdd
		m.entry.SetValue("")
		m.entry.Focus()
	case "d":
		if _, err := m.deps.Tasks.DeleteAt(ctx, m.cursor); err != nil {
			m.status = "could not save tasks"
			m.deps.Logger.Error("persisting task list failed", "err", err)
			break
		}
		m.tasks = m.deps.Tasks.Tasks(ctx)
		m.cursor = clampCursor(m.cursor, len(m.tasks))
	case "ctrl+l":
		return m, m.logoutCmd()
	}
	return m, nil
}

func (m Model) logoutCmd() tea.Cmd {
	provider := m.deps.Provider
	logger := m.deps.Logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		// The sign-in page is shown regardless of how sign-out went; the
		// navigation is unconditional.
		if err := provider.SignOut(ctx); err != nil {
			logger.Warn("sign-out failed", "err", err)
		}
		return nil
	}
}

func (m Model) updateAddMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	switch msg.String() {
	case "enter":
		added, err := m.deps.Tasks.Add(ctx, m.entry.Value())
		if err != nil {
			m.status = "could not save tasks"
			m.deps.Logger.Error("persisting task list failed", "err", err)
			return m, nil
		}
		if added {
			m.entry.SetValue("")
			m.tasks = m.deps.Tasks.Tasks(ctx)
			m.cursor = clampCursor(len(m.tasks)-1, len(m.tasks))
		}
		m.mode = modeList
		m.entry.Blur()
		return m, nil
	case "esc":
		m.mode = modeList
		m.entry.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.entry, cmd = m.entry.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	switch m.sess.State {
	case api.SessionPresent:
		return m.viewTasks()
	case api.SessionAbsent:
		return m.viewSignIn()
	default:
		return "checking session…\n"
	}
}

func (m Model) viewSignIn() string {
	var b strings.Builder
	b.WriteString("taskvault — sign in\n\n")
	b.WriteString(m.email.View() + "\n")
	b.WriteString(m.password.View() + "\n\n")
	if m.status != "" {
		b.WriteString(m.status + "\n\n")
	}
	b.WriteString("enter: sign in · ctrl+r: register · esc: quit\n")
	return b.String()
}

func (m Model) viewTasks() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("tasks — %s\n\n", m.sess.Identity.Email))
	if len(m.tasks) == 0 {
		b.WriteString("  (no tasks yet)\n")
	}
	for i, t := range m.tasks {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		b.WriteString(marker + t + "\n")
	}
	b.WriteString("\n")
	if m.mode == modeAdd {
		b.WriteString(m.entry.View() + "\n")
		b.WriteString("enter: add · esc: cancel\n")
	} else {
		if m.status != "" {
			b.WriteString(m.status + "\n")
		}
		b.WriteString("a: add · d: delete · ctrl+l: sign out · q: quit\n")
	}
	return b.String()
}

func clampCursor(c, n int) int {
	if c < 0 {
		return 0
	}
	if n == 0 {
		return 0
	}
	if c >= n {
		return n - 1
	}
	return c
}
