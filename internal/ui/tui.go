// Package ui renders an owner's todo list in the terminal.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"todolist/internal/client"
	"todolist/internal/models"
)

// API is the subset of the HTTP client the renderer calls.
type API interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (client.Session, error)
	List(ctx context.Context, userID string) ([]models.Todo, error)
	Create(ctx context.Context, userID, name string) (models.Todo, error)
	Rename(ctx context.Context, id, name string) (models.Todo, error)
	SetStatus(ctx context.Context, id string, status models.Status) (models.Todo, error)
}

type screen int

const (
	screenLogin screen = iota
	screenList
)

type inputMode int

const (
	modeNone inputMode = iota
	modeRename
	modeCreate
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	pickedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	completedStyle = lipgloss.NewStyle().Strikethrough(true).Faint(true)
	archivedStyle  = lipgloss.NewStyle().Faint(true).Italic(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle      = lipgloss.NewStyle().Faint(true)
)

// Model is the bubbletea model. rows is the displayed sequence; local reorders
// replace it and are thrown away by the next fetch.
type Model struct {
	api     API
	timeout time.Duration

	screen   screen
	username string
	password string
	focus    int
	session  client.Session

	rows    []models.Todo
	cursor  int
	picked  int
	mode    inputMode
	input   string
	status  string
	err     error
	loading bool
}

type loggedInMsg struct{ session client.Session }

type todosLoadedMsg struct{ todos []models.Todo }

type mutatedMsg struct{ action string }

type errMsg struct{ err error }

// New returns a model on the login screen with username prefilled.
func New(api API, username string, timeout time.Duration) *Model {
	return &Model{
		api:      api,
		timeout:  timeout,
		username: username,
		picked:   -1,
	}
}

// Run starts the program in the alternate screen.
func Run(ctx context.Context, m *Model) error {
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

// Rows returns the displayed sequence.
func (m *Model) Rows() []models.Todo {
	return m.rows
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.screen == screenLogin {
			return m.updateLogin(msg)
		}
		if m.mode != modeNone {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	case loggedInMsg:
		m.session = msg.session
		m.screen = screenList
		m.password = ""
		m.err = nil
		m.status = "logged in as " + msg.session.Username
		return m, m.reload()
	case todosLoadedMsg:
		m.loading = false
		m.rows = msg.todos
		m.picked = -1
		if m.cursor >= len(m.rows) {
			m.cursor = max(len(m.rows)-1, 0)
		}
		return m, nil
	case mutatedMsg:
		m.err = nil
		m.status = msg.action
		return m, m.reload()
	case errMsg:
		m.loading = false
		m.err = msg.err
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		m.focus = 1 - m.focus
	case tea.KeyBackspace:
		m.setField(dropLast(m.field()))
	case tea.KeyEnter:
		return m, m.login(false)
	case tea.KeyCtrlR:
		return m, m.login(true)
	case tea.KeySpace:
		m.setField(m.field() + " ")
	case tea.KeyRunes:
		m.setField(m.field() + string(msg.Runes))
	}
	return m, nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeNone
		m.input = ""
	case tea.KeyBackspace:
		m.input = dropLast(m.input)
	case tea.KeyEnter:
		mode, text := m.mode, m.input
		m.mode = modeNone
		m.input = ""
		if mode == modeCreate {
			return m, m.create(text)
		}
		if row, ok := m.current(); ok {
			return m, m.rename(row.ID, text)
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		if m.picked >= 0 {
			m.picked = -1
			return m, nil
		}
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "r", "f5":
		return m, m.reload()
	case "m":
		m.pickOrDrop()
	case "n":
		m.mode = modeCreate
		m.input = ""
	case "e":
		if row, ok := m.current(); ok {
			m.mode = modeRename
			m.input = row.Name
		}
	case " ", "x":
		if row, ok := m.current(); ok {
			next := models.StatusCompleted
			if row.Status == models.StatusCompleted {
				next = models.StatusActive
			}
			return m, m.setStatus(row.ID, next, "toggled")
		}
	case "a":
		if row, ok := m.current(); ok {
			next := models.StatusArchived
			if row.Status == models.StatusArchived {
				next = models.StatusActive
			}
			return m, m.setStatus(row.ID, next, "archived")
		}
	case "d":
		if row, ok := m.current(); ok {
			return m, m.setStatus(row.ID, models.StatusDeleted, "deleted")
		}
	}
	return m, nil
}

// pickOrDrop picks up the row under the cursor, or drops the picked row onto
// it. Only the displayed sequence changes.
func (m *Model) pickOrDrop() {
	if len(m.rows) == 0 {
		return
	}
	if m.picked < 0 {
		m.picked = m.cursor
		m.status = "moving " + m.rows[m.cursor].Name
		return
	}
	from, target := m.picked, m.cursor
	m.rows = Move(m.rows, from, DropSlot(from, target))
	m.cursor = target
	m.picked = -1
	m.status = "order changed locally (not saved)"
}

func (m *Model) current() (models.Todo, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return models.Todo{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) field() string {
	if m.focus == 0 {
		return m.username
	}
	return m.password
}

func (m *Model) setField(v string) {
	if m.focus == 0 {
		m.username = v
		return
	}
	m.password = v
}

func (m *Model) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

func (m *Model) login(register bool) tea.Cmd {
	username, password := strings.TrimSpace(m.username), m.password
	if username == "" || password == "" {
		m.err = errors.New("username and password are required")
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		if register {
			if err := m.api.Register(ctx, username, password); err != nil {
				return errMsg{err}
			}
		}
		s, err := m.api.Login(ctx, username, password)
		if err != nil {
			return errMsg{err}
		}
		return loggedInMsg{s}
	}
}

func (m *Model) reload() tea.Cmd {
	m.loading = true
	userID := m.session.UserID
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		todos, err := m.api.List(ctx, userID)
		if err != nil {
			return errMsg{err}
		}
		return todosLoadedMsg{todos}
	}
}

func (m *Model) create(name string) tea.Cmd {
	userID := m.session.UserID
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		if _, err := m.api.Create(ctx, userID, name); err != nil {
			return errMsg{err}
		}
		return mutatedMsg{"created"}
	}
}

func (m *Model) rename(id, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		if _, err := m.api.Rename(ctx, id, name); err != nil {
			return errMsg{err}
		}
		return mutatedMsg{"renamed"}
	}
}

func (m *Model) setStatus(id string, status models.Status, action string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		if _, err := m.api.SetStatus(ctx, id, status); err != nil {
			return errMsg{err}
		}
		return mutatedMsg{action}
	}
}

func (m *Model) View() string {
	var b strings.Builder
	if m.screen == screenLogin {
		b.WriteString(titleStyle.Render("todolist: sign in") + "\n\n")
		b.WriteString(m.loginLine(0, "username", m.username) + "\n")
		b.WriteString(m.loginLine(1, "password", strings.Repeat("*", len([]rune(m.password)))) + "\n\n")
		m.writeFooter(&b)
		b.WriteString(helpStyle.Render("enter: login • ctrl+r: register • tab: switch field • esc: quit") + "\n")
		return b.String()
	}

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s's todos", m.session.Username)) + "\n\n")
	if len(m.rows) == 0 {
		b.WriteString(helpStyle.Render("  nothing here yet, press n to add one") + "\n")
	}
	for i, row := range m.rows {
		b.WriteString(m.renderRow(i, row) + "\n")
	}
	b.WriteString("\n")
	switch m.mode {
	case modeCreate:
		b.WriteString("new: " + m.input + "█\n")
	case modeRename:
		b.WriteString("rename: " + m.input + "█\n")
	}
	m.writeFooter(&b)
	b.WriteString(helpStyle.Render("↑/↓ move • space toggle • e edit • n new • a archive • d delete • m pick/drop • r reload • q quit") + "\n")
	return b.String()
}

func (m *Model) renderRow(i int, row models.Todo) string {
	box := "[ ]"
	if row.Status == models.StatusCompleted {
		box = "[x]"
	}
	name := row.Name
	switch row.Status {
	case models.StatusCompleted:
		name = completedStyle.Render(name)
	case models.StatusArchived:
		name = archivedStyle.Render(name + " (archived)")
	}
	line := fmt.Sprintf("%s %s", box, name)
	switch {
	case i == m.picked:
		return pickedStyle.Render("≡ ") + line
	case i == m.cursor:
		return cursorStyle.Render("> ") + line
	default:
		return "  " + line
	}
}

func (m *Model) loginLine(idx int, label, value string) string {
	prefix := "  "
	if m.focus == idx {
		prefix = cursorStyle.Render("> ")
	}
	return fmt.Sprintf("%s%-9s %s", prefix, label+":", value)
}

func (m *Model) writeFooter(b *strings.Builder) {
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	case m.loading:
		b.WriteString(helpStyle.Render("loading…") + "\n")
	case m.status != "":
		b.WriteString(helpStyle.Render(m.status) + "\n")
	}
}

func dropLast(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}
