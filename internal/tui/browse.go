// Package tui is the interactive dog browser behind `dm browse`.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alfredjeanlab/dogmatch/internal/app"
	"github.com/alfredjeanlab/dogmatch/internal/client"
	"github.com/alfredjeanlab/dogmatch/internal/favorites"
	"github.com/alfredjeanlab/dogmatch/internal/model"
	"github.com/alfredjeanlab/dogmatch/internal/results"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("74"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	matchStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114"))
	tableBorder = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

const helpLine = "←/→ page · n/b/a sort · f favorite · m match · r reload · q quit"

type pageLoadedMsg struct {
	snap results.Snapshot
	err  error
}

type favoriteMsg struct {
	dog   model.Dog
	added bool
	err   error
}

type matchMsg struct {
	dog model.Dog
	err error
}

// Model is the browse screen.
type Model struct {
	ctx   context.Context
	app   *app.App
	table table.Model

	dogs    []model.Dog
	loading bool
	status  string
	err     error
	match   *model.Dog
	expired bool
	width   int
}

// New returns a browse model over a's search state.
func New(ctx context.Context, a *app.App) Model {
	t := table.New(
		table.WithColumns(columns(100)),
		table.WithFocused(true),
		table.WithHeight(a.Config.PageSize),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(s)

	return Model{ctx: ctx, app: a, table: t, match: a.Favorites.Matched(), width: 100}
}

func columns(width int) []table.Column {
	name := max(12, (width-40)/2)
	return []table.Column{
		{Title: "♥", Width: 2},
		{Title: "Name", Width: name},
		{Title: "Breed", Width: name},
		{Title: "Age", Width: 10},
		{Title: "Zip", Width: 8},
	}
}

// Init loads the current page.
func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		snap, err := a.LoadPage(ctx)
		return pageLoadedMsg{snap: snap, err: err}
	}
}

func (m Model) toggleFavorite(d model.Dog) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		added, err := a.Favorites.Toggle(ctx, d)
		return favoriteMsg{dog: d, added: added, err: err}
	}
}

func (m Model) generateMatch() tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		d, err := a.Match(ctx)
		return matchMsg{dog: d, err: err}
	}
}

// Update handles keys and finished commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetColumns(columns(msg.Width))
		m.table.SetHeight(max(3, msg.Height-8))
		return m, nil

	case pageLoadedMsg:
		return m.pageLoaded(msg)

	case favoriteMsg:
		if m.failed(msg.err) {
			return m, m.quitIfExpired()
		}
		verb := "Removed"
		if msg.added {
			verb = "Added"
		}
		m.status = fmt.Sprintf("%s %s (%d favorites)", verb, msg.dog.Name, m.app.Favorites.Len())
		m.match = m.app.Favorites.Matched()
		m.refreshRows()
		return m, nil

	case matchMsg:
		if m.failed(msg.err) {
			return m, m.quitIfExpired()
		}
		m.match = &msg.dog
		m.status = "Matched with " + msg.dog.Name
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.app.Search
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "right", "l", "pgdown":
		if st.Next() {
			return m.startLoad()
		}
		return m, nil
	case "left", "h", "pgup":
		if st.Prev() {
			return m.startLoad()
		}
		return m, nil
	case "n":
		st.ToggleSort(model.SortByName)
		return m.startLoad()
	case "b":
		st.ToggleSort(model.SortByBreed)
		return m.startLoad()
	case "a":
		st.ToggleSort(model.SortByAge)
		return m.startLoad()
	case "r":
		return m.startLoad()
	case "f", " ":
		if i := m.table.Cursor(); i >= 0 && i < len(m.dogs) {
			return m, m.toggleFavorite(m.dogs[i])
		}
		return m, nil
	case "m":
		m.status = "Finding your match..."
		return m, m.generateMatch()
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) startLoad() (tea.Model, tea.Cmd) {
	m.loading = true
	m.err = nil
	return m, m.load()
}

func (m Model) pageLoaded(msg pageLoadedMsg) (tea.Model, tea.Cmd) {
	// A newer load is in flight and will report.
	if errors.Is(msg.err, results.ErrStale) {
		return m, nil
	}
	m.loading = false
	if m.failed(msg.err) {
		m.dogs = nil
		m.refreshRows()
		return m, m.quitIfExpired()
	}
	m.err = nil
	m.dogs = msg.snap.Dogs
	m.refreshRows()
	m.table.SetCursor(0)
	return m, nil
}

// failed records err and reports whether there was one.
func (m *Model) failed(err error) bool {
	if err == nil {
		return false
	}
	m.err = err
	if errors.Is(err, client.ErrAuthExpired) {
		m.expired = true
	}
	return true
}

func (m Model) quitIfExpired() tea.Cmd {
	if m.expired {
		return tea.Quit
	}
	return nil
}

func (m *Model) refreshRows() {
	rows := make([]table.Row, 0, len(m.dogs))
	for _, d := range m.dogs {
		mark := ""
		if m.app.Favorites.IsFavorite(d.ID) {
			mark = "♥"
		}
		rows = append(rows, table.Row{mark, d.Name, model.FormatBreedName(d.Breed), model.AgeText(d.Age), d.ZipCode})
	}
	m.table.SetRows(rows)
}

// View renders the screen.
func (m Model) View() string {
	st := m.app.Search
	var b strings.Builder

	header := fmt.Sprintf("dogmatch  page %d of %d  (%d dogs)  sort %s",
		st.Page(), st.TotalPages(), st.Total(), st.Criteria().Sort)
	b.WriteString(titleStyle.Render(header))
	if m.loading {
		b.WriteString(mutedStyle.Render("  loading..."))
	}
	b.WriteString("\n")
	b.WriteString(tableBorder.Render(m.table.View()))
	b.WriteString("\n")

	if m.match != nil {
		b.WriteString(matchStyle.Render("Your match: " + m.match.Name + " (" + model.FormatBreedName(m.match.Breed) + ")"))
		b.WriteString("\n")
	}
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(describe(m.err)))
	case m.status != "":
		b.WriteString(m.status)
	case !m.loading && len(m.dogs) == 0:
		b.WriteString(mutedStyle.Render("No dogs match these filters."))
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(helpLine))
	return b.String()
}

func describe(err error) string {
	switch {
	case errors.Is(err, client.ErrAuthExpired):
		return "Your session expired. Run `dm login` to sign in again."
	case errors.Is(err, favorites.ErrCapacity):
		return fmt.Sprintf("You can keep at most %d favorites.", model.MaxFavorites)
	}
	switch client.Classify(err) {
	case client.KindNetwork:
		return "Network problem: " + err.Error()
	case client.KindValidation:
		return err.Error()
	}
	return "Error: " + err.Error()
}

// Expired reports whether the browser stopped because the session expired.
func (m Model) Expired() bool { return m.expired }

// Run starts the browser and blocks until the user quits.
func Run(ctx context.Context, a *app.App) error {
	p := tea.NewProgram(New(ctx, a), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("running browser: %w", err)
	}
	if fm, ok := final.(Model); ok && fm.Expired() {
		return fmt.Errorf("browse: %w", client.ErrAuthExpired)
	}
	return nil
}
