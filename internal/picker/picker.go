package picker

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/search"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Underline(true)

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)

	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// Action is what the user chose to do with the selected bookmark.
type Action int

const (
	ActionNone Action = iota
	ActionPrint
	ActionYank
)

// Picker is a simple TUI for selecting from search results.
type Picker struct {
	results []search.BookmarkResult
	query   string
	cursor  int
	offset  int
	action  Action
	width   int
	height  int
}

// New creates a new Picker with the given search results.
func New(results []search.BookmarkResult, query string) Picker {
	return Picker{
		results: results,
		query:   query,
		width:   80,
		height:  24,
	}
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// visible is the number of results that fit on screen; each takes two lines.
func (p Picker) visible() int {
	return max(1, (p.height-4)/2)
}

func (p *Picker) move(delta int) {
	p.cursor = min(max(p.cursor+delta, 0), max(len(p.results)-1, 0))
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+p.visible() {
		p.offset = p.cursor - p.visible() + 1
	}
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		p.move(0)
		return p, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c", "q":
			p.action = ActionNone
			return p, tea.Quit
		case "enter":
			if len(p.results) > 0 {
				p.action = ActionPrint
			}
			return p, tea.Quit
		case "y":
			if len(p.results) > 0 {
				p.action = ActionYank
			}
			return p, tea.Quit
		case "down", "j", "ctrl+n":
			p.move(1)
		case "up", "k", "ctrl+p":
			p.move(-1)
		case "pgdown", "ctrl+d":
			p.move(p.visible())
		case "pgup", "ctrl+u":
			p.move(-p.visible())
		}
	}

	return p, nil
}

// highlight renders s with the runes at matched underlined.
func highlight(s string, matched []int, base lipgloss.Style) string {
	if len(matched) == 0 {
		return base.Render(s)
	}
	var b strings.Builder
	for i, r := range []rune(s) {
		if slices.Contains(matched, i) {
			b.WriteString(matchStyle.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}
	return b.String()
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Search: %s (%d results)", p.query, len(p.results))))
	b.WriteString("\n\n")

	end := min(p.offset+p.visible(), len(p.results))
	for i := p.offset; i < end; i++ {
		r := p.results[i]
		cursor := "  "
		style := normalStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		titleMatches, urlMatches := r.MatchedIndexes, []int(nil)
		if r.MatchedURL {
			titleMatches, urlMatches = nil, r.MatchedIndexes
		}
		title := highlight(r.Bookmark.Title, titleMatches, style)
		if r.Bookmark.Rating > 0 {
			title += urlStyle.Render(fmt.Sprintf("  ★%d", r.Bookmark.Rating))
		}

		b.WriteString(fmt.Sprintf("%s%s\n", cursor, title))
		b.WriteString(fmt.Sprintf("   %s\n", highlight(r.Bookmark.PageURL, urlMatches, urlStyle)))
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render("j/k: move  Enter: print url  y: copy url  q/Esc: cancel"))

	return b.String()
}

// Selected returns the chosen bookmark and what to do with it. ok is false
// when the user cancelled.
func (p Picker) Selected() (model.Bookmark, Action, bool) {
	if p.action == ActionNone || p.cursor >= len(p.results) {
		return model.Bookmark{}, ActionNone, false
	}
	return p.results[p.cursor].Bookmark, p.action, true
}
