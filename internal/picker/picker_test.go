package picker

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/search"
)

func twoResults() []search.BookmarkResult {
	return []search.BookmarkResult{
		{Bookmark: model.Bookmark{ID: "b1", Title: "GitHub", PageURL: "https://github.com"}},
		{Bookmark: model.Bookmark{ID: "b2", Title: "GitLab", PageURL: "https://gitlab.com", Rating: 7}},
	}
}

func press(p Picker, key string) (Picker, tea.Cmd) {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	m, cmd := p.Update(msg)
	return m.(Picker), cmd
}

func TestPicker_InitialState(t *testing.T) {
	p := New(twoResults(), "git")

	if p.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", p.cursor)
	}
	if _, _, ok := p.Selected(); ok {
		t.Error("expected nothing selected initially")
	}
}

func TestPicker_Navigate(t *testing.T) {
	p := New(twoResults(), "git")

	p, _ = press(p, "j")
	if p.cursor != 1 {
		t.Errorf("expected cursor at 1, got %d", p.cursor)
	}
	p, _ = press(p, "down")
	if p.cursor != 1 {
		t.Errorf("expected cursor to stay at last item, got %d", p.cursor)
	}
	p, _ = press(p, "up")
	p, _ = press(p, "k")
	if p.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", p.cursor)
	}
}

func TestPicker_Scrolls(t *testing.T) {
	var results []search.BookmarkResult
	for i := 0; i < 20; i++ {
		results = append(results, search.BookmarkResult{Bookmark: model.Bookmark{Title: "item", PageURL: "https://x"}})
	}
	p := New(results, "item")
	m, _ := p.Update(tea.WindowSizeMsg{Width: 80, Height: 10}) // 3 visible
	p = m.(Picker)

	for i := 0; i < 5; i++ {
		p, _ = press(p, "j")
	}
	if p.cursor != 5 || p.offset != 3 {
		t.Errorf("expected cursor 5 at offset 3, got %d/%d", p.cursor, p.offset)
	}
	if got := strings.Count(p.View(), "https://x"); got != 3 {
		t.Errorf("expected 3 visible results, got %d", got)
	}
}

func TestPicker_SelectAndYank(t *testing.T) {
	p := New(twoResults(), "git")
	p, _ = press(p, "j")

	selected, cmd := press(p, "enter")
	if cmd == nil {
		t.Error("expected quit command after selection")
	}
	b, action, ok := selected.Selected()
	if !ok || b.ID != "b2" || action != ActionPrint {
		t.Errorf("expected b2 printed, got %s/%v/%v", b.ID, action, ok)
	}

	yanked, _ := press(p, "y")
	if _, action, _ := yanked.Selected(); action != ActionYank {
		t.Errorf("expected yank action, got %v", action)
	}
}

func TestPicker_Cancel(t *testing.T) {
	p := New(twoResults(), "git")

	p, cmd := press(p, "esc")
	if cmd == nil {
		t.Error("expected quit command after cancel")
	}
	if _, _, ok := p.Selected(); ok {
		t.Error("expected no selection when cancelled")
	}
}

func TestPicker_EmptyResults(t *testing.T) {
	p := New(nil, "nothing")
	p, _ = press(p, "j")
	p, _ = press(p, "enter")

	if _, _, ok := p.Selected(); ok {
		t.Error("expected no selection without results")
	}
	if !strings.Contains(p.View(), "(0 results)") {
		t.Error("expected result count in header")
	}
}

func TestPicker_ViewShowsRating(t *testing.T) {
	view := New(twoResults(), "git").View()

	if !strings.Contains(view, "★7") {
		t.Error("expected rating next to GitLab")
	}
}
