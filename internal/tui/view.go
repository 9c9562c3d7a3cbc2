package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/tui/layout"
)

// renderView creates the complete list view.
func (a App) renderView() string {
	switch a.mode {
	case ModeHelp:
		return a.renderHelpOverlay()
	case ModeTags, ModeConfirmDelete, ModeEditTitle:
		return a.renderModal()
	}

	content := a.styles.App.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			a.renderHeader(),
			a.renderStatus(),
			"",
			a.renderList(),
			a.renderHelpBar(),
		),
	)

	// Use Place to ensure exact terminal dimensions and prevent overflow
	return lipgloss.Place(a.width, a.height, lipgloss.Left, lipgloss.Top, content)
}

// renderHeader renders the scope, page and counts.
func (a App) renderHeader() string {
	c := a.lib.View.Criteria()
	scope := "inbox"
	if c.Archived {
		scope = "archive"
	}
	header := fmt.Sprintf("marks/%s  page %d/%d  %d bookmarks",
		scope, c.Page, a.lib.View.PageCount(), len(a.lib.View.Filtered()))
	if n := len(a.lib.Bookmarks.SelectedIDs()); n > 0 {
		header += fmt.Sprintf("  %d selected", n)
	}
	return a.styles.Header.Render(header)
}

// renderStatus renders the active sort and tag filters.
func (a App) renderStatus() string {
	c := a.lib.View.Criteria()
	parts := []string{a.styles.Status.Render(c.String())}
	for _, id := range c.Included {
		if t, ok := a.lib.Graph.Get(id); ok {
			parts = append(parts, a.styles.Included.Render("+"+t.Label))
		}
	}
	for _, id := range c.Excluded {
		if t, ok := a.lib.Graph.Get(id); ok {
			parts = append(parts, a.styles.Excluded.Render("-"+t.Label))
		}
	}
	if !c.IncludeDescendants {
		parts = append(parts, a.styles.Status.Render("[exact tags]"))
	}
	return strings.Join(parts, " ")
}

// renderList renders the visible rows of the current page.
func (a App) renderList() string {
	page := a.lib.View.Displayed()
	height := layout.ListHeight(a.height, a.layout)
	if len(page) == 0 {
		return lipgloss.NewStyle().Height(height).Render(a.styles.Empty.Render("(no bookmarks)"))
	}

	start, end := layout.VisibleRange(height, a.cursor, len(page))
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, a.renderItem(page[i], i == a.cursor, a.width-6))
	}
	return lipgloss.NewStyle().Height(height).Render(strings.Join(lines, "\n"))
}

// renderItem renders one bookmark row.
func (a App) renderItem(b model.Bookmark, isCursor bool, maxWidth int) string {
	marker := "  "
	if b.IsSelected {
		marker = "● "
	}

	title := b.Title
	if title == "" {
		title = b.PageURL
	}
	titleWidth := max(maxWidth*2/5, 10)
	title = layout.Truncate(title, titleWidth, a.layout)
	title += strings.Repeat(" ", max(titleWidth-lipgloss.Width(title), 0))

	var meta []string
	if b.Rating > 0 {
		meta = append(meta, a.styles.Rating.Render(fmt.Sprintf("★%d", b.Rating)))
	}
	if labels := a.tagLabels(b.TagIDs); labels != "" {
		meta = append(meta, a.styles.Tag.Render(labels))
	}
	meta = append(meta, a.styles.Date.Render(b.DateCreated.Format("2006-01-02")))

	urlWidth := max(maxWidth-titleWidth-lipgloss.Width(strings.Join(meta, " "))-4, 0)
	meta = append(meta, a.styles.URL.Render(layout.Truncate(b.PageURL, urlWidth, a.layout)))

	var style lipgloss.Style
	switch {
	case isCursor:
		style = a.styles.ItemCursor
	case b.IsSelected:
		style = a.styles.ItemSelected
	default:
		style = a.styles.Item
	}
	return style.Render(marker+title) + " " + strings.Join(meta, " ")
}

func (a App) tagLabels(ids []string) string {
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		if t, ok := a.lib.Graph.Get(id); ok {
			labels = append(labels, "#"+t.Label)
		}
	}
	return strings.Join(labels, " ")
}

// renderHelpBar renders the message line and the contextual hints.
func (a App) renderHelpBar() string {
	var lines []string

	// Empty spacer OR message (message replaces the gap)
	if a.messageText != "" {
		lines = append(lines, a.renderMessageLine())
	} else {
		lines = append(lines, "")
	}

	if hints := a.renderHints(a.contextualHints()); hints != "" {
		lines = append(lines, hints)
	}
	return strings.Join(lines, "\n")
}

// renderMessageLine renders the styled message with a prefix by type.
func (a App) renderMessageLine() string {
	switch a.messageType {
	case MessageError:
		return a.styles.Error.Render("✗ " + a.messageText)
	case MessageSuccess:
		return a.styles.Message.Render("✓ " + a.messageText)
	default:
		return a.styles.Message.Render(a.messageText)
	}
}

// renderModal renders the active modal centered on screen.
func (a App) renderModal() string {
	width := layout.ModalWidth(a.width, a.layout)

	var body string
	switch a.mode {
	case ModeTags:
		body = a.renderTagPicker(width)
	case ModeConfirmDelete:
		body = a.renderConfirmDelete()
	case ModeEditTitle:
		body = a.styles.Header.Render("Edit title") + "\n\n" + a.title.Input.View()
	}

	modal := a.styles.Modal.Width(width).Render(body)
	content := lipgloss.JoinVertical(lipgloss.Center, modal, a.renderHelpBar())
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, content)
}

// renderTagPicker renders the tag list with counts and parents.
func (a App) renderTagPicker(width int) string {
	heading := "Filter by tag"
	if a.tags.Purpose == TagPurposeRetag {
		heading = fmt.Sprintf("Tag %d bookmarks", len(a.tags.Targets))
	}

	var b strings.Builder
	b.WriteString(a.styles.Header.Render(heading))
	b.WriteString("\n\n")
	b.WriteString(a.tags.Input.View())
	b.WriteString("\n\n")

	opts := a.tagOptions()
	if len(opts) == 0 {
		if q := strings.TrimSpace(a.tags.Input.Value()); q != "" {
			b.WriteString(a.styles.Empty.Render(fmt.Sprintf("Enter: create tag %q", q)))
		} else {
			b.WriteString(a.styles.Empty.Render("(no tags)"))
		}
		return b.String()
	}

	c := a.lib.View.Criteria()
	start, end := layout.VisibleRange(a.layout.TagsVisible, a.tags.Cursor, len(opts))
	for i := start; i < end; i++ {
		opt := opts[i]
		line := fmt.Sprintf("%s (%d)", opt.Tag.Label, opt.Count)
		if len(opt.ParentLabels) > 0 {
			line += " < " + strings.Join(opt.ParentLabels, ", ")
		}
		line = layout.Truncate(line, width-4, a.layout)

		switch {
		case i == a.tags.Cursor:
			line = a.styles.ItemCursor.Render(line)
		case slices.Contains(c.Included, opt.Tag.ID):
			line = a.styles.Included.Render("+" + line)
		case slices.Contains(c.Excluded, opt.Tag.ID):
			line = a.styles.Excluded.Render("-" + line)
		default:
			line = a.styles.Item.Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderConfirmDelete renders the delete confirmation.
func (a App) renderConfirmDelete() string {
	n := len(a.confirm.IDs)
	archived := a.confirm.Archived

	var b strings.Builder
	b.WriteString(a.styles.Header.Render("Delete bookmarks"))
	b.WriteString("\n\n")
	if n-archived > 0 {
		fmt.Fprintf(&b, "Archive %d bookmarks\n", n-archived)
	}
	if archived > 0 {
		fmt.Fprintf(&b, "Permanently delete %d archived bookmarks\n", archived)
	}
	b.WriteString("\n")
	b.WriteString(a.styles.HintKey.Render("y") + " confirm  " + a.styles.HintKey.Render("n") + " cancel")
	return b.String()
}

// renderHelpOverlay renders every key binding in two columns.
func (a App) renderHelpOverlay() string {
	k := a.keys
	left := []helpGroup{
		{"nav", []keyHelp{help(k.Down), help(k.Up), help(k.Top), help(k.Bottom), help(k.Prev), help(k.Next), help(k.NextPage), help(k.PrevPage)}},
		{"select", []keyHelp{help(k.Toggle), help(k.SelectOnly), help(k.RangeSelect), help(k.SelectAll), help(k.ClearSel)}},
	}
	right := []helpGroup{
		{"edit", []keyHelp{help(k.Archive), help(k.Delete), help(k.Retag), help(k.EditTitle), help(k.Refresh), help(k.YankURL), {"1-9/0", "rate"}}},
		{"view", []keyHelp{help(k.Tags), help(k.Tagged), help(k.Descendants), help(k.Scope), help(k.Sort), help(k.Reverse), help(k.Reset)}},
	}

	column := func(groups []helpGroup) string {
		var b strings.Builder
		for i, g := range groups {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(a.styles.Header.Render(g.title) + "\n")
			for _, h := range g.bindings {
				fmt.Fprintf(&b, "%-8s %s\n", h.key, h.desc)
			}
		}
		return b.String()
	}

	cols := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(30).Render(column(left)),
		"  ",
		lipgloss.NewStyle().Width(30).Render(column(right)),
	)
	footer := a.styles.Status.Render("[any key] close  [q] quit")

	return lipgloss.Place(a.width, a.height, lipgloss.Left, lipgloss.Top,
		lipgloss.NewStyle().Padding(1, 2).Render(cols+"\n"+footer))
}

type keyHelp struct {
	key  string
	desc string
}

type helpGroup struct {
	title    string
	bindings []keyHelp
}

func help(b key.Binding) keyHelp {
	h := b.Help()
	return keyHelp{key: h.Key, desc: h.Desc}
}
