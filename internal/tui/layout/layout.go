// Package layout computes the sizes the TUI renders at.
package layout

import "unicode/utf8"

// Config holds the layout constants of the TUI.
type Config struct {
	// Chrome is the number of lines taken by everything but the bookmark
	// list: padding, header, status line, message line and help bar.
	Chrome int

	// MinListHeight is the lowest number of bookmark rows rendered.
	MinListHeight int

	// ModalWidthPercent is the modal width as a share of the terminal width.
	ModalWidthPercent int
	ModalMinWidth     int
	ModalMaxWidth     int

	// TagsVisible is the number of tags listed in the tag picker.
	TagsVisible int

	// TitleCharLimit caps the title input.
	TitleCharLimit int

	Ellipsis string
}

// DefaultConfig returns the default layout.
func DefaultConfig() Config {
	return Config{
		Chrome:            8,
		MinListHeight:     3,
		ModalWidthPercent: 50,
		ModalMinWidth:     40,
		ModalMaxWidth:     80,
		TagsVisible:       10,
		TitleCharLimit:    200,
		Ellipsis:          "...",
	}
}

// ListHeight returns the number of bookmark rows that fit in terminalHeight.
func ListHeight(terminalHeight int, cfg Config) int {
	return max(terminalHeight-cfg.Chrome, cfg.MinListHeight)
}

// ModalWidth returns the modal width for terminalWidth, clamped to the
// configured bounds and never wider than the terminal minus a margin.
func ModalWidth(terminalWidth int, cfg Config) int {
	width := terminalWidth * cfg.ModalWidthPercent / 100
	width = min(max(width, cfg.ModalMinWidth), cfg.ModalMaxWidth)
	width = min(width, terminalWidth-4)
	return max(width, 1)
}

// VisibleRange returns the [start, end) window of a scrolled list of total
// items that keeps selected visible.
func VisibleRange(maxVisible, selected, total int) (start, end int) {
	if total <= maxVisible {
		return 0, total
	}
	if selected >= maxVisible {
		start = selected - maxVisible + 1
	}
	return start, min(start+maxVisible, total)
}

// Truncate shortens text to maxWidth runes, ending in the ellipsis.
func Truncate(text string, maxWidth int, cfg Config) string {
	if maxWidth <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxWidth {
		return text
	}
	ellipsis := []rune(cfg.Ellipsis)
	if maxWidth <= len(ellipsis) {
		return string(ellipsis[:maxWidth])
	}
	return string([]rune(text)[:maxWidth-len(ellipsis)]) + cfg.Ellipsis
}
