package tui

import (
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/nikbrunner/marks/internal/tui/layout"
)

// Mode is what the keyboard currently drives.
type Mode int

const (
	ModeNormal Mode = iota
	ModeTags
	ModeConfirmDelete
	ModeEditTitle
	ModeHelp
)

// TagPurpose is what picking a tag in the tag picker does.
type TagPurpose int

const (
	// TagPurposeFilter includes or excludes the tag in the filter.
	TagPurposeFilter TagPurpose = iota
	// TagPurposeRetag adds the tag to or removes it from the targeted bookmarks.
	TagPurposeRetag
)

// TagPickerState holds the tag picker modal.
type TagPickerState struct {
	Purpose TagPurpose
	Input   textinput.Model
	Cursor  int
	// Targets are the bookmarks a retag applies to.
	Targets []string
}

// NewTagPickerState creates the tag picker state.
func NewTagPickerState(cfg layout.Config) TagPickerState {
	input := textinput.New()
	input.Placeholder = "Filter tags or type a new label..."
	input.CharLimit = cfg.TitleCharLimit
	input.Width = 40
	input.Cursor.SetMode(cursor.CursorStatic)
	return TagPickerState{Input: input}
}

// Reset clears the picker for a new use.
func (s *TagPickerState) Reset(purpose TagPurpose, targets []string) {
	s.Purpose = purpose
	s.Targets = targets
	s.Cursor = 0
	s.Input.SetValue("")
	s.Input.Focus()
}

// TitleState holds the title editor.
type TitleState struct {
	Input textinput.Model
	ID    string
}

// NewTitleState creates the title editor state.
func NewTitleState(cfg layout.Config) TitleState {
	input := textinput.New()
	input.Placeholder = "Title"
	input.CharLimit = cfg.TitleCharLimit
	input.Width = 50
	input.Cursor.SetMode(cursor.CursorStatic)
	return TitleState{Input: input}
}

// Start begins editing the title of the bookmark id.
func (s *TitleState) Start(id, title string) {
	s.ID = id
	s.Input.SetValue(title)
	s.Input.CursorEnd()
	s.Input.Focus()
}

// ConfirmState holds a pending delete.
type ConfirmState struct {
	IDs      []string
	Archived int // how many of IDs are already archived and will be removed for good
}
