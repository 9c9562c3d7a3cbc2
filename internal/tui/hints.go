package tui

import "strings"

// Hint represents a single keybind hint for display.
type Hint struct {
	Key  string // Display key (e.g., "j/k", "Enter")
	Desc string // Short description (e.g., "move", "open")
}

// renderHint renders a single hint as "key:desc" with styling.
func (a App) renderHint(h Hint) string {
	return a.styles.HintKey.Render(h.Key) + ":" + a.styles.HintDesc.Render(h.Desc)
}

// renderHints renders hints in horizontal format for the bottom bar.
func (a App) renderHints(hints HintSet) string {
	all := hints.All()
	parts := make([]string, len(all))
	for i, h := range all {
		parts[i] = a.renderHint(h)
	}
	return strings.Join(parts, " ")
}

// HintSet is an ordered collection of hints by group.
type HintSet struct {
	Nav    []Hint
	Select []Hint
	Edit   []Hint
	System []Hint
}

// All returns all hints flattened in display order.
func (h HintSet) All() []Hint {
	result := make([]Hint, 0, len(h.Nav)+len(h.Select)+len(h.Edit)+len(h.System))
	result = append(result, h.Nav...)
	result = append(result, h.Select...)
	result = append(result, h.Edit...)
	result = append(result, h.System...)
	return result
}

// contextualHints returns the hints for the current mode.
func (a App) contextualHints() HintSet {
	switch a.mode {
	case ModeNormal:
		return HintSet{
			Nav: []Hint{
				{Key: "j/k", Desc: "move"},
				{Key: "h/l", Desc: "prev/next"},
				{Key: "n/p", Desc: "page"},
			},
			Select: []Hint{
				{Key: "space", Desc: "select"},
				{Key: "v", Desc: "range"},
			},
			Edit: []Hint{
				{Key: "a", Desc: "archive"},
				{Key: "d", Desc: "del"},
				{Key: "T", Desc: "tag"},
				{Key: "1-9", Desc: "rate"},
			},
			System: []Hint{
				{Key: "t", Desc: "filter"},
				{Key: "?", Desc: "help"},
				{Key: "q", Desc: "quit"},
			},
		}
	case ModeTags:
		hints := HintSet{
			Nav: []Hint{
				{Key: "↑/↓", Desc: "nav"},
				{Key: "type", Desc: "filter"},
			},
			System: []Hint{{Key: "Esc", Desc: "close"}},
		}
		if a.tags.Purpose == TagPurposeRetag {
			hints.Edit = []Hint{
				{Key: "Enter", Desc: "add"},
				{Key: "C-x", Desc: "remove"},
			}
		} else {
			hints.Edit = []Hint{
				{Key: "Enter", Desc: "include"},
				{Key: "C-x", Desc: "exclude"},
				{Key: "C-d", Desc: "delete tag"},
			}
		}
		return hints
	case ModeEditTitle:
		return HintSet{
			Edit:   []Hint{{Key: "Enter", Desc: "save"}},
			System: []Hint{{Key: "Esc", Desc: "cancel"}},
		}
	case ModeHelp:
		return HintSet{
			System: []Hint{{Key: "any", Desc: "close"}},
		}
	default:
		// The confirm modal shows its own hints.
		return HintSet{}
	}
}
