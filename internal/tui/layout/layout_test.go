package layout

import "testing"

func TestListHeight(t *testing.T) {
	cfg := DefaultConfig()

	if got := ListHeight(30, cfg); got != 22 {
		t.Errorf("ListHeight(30) = %d, want 22", got)
	}
	if got := ListHeight(5, cfg); got != cfg.MinListHeight {
		t.Errorf("ListHeight(5) = %d, want %d", got, cfg.MinListHeight)
	}
}

func TestModalWidth(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name          string
		terminalWidth int
		want          int
	}{
		{"half of a wide terminal", 120, 60},
		{"capped at max", 200, 80},
		{"raised to min", 60, 40},
		{"narrow terminal keeps margin", 30, 26},
		{"tiny terminal clamps to 1", 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ModalWidth(tt.terminalWidth, cfg); got != tt.want {
				t.Errorf("ModalWidth(%d) = %d, want %d", tt.terminalWidth, got, tt.want)
			}
		})
	}
}

func TestVisibleRange(t *testing.T) {
	tests := []struct {
		name       string
		maxVisible int
		selected   int
		total      int
		wantStart  int
		wantEnd    int
	}{
		{"at start", 5, 0, 10, 0, 5},
		{"near start", 5, 2, 10, 0, 5},
		{"in middle", 5, 7, 10, 3, 8},
		{"at end", 5, 9, 10, 5, 10},
		{"fewer than max", 5, 2, 3, 0, 3},
		{"selected beyond max", 8, 10, 15, 3, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := VisibleRange(tt.maxVisible, tt.selected, tt.total)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("VisibleRange(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.maxVisible, tt.selected, tt.total, start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		text     string
		maxWidth int
		want     string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"truncated", "hello world", 8, "hello..."},
		{"multibyte", "日本語のタイトル", 5, "日本..."},
		{"only ellipsis room", "hello", 2, ".."},
		{"zero width", "hello", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.text, tt.maxWidth, cfg); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.maxWidth, got, tt.want)
			}
		})
	}
}
