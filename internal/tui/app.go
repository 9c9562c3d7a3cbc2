package tui

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nikbrunner/marks/internal/actions"
	"github.com/nikbrunner/marks/internal/library"
	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/query"
	"github.com/nikbrunner/marks/internal/search"
	"github.com/nikbrunner/marks/internal/selection"
	"github.com/nikbrunner/marks/internal/tui/layout"
)

// MessageType styles the message line.
type MessageType int

const (
	MessageInfo MessageType = iota
	MessageSuccess
	MessageError
)

// App is the main bubbletea model for the bookmark library.
type App struct {
	ctx    context.Context
	lib    *library.Library
	keys   KeyMap
	styles Styles
	layout layout.Config
	yank   func(string) error
	remote <-chan []string

	mode   Mode
	cursor int // index into the displayed page

	// For gg command
	lastKeyWasG bool

	tags    TagPickerState
	title   TitleState
	confirm ConfirmState

	messageText string
	messageType MessageType

	// Window dimensions
	width  int
	height int
}

// AppParams holds parameters for creating a new App.
type AppParams struct {
	Context   context.Context // optional, context.Background if nil
	Library   *library.Library
	Keys      *KeyMap            // optional, uses default if nil
	Styles    *Styles            // optional, uses default if nil
	Clipboard func(string) error // optional, the system clipboard if nil
	// Remote delivers ids of bookmarks another process changed.
	Remote <-chan []string
}

// NewApp creates a new App with the given parameters.
func NewApp(params AppParams) App {
	keys := DefaultKeyMap()
	if params.Keys != nil {
		keys = *params.Keys
	}

	styles := DefaultStyles()
	if params.Styles != nil {
		styles = *params.Styles
	}

	ctx := params.Context
	if ctx == nil {
		ctx = context.Background()
	}

	yank := params.Clipboard
	if yank == nil {
		yank = clipboard.WriteAll
	}

	cfg := layout.DefaultConfig()
	return App{
		ctx:    ctx,
		lib:    params.Library,
		keys:   keys,
		styles: styles,
		layout: cfg,
		yank:   yank,
		remote: params.Remote,
		tags:   NewTagPickerState(cfg),
		title:  NewTitleState(cfg),
		width:  80,
		height: 24,
	}
}

// remoteMsg reports bookmarks changed elsewhere after they were merged.
type remoteMsg struct {
	ids []string
	err error
}

// actionMsg reports a finished library write.
type actionMsg struct {
	text string
	err  error
}

// tagCreatedMsg reports a tag created from the tag picker.
type tagCreatedMsg struct {
	tag model.Tag
	err error
}

// waitForRemote blocks until ids arrive on ch and merges them from storage.
func waitForRemote(ctx context.Context, lib *library.Library, ch <-chan []string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case ids, ok := <-ch:
			if !ok {
				return nil
			}
			return remoteMsg{ids: ids, err: lib.ApplyRemote(ctx, ids)}
		case <-ctx.Done():
			return nil
		}
	}
}

// do runs fn outside the update loop and reports its outcome as an
// actionMsg. fn must only touch the library.
func (a App) do(fn func(ctx context.Context, lib *library.Library) (string, error)) tea.Cmd {
	ctx, lib := a.ctx, a.lib
	return func() tea.Msg {
		text, err := fn(ctx, lib)
		return actionMsg{text: text, err: err}
	}
}

// Cursor returns the cursor position on the current page.
func (a App) Cursor() int {
	return a.cursor
}

// Mode returns the current mode.
func (a App) Mode() Mode {
	return a.mode
}

// Message returns the current message line text.
func (a App) Message() string {
	return a.messageText
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return waitForRemote(a.ctx, a.lib, a.remote)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case remoteMsg:
		if msg.err != nil {
			a.setError(msg.err)
		}
		a.clampCursor()
		return a, waitForRemote(a.ctx, a.lib, a.remote)

	case actionMsg:
		a.lib.View.ClampPage()
		a.clampCursor()
		switch {
		case msg.err != nil:
			a.setError(msg.err)
		case msg.text != "":
			a.setMessage(MessageSuccess, "%s", msg.text)
		}
		return a, nil

	case tagCreatedMsg:
		if msg.err != nil {
			a.setError(msg.err)
			return a, nil
		}
		a.setMessage(MessageSuccess, "Created tag %s", msg.tag.Label)
		if a.mode != ModeTags {
			return a, nil
		}
		a.tags.Input.SetValue("")
		cmd := a.pickTag(msg.tag, false)
		return a, cmd

	case tea.KeyMsg:
		switch a.mode {
		case ModeTags:
			return a.updateTags(msg)
		case ModeConfirmDelete:
			return a.updateConfirm(msg)
		case ModeEditTitle:
			return a.updateTitle(msg)
		case ModeHelp:
			if key.Matches(msg, a.keys.Quit) {
				return a, tea.Quit
			}
			a.mode = ModeNormal
			return a, nil
		}
		return a.updateNormal(msg)
	}

	return a, nil
}

func (a App) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle gg sequence
	if key.Matches(msg, a.keys.Top) {
		if a.lastKeyWasG {
			a.cursor = 0
			a.lastKeyWasG = false
			return a, nil
		}
		a.lastKeyWasG = true
		return a, nil
	}
	a.lastKeyWasG = false
	a.messageText = ""

	page := a.lib.View.Displayed()
	c := a.lib.View.Criteria()

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Down):
		if a.cursor < len(page)-1 {
			a.cursor++
		}

	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}

	case key.Matches(msg, a.keys.Bottom):
		a.cursor = max(len(page)-1, 0)

	case key.Matches(msg, a.keys.Prev):
		a.navigate("left")

	case key.Matches(msg, a.keys.Next):
		a.navigate("right")

	case key.Matches(msg, a.keys.NextPage):
		a.setPage(c.Page + 1)

	case key.Matches(msg, a.keys.PrevPage):
		a.setPage(c.Page - 1)

	case key.Matches(msg, a.keys.Toggle):
		if b, ok := a.focused(); ok {
			a.lib.Selection.Toggle([]selection.Entry{selection.Flip(b.ID)})
		}

	case key.Matches(msg, a.keys.SelectOnly):
		if b, ok := a.focused(); ok {
			a.lib.Selection.SelectOnly(b.ID)
		}

	case key.Matches(msg, a.keys.RangeSelect):
		if b, ok := a.focused(); ok {
			a.lib.Selection.RangeSelect(b.ID)
		}

	case key.Matches(msg, a.keys.SelectAll):
		a.lib.Selection.SelectAll()

	case key.Matches(msg, a.keys.ClearSel):
		a.lib.Selection.ClearAll()

	case key.Matches(msg, a.keys.Archive):
		cmd = a.archive()

	case key.Matches(msg, a.keys.Delete):
		ids := a.targets()
		if len(ids) == 0 {
			break
		}
		a.confirm = ConfirmState{IDs: ids}
		for _, id := range ids {
			if b, ok := a.lib.Bookmarks.Get(id); ok && b.IsArchived {
				a.confirm.Archived++
			}
		}
		a.mode = ModeConfirmDelete

	case key.Matches(msg, a.keys.Retag):
		ids := a.targets()
		if len(ids) == 0 {
			break
		}
		a.tags.Reset(TagPurposeRetag, ids)
		a.mode = ModeTags

	case key.Matches(msg, a.keys.Tags):
		a.tags.Reset(TagPurposeFilter, nil)
		a.mode = ModeTags

	case key.Matches(msg, a.keys.Tagged):
		a.lib.View.SetTagged(c.Tagged.Next())
		a.lib.View.ClampPage()

	case key.Matches(msg, a.keys.Descendants):
		a.lib.View.SetIncludeDescendants(!c.IncludeDescendants)
		a.lib.View.ClampPage()

	case key.Matches(msg, a.keys.Scope):
		a.lib.View.SetArchived(!c.Archived)
		a.cursor = 0

	case key.Matches(msg, a.keys.Sort):
		a.lib.View.SetSort(nextSortKey(c.SortKey), c.SortDesc)

	case key.Matches(msg, a.keys.Reverse):
		a.lib.View.SetSort(c.SortKey, !c.SortDesc)

	case key.Matches(msg, a.keys.Reset):
		a.lib.View.Reset()
		a.cursor = 0

	case key.Matches(msg, a.keys.EditTitle):
		if b, ok := a.focused(); ok {
			a.title.Start(b.ID, b.Title)
			a.mode = ModeEditTitle
		}

	case key.Matches(msg, a.keys.Refresh):
		cmd = a.refresh()

	case key.Matches(msg, a.keys.YankURL):
		if b, ok := a.focused(); ok {
			if err := a.yank(b.PageURL); err != nil {
				a.setError(fmt.Errorf("copy url: %w", err))
			} else {
				a.setMessage(MessageSuccess, "Copied: %s", b.PageURL)
			}
		}

	case key.Matches(msg, a.keys.Help):
		a.mode = ModeHelp

	default:
		if s := msg.String(); len(s) == 1 && s[0] >= '0' && s[0] <= '9' {
			cmd = a.rate(int(s[0] - '0'))
		}
	}

	a.clampCursor()
	return a, cmd
}

func (a App) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		ids := a.confirm.IDs
		a.confirm = ConfirmState{}
		a.mode = ModeNormal
		return a, a.do(func(ctx context.Context, lib *library.Library) (string, error) {
			res, err := lib.Actions.DeleteBookmarks(ctx, ids)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Archived %d, deleted %d", len(res.Archived), len(res.Deleted)), nil
		})
	case "n", "esc", "q":
		a.confirm = ConfirmState{}
		a.mode = ModeNormal
	}
	return a, nil
}

func (a App) updateTitle(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.title.Input.Blur()
		a.mode = ModeNormal
		return a, nil
	case "enter":
		id, title := a.title.ID, strings.TrimSpace(a.title.Input.Value())
		a.title.Input.Blur()
		a.mode = ModeNormal
		return a, a.do(func(ctx context.Context, lib *library.Library) (string, error) {
			if err := lib.Actions.SetTitle(ctx, id, title); err != nil {
				return "", err
			}
			return "Title updated", nil
		})
	}

	var cmd tea.Cmd
	a.title.Input, cmd = a.title.Input.Update(msg)
	return a, cmd
}

func (a App) updateTags(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	opts := a.tagOptions()

	switch msg.String() {
	case "esc":
		a.tags.Input.Blur()
		a.mode = ModeNormal
		return a, nil
	case "down", "ctrl+n":
		if a.tags.Cursor < len(opts)-1 {
			a.tags.Cursor++
		}
		return a, nil
	case "up", "ctrl+p":
		if a.tags.Cursor > 0 {
			a.tags.Cursor--
		}
		return a, nil
	case "enter":
		if len(opts) == 0 {
			return a, a.createTag()
		}
		cmd := a.pickTag(opts[a.tags.Cursor].Tag, false)
		return a, cmd
	case "ctrl+x":
		if len(opts) == 0 {
			return a, nil
		}
		cmd := a.pickTag(opts[a.tags.Cursor].Tag, true)
		return a, cmd
	case "ctrl+d":
		if len(opts) == 0 {
			return a, nil
		}
		t := opts[a.tags.Cursor].Tag
		a.tags.Cursor = max(min(a.tags.Cursor, len(opts)-2), 0)
		return a, a.do(func(ctx context.Context, lib *library.Library) (string, error) {
			if err := lib.DeleteTag(ctx, t.ID); err != nil {
				return "", err
			}
			return "Deleted tag " + t.Label, nil
		})
	}

	var cmd tea.Cmd
	a.tags.Input, cmd = a.tags.Input.Update(msg)
	a.tags.Cursor = 0
	return a, cmd
}

// createTag creates a tag from the picker input. The tag is picked once
// tagCreatedMsg arrives.
func (a App) createTag() tea.Cmd {
	label := strings.TrimSpace(a.tags.Input.Value())
	if label == "" {
		return nil
	}
	ctx, lib := a.ctx, a.lib
	return func() tea.Msg {
		t, err := lib.Actions.CreateTag(ctx, actions.TagInput{Label: label})
		return tagCreatedMsg{tag: t, err: err}
	}
}

// pickTag applies t for the picker's purpose. negate excludes the tag from
// the filter, or removes it from the targets.
func (a *App) pickTag(t model.Tag, negate bool) tea.Cmd {
	switch a.tags.Purpose {
	case TagPurposeFilter:
		if negate {
			a.lib.View.ToggleExcluded(t.ID)
		} else {
			a.lib.View.ToggleIncluded(t.ID)
		}
		a.lib.View.ClampPage()
		a.clampCursor()
		return nil

	case TagPurposeRetag:
		added, removed := []string{t.ID}, []string(nil)
		verb := "Tagged"
		if negate {
			added, removed = nil, []string{t.ID}
			verb = "Untagged"
		}
		targets := a.tags.Targets
		a.tags.Input.Blur()
		a.mode = ModeNormal
		return a.do(func(ctx context.Context, lib *library.Library) (string, error) {
			changed, err := lib.Actions.RetagBookmarks(ctx, targets, added, removed)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s %d bookmarks with %s", verb, len(changed), t.Label), nil
		})
	}
	return nil
}

// tagOptions lists the picker's tags, narrowed by the fuzzy query.
func (a App) tagOptions() []query.TagOption {
	opts := a.lib.View.TagOptions()
	q := strings.TrimSpace(a.tags.Input.Value())
	if q == "" {
		return opts
	}

	byID := make(map[string]query.TagOption, len(opts))
	tags := make([]model.Tag, 0, len(opts))
	for _, o := range opts {
		byID[o.Tag.ID] = o
		tags = append(tags, o.Tag)
	}
	var out []query.TagOption
	for _, r := range search.Tags(tags, q) {
		out = append(out, byID[r.Tag.ID])
	}
	return out
}

// focused returns the bookmark under the cursor.
func (a App) focused() (model.Bookmark, bool) {
	page := a.lib.View.Displayed()
	if a.cursor < 0 || a.cursor >= len(page) {
		return model.Bookmark{}, false
	}
	return page[a.cursor], true
}

// targets returns the selected bookmarks, or the focused one when nothing is
// selected.
func (a App) targets() []string {
	if ids := a.lib.Bookmarks.SelectedIDs(); len(ids) > 0 {
		return ids
	}
	if b, ok := a.focused(); ok {
		return []string{b.ID}
	}
	return nil
}

// navigate moves the sole selection and follows it with the cursor. Without
// a sole selection the focused bookmark becomes selected.
func (a *App) navigate(dir string) {
	handled, err := a.lib.HandleKey(a.ctx, dir)
	if err != nil {
		a.setError(err)
		return
	}
	if !handled {
		if b, ok := a.focused(); ok {
			a.lib.Selection.SelectOnly(b.ID)
		}
	}
	if id, ok := a.lib.Selection.SoleSelected(); ok {
		if i := slices.IndexFunc(a.lib.View.Displayed(), func(b model.Bookmark) bool { return b.ID == id }); i >= 0 {
			a.cursor = i
		}
	}
}

func (a *App) setPage(page int) {
	if page < 1 || page > a.lib.View.PageCount() {
		return
	}
	a.lib.View.SetPage(page)
	a.cursor = 0
}

func (a App) archive() tea.Cmd {
	ids := a.targets()
	if len(ids) == 0 {
		return nil
	}
	restore := a.lib.View.Criteria().Archived
	return a.do(func(ctx context.Context, lib *library.Library) (string, error) {
		if restore {
			changed, err := lib.Actions.UnarchiveBookmarks(ctx, ids)
			return fmt.Sprintf("Restored %d bookmarks", len(changed)), err
		}
		changed, err := lib.Actions.ArchiveBookmarks(ctx, ids)
		return fmt.Sprintf("Archived %d bookmarks", len(changed)), err
	})
}

// rate sets the rating of the sole selection, falling back to the targets.
func (a App) rate(rating int) tea.Cmd {
	ids := a.targets()
	return a.do(func(ctx context.Context, lib *library.Library) (string, error) {
		if rating > 0 {
			handled, err := lib.HandleKey(ctx, strconv.Itoa(rating))
			if err != nil {
				return "", err
			}
			if handled {
				return fmt.Sprintf("Rated %d", rating), nil
			}
		}
		if len(ids) == 0 {
			return "", nil
		}
		if _, err := lib.Actions.SetRating(ctx, ids, rating); err != nil {
			return "", err
		}
		return fmt.Sprintf("Rated %d", rating), nil
	})
}

// refresh rehashes the targets' screenshots on the refresh pool.
func (a App) refresh() tea.Cmd {
	ids := a.targets()
	if len(ids) == 0 {
		return nil
	}
	return a.do(func(ctx context.Context, lib *library.Library) (string, error) {
		var changed, failed int
		var lastErr error
		for _, r := range lib.Actions.RefreshMany(ctx, ids, nil) {
			switch {
			case r.Err != nil:
				failed++
				lastErr = r.Err
			case r.Changed:
				changed++
			}
		}
		if failed > 0 {
			return "", fmt.Errorf("%d of %d refreshes failed: %w", failed, len(ids), lastErr)
		}
		return fmt.Sprintf("Refreshed %d, %d changed", len(ids), changed), nil
	})
}

func (a *App) clampCursor() {
	n := len(a.lib.View.Displayed())
	a.cursor = max(min(a.cursor, n-1), 0)
}

func (a *App) setMessage(t MessageType, format string, args ...any) {
	a.messageType = t
	a.messageText = fmt.Sprintf(format, args...)
}

func (a *App) setError(err error) {
	a.messageType = MessageError
	a.messageText = err.Error()
}

func nextSortKey(current string) string {
	i := slices.Index(query.SortKeys, current)
	return query.SortKeys[(i+1)%len(query.SortKeys)]
}

// View implements tea.Model.
func (a App) View() string {
	return a.renderView()
}
