package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/pick/internal/datasource"
	"github.com/vanderheijden86/pick/pkg/history"
	"github.com/vanderheijden86/pick/pkg/hooks"
	"github.com/vanderheijden86/pick/pkg/typeahead"
	"github.com/vanderheijden86/pick/pkg/watcher"
)

func fruit() []datasource.Candidate {
	return []datasource.Candidate{
		{Label: "Apple", Source: "fruit"},
		{Label: "Banana", Source: "fruit"},
		{Label: "Avocado", Source: "fruit"},
	}
}

func newTestModel(t *testing.T, opts Options) Model {
	t.Helper()
	if opts.Candidates == nil {
		opts.Candidates = fruit()
	}
	m := NewModel(opts)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok, "Update returned %T", next)
	return nm, cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func keyMsg(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func press(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

// confirm runs the selection pipeline the way the program would.
func confirm(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd, "expected a selection command")
	msg := cmd()
	sel, ok := msg.(typeahead.SelectedMsg[datasource.Candidate])
	require.True(t, ok, "expected SelectedMsg, got %T", msg)

	m, cmd = update(t, m, sel)
	require.NotNil(t, cmd)
	m, cmd = update(t, m, cmd())
	assert.True(t, isQuit(cmd), "expected quit after selection")
	return m
}

func stubClipboard(t *testing.T) *[]string {
	t.Helper()
	var copied []string
	orig := clipboardWrite
	clipboardWrite = func(s string) error {
		copied = append(copied, s)
		return nil
	}
	t.Cleanup(func() { clipboardWrite = orig })
	return &copied
}

func TestNewModelMountsPicker(t *testing.T) {
	m := newTestModel(t, Options{})
	assert.True(t, m.Picker().Mounted())
	assert.Equal(t, 1, m.Hub().Len())
	assert.Equal(t, "fruit", m.opts.HistoryKey)
}

func TestTypeAndConfirmWithKeyboard(t *testing.T) {
	m := newTestModel(t, Options{})

	m = typeText(t, m, "a")
	assert.True(t, m.Picker().IsOpen())
	assert.Len(t, m.Picker().Filtered(), 3)

	m, _ = update(t, m, keyMsg(tea.KeyDown))
	m, _ = update(t, m, keyMsg(tea.KeyDown))
	hl, ok := m.Picker().Highlighted()
	require.True(t, ok)
	assert.Equal(t, "Avocado", hl.Label)

	m, cmd := update(t, m, keyMsg(tea.KeyEnter))
	m = confirm(t, m, cmd)

	res := m.Result()
	assert.True(t, res.Selected)
	assert.Equal(t, "Avocado", res.Value)
	assert.Equal(t, "fruit", res.Source)
	assert.False(t, m.Picker().Mounted(), "picker should be unmounted on quit")
	assert.Equal(t, 0, m.Hub().Len())
}

func TestClickOptionSelects(t *testing.T) {
	m := newTestModel(t, Options{})
	m = typeText(t, m, "an")
	require.Equal(t, []string{"Banana"}, datasource.Labels(m.Picker().Filtered()))

	// First option row sits right below the input.
	m, cmd := update(t, m, press(4, widgetTop+1))
	m = confirm(t, m, cmd)
	assert.Equal(t, "Banana", m.Result().Value)
}

func TestClickOutsideClosesWithoutChangingQuery(t *testing.T) {
	m := newTestModel(t, Options{})
	m = typeText(t, m, "a")
	require.True(t, m.Picker().IsOpen())

	m, _ = update(t, m, press(10, 20))
	assert.False(t, m.Picker().IsOpen())
	assert.Equal(t, "a", m.Picker().Query())
	assert.False(t, m.Result().Selected)
}

func TestEscapeClosesListThenQuits(t *testing.T) {
	m := newTestModel(t, Options{})
	m = typeText(t, m, "a")

	m, cmd := update(t, m, keyMsg(tea.KeyEsc))
	assert.False(t, m.Picker().IsOpen())
	assert.True(t, m.Picker().Mounted(), "escape on an open list must not quit")
	assert.False(t, isQuit(cmd))

	m, cmd = update(t, m, keyMsg(tea.KeyEsc))
	assert.True(t, isQuit(cmd))
	assert.False(t, m.Result().Selected)
}

func TestCtrlCQuitsWithoutSelection(t *testing.T) {
	m := newTestModel(t, Options{})
	m = typeText(t, m, "ban")
	m, cmd := update(t, m, keyMsg(tea.KeyCtrlC))
	assert.True(t, isQuit(cmd))
	assert.False(t, m.Result().Selected)
}

func TestPrintableKeysGoToQuery(t *testing.T) {
	m := newTestModel(t, Options{})
	m = typeText(t, m, "q?")
	assert.Equal(t, "q?", m.Picker().Query())
	assert.True(t, m.Picker().Mounted())
}

func TestHelpToggle(t *testing.T) {
	m := newTestModel(t, Options{})

	m, _ = update(t, m, keyMsg(tea.KeyF1))
	assert.True(t, m.showHelp)
	view := m.View()
	assert.Contains(t, view, "Picker")
	assert.Contains(t, view, "enter")

	// Any key closes help without reaching the picker.
	m = typeText(t, m, "x")
	assert.False(t, m.showHelp)
	assert.Equal(t, "", m.Picker().Query())
}

func TestCopyHighlighted(t *testing.T) {
	copied := stubClipboard(t)
	m := newTestModel(t, Options{})

	m, _ = update(t, m, keyMsg(tea.KeyCtrlY))
	msg, isErr := m.Status()
	assert.True(t, isErr)
	assert.Contains(t, msg, "Nothing")

	m = typeText(t, m, "a")
	m, _ = update(t, m, keyMsg(tea.KeyDown))
	m, _ = update(t, m, keyMsg(tea.KeyCtrlY))
	assert.Equal(t, []string{"Banana"}, *copied)
	msg, isErr = m.Status()
	assert.False(t, isErr)
	assert.Contains(t, msg, "Banana")
}

func TestCopyErrorShownInStatus(t *testing.T) {
	orig := clipboardWrite
	clipboardWrite = func(string) error { return errors.New("no clipboard") }
	t.Cleanup(func() { clipboardWrite = orig })

	m := newTestModel(t, Options{})
	m = typeText(t, m, "app")
	m, _ = update(t, m, keyMsg(tea.KeyCtrlY))
	msg, isErr := m.Status()
	assert.True(t, isErr)
	assert.Contains(t, msg, "no clipboard")
}

func TestInitialOptionPresetsQuery(t *testing.T) {
	m := newTestModel(t, Options{Initial: "Banana"})
	assert.Equal(t, "Banana", m.Picker().Query())
	assert.False(t, m.Picker().IsOpen())
}

func TestHistoryPresetAndRecord(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Record(context.Background(), "fruit", "Banana")
	require.NoError(t, err)

	m := newTestModel(t, Options{History: store})
	msg := loadLastCmd(store, "fruit")()
	require.IsType(t, lastSelectionMsg{}, msg)
	m, _ = update(t, m, msg)
	assert.Equal(t, "Banana", m.Picker().Query())

	m, _ = update(t, m, keyMsg(tea.KeyDown)) // opens
	m, cmd := update(t, m, keyMsg(tea.KeyEnter))
	m = confirm(t, m, cmd)
	assert.Equal(t, "Banana", m.Result().Value)

	entries, err := store.Recent(context.Background(), "fruit", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestHistoryPresetIgnoredAfterTyping(t *testing.T) {
	m := newTestModel(t, Options{})
	m = typeText(t, m, "av")
	m, _ = update(t, m, lastSelectionMsg{entry: history.Entry{Source: "fruit", Value: "Banana"}})
	assert.Equal(t, "av", m.Picker().Query())
}

func TestLoadLastCmdWithoutHistory(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()
	assert.Nil(t, loadLastCmd(store, "fruit")())
}

func TestHooksRunOnSelect(t *testing.T) {
	out := filepath.Join(t.TempDir(), "picked")
	cfg := &hooks.Config{Hooks: hooks.Normalize(hooks.HooksByPhase{OnSelect: []hooks.Hook{
		{Name: "write", Command: `printf '%s|%s' "$PICK_VALUE" "$PICK_SOURCE" > "` + out + `"`},
	}})}

	m := newTestModel(t, Options{Hooks: cfg})
	m = typeText(t, m, "app")
	m, cmd := update(t, m, keyMsg(tea.KeyEnter))
	m = confirm(t, m, cmd)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "Apple|fruit", string(data))
	require.Len(t, m.Result().Hooks, 1)
	assert.True(t, m.Result().Hooks[0].Success)
	assert.Equal(t, "write", m.Result().Hooks[0].Hook.Name)
	assert.Empty(t, m.Result().Warnings)
}

func TestFailingHookIsAWarning(t *testing.T) {
	cfg := &hooks.Config{Hooks: hooks.HooksByPhase{OnSelect: []hooks.Hook{
		{Name: "boom", Command: "exit 3", Timeout: time.Second, OnError: hooks.OnErrorFail},
	}}}

	m := newTestModel(t, Options{Hooks: cfg})
	m = typeText(t, m, "app")
	m, cmd := update(t, m, keyMsg(tea.KeyEnter))
	m = confirm(t, m, cmd)

	res := m.Result()
	assert.True(t, res.Selected)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "boom")
}

func TestCopyOnSelect(t *testing.T) {
	copied := stubClipboard(t)
	m := newTestModel(t, Options{Copy: true})
	m = typeText(t, m, "avo")
	m, cmd := update(t, m, keyMsg(tea.KeyEnter))
	confirm(t, m, cmd)
	assert.Equal(t, []string{"Avocado"}, *copied)
}

func TestKeysIgnoredWhileFinishing(t *testing.T) {
	m := newTestModel(t, Options{})
	m = typeText(t, m, "app")
	m, cmd := update(t, m, keyMsg(tea.KeyEnter))
	m, _ = update(t, m, cmd())

	m = typeText(t, m, "zz")
	assert.Equal(t, "Apple", m.Picker().Query())
}

func TestReloadReplacesValuesAndKeepsQuery(t *testing.T) {
	reloaded := []datasource.Candidate{{Label: "Apricot", Source: "fruit"}, {Label: "Cherry", Source: "fruit"}}
	m := newTestModel(t, Options{
		Reload: func(context.Context) ([]datasource.Candidate, error) { return reloaded, nil },
	})
	m = typeText(t, m, "a")
	m, _ = update(t, m, keyMsg(tea.KeyDown))

	m, cmd := update(t, m, keyMsg(tea.KeyCtrlR))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.Equal(t, "a", m.Picker().Query())
	assert.Equal(t, []string{"Apricot"}, datasource.Labels(m.Picker().Filtered()))
	assert.Equal(t, 0, m.Picker().State().SelectedIndex)
	msg, _ := m.Status()
	assert.Contains(t, msg, "Reloaded 2")
}

func TestReloadFailureKeepsValues(t *testing.T) {
	m := newTestModel(t, Options{})
	m, _ = update(t, m, sourcesLoadedMsg{err: errors.New("gone")})
	assert.Len(t, m.Picker().Values(), 3)
	msg, isErr := m.Status()
	assert.True(t, isErr)
	assert.Contains(t, msg, "gone")
}

func TestSourceChangedWithoutReload(t *testing.T) {
	m := newTestModel(t, Options{})
	m, cmd := update(t, m, SourceChangedMsg{})
	assert.Nil(t, cmd)
	msg, _ := m.Status()
	assert.Contains(t, msg, "reloading")
}

func TestSourceErrorShownInStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"removed", watcher.ErrFileRemoved, "hosts.txt was removed, keeping 3 candidates"},
		{"other", errors.New("inotify queue overflow"), "Watch error: inotify queue overflow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, Options{})
			m, cmd := update(t, m, SourceErrorMsg{Path: "/srv/hosts.txt", Err: tt.err})
			assert.Nil(t, cmd, "no watcher to wait on")

			msg, isErr := m.Status()
			assert.True(t, isErr)
			assert.Equal(t, tt.want, msg)
			assert.Len(t, m.Picker().Values(), 3)
		})
	}
}

func TestWatchedFileRemovalReachesStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.txt")
	require.NoError(t, os.WriteFile(path, []byte("db-1\n"), 0o644))
	w, err := watcher.New(path, watcher.WithPolling(true), watcher.WithPollInterval(20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)

	m := newTestModel(t, Options{Watcher: w})
	require.NoError(t, os.Remove(path))

	got := make(chan tea.Msg, 1)
	go func() { got <- WatchFileCmd(w)() }()
	var msg tea.Msg
	select {
	case msg = <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not report the removal")
	}
	srcErr, ok := msg.(SourceErrorMsg)
	require.True(t, ok, "got %T", msg)
	assert.ErrorIs(t, srcErr.Err, watcher.ErrFileRemoved)

	m, cmd := update(t, m, srcErr)
	assert.NotNil(t, cmd, "keeps waiting for the file to come back")
	status, isErr := m.Status()
	assert.True(t, isErr)
	assert.Contains(t, status, "hosts.txt was removed")
}

func TestViewLayout(t *testing.T) {
	m := newTestModel(t, Options{Title: "Pick a fruit"})
	assert.Equal(t, "Loading...", NewModel(Options{Candidates: fruit()}).View())

	m = typeText(t, m, "a")
	view := m.View()
	lines := strings.Split(view, "\n")
	require.Len(t, lines, 24)
	assert.Contains(t, lines[0], "Pick a fruit")
	assert.Contains(t, lines[widgetTop], "a")
	assert.Contains(t, lines[widgetTop+1], "Apple")
	assert.Contains(t, lines[widgetTop+3], "Avocado")
	assert.Contains(t, lines[23], "3/3")
	assert.Contains(t, lines[23], "fruit")
}

func TestFindCandidate(t *testing.T) {
	cs := []datasource.Candidate{{Label: "x", Source: "a"}, {Label: "x", Source: "b"}}
	assert.Equal(t, "b", findCandidate(cs, "x", "b").Source)
	assert.Equal(t, "a", findCandidate(cs, "x", "c").Source)
	assert.Equal(t, datasource.Candidate{Label: "y", Source: "c"}, findCandidate(cs, "y", "c"))
}
