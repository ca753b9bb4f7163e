// Package ui is the full-screen picker: a title bar, the typeahead widget and
// a status bar, plus a help page. A confirmed selection is recorded in the
// history, handed to the on-select hooks and returned through Result.
package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/pick/internal/datasource"
	"github.com/vanderheijden86/pick/pkg/debug"
	"github.com/vanderheijden86/pick/pkg/history"
	"github.com/vanderheijden86/pick/pkg/hooks"
	"github.com/vanderheijden86/pick/pkg/metrics"
	"github.com/vanderheijden86/pick/pkg/typeahead"
	"github.com/vanderheijden86/pick/pkg/watcher"
)

// clipboardWrite is replaced in tests.
var clipboardWrite = clipboard.WriteAll

// Picker is the widget specialised to loaded candidates.
type Picker = typeahead.Model[datasource.Candidate]

// Screen rows above the widget: title bar and a blank line.
const widgetTop = 2

// historyTimeout bounds history reads and writes done from the UI.
const historyTimeout = 2 * time.Second

// Options configures the picker screen.
type Options struct {
	Title       string
	HistoryKey  string // history/hook source name; defaults to the first candidate's source
	Candidates  []datasource.Candidate
	Initial     string // preset query; disables the history preset
	Prompt      string
	Placeholder string
	Width       int // widget width; 0 fits the terminal

	History *history.Store
	Hooks   *hooks.Config
	Copy    bool // copy the selection to the clipboard on confirm

	Watcher *watcher.Watcher
	Reload  func(ctx context.Context) ([]datasource.Candidate, error)
}

// Result is the outcome of a picker run.
type Result struct {
	Selected   bool
	Value      string
	Source     string
	SelectedAt time.Time

	Hooks    []hooks.HookResult
	Warnings []string // non-fatal failures: history, hooks, clipboard
}

// SourceChangedMsg is sent when the watched source file changes on disk.
type SourceChangedMsg struct{}

// SourceErrorMsg is sent when the watched source file is removed or can no
// longer be watched. The loaded candidates stay in place.
type SourceErrorMsg struct {
	Path string
	Err  error
}

// sourcesLoadedMsg carries candidates from a reload.
type sourcesLoadedMsg struct {
	candidates []datasource.Candidate
	err        error
}

// lastSelectionMsg carries the history preset.
type lastSelectionMsg struct {
	entry history.Entry
}

// selectionDoneMsg is sent after history, hooks and clipboard ran.
type selectionDoneMsg struct {
	result Result
}

// Model is the root bubbletea model.
type Model struct {
	opts   Options
	theme  Theme
	keys   hostKeys
	hub    *typeahead.Hub
	picker Picker

	width, height int
	ready         bool

	showHelp     bool
	helpRenderer *glamour.TermRenderer
	helpWidth    int

	statusMsg     string
	statusIsError bool

	finishing bool
	result    Result
}

// NewModel builds the screen and mounts the picker on the screen's pointer hub.
func NewModel(opts Options) Model {
	if opts.Title == "" {
		opts.Title = "pick"
	}
	if opts.HistoryKey == "" && len(opts.Candidates) > 0 {
		opts.HistoryKey = opts.Candidates[0].Source
	}

	theme := DefaultTheme(lipgloss.DefaultRenderer())

	pickerOpts := []typeahead.Option[datasource.Candidate]{
		typeahead.WithFormatter(func(c datasource.Candidate) string { return c.Label }),
		typeahead.WithStyles[datasource.Candidate](theme.TypeaheadStyles()),
		typeahead.WithOrigin[datasource.Candidate](0, widgetTop),
	}
	if opts.Prompt != "" {
		pickerOpts = append(pickerOpts, typeahead.WithPrompt[datasource.Candidate](opts.Prompt))
	}
	if opts.Placeholder != "" {
		pickerOpts = append(pickerOpts, typeahead.WithPlaceholder[datasource.Candidate](opts.Placeholder))
	}
	if opts.Width > 0 {
		pickerOpts = append(pickerOpts, typeahead.WithWidth[datasource.Candidate](opts.Width))
	}
	if opts.Initial != "" {
		pickerOpts = append(pickerOpts, typeahead.WithInitialValue(findCandidate(opts.Candidates, opts.Initial, opts.HistoryKey)))
	}

	m := Model{
		opts:   opts,
		theme:  theme,
		keys:   defaultHostKeys(),
		hub:    typeahead.NewHub(),
		picker: typeahead.New(opts.Candidates, pickerOpts...),
	}
	m.picker.Mount(m.hub)
	m.statusMsg = fmt.Sprintf("%d candidates", len(opts.Candidates))
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.picker.Init()}
	if m.opts.Initial == "" && m.opts.History != nil {
		cmds = append(cmds, loadLastCmd(m.opts.History, m.opts.HistoryKey))
	}
	if m.opts.Watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
	}
	return tea.Batch(cmds...)
}

// WatchFileCmd returns a command that waits for the next watcher event and
// sends SourceChangedMsg or SourceErrorMsg.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		ev := <-w.Events()
		if ev.Err != nil {
			return SourceErrorMsg{Path: ev.Path, Err: ev.Err}
		}
		return SourceChangedMsg{}
	}
}

func loadLastCmd(store *history.Store, source string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()
		entry, err := store.Last(ctx, source)
		if err != nil {
			if !errors.Is(err, history.ErrNotFound) {
				debug.Log("ui: loading last selection: %v", err)
			}
			return nil
		}
		return lastSelectionMsg{entry: entry}
	}
}

func (m Model) reloadCmd() tea.Cmd {
	reload := m.opts.Reload
	if reload == nil {
		return nil
	}
	return func() tea.Msg {
		candidates, err := reload(context.Background())
		return sourcesLoadedMsg{candidates: candidates, err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	defer metrics.Timer(metrics.UIUpdate)()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		if m.opts.Width <= 0 {
			m.picker.SetWidth(msg.Width)
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case tea.MouseMsg:
		if m.showHelp || m.finishing {
			return m, nil
		}
		m.hub.DispatchMouse(msg)
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd

	case typeahead.SelectedMsg[datasource.Candidate]:
		return m.finish(msg.Value)

	case selectionDoneMsg:
		m.result = msg.result
		return m.quit()

	case lastSelectionMsg:
		// Typing before the lookup returned wins.
		if m.picker.Query() == "" {
			m.picker.SetInitialValue(findCandidate(m.picker.Values(), msg.entry.Value, msg.entry.Source))
			m.setStatus(fmt.Sprintf("Last pick: %s", msg.entry.Value), false)
		}
		return m, nil

	case SourceChangedMsg:
		m.setStatus("Source changed, reloading...", false)
		return m, tea.Batch(m.reloadCmd(), WatchFileCmd(m.opts.Watcher))

	case SourceErrorMsg:
		if errors.Is(msg.Err, watcher.ErrFileRemoved) {
			m.setStatus(fmt.Sprintf("%s was removed, keeping %d candidates",
				filepath.Base(msg.Path), len(m.picker.Values())), true)
		} else {
			m.setStatus(fmt.Sprintf("Watch error: %v", msg.Err), true)
		}
		return m, WatchFileCmd(m.opts.Watcher)

	case sourcesLoadedMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Reload failed: %v", msg.err), true)
			return m, nil
		}
		m.picker.SetValues(msg.candidates)
		m.setStatus(fmt.Sprintf("Reloaded %d candidates", len(msg.candidates)), false)
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m.quit()
	}
	if m.finishing {
		return m, nil
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		if m.helpRenderer == nil || m.helpWidth != m.width {
			m.helpRenderer = newHelpRenderer(m.width)
			m.helpWidth = m.width
		}
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		m.copyHighlighted()
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		if cmd := m.reloadCmd(); cmd != nil {
			m.setStatus("Reloading...", false)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if key.Matches(msg, m.keys.Back) && !m.picker.PropagationStopped() {
		// Escape on a closed list reaches the screen.
		return m.quit()
	}
	return m, cmd
}

func (m *Model) copyHighlighted() {
	text := m.picker.Query()
	if c, ok := m.picker.Highlighted(); ok && m.picker.IsOpen() {
		text = c.Label
	}
	if text == "" {
		m.setStatus("Nothing to copy", true)
		return
	}
	if err := clipboardWrite(text); err != nil {
		m.setStatus(fmt.Sprintf("Clipboard error: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("Copied %s to clipboard", text), false)
}

func (m *Model) setStatus(msg string, isError bool) {
	m.statusMsg = msg
	m.statusIsError = isError
}

// finish runs the side effects of a selection off the UI goroutine.
func (m Model) finish(c datasource.Candidate) (tea.Model, tea.Cmd) {
	if m.finishing {
		return m, nil
	}
	m.finishing = true
	m.setStatus(fmt.Sprintf("Selected %s", c.Label), false)

	source := c.Source
	if m.opts.HistoryKey != "" {
		source = m.opts.HistoryKey
	}
	opts := m.opts
	return m, func() tea.Msg {
		return selectionDoneMsg{result: completeSelection(context.Background(), opts, c, source)}
	}
}

// completeSelection records the selection, runs hooks and copies the value.
func completeSelection(ctx context.Context, opts Options, c datasource.Candidate, source string) Result {
	res := Result{
		Selected:   true,
		Value:      c.Label,
		Source:     source,
		SelectedAt: time.Now().UTC(),
	}

	if opts.History != nil {
		hctx, cancel := context.WithTimeout(ctx, historyTimeout)
		entry, err := opts.History.Record(hctx, source, c.Label)
		cancel()
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("history: %v", err))
		} else {
			res.SelectedAt = entry.SelectedAt
		}
	}

	if opts.Hooks != nil && len(opts.Hooks.Hooks.OnSelect) > 0 {
		exec := hooks.NewExecutor(opts.Hooks, hooks.SelectContext{
			Value:     res.Value,
			Source:    res.Source,
			Timestamp: res.SelectedAt,
		})
		if err := exec.RunOnSelect(ctx); err != nil {
			res.Warnings = append(res.Warnings, err.Error())
		}
		res.Hooks = exec.Results()
	}

	if opts.Copy {
		if err := clipboardWrite(res.Value); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("clipboard: %v", err))
		}
	}

	for _, w := range res.Warnings {
		debug.Log("ui: %s", w)
	}
	return res
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.picker.Unmount()
	return m, tea.Quit
}

// Result returns the outcome once the program has quit.
func (m Model) Result() Result {
	return m.result
}

// Picker returns the embedded widget.
func (m Model) Picker() Picker {
	return m.picker
}

// Hub returns the pointer hub the widget is mounted on.
func (m Model) Hub() *typeahead.Hub {
	return m.hub
}

// Status returns the status bar message and whether it is an error.
func (m Model) Status() (string, bool) {
	return m.statusMsg, m.statusIsError
}

// findCandidate returns the candidate labelled value, preferring one from
// source, or a new candidate when none matches.
func findCandidate(candidates []datasource.Candidate, value, source string) datasource.Candidate {
	var fallback *datasource.Candidate
	for i := range candidates {
		if candidates[i].Label != value {
			continue
		}
		if candidates[i].Source == source {
			return candidates[i]
		}
		if fallback == nil {
			fallback = &candidates[i]
		}
	}
	if fallback != nil {
		return *fallback
	}
	return datasource.Candidate{Label: value, Source: source}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.helpView()
	}

	header := m.theme.Header.Render(truncate(m.opts.Title, max(1, m.width-2)))
	body := header + "\n\n" + m.picker.View()

	lines := strings.Split(body, "\n")
	bodyHeight := max(1, m.height-1)
	if len(lines) > bodyHeight {
		lines = lines[:bodyHeight]
	}
	for len(lines) < bodyHeight {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n") + "\n" + m.statusBar()
}

func (m Model) statusBar() string {
	count := fmt.Sprintf(" %d/%d ", len(m.picker.Filtered()), len(m.picker.Values()))
	if m.opts.HistoryKey != "" {
		count += "· " + m.opts.HistoryKey + " "
	}
	hint := " f1 help "

	msgStyle := m.theme.StatusBar
	if m.statusIsError {
		msgStyle = m.theme.StatusError
	}

	room := m.width - lipgloss.Width(count) - lipgloss.Width(hint)
	msg := ""
	if room > 0 {
		msg = fitLine(" "+m.statusMsg, room)
	}
	return m.theme.KeyHint.Render(count) + msgStyle.Render(msg) + m.theme.StatusBar.Render(hint)
}

func (m Model) helpView() string {
	host := []key.Binding{m.keys.Quit, m.keys.Back, m.keys.Help, m.keys.Copy}
	if m.opts.Reload != nil {
		host = append(host, m.keys.Reload)
	}
	km := m.picker.KeyMap()
	picker := []key.Binding{km.Down, km.Up, km.Confirm, km.Close, km.Leave}
	return renderHelp(m.helpRenderer, helpMarkdown(picker, host))
}
