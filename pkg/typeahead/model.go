// Package typeahead implements a filterable selector: a text input over an
// option list that narrows to the candidates containing the typed text,
// with keyboard navigation, one-row-at-a-time scrolling and mouse support.
//
// The widget is a bubbletea component. The host routes messages to Update,
// renders View, and mounts the widget on a PointerSource so presses outside
// the widget close the list:
//
//	hub := typeahead.NewHub()
//	picker := typeahead.New(values, typeahead.WithOnSelect(func(v string) { ... }))
//	picker.Mount(hub)
//	defer picker.Unmount()
//
//	// in the host Update:
//	if mouse, ok := msg.(tea.MouseMsg); ok {
//	    hub.DispatchMouse(mouse)
//	}
//	picker, cmd = picker.Update(msg)
package typeahead

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/pick/pkg/debug"
)

// SelectedMsg is emitted once for every confirmed selection.
type SelectedMsg[V any] struct {
	Value V
}

// Option configures a Model.
type Option[V comparable] func(*Model[V])

// WithFormatter sets the function producing each candidate's text.
func WithFormatter[V comparable](fn func(V) string) Option[V] {
	return func(m *Model[V]) {
		if fn != nil {
			m.format = fn
		}
	}
}

// WithInitialValue fills the query with the formatted value.
func WithInitialValue[V comparable](v V) Option[V] {
	return func(m *Model[V]) {
		m.initial = v
		m.hasInitial = true
	}
}

// WithOnSelect sets the callback invoked for every confirmed selection.
func WithOnSelect[V comparable](fn func(V)) Option[V] {
	return func(m *Model[V]) {
		m.onSelect = fn
	}
}

// WithStyles replaces the default styles.
func WithStyles[V comparable](s Styles) Option[V] {
	return func(m *Model[V]) {
		m.styles = s
	}
}

// WithKeyMap replaces the default key bindings.
func WithKeyMap[V comparable](km KeyMap) Option[V] {
	return func(m *Model[V]) {
		m.keys = km
	}
}

// WithPlaceholder sets the text shown in an empty input.
func WithPlaceholder[V comparable](s string) Option[V] {
	return func(m *Model[V]) {
		m.input.Placeholder = s
	}
}

// WithPrompt sets the input prompt.
func WithPrompt[V comparable](s string) Option[V] {
	return func(m *Model[V]) {
		m.input.Prompt = s
	}
}

// WithWidth sets the total width of the widget in cells.
func WithWidth[V comparable](w int) Option[V] {
	return func(m *Model[V]) {
		m.width = w
	}
}

// WithOrigin sets the screen position of the widget's top-left cell, used to
// hit-test pointer events.
func WithOrigin[V comparable](x, y int) Option[V] {
	return func(m *Model[V]) {
		m.originX, m.originY = x, y
	}
}

const (
	defaultWidth     = 40
	minWidth         = 8
	scrollbarWidth   = 1
	defaultCharLimit = 256
)

// Model is the typeahead widget.
type Model[V comparable] struct {
	values   []V
	filtered []V
	format   Formatter[V]
	onSelect func(V)

	initial    V
	hasInitial bool

	state     State
	input     textinput.Model
	list      viewport.Model
	selectAll bool
	stopped   bool

	keys             KeyMap
	styles           Styles
	width            int
	originX, originY int

	mnt *mount
}

// New creates a closed widget over values.
func New[V comparable](values []V, opts ...Option[V]) Model[V] {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "> "
	ti.CharLimit = defaultCharLimit
	ti.Focus()

	m := Model[V]{
		values: values,
		format: DefaultFormatter[V](),
		input:  ti,
		list:   viewport.New(defaultWidth, 0),
		keys:   DefaultKeyMap(),
		styles: DefaultStyles(),
		width:  defaultWidth,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.SetWidth(m.width)
	if m.hasInitial {
		m.setQuery(m.format(m.initial))
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model[V]) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles keys, mouse events and pointer presses recorded by the
// mounted PointerSource.
func (m Model[V]) Update(msg tea.Msg) (Model[V], tea.Cmd) {
	m.stopped = false
	m.applyPointer()

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.input.Focused() {
			return m, nil
		}
		return m.updateKey(msg)
	case tea.MouseMsg:
		return m.updateMouse(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model[V]) updateKey(msg tea.KeyMsg) (Model[V], tea.Cmd) {
	k := m.keys.Resolve(msg)
	if k == KeyOther {
		return m.edit(msg)
	}

	wasOpen := m.state.Open
	next, out := m.state.Reduce(k, len(m.filtered), m.listTarget())
	m.state = next
	m.stopped = out.StopPropagation
	if wasOpen != next.Open {
		debug.Log("typeahead: %s %s", k, openLabel(next.Open))
	}

	if out.Confirm {
		return m.selectValue(m.filtered[m.state.SelectedIndex])
	}
	if !next.Open {
		m.selectAll = false
	}
	m.refresh()

	if out.PreventDefault {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// edit passes a key to the text input. While the whole text is selected a
// typed character or a deletion replaces it.
func (m Model[V]) edit(msg tea.KeyMsg) (Model[V], tea.Cmd) {
	before := m.input.Value()
	if m.selectAll {
		switch msg.Type {
		case tea.KeyRunes, tea.KeySpace, tea.KeyBackspace, tea.KeyDelete:
			m.input.SetValue("")
		}
		m.selectAll = false
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.updateQuery(v)
	}
	return m, cmd
}

func (m Model[V]) updateMouse(msg tea.MouseMsg) (Model[V], tea.Cmd) {
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		if m.inputRect().Contains(msg.X, msg.Y) {
			cmd := m.showOptions(true)
			return m, cmd
		}
		if idx, ok := m.optionAt(msg.X, msg.Y); ok {
			return m.selectValue(m.filtered[idx])
		}
		if m.listRect().Contains(msg.X, msg.Y) {
			// the press landed on the list itself (scrollbar)
			m.input.Blur()
		}

	case tea.MouseActionRelease:
		if m.listRect().Contains(msg.X, msg.Y) {
			if _, ok := m.optionAt(msg.X, msg.Y); !ok {
				cmd := m.input.Focus()
				return m, cmd
			}
		}
	}
	return m, nil
}

// applyPointer closes the list for every recorded press outside the widget.
func (m *Model[V]) applyPointer() {
	if m.mnt == nil {
		return
	}
	for _, ev := range m.mnt.drain() {
		if !m.Bounds().Contains(ev.X, ev.Y) {
			m.close()
		}
	}
}

// showOptions opens the list. A click also selects the whole query.
func (m *Model[V]) showOptions(click bool) tea.Cmd {
	var cmd tea.Cmd
	if click {
		m.selectAll = m.input.Value() != ""
		cmd = m.input.Focus()
	}
	if !m.state.Open {
		m.state.Open = true
		debug.Log("typeahead: click open")
		m.refresh()
	}
	return cmd
}

func (m *Model[V]) close() {
	if m.state.Open {
		debug.Log("typeahead: close")
	}
	m.state = m.state.Close()
	m.selectAll = false
	m.refresh()
}

func (m *Model[V]) updateQuery(q string) {
	m.state = m.state.WithQuery(q)
	m.list.GotoTop()
	m.refresh()
}

func (m Model[V]) selectValue(v V) (Model[V], tea.Cmd) {
	m.setQuery(m.format(v))
	m.state = m.state.Reset().Close()
	m.list.GotoTop()
	m.selectAll = false
	m.refresh()
	debug.Log("typeahead: selected %q", m.state.Query)

	if m.onSelect != nil {
		m.onSelect(v)
	}
	m.close()

	return m, func() tea.Msg { return SelectedMsg[V]{Value: v} }
}

func (m *Model[V]) setQuery(q string) {
	m.input.SetValue(q)
	m.input.CursorEnd()
	m.state.Query = q
}

// refresh recomputes the filtered view and redraws the list content.
func (m *Model[V]) refresh() {
	m.filtered = Filter(m.values, m.format, m.state.Query)

	rows := min(len(m.filtered), ValuesShownInBox)
	m.list.Width = m.rowWidth()
	m.list.Height = rows * RowHeight
	m.list.SetContent(m.renderOptions())
}

func (m *Model[V]) listTarget() ScrollTarget {
	if !m.listRendered() {
		return nil
	}
	return viewportTarget{vp: &m.list}
}

func (m Model[V]) listRendered() bool {
	return m.state.Open && len(m.filtered) > 0
}

func (m Model[V]) hasScrollbar() bool {
	return len(m.filtered) > ValuesShownInBox
}

func (m Model[V]) rowWidth() int {
	w := m.width
	if m.hasScrollbar() {
		w -= scrollbarWidth
	}
	return w
}

func (m Model[V]) inputRect() Rect {
	return Rect{X: m.originX, Y: m.originY, W: m.width, H: 1}
}

func (m Model[V]) listRect() Rect {
	if !m.listRendered() {
		return Rect{}
	}
	return Rect{X: m.originX, Y: m.originY + 1, W: m.width, H: m.list.Height}
}

// optionAt returns the index in the filtered view of the option drawn at
// (x, y).
func (m Model[V]) optionAt(x, y int) (int, bool) {
	r := m.listRect()
	if !r.Contains(x, y) {
		return 0, false
	}
	if m.hasScrollbar() && x >= r.X+m.rowWidth() {
		return 0, false
	}
	idx := (m.list.YOffset + y - r.Y) / RowHeight
	if idx < 0 || idx >= len(m.filtered) {
		return 0, false
	}
	return idx, true
}

// Mount subscribes the widget to src so presses outside its bounds close the
// list. Mounting again replaces the previous subscription.
func (m *Model[V]) Mount(src PointerSource) {
	m.Unmount()
	mt := &mount{}
	mt.unsubscribe = src.Subscribe(mt.record)
	m.mnt = mt
}

// Unmount releases the pointer subscription. It is safe to call when not
// mounted.
func (m *Model[V]) Unmount() {
	if m.mnt == nil {
		return
	}
	m.mnt.unsubscribe()
	m.mnt = nil
}

// Mounted reports whether the widget holds a pointer subscription.
func (m Model[V]) Mounted() bool {
	return m.mnt != nil
}

// SetValues replaces the candidates. The view is recomputed and the
// selection goes back to the first row; the query is kept.
func (m *Model[V]) SetValues(values []V) {
	m.values = values
	m.state = m.state.Reset()
	m.list.GotoTop()
	m.refresh()
}

// SetInitialValue overwrites the query with the formatted value when v
// differs from the previous initial value. The open state is left alone.
func (m *Model[V]) SetInitialValue(v V) {
	if m.hasInitial && m.initial == v {
		return
	}
	m.initial = v
	m.hasInitial = true
	m.setQuery(m.format(v))
	m.state = m.state.Reset()
	m.list.GotoTop()
	m.refresh()
}

// SetWidth sets the widget width in cells.
func (m *Model[V]) SetWidth(w int) {
	if w < minWidth {
		w = minWidth
	}
	m.width = w
	m.input.Width = max(1, w-lipgloss.Width(m.input.Prompt)-1)
	m.refresh()
}

// SetOrigin sets the screen position of the widget's top-left cell.
func (m *Model[V]) SetOrigin(x, y int) {
	m.originX, m.originY = x, y
}

// Focus gives keyboard focus to the input.
func (m *Model[V]) Focus() tea.Cmd {
	return m.input.Focus()
}

// Blur removes keyboard focus; keys are ignored until Focus.
func (m *Model[V]) Blur() {
	m.input.Blur()
}

// Focused reports whether the input has keyboard focus.
func (m Model[V]) Focused() bool {
	return m.input.Focused()
}

// Bounds is the screen area the widget occupies: the input row plus the
// option list when it is shown.
func (m Model[V]) Bounds() Rect {
	r := m.inputRect()
	if m.listRendered() {
		r.H += m.list.Height
	}
	return r
}

// State returns a copy of the navigation state.
func (m Model[V]) State() State { return m.state }

// Query returns the current query.
func (m Model[V]) Query() string { return m.state.Query }

// IsOpen reports whether the option list is open.
func (m Model[V]) IsOpen() bool { return m.state.Open }

// Filtered returns the candidates matching the query.
func (m Model[V]) Filtered() []V { return m.filtered }

// Values returns all candidates.
func (m Model[V]) Values() []V { return m.values }

// Highlighted returns the candidate under the selection, if any.
func (m Model[V]) Highlighted() (V, bool) {
	var zero V
	i := m.state.SelectedIndex
	if i < 0 || i >= len(m.filtered) {
		return zero, false
	}
	return m.filtered[i], true
}

// PropagationStopped reports whether the last key handled by Update must not
// reach the host's own handlers. This is the case for Escape while the list
// was open.
func (m Model[V]) PropagationStopped() bool { return m.stopped }

// AllSelected reports whether the whole query is selected after a click.
func (m Model[V]) AllSelected() bool { return m.selectAll }

// ScrollOffset returns the list's scroll offset in rows.
func (m Model[V]) ScrollOffset() int { return m.list.YOffset / RowHeight }

// KeyMap returns the key bindings.
func (m Model[V]) KeyMap() KeyMap { return m.keys }

// Format formats v with the widget's formatter.
func (m Model[V]) Format(v V) string { return m.format(v) }

func openLabel(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}
