package typeahead

import (
	"sort"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// PointerAction is the kind of pointer event.
type PointerAction int

const (
	PointerPress PointerAction = iota
	PointerRelease
	PointerMotion
)

// PointerEvent is a pointer event in screen cells.
type PointerEvent struct {
	X, Y   int
	Action PointerAction
	Button tea.MouseButton
}

// PointerEventFromMouse converts a bubbletea mouse message.
func PointerEventFromMouse(msg tea.MouseMsg) PointerEvent {
	ev := PointerEvent{X: msg.X, Y: msg.Y, Button: msg.Button}
	switch msg.Action {
	case tea.MouseActionPress:
		ev.Action = PointerPress
	case tea.MouseActionRelease:
		ev.Action = PointerRelease
	default:
		ev.Action = PointerMotion
	}
	return ev
}

// PointerSource delivers every pointer event on the screen to subscribers.
// It stands in for a document-wide click listener: a widget subscribes when
// it is mounted and calls the returned function when it is unmounted.
type PointerSource interface {
	Subscribe(fn func(PointerEvent)) (unsubscribe func())
}

// Hub is a PointerSource fed by the host program. The host calls
// DispatchMouse for every tea.MouseMsg before routing the message down to its
// children.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(PointerEvent)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]func(PointerEvent))}
}

// Subscribe registers fn. The returned function removes it and may be called
// any number of times.
func (h *Hub) Subscribe(fn func(PointerEvent)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Dispatch delivers ev to subscribers in subscription order. Subscribers run
// without the hub lock held, so they may unsubscribe themselves.
func (h *Hub) Dispatch(ev PointerEvent) {
	h.mu.Lock()
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(PointerEvent), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// DispatchMouse converts and dispatches a bubbletea mouse message.
func (h *Hub) DispatchMouse(msg tea.MouseMsg) {
	h.Dispatch(PointerEventFromMouse(msg))
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Rect is a screen rectangle in cells.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether (x, y) falls inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// mount holds a widget's subscription and the pointer presses recorded since
// the last Update. It is shared by every copy of a Model.
type mount struct {
	mu          sync.Mutex
	pending     []PointerEvent
	unsubscribe func()
}

func (mt *mount) record(ev PointerEvent) {
	if ev.Action != PointerPress || ev.Button != tea.MouseButtonLeft {
		return
	}
	mt.mu.Lock()
	mt.pending = append(mt.pending, ev)
	mt.mu.Unlock()
}

func (mt *mount) drain() []PointerEvent {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	evs := mt.pending
	mt.pending = nil
	return evs
}
