package typeahead

// ValuesShownInBox is the number of rows the option list shows at once.
const ValuesShownInBox = 10

// RowHeight is the height of one option row in scroll units. A terminal row
// is one line.
const RowHeight = 1

// State is the navigation state of the widget. The zero value is a closed,
// empty widget.
type State struct {
	Query           string
	Open            bool
	SelectedIndex   int
	FirstShownIndex int
}

// Key is a navigation key understood by Reduce.
type Key int

const (
	KeyOther Key = iota
	KeyDown
	KeyUp
	KeyEnter
	KeyEscape
	KeyTab
)

func (k Key) String() string {
	switch k {
	case KeyDown:
		return "down"
	case KeyUp:
		return "up"
	case KeyEnter:
		return "enter"
	case KeyEscape:
		return "esc"
	case KeyTab:
		return "tab"
	default:
		return "other"
	}
}

// Outcome tells the caller what to do with the key after Reduce.
type Outcome struct {
	// PreventDefault means the text input must not also handle the key.
	PreventDefault bool
	// StopPropagation means ancestors of the widget must not react to the key.
	StopPropagation bool
	// Confirm means the candidate at SelectedIndex was chosen.
	Confirm bool
}

// WithQuery returns the state after the user edited the query: the list opens
// and the selection and window go back to the first row.
func (s State) WithQuery(query string) State {
	s.Query = query
	s.Open = true
	return s.Reset()
}

// Reset moves the selection and the window back to the first row.
func (s State) Reset() State {
	s.SelectedIndex = 0
	s.FirstShownIndex = 0
	return s
}

// Close hides the option list. Closing twice is harmless.
func (s State) Close() State {
	s.Open = false
	return s
}

// Reduce applies one key to the state. count is the length of the filtered
// view and target is the rendered option list, or nil when the list is not on
// screen (closed, or nothing matches).
func (s State) Reduce(key Key, count int, target ScrollTarget) (State, Outcome) {
	var out Outcome

	switch key {
	case KeyTab:
		return s.Close(), out

	case KeyEnter:
		out.PreventDefault = true
		if s.Open && s.SelectedIndex >= 0 && s.SelectedIndex < count {
			out.Confirm = true
		}
		return s, out

	case KeyEscape:
		if s.Open {
			out.StopPropagation = true
		}
		return s.Close(), out

	case KeyDown:
		out.PreventDefault = true
		if !s.Open {
			s.Open = true
		} else if count > 0 {
			s.SelectedIndex = (s.SelectedIndex + 1) % count
		}

	case KeyUp:
		out.PreventDefault = true
		if !s.Open {
			s.Open = true
		} else if count > 0 {
			s.SelectedIndex--
			if s.SelectedIndex < 0 {
				s.SelectedIndex = count - 1
			}
		}

	default:
		return s, out
	}

	s.FirstShownIndex = ScrollIntoView(target, s.SelectedIndex, s.FirstShownIndex, count)
	return s, out
}
