package typeahead

import "github.com/charmbracelet/bubbles/viewport"

// ScrollTarget is the scrollable element that renders the option list.
type ScrollTarget interface {
	SetScrollTop(offset int)
	ScrollHeight() int
}

// ScrollIntoView moves the window one row at a time so that selected stays
// visible and returns the new first shown index. The checks run in order and
// each sees the result of the previous one. With no target nothing is
// scrolled and first is returned unchanged.
//
// For lists shorter than ValuesShownInBox the "last row" check yields a
// negative index; the target clamps the real scroll offset.
func ScrollIntoView(target ScrollTarget, selected, first, count int) int {
	if target == nil {
		return first
	}

	if selected == 0 {
		target.SetScrollTop(0)
		first = 0
	}

	if selected == count-1 {
		target.SetScrollTop(target.ScrollHeight())
		first = count - ValuesShownInBox
	}

	if selected >= first+ValuesShownInBox {
		target.SetScrollTop((first + 1) * RowHeight)
		first++
	}

	if selected < first {
		first--
		target.SetScrollTop(selected * RowHeight)
	}

	return first
}

// viewportTarget scrolls a bubbles viewport. The viewport clamps offsets
// past the end, which is what "scroll to scrollHeight" relies on.
type viewportTarget struct {
	vp *viewport.Model
}

func (t viewportTarget) SetScrollTop(offset int) {
	t.vp.SetYOffset(offset)
}

func (t viewportTarget) ScrollHeight() int {
	return t.vp.TotalLineCount()
}
