package windows

import (
	"fmt"
	"sort"
	"strings"
)

// TieBreak orders windows that share a z-index, which happens once
// several windows have been raised to MaxZ.
type TieBreak string

const (
	// TieBreakRecent puts the most recently opened or raised window in front.
	TieBreakRecent TieBreak = "recent"
	// TieBreakStable keeps the earliest opened window in front.
	TieBreakStable TieBreak = "stable"
)

// ParseTieBreak validates a tie-break policy name.
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(strings.ToLower(strings.TrimSpace(s))) {
	case "", TieBreakRecent:
		return TieBreakRecent, nil
	case TieBreakStable:
		return TieBreakStable, nil
	default:
		return "", fmt.Errorf("unknown z tie-break policy %q (want recent or stable)", s)
	}
}

// nextZ is max(existing z-indices, 0) + 1, capped at MaxZ.
func (r *Registry) nextZ() int {
	top := 0
	for _, w := range r.windows {
		if w.ZIndex > top {
			top = w.ZIndex
		}
	}
	return min(top+1, r.opts.MaxZ)
}

// BringToFront raises id above every other window, leaving the others
// untouched. Once MaxZ is reached, order among saturated windows is
// decided by the tie-break policy.
func (r *Registry) BringToFront(id string) bool {
	w, ok := r.windows[id]
	if !ok {
		return false
	}
	w.ZIndex = r.nextZ()
	r.seq++
	w.focusSeq = r.seq
	r.emit(EventFocused, w)
	return true
}

// Topmost returns the front-most visible, non-minimized window.
func (r *Registry) Topmost() (Window, bool) {
	ordered := r.stackingOrder()
	for i := len(ordered) - 1; i >= 0; i-- {
		if ordered[i].OnScreen() {
			return ordered[i].clone(), true
		}
	}
	return Window{}, false
}

// Normalize compacts z-indices to 1..n in current stacking order so that
// windows saturated at MaxZ regain a strict order.
func (r *Registry) Normalize() int {
	changed := 0
	for i, w := range r.stackingOrder() {
		z := min(i+1, r.opts.MaxZ)
		if w.ZIndex == z {
			continue
		}
		w.ZIndex = z
		changed++
		r.emit(EventChanged, w)
	}
	return changed
}

// stackingOrder returns the windows back to front.
func (r *Registry) stackingOrder() []*Window {
	out := make([]*Window, 0, len(r.windows))
	for _, w := range r.windows {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ZIndex != b.ZIndex {
			return a.ZIndex < b.ZIndex
		}
		switch r.opts.TieBreak {
		case TieBreakStable:
			if a.openSeq != b.openSeq {
				return a.openSeq > b.openSeq
			}
		default:
			if a.focusSeq != b.focusSeq {
				return a.focusSeq < b.focusSeq
			}
		}
		return a.ID < b.ID
	})
	return out
}
