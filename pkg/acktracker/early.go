package acktracker

import (
	"sync"

	"github.com/grafana/tempo-logsource/pkg/window"
)

// Early is the early-ack tracker of spec §4.3.1: a single reused slot,
// no positional tracking. Used when the source has no meaningful
// position to persist (e.g. datagram receivers).
type Early struct {
	mu   sync.Mutex
	slot Record
	win  *window.Window
}

// NewEarly constructs an early-ack tracker.
func NewEarly(win *window.Window) *Early {
	t := &Early{win: win}
	t.slot.reset()
	return t
}

// RequestBookmark always returns the single embedded record; an
// early-ack tracker never runs out of capacity.
func (t *Early) RequestBookmark() *Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &t.slot
}

// Track binds msg's ack record to the embedded slot.
func (t *Early) Track(msg Holder) {
	t.mu.Lock()
	rec := &t.slot
	t.mu.Unlock()
	msg.SetAckRecord(rec)
}

// ManageAck credits the window immediately; there is nothing to
// persist, so Aborted is treated identically to Processed (spec §9
// Open Questions: "the source code treats them identically").
func (t *Early) ManageAck(msg Holder, ackType AckType) {
	if ackType == Suspended {
		t.win.Suspend()
		t.win.AdjustWhenSuspended(1)
		return
	}
	t.win.Adjust(1)
}

// DisableBookmarkSaving is a no-op: the early-ack tracker never saves
// a bookmark in the first place.
func (t *Early) DisableBookmarkSaving() {}

// Free is always safe: the single slot is never "tracked" in a way
// that blocks freeing.
func (t *Early) Free() {}
