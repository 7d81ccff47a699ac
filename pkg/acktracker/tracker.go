// Package acktracker implements the three ack-tracker variants of
// spec §4.3: early-ack, late-ack-static, and late-ack-dynamic. Every
// variant maps an outbound message to a bookmark and releases
// bookmarks strictly in ingestion order, never in ack order.
package acktracker

import (
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/tempo-logsource/pkg/window"
)

// Tracker is the common contract every variant exposes (spec §4.3).
type Tracker interface {
	// RequestBookmark reserves (or returns) the slot the next
	// AckRecord's bookmark lives in. Returns nil when the store is
	// full -- the source must not inject a message in that case.
	RequestBookmark() *Record
	// Track binds msg's ack record to the slot last returned by
	// RequestBookmark.
	Track(msg Holder)
	// ManageAck is called on ack with ack_type in
	// {Processed, Aborted, Suspended}.
	ManageAck(msg Holder, ackType AckType)
	// DisableBookmarkSaving stops Save from being invoked for any
	// future ack, even a successful one -- used when the source knows
	// its position has been invalidated.
	DisableBookmarkSaving()
	// Free releases the store. The late-ack variants panic if any
	// record is still tracked -- a programming error per spec §7
	// ProgrammerError; the early-ack variant's Free is a no-op.
	Free()
}

// OnAllAckedSetter is implemented by the late-ack variants only (spec
// §4.3's "optional set_on_all_acked, meaningful only for the late-ack
// variants").
type OnAllAckedSetter interface {
	SetOnAllAcked(func())
}

// lateAckCore holds the logic shared by the static and dynamic
// late-ack trackers: everything in spec §4.3 except how the
// underlying store is shaped (ring vs list), which is supplied by the
// store interface.
type lateAckCore struct {
	mu sync.Mutex
	st store

	win    *window.Window
	logger log.Logger

	saveDisabled bool
	onAllAcked   func()

	// pendingRequested records that RequestBookmark handed out the
	// pending slot since the last Track; Track panics without it.
	// Calling RequestBookmark twice in a row is allowed (both calls
	// return the same slot) and only one Track commits that slot.
	pendingRequested bool
}

func (t *lateAckCore) RequestBookmark() *Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.st.pending()
	if rec != nil {
		t.pendingRequested = true
	}
	return rec
}

func (t *lateAckCore) Track(msg Holder) {
	t.mu.Lock()
	if !t.pendingRequested {
		t.mu.Unlock()
		panic("acktracker: track called without a prior RequestBookmark")
	}
	rec := t.st.pending()
	t.st.commitPending()
	t.pendingRequested = false
	t.mu.Unlock()

	msg.SetAckRecord(rec)
}

// ManageAck implements the shared pseudocode of spec §4.3:
//
//	mark this record as acked
//	if ack_type = Suspended: suspend the window
//	atomically {
//	  k = length of contiguous acked prefix
//	  if k > 0 and ack_type != Aborted: save(bookmark of k-th)
//	  drop k records
//	  if k > 0: window.adjust_*(k)
//	  if store now empty: fire on-all-acked
//	}
func (t *lateAckCore) ManageAck(msg Holder, ackType AckType) {
	rec := msg.AckRecord()
	if rec == nil {
		panic("acktracker: manage_ack called on a message with no ack record")
	}

	if ackType == Suspended {
		t.win.Suspend()
	}

	t.mu.Lock()
	rec.acked = true

	k := t.st.continualAckedPrefixLen()
	if k > 0 && ackType != Aborted && !t.saveDisabled {
		if err := t.st.at(k - 1).Bookmark.Save(); err != nil {
			level.Error(t.logger).Log("msg", "failed to save bookmark", "err", err)
		}
	}
	if k > 0 {
		t.st.drop(k)
	}
	empty := t.st.isEmpty()
	onAllAcked := t.onAllAcked
	t.mu.Unlock()

	if k > 0 {
		if ackType == Suspended {
			t.win.AdjustWhenSuspended(k)
		} else {
			t.win.Adjust(k)
		}
	}
	if empty && onAllAcked != nil {
		onAllAcked()
	}
}

func (t *lateAckCore) DisableBookmarkSaving() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.saveDisabled = true
}

func (t *lateAckCore) SetOnAllAcked(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAllAcked = fn
}

func (t *lateAckCore) Free() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.st.isEmpty() {
		panic("acktracker: free called while records are still tracked")
	}
	t.onAllAcked = nil
}
