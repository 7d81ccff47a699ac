// Package bookmark implements the opaque, per-message position token
// that lets a log source resume reading exactly where it left off.
package bookmark

import (
	"sync"

	"github.com/pkg/errors"
)

// MaxPositionBytes bounds the opaque position payload a Bookmark can
// carry. It mirrors the "implementation-defined maximum" of spec §4.1:
// large enough for a file offset + inode + generation, small enough to
// keep an AckRecord cache-line friendly when many are held in a ring.
const MaxPositionBytes = 120

// PersistentState is the collaborator a Bookmark's Save call targets.
// It is the persistence back-end (spec §1 Non-goals: no storage format
// is mandated here), so the core only depends on this interface.
//
// Implementations must make WritePosition atomic with respect to a
// process crash: either the new position becomes durable, or the
// previous one is retained (spec §6 Bookmark/Persistence contract).
type PersistentState interface {
	WritePosition(name string, position [MaxPositionBytes]byte, n int) error
}

// Bookmark is a value type embedded directly in an AckRecord; it is
// never heap-allocated on its own so that AckRecord stores (rings or
// lists of records) can lay bookmarks out contiguously. The zero value
// is a valid, unsaved, not-yet-filled bookmark.
type Bookmark struct {
	mu sync.Mutex

	position [MaxPositionBytes]byte
	n        int

	name  string
	state PersistentState

	saved    bool
	destroyed bool
}

// Init zeroes the bookmark's callbacks and persistent-state handle.
// Called when a slot is recycled (ring buffer reuse, freed list node).
func (b *Bookmark) Init() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.n = 0
	b.name = ""
	b.state = nil
	b.saved = false
	b.destroyed = false
}

// Fill installs the position payload and the persistent-state
// collaborator this bookmark will save to. The source calls this after
// obtaining the bookmark from an ack tracker's RequestBookmark and
// before calling Track.
func (b *Bookmark) Fill(name string, state PersistentState, position []byte) error {
	if len(position) > MaxPositionBytes {
		return errors.Errorf("bookmark position too large: %d > %d", len(position), MaxPositionBytes)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.name = name
	b.state = state
	b.n = copy(b.position[:], position)
	return nil
}

// Save idempotently writes the stored position to persistent state.
// It is best-effort: a failure is reported to the caller but must never
// abort the process — the tracker logs it and moves on, trusting that
// the next successful save for a later record supersedes this one.
//
// Save must be invoked at most once per AckRecord (spec §4.1, §8.3);
// callers other than the ack tracker's internal "tail of a contiguous
// acked prefix" transaction must not call this directly.
func (b *Bookmark) Save() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == nil {
		// Nothing to persist against — a bookmark that was never
		// filled, or one already destroyed.
		b.saved = true
		return nil
	}

	err := b.state.WritePosition(b.name, b.position, b.n)
	b.saved = true
	if err != nil {
		return errors.Wrap(err, "saving bookmark")
	}
	return nil
}

// Destroy releases any auxiliary state this bookmark owns. It must
// tolerate being called on a bookmark whose Save was never invoked
// (drop without persistence) and must be invoked exactly once per
// AckRecord, immediately before the slot is reused or freed.
func (b *Bookmark) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		panic("bookmark: destroy called twice on the same slot")
	}
	b.destroyed = true
	b.state = nil
}

// Saved reports whether Save has been called on this bookmark since
// the last Init. Exposed for tests validating the monotonicity and
// at-most-once-save properties (spec §8.1, §8.3).
func (b *Bookmark) Saved() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saved
}
