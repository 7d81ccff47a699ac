package acktracker

import (
	"github.com/google/uuid"
	"github.com/grafana/tempo-logsource/pkg/bookmark"
)

// AckType is the outcome a downstream pipe reports when it acks a
// message (spec §4.3, §7).
type AckType int

const (
	// Processed: delivered successfully.
	Processed AckType = iota
	// Aborted: the downstream permanently abandoned the message; its
	// bookmark must not be saved, but the store entry is still freed
	// in order.
	Aborted
	// Suspended: the downstream reports a transient fault; the window
	// parks its credit instead of re-opening.
	Suspended
)

func (t AckType) String() string {
	switch t {
	case Processed:
		return "processed"
	case Aborted:
		return "aborted"
	case Suspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// Record is one per in-flight message (spec §3 AckRecord). It is
// created in ingestion order and released in that same order,
// regardless of ack order. Records live inside a store (ring or list)
// and are never individually heap-managed by callers.
type Record struct {
	Bookmark bookmark.Bookmark

	id    uuid.UUID
	acked bool
}

func (r *Record) reset() {
	r.id = uuid.New()
	r.acked = false
	r.Bookmark.Init()
}

// Holder is implemented by the message type a source hands to an ack
// tracker. It decouples the tracker family from the source's concrete
// message representation (spec §3: "a pointer to exactly one
// AckRecord").
type Holder interface {
	AckRecord() *Record
	SetAckRecord(*Record)
}
