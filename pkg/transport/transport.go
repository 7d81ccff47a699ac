// Package transport defines the upstream boundary the source core
// consumes (spec §6 Upstream). Transport implementations themselves --
// files, sockets, journals, TCP/TLS/PROXY-protocol framing -- are
// explicitly out of scope (spec §1); this package exists only so the
// core compiles and tests against a real interface rather than
// whatever a given transport happens to expose.
package transport

import "context"

// Record is one parsed record handed to the source by a transport,
// together with the opaque position the transport knows how to
// persist later via a bookmark.PersistentState.
type Record struct {
	// Payload is the already-parsed message payload. Parsing (RFC3164,
	// RFC5424, CSV, JSON, ...) happens upstream of the core; spec §9
	// only requires that it completes before RequestBookmark is
	// called.
	Payload []byte

	// Position is the transport's opaque "where I was in the input"
	// token -- a file offset, a sequence number, a journal cursor. The
	// source writes it into the bookmark obtained from
	// acktracker.Tracker.RequestBookmark before calling Track.
	Position []byte

	// SenderAddr is the network or local address the record arrived
	// from, fed to a source.HostResolver for HOST/HOST_FROM mangling.
	SenderAddr string

	// Host is this record's own pre-mangle HOST field, as already
	// embedded in the message by an upstream relay hop or parser (e.g.
	// RFC3164/RFC5424 HOSTNAME). Chain-hostname mangling prepends to
	// this value -- it is never a previous, unrelated record's computed
	// host.
	Host string
}

// Source is the upstream collaborator: something that can be asked to
// produce the next parsed record. A real implementation blocks until a
// record is available, respects ctx cancellation, and returns
// io.EOF-equivalent errors on clean shutdown.
type Source interface {
	Next(ctx context.Context) (Record, error)
}
