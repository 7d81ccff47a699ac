package source

import (
	"time"

	"github.com/grafana/tempo-logsource/pkg/acktracker"
)

// Message carries a payload, the timestamps and fields the mangle step
// fills in, and -- crucially for the core -- the ack record the
// tracker bound to it (spec §3 Message). It implements
// acktracker.Holder so any tracker variant can bind/retrieve the
// record without depending on this concrete type.
type Message struct {
	Payload []byte

	ReceiveStamp   time.Time
	OriginStamp    time.Time
	ProcessedStamp time.Time

	Priority int
	SDATA    map[string]string
	Tags     map[string]struct{}

	Host     string
	HostFrom string
	Program  string

	ackRecord *acktracker.Record
}

// AckRecord returns the ack record this message is bound to, or nil
// before Track has been called.
func (m *Message) AckRecord() *acktracker.Record { return m.ackRecord }

// SetAckRecord binds the message to an ack record. Called exactly
// once, by a tracker's Track method.
func (m *Message) SetAckRecord(r *acktracker.Record) {
	if m.ackRecord != nil {
		panic("source: message already bound to an ack record")
	}
	m.ackRecord = r
}

// AddTag marks the message with tagID. Mangle applies the source's
// static tag list plus the source-group tag this way (spec §4.4).
func (m *Message) AddTag(tagID string) {
	if m.Tags == nil {
		m.Tags = make(map[string]struct{})
	}
	m.Tags[tagID] = struct{}{}
}

// HasTag reports whether tagID was applied to this message.
func (m *Message) HasTag(tagID string) bool {
	_, ok := m.Tags[tagID]
	return ok
}
