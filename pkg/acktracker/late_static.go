package acktracker

import (
	"github.com/go-kit/log"
	"github.com/grafana/tempo-logsource/pkg/window"
)

// LateStatic is the late-ack tracker backed by a ring buffer sized to
// the source's initial window (spec §4.3.2). Used when
// dynamic_window=false: the store's capacity is the hard ceiling on
// in-flight messages, and RequestBookmark returning nil must coincide
// with the window already reporting no credit.
type LateStatic struct {
	lateAckCore
}

// NewLateStatic constructs a static late-ack tracker. capacity should
// equal the source's initial window size (spec §4.3.2).
func NewLateStatic(capacity int, win *window.Window, logger log.Logger) *LateStatic {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	t := &LateStatic{}
	t.st = newRingStore(capacity)
	t.win = win
	t.logger = logger
	return t
}
