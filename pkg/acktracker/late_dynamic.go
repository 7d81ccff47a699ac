package acktracker

import (
	"github.com/go-kit/log"
	"github.com/grafana/tempo-logsource/pkg/window"
)

// LateDynamic is the late-ack tracker backed by a lazily-grown linked
// list (spec §4.3.3). Used when dynamic_window=true: admission
// credits may grow beyond the initial window, so the store must never
// refuse a RequestBookmark on capacity grounds -- only the window's
// credit bounds injection.
type LateDynamic struct {
	lateAckCore
}

// NewLateDynamic constructs a dynamic late-ack tracker.
func NewLateDynamic(win *window.Window, logger log.Logger) *LateDynamic {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	t := &LateDynamic{}
	t.st = newListStore()
	t.win = win
	t.logger = logger
	return t
}
