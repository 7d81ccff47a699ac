// Package source implements the Source Core of spec §4.4: the
// ingestion path that receives parsed records from a transport,
// mangles and tags them, consumes flow-control credit, and forwards
// them to the downstream pipe with an ack tracker bound to each one.
package source

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/services"
	"github.com/grafana/tempo-logsource/pkg/acktracker"
	"github.com/grafana/tempo-logsource/pkg/bookmark"
	"github.com/grafana/tempo-logsource/pkg/control"
	"github.com/grafana/tempo-logsource/pkg/pipe"
	"github.com/grafana/tempo-logsource/pkg/stats"
	"github.com/grafana/tempo-logsource/pkg/transport"
	"github.com/grafana/tempo-logsource/pkg/window"
	"github.com/pkg/errors"
)

// Source is the per-source object the spec calls "Log Source" (§2,
// component A). It owns the window, the ack tracker, and the mangle
// pipeline, and forwards finished messages to a downstream pipe.
type Source struct {
	services.Service

	opts     *Options
	resolver HostResolver
	upstream transport.Source
	down     pipe.Downstream
	state    bookmark.PersistentState
	callbacks []QueueCallback

	win     *window.Window
	tracker acktracker.Tracker

	stats *stats.Registry

	baseLogger log.Logger
	logger     log.Logger
	verbose    control.VerbosityLevel
}

// New constructs a Source. The ack-tracker variant is chosen from
// opts (spec §6's flag table): pos_tracking selects early vs late ack,
// and within late-ack, dynamic_window selects the dynamic vs static
// store. Lifecycle is created here but the reader loop does not start
// until the embedded services.Service is started (spec §3 Lifecycle:
// "options + ack-tracker are created at source init").
func New(opts *Options, resolver HostResolver, upstream transport.Source, down pipe.Downstream, state bookmark.PersistentState, statsReg *stats.Registry, logger log.Logger) (*Source, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid source options")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	s := &Source{
		opts:     opts,
		resolver: resolver,
		upstream: upstream,
		down:     down,
		state:    state,
		stats:    statsReg,
	}
	s.baseLogger = log.With(logger, "component", "source", "source_id", opts.SourceID)
	s.logger = s.baseLogger

	s.win = window.New(opts.InitWindowSize, s, s.logger)

	switch {
	case !opts.PosTracking:
		s.tracker = acktracker.NewEarly(s.win)
	case opts.DynamicWindow:
		s.tracker = acktracker.NewLateDynamic(s.win, s.logger)
	default:
		s.tracker = acktracker.NewLateStatic(opts.InitWindowSize, s.win, s.logger)
	}

	s.Service = services.NewBasicService(nil, s.running, s.stopping)
	return s, nil
}

// AddQueueCallback registers a source-queue callback run after
// mangling, tracking and window take, before queueing downstream (spec
// §4.4). Returning false from any registered callback drops the
// message through the normal Processed ack.
func (s *Source) AddQueueCallback(cb QueueCallback) {
	s.callbacks = append(s.callbacks, cb)
}

// running is the dskit/services running hook: the reader loop,
// draining transport records until ctx is cancelled (spec §5 shutdown:
// "stop the reader (stops calls to track)").
func (s *Source) running(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if !s.win.FreeToSend() {
			// No credit: the reader must stop issuing new reads until
			// an ack-thread Adjust calls Wakeup. A real transport
			// would park here; tests drive Ingest directly instead of
			// this loop.
			if sleep := s.win.SleepThrottleNanos(); sleep > 0 {
				time.Sleep(sleep)
			}
			continue
		}

		rec, err := s.upstream.Next(ctx)
		if err != nil {
			return errors.Wrap(err, "reading from transport")
		}
		if err := s.Ingest(rec); err != nil {
			level.Error(s.logger).Log("msg", "failed to ingest message", "err", err)
		}
	}
}

func (s *Source) stopping(_ error) error {
	s.tracker.Free()
	return nil
}

// Ingest drives one message through the state machine of spec §4.4:
// request bookmark -> mangle -> track -> take window credit -> queue
// downstream. It returns an error when the tracker is full, when the
// record's position does not fit in the bookmark, or when the
// downstream Queue call fails; a per-message drop via a queue callback
// is not an error.
func (s *Source) Ingest(rec transport.Record) error {
	ackRec := s.tracker.RequestBookmark()
	if ackRec == nil {
		return errors.New("ack tracker store is full, refusing to inject")
	}
	if err := ackRec.Bookmark.Fill(s.opts.SourceID, s.state, rec.Position); err != nil {
		return errors.Wrap(err, "filling bookmark")
	}

	now := time.Now()
	msg := &Message{
		Payload:      rec.Payload,
		ReceiveStamp: now,
		OriginStamp:  now,
		Host:         rec.Host,
	}

	mangle(s.opts, s.resolver, rec.SenderAddr, rec.Host, msg)

	s.tracker.Track(msg)
	s.win.Take(1)
	msg.ProcessedStamp = time.Now()

	for _, cb := range s.callbacks {
		if !cb(msg) {
			s.tracker.ManageAck(msg, acktracker.Processed)
			return nil
		}
	}

	s.recordStats(msg)

	ack := func(ackType acktracker.AckType) {
		s.tracker.ManageAck(msg, ackType)
	}
	if err := s.down.Queue(msg.Payload, pipe.PathOptions{AckNeeded: true}, ack); err != nil {
		return errors.Wrap(err, "queueing message downstream")
	}
	return nil
}

func (s *Source) recordStats(msg *Message) {
	if s.stats == nil {
		return
	}
	s.stats.IncProcessed(float64(msg.ProcessedStamp.Unix()))
	s.stats.IncDynamic(stats.Key{Type: stats.ComponentHost, SourceID: s.opts.SourceID, Instance: msg.Host})
	s.stats.IncDynamic(stats.Key{Type: stats.ComponentSender, SourceID: s.opts.SourceID, Instance: msg.HostFrom})
	s.stats.IncDynamic(stats.Key{Type: stats.ComponentProgram, SourceID: s.opts.SourceID, Instance: msg.Program})
}

// Wakeup implements window.Callbacks: invoked by the window's Adjust
// when window_size was 0 before the credit was added. The reader loop's
// polling in running()
// picks this up on its own; Wakeup exists so a real blocking transport
// can be signalled instead of polled.
func (s *Source) Wakeup() {
	level.Debug(s.logger).Log("msg", "window has credit again, resuming reads")
}

// WindowEmpty implements window.Callbacks: invoked when the window
// returns to its configured initial size, i.e. the pipeline has fully
// drained.
func (s *Source) WindowEmpty() {
	level.Debug(s.logger).Log("msg", "pipeline fully drained")
}

// SetVerbosity implements control.VerbositySink, letting the control
// socket's LOG VERBOSE|DEBUG|TRACE commands re-filter this source's
// logger without a restart.
func (s *Source) SetVerbosity(v control.VerbosityLevel) {
	s.verbose = v
	s.logger = level.NewFilter(s.baseLogger, v.LevelOption())
}

// DisableBookmarkSaving forwards to the tracker (spec §4.1): used when
// the source knows its position has been invalidated (file truncated,
// sequence reset).
func (s *Source) DisableBookmarkSaving() {
	s.tracker.DisableBookmarkSaving()
}
