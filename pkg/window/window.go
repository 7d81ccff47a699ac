// Package window implements the source's flow-control admission
// window: an atomic credit counter that admits or suspends the reader,
// plus the sleep-throttle heuristic used by high-throughput sources.
package window

import (
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/atomic"
)

// rateAdjustSampleSize is how often (in acks) the throttle heuristic
// re-samples the ack rate, per spec §4.2.
const rateAdjustSampleSize = 16 * 1024

// maxSleep is the clamp ceiling for the derived sleep, and also the
// value above which the throttle disables itself (go back to
// event-driven behaviour).
const maxSleep = 100 * time.Microsecond

// slowSourceThreshold disables the throttle when the measured interval
// between samples is this long or longer (slow source, no need to
// throttle).
const slowSourceThreshold = 6 * time.Second

// Callbacks the window invokes on the source. Both may be called from
// an ack thread; implementations must not block for long.
type Callbacks interface {
	// Wakeup is invoked by Adjust whenever window_size was 0 before
	// the credit was added (spec §4.2, §8.6); after an Adjust that adds
	// no credit, FreeToSend can still be false.
	Wakeup()
	// WindowEmpty is invoked when window_size returns to the
	// configured initial size -- "pipeline fully drained".
	WindowEmpty()
}

// Window is the admission-control credit counter described in spec
// §3/§4.2. The two halves (window_size, suspended_window_size) are
// packed into a single atomic so that Adjust/Suspend cannot lose an
// increment across a race, per the design note in spec §9.
type Window struct {
	// packed holds window_size in the high 32 bits and
	// suspended_window_size in the low 32 bits. Both halves are
	// treated as signed within their 32-bit range by the arithmetic
	// below; neither half may legitimately exceed int32 given any
	// sane configured window size.
	packed atomic.Uint64

	forcedSuspend atomic.Bool

	initial int64
	cb      Callbacks
	logger  log.Logger

	// Rate-throttle state (sampled every rateAdjustSampleSize acks).
	ackCount        atomic.Uint64
	lastAckCount    atomic.Uint64
	lastSampleNanos atomic.Int64
	sleepNanos      atomic.Int64

	nowFn func() time.Time
}

// New constructs a Window with the given initial credit. cb may be
// nil in tests that only exercise the counters.
func New(initial int, cb Callbacks, logger log.Logger) *Window {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	w := &Window{
		initial: int64(initial),
		cb:      cb,
		logger:  logger,
		nowFn:   time.Now,
	}
	w.packed.Store(pack(int64(initial), 0))
	w.lastSampleNanos.Store(w.nowFn().UnixNano())
	return w
}

func pack(windowSize, suspended int64) uint64 {
	return uint64(uint32(int32(windowSize)))<<32 | uint64(uint32(int32(suspended)))
}

func unpack(v uint64) (windowSize, suspended int64) {
	return int64(int32(v >> 32)), int64(int32(uint32(v)))
}

// Take atomically subtracts n from window_size. The post-subtraction
// value must never be negative -- callers must have checked
// FreeToSend (or otherwise know credit is available) before calling.
// It returns the window_size that existed immediately before the
// subtraction, so the caller can detect the "just exhausted" edge.
func (w *Window) Take(n int) (preValue int64) {
	for {
		old := w.packed.Load()
		ws, sp := unpack(old)
		if ws-int64(n) < 0 {
			panic("window: take would drive window_size negative")
		}
		neu := pack(ws-int64(n), sp)
		if w.packed.CompareAndSwap(old, neu) {
			if ws == int64(n) {
				level.Debug(w.logger).Log("msg", "window exhausted, suspending reads")
			}
			return ws
		}
	}
}

// Adjust credits increment (+ any parked suspended_window_size) back
// into window_size, per spec §4.2. It fires Wakeup if the window was
// previously empty, and WindowEmpty if the window returns to its
// configured initial size.
func (w *Window) Adjust(increment int) {
	var preWS, postWS int64
	for {
		old := w.packed.Load()
		ws, sp := unpack(old)
		preWS = ws
		postWS = ws + int64(increment) + sp
		neu := pack(postWS, 0)
		if w.packed.CompareAndSwap(old, neu) {
			break
		}
	}
	w.sampleRate()

	if preWS == 0 && w.cb != nil {
		w.cb.Wakeup()
	}
	if postWS == w.initial && w.cb != nil {
		w.cb.WindowEmpty()
	}
}

// AdjustWhenSuspended accumulates k acks into suspended_window_size
// instead of re-opening the window. Used for acks that arrive while
// the window is suspended (spec §4.2).
func (w *Window) AdjustWhenSuspended(k int) {
	for {
		old := w.packed.Load()
		ws, sp := unpack(old)
		neu := pack(ws, sp+int64(k))
		if w.packed.CompareAndSwap(old, neu) {
			return
		}
	}
}

// Suspend moves the current window_size into suspended_window_size and
// zeroes window_size, parking the credit for a later Adjust. Used when
// a downstream component reports a transient fault (ack_type =
// Suspended).
func (w *Window) Suspend() {
	for {
		old := w.packed.Load()
		ws, sp := unpack(old)
		neu := pack(0, sp+ws)
		if w.packed.CompareAndSwap(old, neu) {
			return
		}
	}
}

// ForceSuspend disables admission regardless of credit, independent of
// the window_size/suspended_window_size dance. Used by callers that
// need to stop the reader without disturbing in-flight credit
// accounting (e.g. a shutdown in progress).
func (w *Window) ForceSuspend(suspend bool) {
	w.forcedSuspend.Store(suspend)
}

// FreeToSend reports whether the source may issue another read: not
// forcibly suspended, and window_size > 0.
func (w *Window) FreeToSend() bool {
	if w.forcedSuspend.Load() {
		return false
	}
	ws, _ := unpack(w.packed.Load())
	return ws > 0
}

// WindowSize returns the current admission credit, for tests and
// diagnostics.
func (w *Window) WindowSize() int64 {
	ws, _ := unpack(w.packed.Load())
	return ws
}

// SuspendedWindowSize returns the currently parked credit.
func (w *Window) SuspendedWindowSize() int64 {
	_, sp := unpack(w.packed.Load())
	return sp
}

// SleepThrottleNanos returns the currently computed sleep duration for
// the rate throttle, or 0 if disabled. Correctness never depends on
// this value (spec §9); it exists purely as a back-pressure hint for a
// threaded source's reader loop.
func (w *Window) SleepThrottleNanos() time.Duration {
	return time.Duration(w.sleepNanos.Load())
}

// sampleRate implements the §4.2 rate-adjust heuristic: every
// rateAdjustSampleSize acks, measure the elapsed time since the last
// sample and derive a per-ack sleep of 8 inter-ack gaps, clamped to
// [0, maxSleep]. Disabled (sleep=0) if the source is slow (interval
// exceeds slowSourceThreshold) or if the derived sleep would itself
// exceed maxSleep.
func (w *Window) sampleRate() {
	count := w.ackCount.Add(1)
	if count%rateAdjustSampleSize != 0 {
		return
	}

	now := w.nowFn().UnixNano()
	lastTime := w.lastSampleNanos.Swap(now)
	lastCount := w.lastAckCount.Swap(count)

	elapsed := now - lastTime
	acks := count - lastCount
	if elapsed <= 0 || acks <= 0 {
		return
	}

	if time.Duration(elapsed) >= slowSourceThreshold {
		w.sleepNanos.Store(0)
		return
	}

	perAck := elapsed / acks
	sleep := perAck * 8
	if time.Duration(sleep) > maxSleep {
		w.sleepNanos.Store(0)
		return
	}
	if sleep < 0 {
		sleep = 0
	}
	w.sleepNanos.Store(sleep)
}
