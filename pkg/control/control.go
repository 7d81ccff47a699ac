// Package control defines the boundary between the core and the
// control-socket collaborator (spec §6 Control surface). The socket
// server itself -- command parsing, the `.`-terminated response
// protocol -- is out of scope (spec §1); the core only depends on the
// effect those commands have on its own logging and health reporting.
package control

import (
	"time"

	"github.com/go-kit/log/level"
	"github.com/sony/gobreaker"
)

// VerbosityLevel mirrors the LOG VERBOSE|DEBUG|TRACE [ON|OFF] commands
// the control socket supports (spec §6).
type VerbosityLevel int

const (
	VerbosityNormal VerbosityLevel = iota
	VerbosityVerbose
	VerbosityDebug
	VerbosityTrace
)

// LevelOption maps a VerbosityLevel to the go-kit/log/level option the
// core's loggers should be filtered through.
func (v VerbosityLevel) LevelOption() level.Option {
	switch v {
	case VerbosityTrace, VerbosityDebug:
		return level.AllowDebug()
	case VerbosityVerbose:
		return level.AllowInfo()
	default:
		return level.AllowWarn()
	}
}

// VerbositySink receives LOG VERBOSE|DEBUG|TRACE updates from the
// control socket. The source core implements this to re-filter its
// go-kit logger at runtime without a restart.
type VerbositySink interface {
	SetVerbosity(VerbosityLevel)
}

// HealthProbe runs the HEALTHCHECK round-trip latency probe (spec §6):
// send a timestamped token through the pipeline, measure how long it
// takes to come back out. original_source/lib/healthcheck/healthcheck-control.c
// is the shape this is modelled on; the core never runs this itself,
// it only depends on the interface.
type HealthProbe interface {
	Probe() (time.Duration, error)
}

// BreakerProbe wraps a HealthProbe in a circuit breaker so a flapping
// downstream doesn't cause HEALTHCHECK to hammer it every call --
// after enough consecutive failures the breaker opens and Probe
// returns immediately until the breaker's cooldown elapses.
type BreakerProbe struct {
	inner   HealthProbe
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerProbe wraps probe with a breaker that opens after
// maxConsecutiveFailures and stays open for cooldown before allowing a
// half-open trial.
func NewBreakerProbe(probe HealthProbe, maxConsecutiveFailures uint32, cooldown time.Duration) *BreakerProbe {
	settings := gobreaker.Settings{
		Name: "healthcheck",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxConsecutiveFailures
		},
		Timeout: cooldown,
	}
	return &BreakerProbe{
		inner:   probe,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Probe runs the wrapped health probe through the breaker.
func (b *BreakerProbe) Probe() (time.Duration, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Probe()
	})
	if err != nil {
		return 0, err
	}
	return result.(time.Duration), nil
}
