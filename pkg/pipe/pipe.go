// Package pipe defines the downstream boundary the source core pushes
// tracked messages into (spec §6 Downstream). The pipe's own batching,
// retry, and destination logic are out of scope (spec §1); the core
// only depends on this contract.
package pipe

import "github.com/grafana/tempo-logsource/pkg/acktracker"

// PathOptions accompanies a queued message. AckNeeded is always true
// for messages flowing through this core (spec §6).
type PathOptions struct {
	AckNeeded bool
}

// AckFunc is installed on every message the source queues; the
// downstream pipe must call it exactly once with the outcome.
type AckFunc func(ackType acktracker.AckType)

// Downstream is the pipe the source core queues tracked messages into.
type Downstream interface {
	// Queue takes ownership of one message reference. ack is called
	// exactly once, from any goroutine, once the message's fate
	// (Processed/Aborted/Suspended) is known.
	Queue(payload []byte, opts PathOptions, ack AckFunc) error
}
