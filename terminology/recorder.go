package terminology

import "time"

// Operation names a lookup operation for metrics.
type Operation string

// Lookup operations.
const (
	OpDisplay    Operation = "display"
	OpProperties Operation = "properties"
)

// Outcome names how a lookup was answered.
type Outcome string

// Lookup outcomes.
const (
	OutcomeHit      Outcome = "hit"
	OutcomeStore    Outcome = "store"
	OutcomeRemote   Outcome = "remote"
	OutcomeFallback Outcome = "fallback"
	OutcomeError    Outcome = "error"
)

// Recorder receives lookup metrics.
type Recorder interface {
	RecordLookup(op Operation, outcome Outcome)
	RecordRemoteCall(op Operation, d time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordLookup(Operation, Outcome)                 {}
func (nopRecorder) RecordRemoteCall(Operation, time.Duration, error) {}
