package metrics

import "time"

// NoopRecorder discards all events. Used when no metrics endpoint is
// configured.
type NoopRecorder struct{}

func (NoopRecorder) RecordSwap(string, string, time.Duration)         {}
func (NoopRecorder) RecordRPCLatency(string, time.Duration)           {}
func (NoopRecorder) RecordConfirmation(string, time.Duration)         {}
func (NoopRecorder) RecordFeeCollection(string)                       {}
