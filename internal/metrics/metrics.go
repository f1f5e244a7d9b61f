package metrics

import "time"

// Recorder receives swap-core instrumentation events. Implementations must be
// safe for concurrent use.
type Recorder interface {
	// RecordSwap counts one completed executeSwap call.
	RecordSwap(venue, status string, duration time.Duration)
	// RecordRPCLatency observes one RPC round trip.
	RecordRPCLatency(method string, duration time.Duration)
	// RecordConfirmation observes how long a signature took to reach a
	// terminal state, labelled by that state.
	RecordConfirmation(state string, duration time.Duration)
	// RecordFeeCollection counts a fee attempt outcome.
	RecordFeeCollection(status string)
}
