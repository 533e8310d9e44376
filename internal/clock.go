// Small time/resource-usage conversion helpers shared by the scheduler
// core and the metrics aggregator.

package schedsim_internal

import "time"

// rusageMs converts a unix.Rusage-style (seconds, microseconds) pair, as
// collected by ChildProcess.StopAndWait and waitUntilExit, into a float
// of CPU milliseconds.
func rusageMs(sec int64, usec int64) float64 {
	return float64(sec)*1000.0 + float64(usec)/1000.0
}

// durationMs returns d expressed as a float of milliseconds, used
// throughout the metrics aggregator where the original computes
// everything in ms.
func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
