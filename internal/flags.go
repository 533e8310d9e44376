// Scheduler-wide control flags, set by Shutdown() and the boost tick and consulted by
// every worker and the boost coordinator. A single atomic word holds all
// three bits so that a worker can test them with one load, matching the
// STOP/HALT/BOOST bitset used by the original scheduler.

package schedsim_internal

import (
	"strings"
	"sync/atomic"
)

type schedFlag uint32

const (
	flagStop schedFlag = 1 << iota
	flagHalt
	flagBoost
)

// schedFlags is a lock-free bitset. Readers (workers, the boost
// coordinator) spin-free load it; writers (Shutdown/Halt/boost tick) set
// or clear individual bits without holding any lock. A set that must
// wake parked workers is followed by a broadcast, which takes the level's
// lock and so cannot slip in between a waiter's predicate check and its
// Wait; the atomic itself only needs to guarantee that a concurrent Load
// sees the update.
type schedFlags struct {
	bits atomic.Uint32
}

func (f *schedFlags) set(bit schedFlag) {
	f.bits.Or(uint32(bit))
}

func (f *schedFlags) clear(bit schedFlag) {
	f.bits.And(^uint32(bit))
}

func (f *schedFlags) has(bit schedFlag) bool {
	return f.bits.Load()&uint32(bit) != 0
}

func (f *schedFlags) String() string {
	bits := f.bits.Load()
	names := make([]string, 0, 3)
	if bits&uint32(flagStop) != 0 {
		names = append(names, "STOP")
	}
	if bits&uint32(flagHalt) != 0 {
		names = append(names, "HALT")
	}
	if bits&uint32(flagBoost) != 0 {
		names = append(names, "BOOST")
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}
