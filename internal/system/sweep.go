package system

import (
	"time"

	"github.com/railgrid/server/internal/rail"
)

// CacheSweepSystem runs the rail cache eviction sweep at the end of every
// tick.
type CacheSweepSystem struct {
	lookup      *rail.Lookup
	deadTimeout int
}

func NewCacheSweepSystem(lookup *rail.Lookup, deadTimeoutTicks int) *CacheSweepSystem {
	return &CacheSweepSystem{lookup: lookup, deadTimeout: deadTimeoutTicks}
}

func (s *CacheSweepSystem) Phase() Phase { return PhaseCleanup }

func (s *CacheSweepSystem) Update(_ time.Duration) {
	s.lookup.Update(s.deadTimeout)
}
