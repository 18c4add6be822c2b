package system

import "time"

// Phase defines execution ordering within a single simulation tick.
type Phase int

const (
	PhaseUpdate     Phase = iota // 0: vehicle movement, rail queries
	PhasePostUpdate              // 1: reactions to movement (signs, spawns)
	PhaseCleanup                 // 2: cache sweeps, destroy queued objects
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
