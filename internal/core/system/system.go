package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: observer joins/leaves, control packets
	PhasePreUpdate               // 1: deliver last tick's bus events
	PhaseUpdate                  // 2: population scheduling, agent AI
	PhasePostUpdate              // 3: spawning, removal timers
	PhaseOutput                  // 4: transform replication, hub flush
	PhaseCleanup                 // 5: telemetry sampling
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseOutput:
		return "output"
	case PhaseCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// System is the interface every phased system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
