package event

import (
	"github.com/l1jgo/horde/internal/core/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

// AgentSpawned is emitted when a spawner registers a new agent.
type AgentSpawned struct {
	Agent     ecs.EntityID
	Archetype string
	SpawnID   int
	Position  r3.Vec
}

// AgentDied is emitted once per agent on its Alive→Dead edge.
// Spawners use it for active-count bookkeeping.
type AgentDied struct {
	Agent     ecs.EntityID
	Archetype string
	SpawnID   int
	Killer    ecs.EntityID // zero when unknown
	Position  r3.Vec
}

// AgentRemoved is emitted after the network removal grace delay expired.
type AgentRemoved struct {
	Agent ecs.EntityID
}

// DayChanged is emitted when the game day advances.
type DayChanged struct {
	Day int
}
