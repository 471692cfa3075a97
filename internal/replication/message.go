package replication

import (
	"fmt"

	"github.com/l1jgo/horde/internal/core/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

// Kind identifies an outbound replication message.
type Kind uint8

const (
	KindAgentSpawned Kind = iota + 1
	KindAgentTransform
	KindAttackStarted
	KindEffect
	KindDeathTriggered
	KindAgentRemoved
)

func (k Kind) String() string {
	switch k {
	case KindAgentSpawned:
		return "AgentSpawned"
	case KindAgentTransform:
		return "AgentTransform"
	case KindAttackStarted:
		return "AttackStarted"
	case KindEffect:
		return "Effect"
	case KindDeathTriggered:
		return "DeathTriggered"
	case KindAgentRemoved:
		return "AgentRemoved"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Audience selects which observers receive a message.
type Audience uint8

const (
	AudienceAll    Audience = iota // every observer
	AudienceOthers                 // every observer except Message.Exclude
)

// HostSession is the session ID of the authoritative host itself. Messages
// raised by server-driven agents exclude it when addressed to "others".
const HostSession uint64 = 0

// Message is one fire-and-forget replication record. Only the fields relevant
// to Kind are meaningful.
type Message struct {
	Kind      Kind         `json:"kind"`
	Audience  Audience     `json:"audience"`
	Exclude   uint64       `json:"exclude,omitempty"`
	Tick      uint64       `json:"tick"`
	Entity    ecs.EntityID `json:"entity"`
	Target    ecs.EntityID `json:"target,omitempty"`
	Archetype string       `json:"archetype,omitempty"`
	Position  r3.Vec       `json:"position"`
	Normal    r3.Vec       `json:"normal"`
	Yaw       float64      `json:"yaw"`
	EffectID  int32        `json:"effect_id,omitempty"`
}

// Delivers reports whether the observer with the given session ID receives m.
func (m Message) Delivers(session uint64) bool {
	return m.Audience == AudienceAll || session != m.Exclude
}

func AgentSpawned(agent ecs.EntityID, archetype string, pos r3.Vec, yaw float64) Message {
	return Message{Kind: KindAgentSpawned, Audience: AudienceAll, Entity: agent, Archetype: archetype, Position: pos, Yaw: yaw}
}

func AgentTransform(agent ecs.EntityID, pos r3.Vec, yaw float64) Message {
	return Message{Kind: KindAgentTransform, Audience: AudienceAll, Entity: agent, Position: pos, Yaw: yaw}
}

// AttackStarted goes to everyone but the acting session: the actor plays its
// own presentation locally.
func AttackStarted(agent, target ecs.EntityID, pos r3.Vec, yaw float64) Message {
	return Message{
		Kind:     KindAttackStarted,
		Audience: AudienceOthers,
		Exclude:  HostSession,
		Entity:   agent,
		Target:   target,
		Position: pos,
		Yaw:      yaw,
	}
}

// Effect is a muzzle flash or hit impact at pos oriented along normal.
func Effect(source ecs.EntityID, pos, normal r3.Vec, effectID int32) Message {
	return Message{Kind: KindEffect, Audience: AudienceAll, Entity: source, Position: pos, Normal: normal, EffectID: effectID}
}

func DeathTriggered(agent ecs.EntityID, pos r3.Vec) Message {
	return Message{Kind: KindDeathTriggered, Audience: AudienceAll, Entity: agent, Position: pos}
}

func AgentRemoved(agent ecs.EntityID) Message {
	return Message{Kind: KindAgentRemoved, Audience: AudienceAll, Entity: agent}
}
