package replication

import (
	"fmt"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/net/packet"
	"gonum.org/v1/gonum/spatial/r3"
)

var kindOpcodes = map[Kind]byte{
	KindAgentSpawned:   packet.S_OPCODE_AGENT_SPAWNED,
	KindAgentTransform: packet.S_OPCODE_AGENT_TRANSFORM,
	KindAttackStarted:  packet.S_OPCODE_ATTACK_STARTED,
	KindEffect:         packet.S_OPCODE_EFFECT,
	KindDeathTriggered: packet.S_OPCODE_DEATH_TRIGGERED,
	KindAgentRemoved:   packet.S_OPCODE_AGENT_REMOVED,
}

var opcodeKinds = func() map[byte]Kind {
	m := make(map[byte]Kind, len(kindOpcodes))
	for k, op := range kindOpcodes {
		m[op] = k
	}
	return m
}()

func writeVec(w *packet.Writer, v r3.Vec) {
	w.WriteF(v.X)
	w.WriteF(v.Y)
	w.WriteF(v.Z)
}

func readVec(r *packet.Reader) r3.Vec {
	return r3.Vec{X: r.ReadF(), Y: r.ReadF(), Z: r.ReadF()}
}

// Encode builds the wire packet of m. Audience is not sent; the hub has
// already filtered by it.
func Encode(m Message) []byte {
	w := packet.NewWriterWithOpcode(kindOpcodes[m.Kind])
	w.WriteQ(m.Tick)
	w.WriteQ(uint64(m.Entity))
	switch m.Kind {
	case KindAgentSpawned:
		w.WriteS(m.Archetype)
		writeVec(w, m.Position)
		w.WriteF(m.Yaw)
	case KindAgentTransform:
		writeVec(w, m.Position)
		w.WriteF(m.Yaw)
	case KindAttackStarted:
		w.WriteQ(uint64(m.Target))
		writeVec(w, m.Position)
		w.WriteF(m.Yaw)
	case KindEffect:
		w.WriteD(m.EffectID)
		writeVec(w, m.Position)
		writeVec(w, m.Normal)
	case KindDeathTriggered:
		writeVec(w, m.Position)
	}
	return w.Bytes()
}

// Decode parses a replication packet. Observer clients and tests use it.
func Decode(data []byte) (Message, error) {
	r := packet.NewReader(data)
	kind, ok := opcodeKinds[r.Opcode()]
	if !ok {
		return Message{}, fmt.Errorf("opcode %d is not a replication message", r.Opcode())
	}
	m := Message{Kind: kind, Tick: r.ReadQ(), Entity: ecs.EntityID(r.ReadQ())}
	switch kind {
	case KindAgentSpawned:
		m.Archetype = r.ReadS()
		m.Position = readVec(r)
		m.Yaw = r.ReadF()
	case KindAgentTransform:
		m.Position = readVec(r)
		m.Yaw = r.ReadF()
	case KindAttackStarted:
		m.Target = ecs.EntityID(r.ReadQ())
		m.Position = readVec(r)
		m.Yaw = r.ReadF()
	case KindEffect:
		m.EffectID = r.ReadD()
		m.Position = readVec(r)
		m.Normal = readVec(r)
	case KindDeathTriggered:
		m.Position = readVec(r)
	}
	if r.Remaining() != 0 {
		return m, fmt.Errorf("%s: %d trailing bytes", kind, r.Remaining())
	}
	return m, nil
}
