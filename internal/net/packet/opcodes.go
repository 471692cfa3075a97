package packet

// Client → server control opcodes.
const (
	C_OPCODE_AUTH byte = 1 // [password\0]
	C_OPCODE_PING byte = 2 // [nonce D]
	C_OPCODE_QUIT byte = 3
)

// Server → client opcodes.
const (
	S_OPCODE_WELCOME     byte = 100 // [server name\0][server id H][tick rate ms H][auth required C]
	S_OPCODE_AUTH_RESULT byte = 101 // [ok C]
	S_OPCODE_PONG        byte = 102 // [nonce D]

	// replication; every message starts with [tick Q][entity Q]
	S_OPCODE_AGENT_SPAWNED   byte = 110 // [archetype\0][pos F3][yaw F]
	S_OPCODE_AGENT_TRANSFORM byte = 111 // [pos F3][yaw F]
	S_OPCODE_ATTACK_STARTED  byte = 112 // [target Q][pos F3][yaw F]
	S_OPCODE_EFFECT          byte = 113 // [effect id D][pos F3][normal F3]
	S_OPCODE_DEATH_TRIGGERED byte = 114 // [pos F3]
	S_OPCODE_AGENT_REMOVED   byte = 115
)
