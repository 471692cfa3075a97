package packet

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// SessionState is the observer session's protocol phase.
type SessionState int

const (
	StateConnected     SessionState = iota // welcome sent, awaiting AUTH
	StateAuthenticated                     // receives replication
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateAuthenticated:
		return "Authenticated"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// ErrStateNotAllowed is returned by Dispatch when the opcode is registered
// but not for the session's current state.
var ErrStateNotAllowed = errors.New("opcode not allowed in state")

// HandlerFunc is the callback signature for packet handlers.
// The session is passed as an opaque value to avoid import cycles.
type HandlerFunc func(sess any, r *Reader)

type handlerEntry struct {
	fn      HandlerFunc
	allowed map[SessionState]bool
}

// Registry maps control opcodes to handlers with state-based access control.
type Registry struct {
	handlers map[byte]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		handlers: make(map[byte]*handlerEntry),
		log:      log.Named("registry"),
	}
}

// Register maps an opcode to a handler, restricted to the given session states.
func (reg *Registry) Register(opcode byte, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[opcode] = &handlerEntry{fn: fn, allowed: allowed}
}

// Dispatch runs the handler of the opcode in data[0]. Unknown opcodes are
// ignored.
func (reg *Registry) Dispatch(sess any, state SessionState, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty packet")
	}
	opcode := data[0]
	entry, ok := reg.handlers[opcode]
	if !ok {
		reg.log.Debug("unknown opcode", zap.Uint8("opcode", opcode), zap.Stringer("state", state))
		return nil
	}
	if !entry.allowed[state] {
		return fmt.Errorf("%w: opcode %d, state %s", ErrStateNotAllowed, opcode, state)
	}
	return reg.safeCall(entry.fn, sess, NewReader(data), opcode)
}

// safeCall keeps one bad packet from taking down the game loop.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, r *Reader, opcode byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.Uint8("opcode", opcode),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for opcode %d: %v", opcode, rec)
		}
	}()
	fn(sess, r)
	return nil
}
