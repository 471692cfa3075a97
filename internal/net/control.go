package net

import (
	"time"

	"github.com/l1jgo/horde/internal/net/packet"
	"go.uber.org/zap"
)

// ServerInfo is what the welcome packet tells a new observer.
type ServerInfo struct {
	Name     string
	ID       int
	TickRate time.Duration
}

// WelcomePacket builds S_WELCOME.
func WelcomePacket(info ServerInfo, authRequired bool) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_WELCOME)
	w.WriteS(info.Name)
	w.WriteH(uint16(info.ID))
	w.WriteH(uint16(info.TickRate.Milliseconds()))
	if authRequired {
		w.WriteC(1)
	} else {
		w.WriteC(0)
	}
	return w.Bytes()
}

func authResultPacket(ok bool) []byte {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_AUTH_RESULT)
	if ok {
		w.WriteC(1)
	} else {
		w.WriteC(0)
	}
	return w.Bytes()
}

// RegisterControl installs the observer control handlers: AUTH, PING, QUIT.
func RegisterControl(reg *packet.Registry, auth *Authenticator, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	reg.Register(packet.C_OPCODE_AUTH,
		[]packet.SessionState{packet.StateConnected},
		func(sess any, r *packet.Reader) {
			handleAuth(sess.(*Session), r, auth, log)
		},
	)
	reg.Register(packet.C_OPCODE_PING,
		[]packet.SessionState{packet.StateConnected, packet.StateAuthenticated},
		func(sess any, r *packet.Reader) {
			w := packet.NewWriterWithOpcode(packet.S_OPCODE_PONG)
			w.WriteD(r.ReadD())
			sess.(*Session).Send(w.Bytes())
		},
	)
	reg.Register(packet.C_OPCODE_QUIT,
		[]packet.SessionState{packet.StateConnected, packet.StateAuthenticated},
		func(sess any, _ *packet.Reader) {
			sess.(*Session).Close()
		},
	)
}

func handleAuth(sess *Session, r *packet.Reader, auth *Authenticator, log *zap.Logger) {
	if err := auth.Verify(r.ReadS()); err != nil {
		log.Warn("observer auth failed", zap.Uint64("session", sess.ID), zap.String("ip", sess.IP))
		sess.Send(authResultPacket(false))
		sess.FlushOutput()
		sess.Close()
		return
	}
	sess.SetState(packet.StateAuthenticated)
	sess.Send(authResultPacket(true))
	log.Info("observer authenticated", zap.Uint64("session", sess.ID), zap.String("transport", sess.Transport))
}
