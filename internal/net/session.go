package net

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/l1jgo/horde/internal/net/packet"
	"go.uber.org/zap"
)

// Session is one observer connection. Network I/O runs in dedicated
// goroutines; everything else is called from the game loop.
type Session struct {
	ID        uint64
	IP        string
	Transport string // "tcp" or "ws"

	conn  Conn
	state atomic.Int32 // packet.SessionState stored as int32

	InQueue  chan []byte // game loop reads control packets from here
	OutQueue chan []byte // writer goroutine reads from here

	outBuf [][]byte // buffered packets, flushed once per tick (game loop only)

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	// Per-second packet rate limiter (readLoop goroutine only, no lock needed)
	pktPerSec  int   // max packets/sec (0 = unlimited)
	pktCount   int   // packets received this second
	pktResetAt int64 // unix second of last counter reset

	log *zap.Logger
}

func NewSession(conn Conn, id uint64, transport string, inSize, outSize, pktPerSec int, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		ID:        id,
		IP:        conn.RemoteAddr(),
		Transport: transport,
		conn:      conn,
		InQueue:   make(chan []byte, inSize),
		OutQueue:  make(chan []byte, outSize),
		closeCh:   make(chan struct{}),
		pktPerSec: pktPerSec,
		log:       log.With(zap.Uint64("session", id)),
	}
	s.state.Store(int32(packet.StateConnected))
	return s
}

func (s *Session) SessionID() uint64 { return s.ID }

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// Ready reports whether the session receives replication.
func (s *Session) Ready() bool {
	return !s.closed.Load() && s.State() == packet.StateAuthenticated
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a packet. Nothing reaches the socket until FlushOutput.
// Called only from the game loop goroutine, so outBuf needs no lock.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, data)
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop goroutine.
// Non-blocking: if OutQueue is full, the session is disconnected (backpressure).
func (s *Session) FlushOutput() {
	for i, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("output queue full, disconnecting slow observer",
				zap.Int("pending", len(s.outBuf)-i),
			)
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// Close shuts the session down. Safe from any goroutine, any number of times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop reads frames and pushes them onto InQueue for the game loop.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		payload, err := s.conn.ReadFrame()
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		if s.pktPerSec > 0 {
			now := time.Now().Unix()
			if now != s.pktResetAt {
				s.pktCount = 0
				s.pktResetAt = now
			}
			s.pktCount++
			if s.pktCount > s.pktPerSec {
				s.log.Warn("packet rate exceeded, disconnecting", zap.Int("pps", s.pktCount))
				return
			}
		}

		// observers only send control packets; blocking here stalls this
		// session alone
		select {
		case s.InQueue <- payload:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop writes queued packets until the session closes.
func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteFrame(data); err != nil {
				if !s.closed.Load() {
					s.log.Debug("write error", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}
