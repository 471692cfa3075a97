package net

import (
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server accepts observer connections over TCP and WebSocket. New sessions
// are handed to the game loop via a channel.
type Server struct {
	tcp      net.Listener // nil when TCP is disabled
	ws       net.Listener // nil when WebSocket is disabled
	http     *http.Server
	upgrader websocket.Upgrader

	nextID   atomic.Uint64
	newConns chan *Session
	inSize   int
	outSize  int
	pps      int
	log      *zap.Logger
	closeCh  chan struct{}
}

func NewServer(inSize, outSize, pktPerSec int, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		newConns: make(chan *Session, 64),
		inSize:   inSize,
		outSize:  outSize,
		pps:      pktPerSec,
		log:      log.Named("net"),
		closeCh:  make(chan struct{}),
	}
}

// ListenTCP opens the TCP listener. Call AcceptLoop afterwards.
func (s *Server) ListenTCP(bind string) error {
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	s.tcp = ln
	return nil
}

// AcceptLoop runs in its own goroutine until Shutdown.
func (s *Server) AcceptLoop() {
	if s.tcp == nil {
		return
	}
	for {
		conn, err := s.tcp.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return // server shutting down
			default:
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}
		s.adopt(NewTCPConn(conn), "tcp")
	}
}

// ListenWS serves the WebSocket endpoint at /observe in its own goroutine.
func (s *Server) ListenWS(bind string) error {
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/observe", s.handleWS)
	s.ws = ln
	s.http = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("websocket server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) handleWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	s.adopt(NewWSConn(conn), "ws")
}

func (s *Server) adopt(conn Conn, transport string) {
	id := s.nextID.Add(1)
	sess := NewSession(conn, id, transport, s.inSize, s.outSize, s.pps, s.log)
	sess.Start()

	s.log.Info("observer connected",
		zap.Uint64("session", id),
		zap.String("transport", transport),
		zap.String("ip", sess.IP),
	)

	select {
	case s.newConns <- sess:
	default:
		s.log.Warn("connection queue full, rejecting")
		sess.Close()
	}
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	close(s.closeCh)
	if s.tcp != nil {
		s.tcp.Close()
	}
	if s.http != nil {
		s.http.Close()
	}
}

// TCPAddr returns the TCP listener's address, nil when disabled.
func (s *Server) TCPAddr() net.Addr {
	if s.tcp == nil {
		return nil
	}
	return s.tcp.Addr()
}

// WSAddr returns the WebSocket listener's address, nil when disabled.
func (s *Server) WSAddr() net.Addr {
	if s.ws == nil {
		return nil
	}
	return s.ws.Addr()
}
