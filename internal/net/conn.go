package net

import (
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a message-framed connection. TCP frames carry a 2-byte length
// header; WebSocket frames are binary messages.
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() string
	Close() error
}

type tcpConn struct {
	c net.Conn
}

func NewTCPConn(c net.Conn) Conn { return &tcpConn{c: c} }

func (t *tcpConn) ReadFrame() ([]byte, error)         { return ReadFrame(t.c) }
func (t *tcpConn) WriteFrame(data []byte) error       { return WriteFrame(t.c, data) }
func (t *tcpConn) SetWriteDeadline(d time.Time) error { return t.c.SetWriteDeadline(d) }
func (t *tcpConn) RemoteAddr() string                 { return t.c.RemoteAddr().String() }
func (t *tcpConn) Close() error                       { return t.c.Close() }

type wsConn struct {
	c *websocket.Conn
}

func NewWSConn(c *websocket.Conn) Conn { return &wsConn{c: c} }

// ReadFrame returns the next binary message; text messages are skipped.
func (w *wsConn) ReadFrame() ([]byte, error) {
	for {
		typ, msg, err := w.c.ReadMessage()
		if err != nil {
			return nil, err
		}
		if typ == websocket.BinaryMessage && len(msg) > 0 {
			return msg, nil
		}
	}
}

func (w *wsConn) WriteFrame(data []byte) error {
	return w.c.WriteMessage(websocket.BinaryMessage, data)
}

func (w *wsConn) SetWriteDeadline(d time.Time) error { return w.c.SetWriteDeadline(d) }
func (w *wsConn) RemoteAddr() string                 { return w.c.RemoteAddr().String() }
func (w *wsConn) Close() error                       { return w.c.Close() }
