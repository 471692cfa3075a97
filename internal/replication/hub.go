package replication

import (
	"errors"
	"time"

	coresys "github.com/l1jgo/horde/internal/core/system"
	"go.uber.org/zap"
)

var (
	ErrHubClosed = errors.New("replication hub closed")
	ErrHubFull   = errors.New("replication hub full")
)

// Observer is a connected replication receiver. *net.Session implements it.
type Observer interface {
	SessionID() uint64
	// Ready is false until the observer has authenticated.
	Ready() bool
	Send(data []byte)
	FlushOutput()
	IsClosed() bool
	Close()
}

// Hub queues replication messages during the tick and delivers them to
// observers once per tick. Game loop only.
// Phase 4 (Output).
type Hub struct {
	observers []Observer
	max       int
	queue     []Message
	tick      uint64
	closed    bool
	record    func(Message)

	delivered uint64 // packets handed to observers
	flushed   uint64 // messages flushed

	log *zap.Logger
}

func NewHub(maxObservers int, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{max: maxObservers, log: log.Named("hub")}
}

func (h *Hub) Phase() coresys.Phase { return coresys.PhaseOutput }

// SetRecorder sees every flushed message, before delivery.
func (h *Hub) SetRecorder(fn func(Message)) { h.record = fn }

// Replicate queues m stamped with the current tick. Never blocks.
func (h *Hub) Replicate(m Message) {
	if h.closed {
		return
	}
	m.Tick = h.tick
	h.queue = append(h.queue, m)
}

// Add attaches an observer. It receives messages once Ready.
func (h *Hub) Add(o Observer) error {
	if h.closed {
		return ErrHubClosed
	}
	if h.max > 0 && len(h.observers) >= h.max {
		return ErrHubFull
	}
	h.observers = append(h.observers, o)
	return nil
}

// Remove detaches the observer with the given session ID.
func (h *Hub) Remove(id uint64) bool {
	for i, o := range h.observers {
		if o.SessionID() == id {
			h.observers = append(h.observers[:i], h.observers[i+1:]...)
			return true
		}
	}
	return false
}

func (h *Hub) Len() int          { return len(h.observers) }
func (h *Hub) Tick() uint64      { return h.tick }
func (h *Hub) Pending() int      { return len(h.queue) }
func (h *Hub) Delivered() uint64 { return h.delivered }
func (h *Hub) Flushed() uint64   { return h.flushed }

// Ready counts observers that receive replication.
func (h *Hub) Ready() int {
	n := 0
	for _, o := range h.observers {
		if o.Ready() {
			n++
		}
	}
	return n
}

func (h *Hub) Update(_ time.Duration) {
	h.Flush()
	h.tick++
}

// Flush delivers the queued messages, pushes every observer's buffer to its
// socket and drops observers that have closed.
func (h *Hub) Flush() {
	for _, m := range h.queue {
		if h.record != nil {
			h.record(m)
		}
		var data []byte
		for _, o := range h.observers {
			if !o.Ready() || !m.Delivers(o.SessionID()) {
				continue
			}
			if data == nil {
				data = Encode(m)
			}
			o.Send(data)
			h.delivered++
		}
	}
	h.flushed += uint64(len(h.queue))
	clear(h.queue)
	h.queue = h.queue[:0]

	live := h.observers[:0]
	for _, o := range h.observers {
		o.FlushOutput()
		if o.IsClosed() {
			h.log.Info("observer dropped", zap.Uint64("session", o.SessionID()))
			continue
		}
		live = append(live, o)
	}
	clear(h.observers[len(live):])
	h.observers = live
}

// Close stops the hub and closes every observer.
func (h *Hub) Close() {
	if h.closed {
		return
	}
	h.closed = true
	for _, o := range h.observers {
		o.Close()
	}
	h.observers = nil
	h.queue = nil
}
