package replication

import (
	"errors"
	"testing"

	"github.com/l1jgo/horde/internal/core/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

type fakeObserver struct {
	id      uint64
	ready   bool
	closed  bool
	buf     [][]byte
	out     [][]byte
	limit   int // out capacity; 0 = unlimited
	flushes int
}

func (f *fakeObserver) SessionID() uint64 { return f.id }
func (f *fakeObserver) Ready() bool       { return f.ready && !f.closed }
func (f *fakeObserver) Send(data []byte)  { f.buf = append(f.buf, data) }
func (f *fakeObserver) IsClosed() bool    { return f.closed }
func (f *fakeObserver) Close()            { f.closed = true }

func (f *fakeObserver) FlushOutput() {
	f.flushes++
	for _, d := range f.buf {
		if f.limit > 0 && len(f.out) >= f.limit {
			f.closed = true
			break
		}
		f.out = append(f.out, d)
	}
	f.buf = nil
}

func (f *fakeObserver) decoded(t *testing.T) []Message {
	t.Helper()
	var ms []Message
	for _, d := range f.out {
		m, err := Decode(d)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		ms = append(ms, m)
	}
	return ms
}

func TestHubDeliversOncePerTick(t *testing.T) {
	h := NewHub(0, nil)
	host := &fakeObserver{id: HostSession, ready: true}
	viewer := &fakeObserver{id: 7, ready: true}
	pending := &fakeObserver{id: 8}
	for _, o := range []*fakeObserver{host, viewer, pending} {
		if err := h.Add(o); err != nil {
			t.Fatal(err)
		}
	}

	agent, target := ecs.NewEntityID(1, 0), ecs.NewEntityID(2, 0)
	h.Replicate(AgentSpawned(agent, "grunt", r3.Vec{X: 1, Z: 2}, 0.5))
	h.Replicate(AttackStarted(agent, target, r3.Vec{X: 1, Z: 2}, 0.5))
	if len(viewer.out) != 0 || h.Pending() != 2 {
		t.Fatal("delivered before the output phase")
	}
	h.Update(0)

	if got := viewer.decoded(t); len(got) != 2 || got[0].Kind != KindAgentSpawned || got[1].Kind != KindAttackStarted || got[1].Target != target {
		t.Fatalf("viewer got %+v", got)
	}
	if got := host.decoded(t); len(got) != 1 || got[0].Kind != KindAgentSpawned {
		t.Fatalf("host got %+v, AttackStarted must skip the acting session", got)
	}
	if len(pending.out) != 0 {
		t.Fatal("unauthenticated observer received replication")
	}

	h.Replicate(AgentRemoved(agent))
	h.Update(0)
	if got := viewer.decoded(t); got[2].Tick != 1 || got[0].Tick != 0 {
		t.Fatalf("ticks = %d, %d", got[0].Tick, got[2].Tick)
	}
	if h.Flushed() != 3 || h.Delivered() != 5 {
		t.Fatalf("flushed=%d delivered=%d", h.Flushed(), h.Delivered())
	}
}

func TestHubDropsSlowObserver(t *testing.T) {
	h := NewHub(0, nil)
	slow := &fakeObserver{id: 1, ready: true, limit: 1}
	fast := &fakeObserver{id: 2, ready: true}
	h.Add(slow)
	h.Add(fast)

	for i := 0; i < 3; i++ {
		h.Replicate(AgentTransform(ecs.NewEntityID(1, 0), r3.Vec{X: float64(i)}, 0))
	}
	h.Update(0)
	if !slow.closed || h.Len() != 1 || len(fast.out) != 3 {
		t.Fatalf("slow closed=%v len=%d fast=%d", slow.closed, h.Len(), len(fast.out))
	}
}

func TestHubLimitsAndClose(t *testing.T) {
	h := NewHub(1, nil)
	var recorded []Message
	h.SetRecorder(func(m Message) { recorded = append(recorded, m) })

	a := &fakeObserver{id: 1, ready: true}
	if err := h.Add(a); err != nil {
		t.Fatal(err)
	}
	if err := h.Add(&fakeObserver{id: 2}); !errors.Is(err, ErrHubFull) {
		t.Fatalf("err = %v, want ErrHubFull", err)
	}

	h.Replicate(DeathTriggered(ecs.NewEntityID(3, 0), r3.Vec{}))
	h.Update(0)
	if len(recorded) != 1 || recorded[0].Kind != KindDeathTriggered {
		t.Fatalf("recorded %+v", recorded)
	}

	h.Close()
	if !a.closed || h.Len() != 0 {
		t.Fatal("Close left observers attached")
	}
	if err := h.Add(&fakeObserver{id: 3}); !errors.Is(err, ErrHubClosed) {
		t.Fatalf("err = %v, want ErrHubClosed", err)
	}
	h.Replicate(AgentRemoved(ecs.NewEntityID(3, 0)))
	if h.Pending() != 0 {
		t.Fatal("closed hub queued a message")
	}
}

func TestEncodeEffect(t *testing.T) {
	m := Effect(ecs.NewEntityID(4, 1), r3.Vec{X: 1.5, Y: 0.25, Z: -3}, r3.Vec{Z: -1}, 12)
	m.Tick = 99
	got, err := Decode(Encode(m))
	if err != nil {
		t.Fatal(err)
	}
	if got != m {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}
