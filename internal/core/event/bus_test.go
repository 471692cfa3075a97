package event

import "testing"

type ping struct{ n int }

func TestBusDeliversNextDispatch(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(p ping) { got = append(got, p.n) })

	Emit(b, ping{1})
	Emit(b, ping{2})
	b.DispatchAll() // nothing swapped yet
	if len(got) != 0 {
		t.Fatalf("delivered before swap: %v", got)
	}
	if b.Pending() != 2 {
		t.Fatalf("Pending = %d, want 2", b.Pending())
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v, want [1 2]", got)
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 2 {
		t.Fatalf("events delivered twice: %v", got)
	}
}

func TestBusReentrantEmitWaits(t *testing.T) {
	b := NewBus()
	calls := 0
	Subscribe(b, func(p ping) {
		calls++
		if p.n < 3 {
			Emit(b, ping{p.n + 1})
		}
	})
	Emit(b, ping{1})
	for i := 0; i < 5; i++ {
		b.SwapBuffers()
		b.DispatchAll()
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}
