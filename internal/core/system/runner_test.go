package system

import (
	"testing"
	"time"
)

type recorder struct {
	phase Phase
	name  string
	log   *[]string
}

func (r recorder) Phase() Phase           { return r.phase }
func (r recorder) Update(_ time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunnerOrdersByPhaseStable(t *testing.T) {
	var log []string
	run := NewRunner()
	run.Register(recorder{PhaseOutput, "out", &log})
	run.Register(recorder{PhaseUpdate, "upd-a", &log})
	run.Register(recorder{PhaseInput, "in", &log})
	run.Register(recorder{PhaseUpdate, "upd-b", &log})

	run.Tick(time.Millisecond)
	want := []string{"in", "upd-a", "upd-b", "out"}
	if len(log) != len(want) {
		t.Fatalf("log = %v", log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}
	if run.Ticks() != 1 {
		t.Fatalf("Ticks = %d", run.Ticks())
	}
}
