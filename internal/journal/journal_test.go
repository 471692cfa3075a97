package journal

import (
	"testing"
	"time"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/replication"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestRecorderRoundTrip(t *testing.T) {
	w := NewWriter(t.TempDir(), "replication")
	w.now = func() time.Time { return time.Date(2026, 3, 1, 14, 20, 0, 0, time.UTC) }
	rec := NewRecorder(w, 16, nil)

	agent := ecs.NewEntityID(7, 2)
	rec.Record(replication.AgentSpawned(agent, "grunt", r3.Vec{X: 1, Z: 2}, 0.5))
	rec.Record(replication.DeathTriggered(agent, r3.Vec{X: 3}))
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if rec.Written() != 2 || rec.Dropped() != 0 {
		t.Fatalf("written=%d dropped=%d", rec.Written(), rec.Dropped())
	}

	path := w.pathForHour("2026-03-01-14")
	entries, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Kind != replication.KindAgentSpawned || entries[0].Entity != agent || entries[0].Archetype != "grunt" {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if entries[1].Kind != replication.KindDeathTriggered || entries[1].Position.X != 3 {
		t.Fatalf("second entry = %+v", entries[1])
	}
}

func TestWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "r")
	now := time.Date(2026, 3, 1, 9, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }
	if err := w.Write(map[string]int{"a": 1}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := w.Write(map[string]int{"a": 2}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, hour := range []string{"2026-03-01-09", "2026-03-01-10"} {
		entries, err := ReadFile(w.pathForHour(hour))
		if err != nil {
			t.Fatalf("ReadFile %s: %v", hour, err)
		}
		if len(entries) != 1 {
			t.Fatalf("%s has %d lines, want 1", hour, len(entries))
		}
	}
}
