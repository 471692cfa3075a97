package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/l1jgo/horde/internal/replication"
	"go.uber.org/zap"
)

// Entry is one journaled replication message.
type Entry struct {
	At int64 `json:"at"` // unix millis
	replication.Message
}

// Recorder journals replication messages on its own goroutine. Record never
// blocks: a full queue drops the entry and counts it.
type Recorder struct {
	w       *Writer
	ch      chan Entry
	done    chan struct{}
	dropped atomic.Uint64
	written atomic.Uint64
	log     *zap.Logger
}

func NewRecorder(w *Writer, queueSize int, log *zap.Logger) *Recorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Recorder{
		w:    w,
		ch:   make(chan Entry, queueSize),
		done: make(chan struct{}),
		log:  log.Named("journal"),
	}
	go r.run()
	return r
}

// Record queues m. Must not be called after Close.
func (r *Recorder) Record(m replication.Message) {
	select {
	case r.ch <- Entry{At: time.Now().UnixMilli(), Message: m}:
	default:
		if r.dropped.Add(1)%1000 == 1 {
			r.log.Warn("journal queue full, dropping", zap.Uint64("dropped", r.dropped.Load()))
		}
	}
}

func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }
func (r *Recorder) Written() uint64 { return r.written.Load() }

// Close drains the queue and closes the current file.
func (r *Recorder) Close() error {
	close(r.ch)
	<-r.done
	return r.w.Close()
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.ch {
		if err := r.w.Write(e); err != nil {
			r.log.Error("journal write failed", zap.Error(err))
			continue
		}
		r.written.Add(1)
		// flush once the burst of a tick is drained
		if len(r.ch) == 0 {
			if err := r.w.Flush(); err != nil {
				r.log.Error("journal flush failed", zap.Error(err))
			}
		}
	}
}

// ReadFile decodes every entry of a journal file.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open zstd: %w", err)
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("decode journal line: %w", err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return out, nil
}
