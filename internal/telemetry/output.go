package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
)

// Row is one telemetry window.
type Row struct {
	Time       string `csv:"time"`
	Tick       uint64 `csv:"tick"`
	Day        int    `csv:"day"`
	Population int    `csv:"population"`
	Advanced   uint64 `csv:"advanced"`
	Recomputed uint64 `csv:"recomputed"`
	Skipped    uint64 `csv:"skipped"`
	Flushed    uint64 `csv:"flushed"`
	Spawned    uint64 `csv:"spawned"`
	Deaths     uint64 `csv:"deaths"`
	Observers  int    `csv:"observers"`
}

// Output appends telemetry rows to a CSV file, one file per server start.
type Output struct {
	path          string
	file          *os.File
	headerWritten bool
}

// NewOutput creates dir and opens telemetry-<start>.csv inside it.
// Returns nil if dir is empty (output disabled); a nil *Output accepts and
// discards rows.
func NewOutput(dir string, start time.Time) (*Output, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create telemetry dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("telemetry-%s.csv", start.UTC().Format("20060102-150405")))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &Output{path: path, file: f}, nil
}

func (o *Output) Path() string {
	if o == nil {
		return ""
	}
	return o.path
}

// Write appends r. The first row also writes the header.
func (o *Output) Write(r Row) error {
	if o == nil {
		return nil
	}
	records := []Row{r}
	if !o.headerWritten {
		if err := gocsv.Marshal(records, o.file); err != nil {
			return fmt.Errorf("write telemetry: %w", err)
		}
		o.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, o.file); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	if o == nil || o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file = nil
	return err
}

// ReadRows loads every row of a telemetry file.
func ReadRows(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	var rows []Row
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}
