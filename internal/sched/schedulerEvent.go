// internal/sched/schedulerEvent.go

package sched

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"rtsched/internal/model"
)

// StatusKind represents the type of placement event
type StatusKind int

const (
	StatusEnqueue  StatusKind = iota // task reached the head of the sequence
	StatusDispatch                   // task placed; Time is its start
	StatusFinish                     // Time is its end
	StatusDrop                       // task left out of the schedule
)

// StatusEvent is emitted for every decision the allocator takes.
type StatusEvent struct {
	Algorithm string
	Kind      StatusKind
	TaskID    model.TaskID
	NodeID    model.NodeID
	Time      model.Time
	Reason    string // set on StatusDrop
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusEnqueue:
		return "Enqueued"
	case StatusDispatch:
		return "Dispatch"
	case StatusFinish:
		return "Finish"
	case StatusDrop:
		return "Drop"
	default:
		return "Unknown"
	}
}

// Observer receives placement events synchronously. Observers shared by
// concurrent runs must be safe for concurrent use.
type Observer interface {
	Observe(ev StatusEvent)
}

// EventLog collects events in memory and optionally mirrors them to CSV.
type EventLog struct {
	mu     sync.Mutex
	events []StatusEvent

	// logging-related
	csvFile   *os.File
	csvWriter *csv.Writer
}

// NewEventLog returns an empty in-memory log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// EnableCSVLogging opens the given file path for CSV logging of events.
// Must be called before the log is handed to a Scheduler.
func (l *EventLog) EnableCSVLogging(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create event log: %w", err)
	}
	w := csv.NewWriter(f)

	// write header
	if err := w.Write([]string{"seq", "algorithm", "event", "task_id", "node_id", "time", "reason"}); err != nil {
		f.Close()
		return fmt.Errorf("write event log header: %w", err)
	}
	w.Flush()
	l.csvFile = f
	l.csvWriter = w
	return nil
}

// Observe implements Observer.
func (l *EventLog) Observe(ev StatusEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, ev)
	if l.csvWriter == nil {
		return
	}
	_ = l.csvWriter.Write([]string{
		strconv.Itoa(len(l.events)),
		ev.Algorithm,
		ev.Kind.String(),
		strconv.Itoa(int(ev.TaskID)),
		strconv.Itoa(int(ev.NodeID)),
		formatTime(ev.Time),
		ev.Reason,
	})
}

// Events returns a copy of everything observed so far.
func (l *EventLog) Events() []StatusEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]StatusEvent(nil), l.events...)
}

// Close flushes and closes the CSV mirror, if any.
func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.csvFile == nil {
		return nil
	}
	l.csvWriter.Flush()
	err := l.csvWriter.Error()
	if cerr := l.csvFile.Close(); err == nil {
		err = cerr
	}
	l.csvFile, l.csvWriter = nil, nil
	return err
}

func formatTime(t model.Time) string {
	return strconv.FormatFloat(float64(t), 'f', -1, 64)
}
