package sched

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"rtsched/internal/model"
)

// Entry is one placed task.
type Entry struct {
	TaskID    model.TaskID `json:"task_id"`
	NodeID    model.NodeID `json:"node_id"`
	StartTime model.Time   `json:"start_time"`
	EndTime   model.Time   `json:"end_time"`
	Deadline  model.Time   `json:"deadline"`
}

// Result is the output of one scheduling operation.
type Result struct {
	Name     string         `json:"name"`
	Schedule []Entry        `json:"schedule"`
	Dropped  []model.TaskID `json:"dropped,omitempty"` // tasks left out in lenient mode
}

// Report wraps placement records into a Result.
func Report(name string, entries []Entry, dropped []model.TaskID) *Result {
	if entries == nil {
		entries = []Entry{}
	}
	return &Result{Name: name, Schedule: entries, Dropped: dropped}
}

// Makespan is the latest end time in the schedule, 0 when empty.
func (r *Result) Makespan() model.Time {
	var m model.Time
	for _, e := range r.Schedule {
		m = max(m, e.EndTime)
	}
	return m
}

// ByNode groups entries per node, keeping schedule order.
func (r *Result) ByNode() map[model.NodeID][]Entry {
	out := make(map[model.NodeID][]Entry)
	for _, e := range r.Schedule {
		out[e.NodeID] = append(out[e.NodeID], e)
	}
	return out
}

// Verify checks the schedule against app: every entry lasts exactly its
// task's wcet and ends by its deadline, every edge between two scheduled
// tasks is respected, and entries on one node neither overlap nor go back in
// time. All violations are returned joined.
func (r *Result) Verify(app *model.Application) error {
	tasks := make(map[model.TaskID]model.Task, len(app.Tasks))
	for _, t := range app.Tasks {
		tasks[t.ID] = t
	}

	var errs []error
	placed := make(map[model.TaskID]Entry, len(r.Schedule))
	for _, e := range r.Schedule {
		t, ok := tasks[e.TaskID]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: task %d is not part of the application", r.Name, e.TaskID))
			continue
		}
		if _, dup := placed[e.TaskID]; dup {
			errs = append(errs, fmt.Errorf("%s: task %d scheduled twice", r.Name, e.TaskID))
		}
		placed[e.TaskID] = e
		if e.EndTime != e.StartTime+t.WCET {
			errs = append(errs, fmt.Errorf("%s: task %d runs %v, wcet is %v", r.Name, e.TaskID, e.EndTime-e.StartTime, t.WCET))
		}
		if e.EndTime > t.Deadline {
			errs = append(errs, fmt.Errorf("%s: task %d ends at %v after deadline %v", r.Name, e.TaskID, e.EndTime, t.Deadline))
		}
	}

	for _, m := range app.Messages {
		s, sok := placed[m.Sender]
		d, dok := placed[m.Receiver]
		if sok && dok && d.StartTime < s.EndTime {
			errs = append(errs, fmt.Errorf("%s: task %d starts at %v before predecessor %d ends at %v",
				r.Name, m.Receiver, d.StartTime, m.Sender, s.EndTime))
		}
	}

	for node, entries := range r.ByNode() {
		for i := 1; i < len(entries); i++ {
			prev, cur := entries[i-1], entries[i]
			if cur.StartTime < prev.StartTime {
				errs = append(errs, fmt.Errorf("%s: node %d goes back in time at task %d", r.Name, node, cur.TaskID))
			}
			if cur.StartTime < prev.EndTime {
				errs = append(errs, fmt.Errorf("%s: node %d runs tasks %d and %d at once", r.Name, node, prev.TaskID, cur.TaskID))
			}
		}
	}

	return errors.Join(errs...)
}

// WriteCSV writes one row per entry with a header row.
func (r *Result) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"task_id", "node_id", "start_time", "end_time", "deadline"}); err != nil {
		return err
	}
	for _, e := range r.Schedule {
		rec := []string{
			strconv.Itoa(int(e.TaskID)),
			strconv.Itoa(int(e.NodeID)),
			formatTime(e.StartTime),
			formatTime(e.EndTime),
			formatTime(e.Deadline),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
