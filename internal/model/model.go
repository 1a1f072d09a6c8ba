// internal/model/model.go

package model

import (
	"errors"
	"fmt"
)

// ErrInvalidModel is returned when an application or platform description
// cannot be scheduled at all (duplicate ids, non-positive durations).
var ErrInvalidModel = errors.New("invalid model")

// TaskID uniquely identifies a task in an application model.
type TaskID int

// NodeID uniquely identifies a processing node in a platform model.
type NodeID int

// Time is a point or a span on the schedule time axis, origin 0.
type Time float64

// Task is one unit of non-preemptive work.
type Task struct {
	ID       TaskID `json:"id"`
	WCET     Time   `json:"wcet"`     // worst-case execution time
	Deadline Time   `json:"deadline"` // absolute, measured from 0
}

// Message is a precedence edge: Sender must finish before Receiver starts.
type Message struct {
	Sender   TaskID `json:"sender"`
	Receiver TaskID `json:"receiver"`
}

// Node is a processing element. Type filters eligible placement targets.
type Node struct {
	ID   NodeID `json:"id"`
	Type string `json:"type"`
}

// Link connects two nodes. Delays are carried but not accounted for.
type Link struct {
	ID        int    `json:"id"`
	Start     NodeID `json:"start_node"`
	End       NodeID `json:"end_node"`
	LinkDelay Time   `json:"link_delay"`
	Bandwidth Time   `json:"bandwidth"`
	Type      string `json:"type"`
}

// Application is the task graph.
type Application struct {
	Tasks    []Task    `json:"tasks"`
	Messages []Message `json:"messages"`
}

// Platform is the set of nodes tasks may be placed on.
type Platform struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links,omitempty"`
}

// Model bundles both halves of an input file.
type Model struct {
	Application Application `json:"application"`
	Platform    Platform    `json:"platform"`
}

// Validate rejects task sets that no algorithm can work on.
func (a *Application) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: no application", ErrInvalidModel)
	}
	seen := make(map[TaskID]struct{}, len(a.Tasks))
	for _, t := range a.Tasks {
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: task %d defined twice", ErrInvalidModel, t.ID)
		}
		seen[t.ID] = struct{}{}
		if t.WCET <= 0 {
			return fmt.Errorf("%w: task %d has non-positive wcet %v", ErrInvalidModel, t.ID, t.WCET)
		}
		if t.Deadline <= 0 {
			return fmt.Errorf("%w: task %d has non-positive deadline %v", ErrInvalidModel, t.ID, t.Deadline)
		}
	}
	return nil
}

// Validate rejects platforms with ambiguous node ids.
func (p *Platform) Validate() error {
	seen := make(map[NodeID]struct{}, len(p.Nodes))
	for _, n := range p.Nodes {
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: node %d defined twice", ErrInvalidModel, n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	return nil
}

// TaskByID returns the task with the given id.
func (a *Application) TaskByID(id TaskID) (Task, bool) {
	for _, t := range a.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}
