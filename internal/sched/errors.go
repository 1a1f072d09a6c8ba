package sched

import (
	"errors"
	"fmt"
	"strings"

	"rtsched/internal/graph"
	"rtsched/internal/model"
)

var (
	ErrCyclicDependency = errors.New("cyclic dependency")
	ErrDeadlineMiss     = errors.New("deadline miss")
	ErrNoEligibleNodes  = errors.New("no eligible nodes")
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrMalformedGraph is re-exported so callers need only this package.
	ErrMalformedGraph = graph.ErrMalformedGraph
)

// CyclicDependencyError carries one cycle found in the precedence graph.
type CyclicDependencyError struct {
	Cycle []model.TaskID
}

func (e *CyclicDependencyError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, id := range e.Cycle {
		parts[i] = fmt.Sprint(id)
	}
	return "cyclic dependency: " + strings.Join(parts, " -> ")
}

func (e *CyclicDependencyError) Is(target error) bool { return target == ErrCyclicDependency }

// DeadlineMissError reports the first task whose placement would end late.
type DeadlineMissError struct {
	TaskID   model.TaskID
	NodeID   model.NodeID
	Start    model.Time
	End      model.Time
	Deadline model.Time
}

func (e *DeadlineMissError) Error() string {
	return fmt.Sprintf("deadline miss: task %d on node %d would run [%v, %v] past deadline %v",
		e.TaskID, e.NodeID, e.Start, e.End, e.Deadline)
}

func (e *DeadlineMissError) Is(target error) bool { return target == ErrDeadlineMiss }
