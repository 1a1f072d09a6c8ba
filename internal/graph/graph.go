package graph

import (
	"errors"
	"fmt"
	"sort"

	"rtsched/internal/model"
)

// ErrMalformedGraph matches any *MalformedGraphError.
var ErrMalformedGraph = errors.New("malformed graph")

// MalformedGraphError reports a dependency edge that names a task absent
// from the task set.
type MalformedGraphError struct {
	Edge    model.Message
	Missing model.TaskID
}

func (e *MalformedGraphError) Error() string {
	return fmt.Sprintf("malformed graph: edge %d -> %d references unknown task %d",
		e.Edge.Sender, e.Edge.Receiver, e.Missing)
}

func (e *MalformedGraphError) Is(target error) bool { return target == ErrMalformedGraph }

// Graph is the precedence graph of one scheduling request. It owns copies of
// everything it holds; the caller's slices are never touched.
type Graph struct {
	Tasks    map[model.TaskID]model.Task
	Order    []model.TaskID                  // ids in the order they were supplied
	Adj      map[model.TaskID][]model.TaskID // sender -> receivers, one entry per edge
	RevAdj   map[model.TaskID][]model.TaskID // receiver -> distinct senders, sorted
	InDegree map[model.TaskID]int            // incoming edges, duplicates counted
}

// Build constructs the precedence graph. Every edge must name known tasks.
func Build(tasks []model.Task, edges []model.Message) (*Graph, error) {
	g := &Graph{
		Tasks:    make(map[model.TaskID]model.Task, len(tasks)),
		Order:    make([]model.TaskID, 0, len(tasks)),
		Adj:      make(map[model.TaskID][]model.TaskID),
		RevAdj:   make(map[model.TaskID][]model.TaskID),
		InDegree: make(map[model.TaskID]int, len(tasks)),
	}

	for _, t := range tasks {
		if _, dup := g.Tasks[t.ID]; dup {
			return nil, fmt.Errorf("%w: task %d defined twice", model.ErrInvalidModel, t.ID)
		}
		g.Tasks[t.ID] = t
		g.Order = append(g.Order, t.ID)
		g.InDegree[t.ID] = 0
	}

	seen := make(map[[2]model.TaskID]bool)
	for _, e := range edges {
		if _, ok := g.Tasks[e.Sender]; !ok {
			return nil, &MalformedGraphError{Edge: e, Missing: e.Sender}
		}
		if _, ok := g.Tasks[e.Receiver]; !ok {
			return nil, &MalformedGraphError{Edge: e, Missing: e.Receiver}
		}
		g.Adj[e.Sender] = append(g.Adj[e.Sender], e.Receiver)
		g.InDegree[e.Receiver]++

		key := [2]model.TaskID{e.Sender, e.Receiver}
		if !seen[key] {
			seen[key] = true
			g.RevAdj[e.Receiver] = append(g.RevAdj[e.Receiver], e.Sender)
		}
	}

	for k := range g.RevAdj {
		sort.Slice(g.RevAdj[k], func(i, j int) bool { return g.RevAdj[k][i] < g.RevAdj[k][j] })
	}

	return g, nil
}

// TaskCount returns the number of tasks in the graph.
func (g *Graph) TaskCount() int {
	return len(g.Order)
}

// Predecessors returns the distinct senders of edges into id, sorted.
func (g *Graph) Predecessors(id model.TaskID) []model.TaskID {
	return g.RevAdj[id]
}

// Successors returns the receivers of edges out of id, one per edge.
func (g *Graph) Successors(id model.TaskID) []model.TaskID {
	return g.Adj[id]
}

// DetectCycle returns one dependency cycle as a closed path, for example
// [1 2 3 1], or nil when the graph is acyclic. Roots are tried in supply
// order so the same input always reports the same cycle.
func (g *Graph) DetectCycle() []model.TaskID {
	onPath := make(map[model.TaskID]int, len(g.Order)) // id -> index in path
	done := make(map[model.TaskID]bool, len(g.Order))
	var path []model.TaskID

	var walk func(id model.TaskID) []model.TaskID
	walk = func(id model.TaskID) []model.TaskID {
		onPath[id] = len(path)
		path = append(path, id)
		for _, next := range g.Adj[id] {
			if i, open := onPath[next]; open {
				cycle := append([]model.TaskID(nil), path[i:]...)
				return append(cycle, next)
			}
			if done[next] {
				continue
			}
			if cycle := walk(next); cycle != nil {
				return cycle
			}
		}
		path = path[:len(path)-1]
		delete(onPath, id)
		done[id] = true
		return nil
	}

	for _, id := range g.Order {
		if done[id] {
			continue
		}
		if cycle := walk(id); cycle != nil {
			return cycle
		}
	}
	return nil
}
