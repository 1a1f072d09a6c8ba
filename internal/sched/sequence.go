package sched

import (
	"sort"

	"github.com/emirpasic/gods/trees/redblacktree"

	"rtsched/internal/graph"
	"rtsched/internal/model"
)

// CyclePolicy decides what the sequencer does with tasks it cannot order.
type CyclePolicy int

const (
	// CycleDrop leaves unreachable tasks out of the order.
	CycleDrop CyclePolicy = iota
	// CycleFixUp rescans the unresolved tasks for any whose predecessors are
	// all ordered, a bounded number of times, then leaves the rest out.
	CycleFixUp
	// CycleFail checks for a cycle before ordering and returns
	// *CyclicDependencyError when one exists.
	CycleFail
)

func (c CyclePolicy) String() string {
	switch c {
	case CycleDrop:
		return "drop"
	case CycleFixUp:
		return "fix-up"
	case CycleFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Sequence orders the tasks of g so that each follows all its predecessors.
// Among tasks that are ready at the same time, the one with the lowest rank
// goes first. The returned order may be shorter than the task set when the
// graph has a cycle and the policy is not CycleFail.
func Sequence(g *graph.Graph, rank map[model.TaskID]int, policy CyclePolicy) ([]model.TaskID, error) {
	if policy == CycleFail {
		if cycle := g.DetectCycle(); cycle != nil {
			return nil, &CyclicDependencyError{Cycle: cycle}
		}
	}

	// working copy; the graph is shared with the allocator
	inDegree := make(map[model.TaskID]int, len(g.InDegree))
	for id, d := range g.InDegree {
		inDegree[id] = d
	}

	// ready set ordered by rank, leftmost is next
	ready := redblacktree.NewWithIntComparator()
	for _, id := range g.Order {
		if inDegree[id] == 0 {
			ready.Put(rank[id], id)
		}
	}

	order := make([]model.TaskID, 0, g.TaskCount())
	ordered := make(map[model.TaskID]bool, g.TaskCount())
	for !ready.Empty() {
		node := ready.Left()
		ready.Remove(node.Key)
		id := node.Value.(model.TaskID)

		order = append(order, id)
		ordered[id] = true

		for _, succ := range g.Successors(id) {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready.Put(rank[succ], succ)
			}
		}
	}

	if len(order) == g.TaskCount() || policy == CycleDrop {
		return order, nil
	}
	if policy == CycleFail {
		// DetectCycle and Kahn disagree only on a corrupted graph
		return nil, &CyclicDependencyError{Cycle: g.DetectCycle()}
	}
	return fixUp(g, rank, order, ordered), nil
}

// fixUp appends unresolved tasks whose predecessors are all ordered. Each pass
// that makes no progress ends the loop; at most len(unresolved) passes run.
func fixUp(g *graph.Graph, rank map[model.TaskID]int, order []model.TaskID, ordered map[model.TaskID]bool) []model.TaskID {
	var unresolved []model.TaskID
	for _, id := range g.Order {
		if !ordered[id] {
			unresolved = append(unresolved, id)
		}
	}
	sort.Slice(unresolved, func(i, j int) bool { return rank[unresolved[i]] < rank[unresolved[j]] })

	for pass, bound := 0, len(unresolved); pass < bound && len(unresolved) > 0; pass++ {
		progress := false
		remaining := unresolved[:0]
		for _, id := range unresolved {
			if allOrdered(g.Predecessors(id), ordered) {
				order = append(order, id)
				ordered[id] = true
				progress = true
				continue
			}
			remaining = append(remaining, id)
		}
		unresolved = remaining
		if !progress {
			break
		}
	}
	return order
}

func allOrdered(ids []model.TaskID, ordered map[model.TaskID]bool) bool {
	for _, id := range ids {
		if !ordered[id] {
			return false
		}
	}
	return true
}
