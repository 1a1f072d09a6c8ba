// internal/sched/allocator.go

package sched

import (
	"fmt"

	"github.com/emirpasic/gods/trees/redblacktree"

	"rtsched/internal/model"
)

// allocator hands out the node a task should be placed on next.
type allocator interface {
	// pick returns the chosen node and the time it becomes free.
	pick() (model.NodeID, model.Time)
	// commit marks node busy until end.
	commit(node model.NodeID, end model.Time)
}

// singleNode runs everything serially on one fixed node.
type singleNode struct {
	id   model.NodeID
	free model.Time
}

func (s *singleNode) pick() (model.NodeID, model.Time) { return s.id, s.free }

func (s *singleNode) commit(_ model.NodeID, end model.Time) { s.free = end }

// multiNode always picks the node that frees up first, lowest id on ties.
type multiNode struct {
	rbt   *redblacktree.Tree // ordered by availability and node ID
	avail map[model.NodeID]model.Time
}

// newMultiNode builds the availability tree over the eligible nodes of p.
// Nodes whose Type equals nodeType are eligible. A platform where no node
// carries a type does not distinguish kinds, and every node is eligible.
func newMultiNode(p *model.Platform, nodeType string) (*multiNode, error) {
	if p == nil || len(p.Nodes) == 0 {
		return nil, fmt.Errorf("%w: platform has no nodes", ErrNoEligibleNodes)
	}

	eligible := p.Nodes
	if nodeType != "" && typed(p.Nodes) {
		eligible = nil
		for _, n := range p.Nodes {
			if n.Type == nodeType {
				eligible = append(eligible, n)
			}
		}
		if len(eligible) == 0 {
			return nil, fmt.Errorf("%w: no node of type %q", ErrNoEligibleNodes, nodeType)
		}
	}

	m := &multiNode{
		rbt:   redblacktree.NewWith(byAvailability),
		avail: make(map[model.NodeID]model.Time, len(eligible)),
	}
	for _, n := range eligible {
		if _, dup := m.avail[n.ID]; dup {
			continue
		}
		m.avail[n.ID] = 0
		m.rbt.Put(nodeKey{free: 0, id: n.ID}, n.ID)
	}
	return m, nil
}

func typed(nodes []model.Node) bool {
	for _, n := range nodes {
		if n.Type != "" {
			return true
		}
	}
	return false
}

func (m *multiNode) pick() (model.NodeID, model.Time) {
	key := m.rbt.Left().Key.(nodeKey)
	return key.id, key.free
}

func (m *multiNode) commit(node model.NodeID, end model.Time) {
	// Remove old tree entry, then reinsert the node under its new availability.
	m.rbt.Remove(nodeKey{free: m.avail[node], id: node})
	m.avail[node] = end
	m.rbt.Put(nodeKey{free: end, id: node}, node)
}

// nodeKey is used as a key in the red-black tree.
type nodeKey struct {
	free model.Time
	id   model.NodeID
}

// byAvailability orders nodeKeys by free time, then node id.
func byAvailability(a, b any) int {
	ka, kb := a.(nodeKey), b.(nodeKey)
	switch {
	case ka.free < kb.free:
		return -1
	case ka.free > kb.free:
		return 1
	case ka.id < kb.id:
		return -1
	case ka.id > kb.id:
		return 1
	default:
		return 0
	}
}
