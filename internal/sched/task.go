package sched

import (
	"fmt"
	"sort"
	"strings"

	"rtsched/internal/graph"
	"rtsched/internal/model"
)

// Policy is a static priority key over tasks.
type Policy int

const (
	LDF Policy = iota // latest deadline first
	EDF               // earliest deadline first
	LL                // least static laxity (deadline - wcet) first
)

func (p Policy) String() string {
	switch p {
	case LDF:
		return "LDF"
	case EDF:
		return "EDF"
	case LL:
		return "LL"
	default:
		return "Unknown"
	}
}

// before reports whether a is strictly ahead of b under the policy.
func (p Policy) before(a, b model.Task) bool {
	switch p {
	case LDF:
		return a.Deadline > b.Deadline
	case EDF:
		return a.Deadline < b.Deadline
	default:
		return a.Deadline-a.WCET < b.Deadline-b.WCET
	}
}

// rank pre-sorts the graph's tasks by the policy key. Ties keep supply
// order, so the returned positions form a total order.
func (p Policy) rank(g *graph.Graph) map[model.TaskID]int {
	ids := append([]model.TaskID(nil), g.Order...)
	sort.SliceStable(ids, func(i, j int) bool {
		return p.before(g.Tasks[ids[i]], g.Tasks[ids[j]])
	})

	rank := make(map[model.TaskID]int, len(ids))
	for i, id := range ids {
		rank[id] = i
	}
	return rank
}

// Algorithm names one public scheduling operation.
type Algorithm string

const (
	AlgLDFSingle Algorithm = "ldf-single"
	AlgEDFSingle Algorithm = "edf-single"
	AlgLDFMulti  Algorithm = "ldf-multi"
	AlgEDFMulti  Algorithm = "edf-multi"
	AlgLLMulti   Algorithm = "ll-multi"
)

// Algorithms lists every operation in reporting order.
var Algorithms = []Algorithm{AlgLDFSingle, AlgEDFSingle, AlgLDFMulti, AlgEDFMulti, AlgLLMulti}

type algorithmDef struct {
	name   string
	policy Policy
	multi  bool
	strict bool // ignores the configured mode
}

var algorithmDefs = map[Algorithm]algorithmDef{
	AlgLDFSingle: {name: "LDF Single Node", policy: LDF},
	AlgEDFSingle: {name: "EDF Single Node", policy: EDF},
	AlgLDFMulti:  {name: "LDF Multi Node", policy: LDF, multi: true},
	AlgEDFMulti:  {name: "EDF Multi Node", policy: EDF, multi: true},
	AlgLLMulti:   {name: "LL Multi Node", policy: LL, multi: true, strict: true},
}

// ParseAlgorithm accepts the short name ("edf-multi") in any case.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := algorithmDefs[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
	return a, nil
}

// Name is the result name reported for the algorithm.
func (a Algorithm) Name() string {
	return algorithmDefs[a].name
}

// Multi reports whether the algorithm places tasks on a platform.
func (a Algorithm) Multi() bool {
	return algorithmDefs[a].multi
}
