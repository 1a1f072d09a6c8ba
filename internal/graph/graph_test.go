package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtsched/internal/model"
)

func tasks(ids ...model.TaskID) []model.Task {
	out := make([]model.Task, len(ids))
	for i, id := range ids {
		out[i] = model.Task{ID: id, WCET: 1, Deadline: 100}
	}
	return out
}

func TestBuild_Diamond(t *testing.T) {
	// 0 -> 1 -> 3
	// 0 -> 2 -> 3
	edges := []model.Message{{Sender: 0, Receiver: 1}, {Sender: 0, Receiver: 2}, {Sender: 1, Receiver: 3}, {Sender: 2, Receiver: 3}}

	g, err := Build(tasks(0, 1, 2, 3), edges)
	require.NoError(t, err)

	assert.Equal(t, 4, g.TaskCount())
	assert.Equal(t, []model.TaskID{0, 1, 2, 3}, g.Order)
	assert.Equal(t, []model.TaskID{1, 2}, g.Successors(0))
	assert.Equal(t, []model.TaskID{1, 2}, g.Predecessors(3))
	assert.Equal(t, map[model.TaskID]int{0: 0, 1: 1, 2: 1, 3: 2}, g.InDegree)
	assert.Nil(t, g.DetectCycle())
}

func TestBuild_DuplicateEdges(t *testing.T) {
	g, err := Build(tasks(0, 1), []model.Message{{Sender: 0, Receiver: 1}, {Sender: 0, Receiver: 1}})
	require.NoError(t, err)

	// in-degree counts every edge, predecessors are distinct
	assert.Equal(t, 2, g.InDegree[1])
	assert.Equal(t, []model.TaskID{1, 1}, g.Successors(0))
	assert.Equal(t, []model.TaskID{0}, g.Predecessors(1))
}

func TestBuild_UnknownTask(t *testing.T) {
	tests := []struct {
		name    string
		edge    model.Message
		missing model.TaskID
	}{
		{"unknown sender", model.Message{Sender: 9, Receiver: 0}, 9},
		{"unknown receiver", model.Message{Sender: 0, Receiver: 7}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tasks(0, 1), []model.Message{tt.edge})
			require.ErrorIs(t, err, ErrMalformedGraph)

			var mge *MalformedGraphError
			require.True(t, errors.As(err, &mge))
			assert.Equal(t, tt.missing, mge.Missing)
			assert.Equal(t, tt.edge, mge.Edge)
		})
	}
}

func TestBuild_DuplicateTask(t *testing.T) {
	_, err := Build(tasks(1, 1), nil)
	require.ErrorIs(t, err, model.ErrInvalidModel)
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	in := tasks(2, 0, 1)
	edges := []model.Message{{Sender: 2, Receiver: 0}, {Sender: 0, Receiver: 1}}
	inCopy := append([]model.Task(nil), in...)
	edgesCopy := append([]model.Message(nil), edges...)

	_, err := Build(in, edges)
	require.NoError(t, err)
	assert.Equal(t, inCopy, in)
	assert.Equal(t, edgesCopy, edges)
}

func TestBuild_Empty(t *testing.T) {
	g, err := Build(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, g.TaskCount())
	assert.Nil(t, g.DetectCycle())
}

func TestDetectCycle(t *testing.T) {
	tests := []struct {
		name  string
		ids   []model.TaskID
		edges []model.Message
		want  []model.TaskID
	}{
		{"two-cycle", []model.TaskID{0, 1}, []model.Message{{Sender: 0, Receiver: 1}, {Sender: 1, Receiver: 0}}, []model.TaskID{0, 1, 0}},
		{"self loop", []model.TaskID{5}, []model.Message{{Sender: 5, Receiver: 5}}, []model.TaskID{5, 5}},
		{
			"three-cycle behind a root",
			[]model.TaskID{0, 1, 2, 3},
			[]model.Message{{Sender: 0, Receiver: 1}, {Sender: 1, Receiver: 2}, {Sender: 2, Receiver: 3}, {Sender: 3, Receiver: 1}},
			[]model.TaskID{1, 2, 3, 1},
		},
		{"chain", []model.TaskID{0, 1, 2}, []model.Message{{Sender: 0, Receiver: 1}, {Sender: 1, Receiver: 2}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Build(tasks(tt.ids...), tt.edges)
			require.NoError(t, err)
			assert.Equal(t, tt.want, g.DetectCycle())
		})
	}
}
