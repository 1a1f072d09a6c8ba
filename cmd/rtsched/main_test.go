package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtsched/internal/sched"
)

const chainModel = `{
  "application": {
    "tasks": [
      { "id": 0, "wcet": 10, "deadline": 100 },
      { "id": 1, "wcet": 15, "deadline": 60 },
      { "id": 2, "wcet": 5, "deadline": 120 },
      { "id": 3, "wcet": 10, "deadline": 200 }
    ],
    "messages": [
      { "sender": 0, "receiver": 1 },
      { "sender": 1, "receiver": 3 },
      { "sender": 2, "receiver": 3 }
    ]
  },
  "platform": {
    "nodes": [
      { "id": 0, "type": "compute" },
      { "id": 1, "type": "compute" }
    ]
  }
}`

const tightModel = `{
  "application": {
    "tasks": [
      { "id": 0, "wcet": 10, "deadline": 50 },
      { "id": 1, "wcet": 10, "deadline": 10 }
    ],
    "messages": [{ "sender": 0, "receiver": 1 }]
  },
  "platform": { "nodes": [{ "id": 0, "type": "compute" }, { "id": 1, "type": "compute" }] }
}`

const cyclicModel = `{
  "tasks": [
    { "id": 0, "wcet": 1, "deadline": 10 },
    { "id": 1, "wcet": 1, "deadline": 10 }
  ],
  "messages": [{ "sender": 0, "receiver": 1 }, { "sender": 1, "receiver": 0 }]
}`

func init() {
	color.NoColor = true
}

func writeModel(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSchedule_SingleAlgorithmJSON(t *testing.T) {
	path := writeModel(t, chainModel)

	out, _, err := run(t, "schedule", "--algorithm", "edf-multi", "--json", path)
	require.NoError(t, err)

	var res sched.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "EDF Multi Node", res.Name)
	require.Len(t, res.Schedule, 4)
	assert.Equal(t, sched.Entry{TaskID: 3, NodeID: 0, StartTime: 25, EndTime: 35, Deadline: 200}, res.Schedule[3])
}

func TestSchedule_AllJSON(t *testing.T) {
	path := writeModel(t, chainModel)

	out, _, err := run(t, "schedule", "--json", "--verify", path)
	require.NoError(t, err)

	var results []sched.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, len(sched.Algorithms))
	for i, res := range results {
		assert.Equal(t, sched.Algorithms[i].Name(), res.Name)
	}
}

func TestSchedule_Table(t *testing.T) {
	path := writeModel(t, chainModel)

	out, _, err := run(t, "schedule", "-a", "ldf-single", path)
	require.NoError(t, err)
	assert.Contains(t, out, "LDF Single Node")
	assert.Contains(t, out, "4/4 scheduled, makespan 40")
}

func TestSchedule_StrictDeadlineMiss(t *testing.T) {
	path := writeModel(t, tightModel)

	out, _, err := run(t, "schedule", "--mode", "strict", "-a", "edf-multi", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadline miss")
	assert.Contains(t, out, "✗")

	out, _, err = run(t, "schedule", "--mode", "lenient", "-a", "edf-multi", path)
	require.NoError(t, err)
	assert.Contains(t, out, "dropped: 1")
}

func TestSchedule_ConfigFile(t *testing.T) {
	path := writeModel(t, tightModel)
	cfgPath := filepath.Join(t.TempDir(), "rtsched.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("mode: strict\n"), 0o644))

	_, _, err := run(t, "schedule", "--config", cfgPath, "-a", "edf-single", path)
	require.ErrorContains(t, err, "deadline miss")
}

func TestSchedule_BadConfigFile(t *testing.T) {
	path := writeModel(t, chainModel)
	cfgPath := filepath.Join(t.TempDir(), "rtsched.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("mdoe: strict\n"), 0o644))

	_, _, err := run(t, "schedule", "--config", cfgPath, "-a", "edf-single", path)
	require.ErrorContains(t, err, "parse config")
}

func TestSchedule_CSVAndEvents(t *testing.T) {
	path := writeModel(t, chainModel)
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "schedule.csv")
	eventsPath := filepath.Join(dir, "events.csv")

	_, _, err := run(t, "schedule", "-a", "ldf-multi", "--csv", csvPath, "--events", eventsPath, path)
	require.NoError(t, err)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "task_id,node_id,start_time,end_time,deadline", lines[0])
	assert.Equal(t, "2,0,0,5,120", lines[1])

	data, err = os.ReadFile(eventsPath)
	require.NoError(t, err)
	// header + 3 events per placed task
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 13)
}

func TestSchedule_CSVNeedsSingleAlgorithm(t *testing.T) {
	path := writeModel(t, chainModel)
	_, _, err := run(t, "schedule", "--csv", filepath.Join(t.TempDir(), "x.csv"), path)
	require.ErrorContains(t, err, "--csv needs a single --algorithm")
}

func TestSchedule_BadFlags(t *testing.T) {
	path := writeModel(t, chainModel)

	_, _, err := run(t, "schedule", "--mode", "sometimes", path)
	require.ErrorContains(t, err, "invalid --mode")

	_, _, err = run(t, "schedule", "-a", "rms-single", path)
	require.ErrorIs(t, err, sched.ErrUnknownAlgorithm)

	_, _, err = run(t, "--log-level", "loud", "schedule", path)
	require.ErrorContains(t, err, "invalid --log-level")

	_, _, err = run(t, "--log-format", "xml", "schedule", path)
	require.ErrorContains(t, err, "invalid --log-format")
}

func TestSchedule_CyclicLenientAndStrict(t *testing.T) {
	path := writeModel(t, cyclicModel)

	out, _, err := run(t, "schedule", "-a", "ldf-single", "--json", path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"LDF Single Node","schedule":[],"dropped":[0,1]}`, out)

	_, _, err = run(t, "schedule", "-a", "ldf-single", "--mode", "strict", path)
	require.ErrorContains(t, err, "cyclic dependency")
}

func TestValidate(t *testing.T) {
	out, _, err := run(t, "validate", writeModel(t, chainModel))
	require.NoError(t, err)
	assert.Contains(t, out, "4 tasks, 3 messages, 2 nodes")

	_, _, err = run(t, "validate", writeModel(t, cyclicModel))
	require.ErrorIs(t, err, sched.ErrCyclicDependency)

	_, _, err = run(t, "validate", writeModel(t, `{"tasks":[{"id":0,"wcet":1,"deadline":2}],"messages":[{"sender":0,"receiver":5}]}`))
	require.ErrorIs(t, err, sched.ErrMalformedGraph)
}

func TestAlgorithms(t *testing.T) {
	out, _, err := run(t, "algorithms")
	require.NoError(t, err)
	for _, a := range sched.Algorithms {
		assert.Contains(t, out, string(a))
		assert.Contains(t, out, a.Name())
	}
}
