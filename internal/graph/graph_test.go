package graph

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGraphStructureLookups(t *testing.T) {
	g := weightedPairGraph()

	node, ok := g.NodeByID("avg")
	require.True(t, ok)
	require.Equal(t, NodeFormula, node.Type)

	_, ok = g.NodeByID("missing")
	require.False(t, ok)

	incoming := g.Incoming("avg")
	require.Len(t, incoming, 2)
	require.Equal(t, "task-a", incoming[0].From, "incoming edges keep edge-list order")

	require.Len(t, g.Outgoing("avg"), 1)
	require.Empty(t, g.Outgoing("final"))

	sink, ok := g.Sink()
	require.True(t, ok)
	require.Equal(t, "final", sink.ID)

	require.Equal(t, []int64{1, 2}, g.SourceIDs())
}

func TestGraphStructureDecodesStoredBlob(t *testing.T) {
	// The shape a grading model persists; the storage layer round-trips it
	// unchanged and the engine must accept it directly.
	blob := `{
		"nodes": [
			{"id": "task-12", "type": "source", "sourceId": 12},
			{"id": "avg", "type": "formula", "formula": "weighted-average", "formulaParams": {"requireAllPass": true}},
			{"id": "final", "type": "sink"}
		],
		"edges": [
			{"from": "task-12", "to": "avg", "params": {"weight": 1}},
			{"from": "avg", "to": "final"}
		]
	}`

	var g GraphStructure
	require.NoError(t, json.Unmarshal([]byte(blob), &g))

	report := Validate(g, NewRegistry())
	require.True(t, report.Valid, "unexpected errors: %v", report.Errors)

	result, err := NewEvaluator(NewRegistry()).Evaluate(g, map[int64][]RawGrade{
		12: {passingGrade(4)},
	}, evalNow)
	require.NoError(t, err)
	require.Equal(t, 4.0, result.Grade)
	require.Equal(t, StatusPass, result.Status)
}

func TestRawGradeExpired(t *testing.T) {
	now := time.Now()
	past := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 1)

	require.False(t, RawGrade{Grade: 1}.Expired(now), "no expiry date means no expiry")
	require.False(t, RawGrade{Grade: 1, ExpiryDate: &future}.Expired(now))
	require.True(t, RawGrade{Grade: 1, ExpiryDate: &past}.Expired(now))
}
