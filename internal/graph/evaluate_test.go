package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var evalNow = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

// weightedPairGraph is the canonical two-task model: two sources feed a
// weighted average which feeds the sink.
func weightedPairGraph() GraphStructure {
	return GraphStructure{
		Nodes: []Node{
			{ID: "task-a", Type: NodeSource, SourceID: 1},
			{ID: "task-b", Type: NodeSource, SourceID: 2},
			{ID: "avg", Type: NodeFormula, Formula: FormulaWeightedAverage},
			{ID: "final", Type: NodeSink},
		},
		Edges: []Edge{
			{From: "task-a", To: "avg", Params: map[string]any{"weight": 0.6}},
			{From: "task-b", To: "avg", Params: map[string]any{"weight": 0.4}},
			{From: "avg", To: "final"},
		},
	}
}

func passingGrade(value float64) RawGrade {
	return RawGrade{Grade: value, Date: evalNow.AddDate(0, -1, 0)}
}

func TestEvaluateWeightedAverageEndToEnd(t *testing.T) {
	evaluator := NewEvaluator(NewRegistry())

	result, err := evaluator.Evaluate(weightedPairGraph(), map[int64][]RawGrade{
		1: {passingGrade(4)},
		2: {passingGrade(5)},
	}, evalNow)
	require.NoError(t, err)
	require.Equal(t, "final", result.NodeID)
	require.InDelta(t, 4.4, result.Grade, 1e-9)
	require.Equal(t, StatusPass, result.Status)
}

func TestEvaluateMissingGradeIsPending(t *testing.T) {
	evaluator := NewEvaluator(NewRegistry())

	result, err := evaluator.Evaluate(weightedPairGraph(), map[int64][]RawGrade{
		1: {passingGrade(4)},
	}, evalNow)
	require.NoError(t, err)
	require.Equal(t, StatusPending, result.Status)
}

func TestEvaluateSingleSourcePassesThrough(t *testing.T) {
	g := GraphStructure{
		Nodes: []Node{
			{ID: "exam", Type: NodeSource, SourceID: 7},
			{ID: "final", Type: NodeSink},
		},
		Edges: []Edge{
			{From: "exam", To: "final"},
		},
	}
	evaluator := NewEvaluator(NewRegistry())

	result, err := evaluator.Evaluate(g, map[int64][]RawGrade{7: {passingGrade(3.5)}}, evalNow)
	require.NoError(t, err)
	require.Equal(t, 3.5, result.Grade)
	require.Equal(t, StatusPass, result.Status)
}

func TestEvaluateExpiredGradeFails(t *testing.T) {
	expiry := evalNow.AddDate(0, 0, -1)
	g := GraphStructure{
		Nodes: []Node{
			{ID: "exam", Type: NodeSource, SourceID: 7},
			{ID: "final", Type: NodeSink},
		},
		Edges: []Edge{
			{From: "exam", To: "final"},
		},
	}
	evaluator := NewEvaluator(NewRegistry())

	result, err := evaluator.Evaluate(g, map[int64][]RawGrade{
		7: {{Grade: 4, Date: evalNow.AddDate(-1, 0, 0), ExpiryDate: &expiry}},
	}, evalNow)
	require.NoError(t, err)
	require.Equal(t, 4.0, result.Grade, "an expired grade still carries its value")
	require.Equal(t, StatusFail, result.Status)
}

func TestEvaluateRiseBonusEndToEnd(t *testing.T) {
	g := GraphStructure{
		Nodes: []Node{
			{ID: "course", Type: NodeSource, SourceID: 1},
			{ID: "extra-1", Type: NodeSource, SourceID: 2},
			{ID: "extra-2", Type: NodeSource, SourceID: 3},
			{ID: "bonus", Type: NodeFormula, Formula: FormulaRiseBonus},
			{ID: "final", Type: NodeSink},
		},
		Edges: []Edge{
			{From: "course", To: "bonus", Params: map[string]any{"grading": GradingMain}},
			{From: "extra-1", To: "bonus", Params: map[string]any{"grading": GradingRise, "riseGrade": 5.0}},
			{From: "extra-2", To: "bonus", Params: map[string]any{"grading": GradingRise, "riseGrade": 5.0}},
			{From: "bonus", To: "final"},
		},
	}
	evaluator := NewEvaluator(NewRegistry())

	result, err := evaluator.Evaluate(g, map[int64][]RawGrade{
		1: {passingGrade(3)},
		2: {passingGrade(6)},
		3: {passingGrade(4)},
	}, evalNow)
	require.NoError(t, err)
	require.Equal(t, 4.0, result.Grade, "one rise child above its threshold adds one bonus point")
	require.Equal(t, StatusPass, result.Status)
}

func TestEvaluateManualLeafFormula(t *testing.T) {
	g := GraphStructure{
		Nodes: []Node{
			{ID: "override", Type: NodeFormula, Formula: FormulaManual, FormulaParams: map[string]any{"grade": 5.0}},
			{ID: "final", Type: NodeSink},
		},
		Edges: []Edge{
			{From: "override", To: "final"},
		},
	}
	evaluator := NewEvaluator(NewRegistry())

	result, err := evaluator.Evaluate(g, nil, evalNow)
	require.NoError(t, err)
	require.Equal(t, 5.0, result.Grade)
	require.Equal(t, StatusPass, result.Status)
}

func TestEvaluateCycleIsEngineFault(t *testing.T) {
	g := GraphStructure{
		Nodes: []Node{
			{ID: "a", Type: NodeFormula, Formula: FormulaWeightedAverage},
			{ID: "b", Type: NodeFormula, Formula: FormulaWeightedAverage},
			{ID: "final", Type: NodeSink},
		},
		Edges: []Edge{
			{From: "a", To: "b", Params: map[string]any{"weight": 1.0}},
			{From: "b", To: "a", Params: map[string]any{"weight": 1.0}},
			{From: "b", To: "final"},
		},
	}
	evaluator := NewEvaluator(NewRegistry())

	_, err := evaluator.Evaluate(g, nil, evalNow)
	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
}

func TestEvaluateTwoMainChildrenIsEngineFault(t *testing.T) {
	g := GraphStructure{
		Nodes: []Node{
			{ID: "a", Type: NodeSource, SourceID: 1},
			{ID: "b", Type: NodeSource, SourceID: 2},
			{ID: "bonus", Type: NodeFormula, Formula: FormulaRiseBonus},
			{ID: "final", Type: NodeSink},
		},
		Edges: []Edge{
			{From: "a", To: "bonus", Params: map[string]any{"grading": GradingMain}},
			{From: "b", To: "bonus", Params: map[string]any{"grading": GradingMain}},
			{From: "bonus", To: "final"},
		},
	}
	evaluator := NewEvaluator(NewRegistry())

	_, err := evaluator.Evaluate(g, map[int64][]RawGrade{
		1: {passingGrade(3)},
		2: {passingGrade(4)},
	}, evalNow)
	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	require.Equal(t, "bonus", engineErr.NodeID)
}

func TestEvaluateUnknownFormulaIsEngineFault(t *testing.T) {
	g := GraphStructure{
		Nodes: []Node{
			{ID: "a", Type: NodeSource, SourceID: 1},
			{ID: "mystery", Type: NodeFormula, Formula: "median"},
			{ID: "final", Type: NodeSink},
		},
		Edges: []Edge{
			{From: "a", To: "mystery"},
			{From: "mystery", To: "final"},
		},
	}
	evaluator := NewEvaluator(NewRegistry())

	_, err := evaluator.Evaluate(g, map[int64][]RawGrade{1: {passingGrade(3)}}, evalNow)
	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	evaluator := NewEvaluator(NewRegistry())
	grades := map[int64][]RawGrade{
		1: {passingGrade(4), passingGrade(2)},
		2: {passingGrade(5)},
	}

	first, err := evaluator.Evaluate(weightedPairGraph(), grades, evalNow)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := evaluator.Evaluate(weightedPairGraph(), grades, evalNow)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestEvaluateDoesNotMutateInputs(t *testing.T) {
	evaluator := NewEvaluator(NewRegistry())
	g := weightedPairGraph()
	grades := map[int64][]RawGrade{
		1: {passingGrade(4)},
		2: {passingGrade(5)},
	}

	_, err := evaluator.Evaluate(g, grades, evalNow)
	require.NoError(t, err)
	require.Equal(t, weightedPairGraph(), g)
	require.Equal(t, 4.0, grades[1][0].Grade)
	require.Equal(t, 5.0, grades[2][0].Grade)
}

func TestEvaluatePendingPropagatesThroughLayers(t *testing.T) {
	// task-b has no grade; the pending status must survive two formula
	// layers instead of being defaulted to zero somewhere in between.
	g := GraphStructure{
		Nodes: []Node{
			{ID: "task-a", Type: NodeSource, SourceID: 1},
			{ID: "task-b", Type: NodeSource, SourceID: 2},
			{ID: "inner", Type: NodeFormula, Formula: FormulaWeightedAverage},
			{ID: "outer", Type: NodeFormula, Formula: FormulaWeightedAverage},
			{ID: "final", Type: NodeSink},
		},
		Edges: []Edge{
			{From: "task-b", To: "inner", Params: map[string]any{"weight": 1.0}},
			{From: "task-a", To: "outer", Params: map[string]any{"weight": 1.0}},
			{From: "inner", To: "outer", Params: map[string]any{"weight": 1.0}},
			{From: "outer", To: "final"},
		},
	}
	evaluator := NewEvaluator(NewRegistry())

	result, err := evaluator.Evaluate(g, map[int64][]RawGrade{1: {passingGrade(5)}}, evalNow)
	require.NoError(t, err)
	require.Equal(t, StatusPending, result.Status)
}
