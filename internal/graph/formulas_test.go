package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func child(id string, grade float64, status Status, params map[string]any) ChildInput {
	return ChildInput{
		Result:     CalculationResult{NodeID: id, Grade: grade, Status: status},
		EdgeParams: params,
	}
}

func TestWeightedAverageComputesWeightedMean(t *testing.T) {
	result, err := computeWeightedAverage(nil, []ChildInput{
		child("a", 4, StatusPass, map[string]any{"weight": 0.6}),
		child("b", 5, StatusPass, map[string]any{"weight": 0.4}),
	})
	require.NoError(t, err)
	require.InDelta(t, 4.4, result.Grade, 1e-9)
	require.Equal(t, StatusPass, result.Status)
}

func TestWeightedAverageIsScaleInvariant(t *testing.T) {
	for _, scale := range []float64{0.01, 1, 2.5, 100} {
		result, err := computeWeightedAverage(nil, []ChildInput{
			child("a", 4, StatusPass, map[string]any{"weight": 0.6 * scale}),
			child("b", 5, StatusPass, map[string]any{"weight": 0.4 * scale}),
		})
		require.NoError(t, err)
		require.InDelta(t, 4.4, result.Grade, 1e-9, "scale %v changed the grade", scale)
	}
}

func TestWeightedAverageFailWhenChildFails(t *testing.T) {
	result, err := computeWeightedAverage(nil, []ChildInput{
		child("a", 4, StatusPass, map[string]any{"weight": 1.0}),
		child("b", 0, StatusFail, map[string]any{"weight": 1.0}),
	})
	require.NoError(t, err)
	require.Equal(t, StatusFail, result.Status)
}

func TestWeightedAverageRequireAllPassDisabled(t *testing.T) {
	result, err := computeWeightedAverage(map[string]any{"requireAllPass": false}, []ChildInput{
		child("a", 4, StatusPass, map[string]any{"weight": 1.0}),
		child("b", 0, StatusFail, map[string]any{"weight": 1.0}),
	})
	require.NoError(t, err)
	require.Equal(t, StatusPass, result.Status)
}

func TestWeightedAveragePendingBeatsFail(t *testing.T) {
	result, err := computeWeightedAverage(nil, []ChildInput{
		child("a", 0, StatusFail, map[string]any{"weight": 1.0}),
		child("b", 0, StatusPending, map[string]any{"weight": 1.0}),
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, result.Status, "missing data must not be masked by a failure")
}

func TestWeightedAverageZeroWeightSumIsError(t *testing.T) {
	_, err := computeWeightedAverage(nil, []ChildInput{
		child("a", 4, StatusPass, map[string]any{"weight": 0.0}),
	})
	require.Error(t, err)
}

func TestRiseBonusCountsOnlyThresholdCrossings(t *testing.T) {
	main := child("main", 3, StatusPass, map[string]any{"grading": GradingMain})

	tests := []struct {
		name      string
		riseGrade float64
		want      float64
	}{
		{name: "above threshold", riseGrade: 6, want: 4},
		{name: "at threshold", riseGrade: 5, want: 3},
		{name: "below threshold", riseGrade: 4, want: 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := computeRiseBonus(nil, []ChildInput{
				main,
				child("rise", tc.riseGrade, StatusPass, map[string]any{"grading": GradingRise, "riseGrade": 5.0}),
			})
			require.NoError(t, err)
			require.Equal(t, tc.want, result.Grade)
		})
	}
}

func TestRiseBonusChangingNonCrossingGradeKeepsBonus(t *testing.T) {
	main := child("main", 3, StatusPass, map[string]any{"grading": GradingMain})
	crossing := child("r1", 6, StatusPass, map[string]any{"grading": GradingRise, "riseGrade": 5.0})

	for _, below := range []float64{0, 2, 4.9} {
		result, err := computeRiseBonus(nil, []ChildInput{
			main,
			crossing,
			child("r2", below, StatusPass, map[string]any{"grading": GradingRise, "riseGrade": 5.0}),
		})
		require.NoError(t, err)
		require.Equal(t, 4.0, result.Grade)
	}
}

func TestRiseBonusDoesNotClampToMaxGrade(t *testing.T) {
	// Extra credit may push the grade past the source's maximum; capping is
	// a policy decision left to the caller.
	result, err := computeRiseBonus(nil, []ChildInput{
		child("main", 5, StatusPass, map[string]any{"grading": GradingMain}),
		child("r1", 9, StatusPass, map[string]any{"grading": GradingRise, "riseGrade": 1.0}),
		child("r2", 9, StatusPass, map[string]any{"grading": GradingRise, "riseGrade": 1.0}),
	})
	require.NoError(t, err)
	require.Equal(t, 7.0, result.Grade)
}

func TestRiseBonusFailingChildFailsResult(t *testing.T) {
	result, err := computeRiseBonus(nil, []ChildInput{
		child("main", 3, StatusPass, map[string]any{"grading": GradingMain}),
		child("rise", 0, StatusFail, map[string]any{"grading": GradingRise, "riseGrade": 5.0}),
	})
	require.NoError(t, err)
	require.Equal(t, StatusFail, result.Status)
}

func TestRiseBonusMissingRoleIsError(t *testing.T) {
	_, err := computeRiseBonus(nil, []ChildInput{
		child("main", 3, StatusPass, map[string]any{"grading": GradingMain}),
		child("untagged", 6, StatusPass, nil),
	})
	require.Error(t, err)
}

func TestRiseBonusMultipleMainsIsError(t *testing.T) {
	_, err := computeRiseBonus(nil, []ChildInput{
		child("a", 3, StatusPass, map[string]any{"grading": GradingMain}),
		child("b", 4, StatusPass, map[string]any{"grading": GradingMain}),
	})
	require.Error(t, err)
}

func TestManualFormulaReturnsLiteralGrade(t *testing.T) {
	def, ok := NewRegistry().Get(FormulaManual)
	require.True(t, ok)

	result, err := def.Compute(map[string]any{"grade": 4.5}, nil)
	require.NoError(t, err)
	require.Equal(t, 4.5, result.Grade)
	require.Equal(t, StatusPass, result.Status)
}

func TestManualFormulaRejectsChildren(t *testing.T) {
	def, ok := NewRegistry().Get(FormulaManual)
	require.True(t, ok)

	_, err := def.Compute(map[string]any{"grade": 4.5}, []ChildInput{
		child("a", 1, StatusPass, nil),
	})
	require.Error(t, err)
}
