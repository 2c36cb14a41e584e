package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSelectGradeEmptyReturnsNil(t *testing.T) {
	require.Nil(t, SelectGrade(nil, time.Now()))
	require.Nil(t, SelectGrade([]RawGrade{}, time.Now()))
}

func TestSelectGradePrefersManualOverHigher(t *testing.T) {
	now := time.Now()
	selected := SelectGrade([]RawGrade{
		{Grade: 5, Date: now.AddDate(0, 0, -1)},
		{Grade: 3, Date: now.AddDate(0, 0, -10), Manual: true},
	}, now)
	require.NotNil(t, selected)
	require.True(t, selected.Manual)
	require.Equal(t, 3.0, selected.Grade)
}

func TestSelectGradePrefersHigherGrade(t *testing.T) {
	now := time.Now()
	selected := SelectGrade([]RawGrade{
		{Grade: 2, Date: now.AddDate(0, 0, -1)},
		{Grade: 4, Date: now.AddDate(0, 0, -5)},
		{Grade: 3, Date: now},
	}, now)
	require.NotNil(t, selected)
	require.Equal(t, 4.0, selected.Grade)
}

func TestSelectGradeBreaksTiesByRecency(t *testing.T) {
	now := time.Now()
	older := now.AddDate(0, 0, -5)
	selected := SelectGrade([]RawGrade{
		{Grade: 4, Date: older, Comment: "first attempt"},
		{Grade: 4, Date: now, Comment: "second attempt"},
	}, now)
	require.NotNil(t, selected)
	require.Equal(t, "second attempt", selected.Comment)
}

func TestSelectGradeSkipsExpiredWhenFreshExists(t *testing.T) {
	now := time.Now()
	expired := now.AddDate(0, 0, -1)
	selected := SelectGrade([]RawGrade{
		{Grade: 5, Date: now.AddDate(-1, 0, 0), ExpiryDate: &expired},
		{Grade: 2, Date: now},
	}, now)
	require.NotNil(t, selected)
	require.Equal(t, 2.0, selected.Grade)
}

func TestSelectGradeAllExpiredStillPicksBest(t *testing.T) {
	now := time.Now()
	expired := now.AddDate(0, 0, -1)
	selected := SelectGrade([]RawGrade{
		{Grade: 2, Date: now.AddDate(-1, 0, 0), ExpiryDate: &expired},
		{Grade: 5, Date: now.AddDate(-1, 0, 0), ExpiryDate: &expired},
	}, now)
	require.NotNil(t, selected)
	require.Equal(t, 5.0, selected.Grade)
	require.True(t, selected.Expired(now))
}

func TestSelectGradeDoesNotMutateCandidates(t *testing.T) {
	now := time.Now()
	candidates := []RawGrade{
		{Grade: 2, Date: now},
		{Grade: 5, Date: now},
	}
	selected := SelectGrade(candidates, now)
	require.NotNil(t, selected)
	selected.Grade = 0
	require.Equal(t, 5.0, candidates[1].Grade)
}
