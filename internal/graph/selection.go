package graph

import "time"

// SelectGrade picks the one raw grade that counts for a source, or nil when
// the student has no grades for it at all. Non-expired candidates are
// preferred; within a pool the ranking is manual origin over automated,
// then higher grade, then more recent date as the tiebreak. When every
// candidate has expired the best-ranked one is still returned, and the
// engine marks the source failed rather than pending: a grade existed but
// lapsed, which is a grading outcome.
func SelectGrade(candidates []RawGrade, now time.Time) *RawGrade {
	if len(candidates) == 0 {
		return nil
	}

	pool := make([]RawGrade, 0, len(candidates))
	for _, candidate := range candidates {
		if !candidate.Expired(now) {
			pool = append(pool, candidate)
		}
	}
	if len(pool) == 0 {
		pool = candidates
	}

	best := pool[0]
	for _, candidate := range pool[1:] {
		if betterGrade(candidate, best) {
			best = candidate
		}
	}
	return &best
}

func betterGrade(a, b RawGrade) bool {
	if a.Manual != b.Manual {
		return a.Manual
	}
	if a.Grade != b.Grade {
		return a.Grade > b.Grade
	}
	return a.Date.After(b.Date)
}
