package graph

import "fmt"

// Built-in formula ids.
const (
	FormulaWeightedAverage = "weighted-average"
	FormulaRiseBonus       = "rise-bonus"
	FormulaManual          = "manual"
)

// Child grading roles used by the rise-bonus formula.
const (
	GradingMain = "main"
	GradingRise = "rise"
)

// NewRegistry returns a registry populated with the built-in formulas.
// Extensions may register additional formulas on the returned registry before
// handing it to an evaluator.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	r.MustRegister(weightedAverageDefinition())
	r.MustRegister(riseBonusDefinition())
	r.MustRegister(manualDefinition())
	return r
}

// weightedAverageDefinition combines children as a weight-normalized average.
// Scaling every weight by the same positive constant leaves the result
// unchanged.
func weightedAverageDefinition() FormulaDefinition {
	return FormulaDefinition{
		ID: FormulaWeightedAverage,
		NodeParamsSchema: mustCompileSchema(`{
			"type": "object",
			"properties": {
				"requireAllPass": {"type": "boolean"}
			},
			"additionalProperties": false
		}`),
		ChildParamsSchema: mustCompileSchema(`{
			"type": "object",
			"properties": {
				"weight": {"type": "number", "minimum": 0}
			},
			"required": ["weight"],
			"additionalProperties": false
		}`),
		DefaultChildParams: map[string]any{"weight": 1.0},
		ValidateChildren: func(children []map[string]any) error {
			if len(children) == 0 {
				return fmt.Errorf("weighted average requires at least one child")
			}
			sum := 0.0
			for _, params := range children {
				weight, ok := numberParam(params, "weight")
				if !ok {
					return fmt.Errorf("child is missing its weight")
				}
				sum += weight
			}
			if sum <= 0 {
				return fmt.Errorf("child weights must sum to more than zero")
			}
			return nil
		},
		Compute: computeWeightedAverage,
	}
}

func computeWeightedAverage(nodeParams map[string]any, children []ChildInput) (CalculationResult, error) {
	requireAllPass := true
	if value, ok := boolParam(nodeParams, "requireAllPass"); ok {
		requireAllPass = value
	}

	weightSum := 0.0
	gradeSum := 0.0
	anyPending := false
	anyFail := false
	for _, child := range children {
		weight, ok := numberParam(child.EdgeParams, "weight")
		if !ok {
			return CalculationResult{}, fmt.Errorf("child %s is missing its weight", child.Result.NodeID)
		}
		weightSum += weight
		gradeSum += child.Result.Grade * weight

		switch child.Result.Status {
		case StatusPending:
			anyPending = true
		case StatusFail:
			anyFail = true
		}
	}
	if weightSum <= 0 {
		return CalculationResult{}, fmt.Errorf("child weights sum to zero")
	}

	status := StatusPass
	switch {
	case anyPending:
		status = StatusPending
	case anyFail && requireAllPass:
		status = StatusFail
	}

	return CalculationResult{Grade: gradeSum / weightSum, Status: status}, nil
}

// riseBonusDefinition takes a base grade from its single main child and adds
// one bonus point for every rise child whose grade strictly exceeds that
// edge's threshold. The bonus-augmented grade is deliberately not clamped to
// the source's maximum, allowing extra credit.
func riseBonusDefinition() FormulaDefinition {
	return FormulaDefinition{
		ID:               FormulaRiseBonus,
		NodeParamsSchema: mustCompileSchema(`{"type": "object", "additionalProperties": false}`),
		ChildParamsSchema: mustCompileSchema(`{
			"type": "object",
			"properties": {
				"grading": {"type": "string", "enum": ["main", "rise"]},
				"riseGrade": {"type": "number", "minimum": 0}
			},
			"required": ["grading"],
			"additionalProperties": false
		}`),
		DefaultChildParams: map[string]any{"grading": GradingRise, "riseGrade": 2.0},
		ValidateChildren: func(children []map[string]any) error {
			mains := 0
			for _, params := range children {
				grading, ok := stringParam(params, "grading")
				if !ok {
					return fmt.Errorf("child is missing its grading role")
				}
				if grading == GradingMain {
					mains++
				}
			}
			if mains != 1 {
				return fmt.Errorf("rise bonus requires exactly one main child, found %d", mains)
			}
			return nil
		},
		Compute: computeRiseBonus,
	}
}

func computeRiseBonus(_ map[string]any, children []ChildInput) (CalculationResult, error) {
	base := 0.0
	bonus := 0.0
	mainFound := false
	anyPending := false
	anyFail := false

	for _, child := range children {
		switch child.Result.Status {
		case StatusPending:
			anyPending = true
		case StatusFail:
			anyFail = true
		}

		grading, ok := stringParam(child.EdgeParams, "grading")
		if !ok {
			return CalculationResult{}, fmt.Errorf("child %s has no grading role", child.Result.NodeID)
		}
		switch grading {
		case GradingMain:
			if mainFound {
				return CalculationResult{}, fmt.Errorf("multiple main children")
			}
			mainFound = true
			base = child.Result.Grade
		case GradingRise:
			threshold, ok := numberParam(child.EdgeParams, "riseGrade")
			if !ok {
				return CalculationResult{}, fmt.Errorf("rise child %s has no threshold", child.Result.NodeID)
			}
			if child.Result.Grade > threshold {
				bonus++
			}
		default:
			return CalculationResult{}, fmt.Errorf("child %s has unknown grading role %q", child.Result.NodeID, grading)
		}
	}
	if !mainFound {
		return CalculationResult{}, fmt.Errorf("no main child")
	}

	status := StatusPass
	switch {
	case anyPending:
		status = StatusPending
	case anyFail:
		status = StatusFail
	}

	return CalculationResult{Grade: base + bonus, Status: status}, nil
}

// manualDefinition is a zero-child formula carrying a literal grade, used for
// leaf overrides entered by a teacher. It always passes.
func manualDefinition() FormulaDefinition {
	return FormulaDefinition{
		ID: FormulaManual,
		NodeParamsSchema: mustCompileSchema(`{
			"type": "object",
			"properties": {
				"grade": {"type": "number", "minimum": 0}
			},
			"required": ["grade"],
			"additionalProperties": false
		}`),
		ChildParamsSchema: mustCompileSchema(`{"type": "object", "additionalProperties": false}`),
		ValidateChildren: func(children []map[string]any) error {
			if len(children) != 0 {
				return fmt.Errorf("manual grade accepts no children")
			}
			return nil
		},
		Compute: func(nodeParams map[string]any, children []ChildInput) (CalculationResult, error) {
			if len(children) != 0 {
				return CalculationResult{}, fmt.Errorf("manual grade accepts no children")
			}
			grade, ok := numberParam(nodeParams, "grade")
			if !ok {
				return CalculationResult{}, fmt.Errorf("manual grade is missing its grade parameter")
			}
			return CalculationResult{Grade: grade, Status: StatusPass}, nil
		},
	}
}

// Parameter maps come from JSON blobs, so numbers may arrive as float64 or,
// when built in Go code, as int. Normalize here instead of at every call site.
func numberParam(params map[string]any, key string) (float64, bool) {
	if params == nil {
		return 0, false
	}
	switch value := params[key].(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	default:
		return 0, false
	}
}

func stringParam(params map[string]any, key string) (string, bool) {
	if params == nil {
		return "", false
	}
	value, ok := params[key].(string)
	return value, ok
}

func boolParam(params map[string]any, key string) (bool, bool) {
	if params == nil {
		return false, false
	}
	value, ok := params[key].(bool)
	return value, ok
}
