package graph

import (
	"fmt"
	"time"
)

// EngineError reports an invariant violation during evaluation: a cycle, an
// unknown formula, or child parameters the validator should have rejected.
// A previously validated graph never produces one, so callers must treat it
// as an internal fault rather than user-facing validation feedback.
type EngineError struct {
	NodeID string
	Reason string
}

func (e *EngineError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("grading engine: %s", e.Reason)
	}
	return fmt.Sprintf("grading engine: node %s: %s", e.NodeID, e.Reason)
}

func engineErrorf(nodeID, format string, args ...any) *EngineError {
	return &EngineError{NodeID: nodeID, Reason: fmt.Sprintf(format, args...)}
}

// Evaluator walks grading graphs bottom-up and combines raw grades into a
// final result using the formulas of its registry.
type Evaluator struct {
	registry *Registry
}

// NewEvaluator builds an evaluator around the given formula registry.
func NewEvaluator(registry *Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

// Evaluate computes the sink's result for one student. sourceGrades maps each
// grade-source id to that student's raw grade history; a source absent from
// the map simply has no grade yet and resolves to Pending. The same
// (graph, sourceGrades, now) triple always yields the same result, and the
// inputs are never mutated, so evaluations for different students may run
// concurrently.
func (e *Evaluator) Evaluate(g GraphStructure, sourceGrades map[int64][]RawGrade, now time.Time) (CalculationResult, error) {
	order, err := topologicalOrder(g)
	if err != nil {
		return CalculationResult{}, err
	}

	results := make(map[string]CalculationResult, len(g.Nodes))
	for _, node := range order {
		var result CalculationResult
		switch node.Type {
		case NodeSource:
			result = e.evaluateSource(node, sourceGrades[node.SourceID], now)
		case NodeFormula:
			result, err = e.evaluateFormula(g, node, results)
			if err != nil {
				return CalculationResult{}, err
			}
		case NodeSink:
			incoming := g.Incoming(node.ID)
			if len(incoming) != 1 {
				return CalculationResult{}, engineErrorf(node.ID, "sink has %d incoming edges, want 1", len(incoming))
			}
			result = results[incoming[0].From]
		default:
			return CalculationResult{}, engineErrorf(node.ID, "unknown node type %q", node.Type)
		}
		result.NodeID = node.ID
		results[node.ID] = result
	}

	sink, ok := g.Sink()
	if !ok {
		return CalculationResult{}, engineErrorf("", "graph has no single sink")
	}
	return results[sink.ID], nil
}

// evaluateSource resolves a source node to one usable grade. No candidate at
// all means the source is simply ungraded; an expired best candidate counts
// as a grading outcome, just a failing one.
func (e *Evaluator) evaluateSource(node Node, candidates []RawGrade, now time.Time) CalculationResult {
	selected := SelectGrade(candidates, now)
	if selected == nil {
		return CalculationResult{Grade: 0, Status: StatusPending}
	}
	if selected.Expired(now) {
		return CalculationResult{Grade: selected.Grade, Status: StatusFail}
	}
	return CalculationResult{Grade: selected.Grade, Status: StatusPass}
}

func (e *Evaluator) evaluateFormula(g GraphStructure, node Node, results map[string]CalculationResult) (CalculationResult, error) {
	def, ok := e.registry.Get(node.Formula)
	if !ok {
		return CalculationResult{}, engineErrorf(node.ID, "unknown formula %q", node.Formula)
	}

	incoming := g.Incoming(node.ID)
	children := make([]ChildInput, 0, len(incoming))
	for _, edge := range incoming {
		children = append(children, ChildInput{
			Result:     results[edge.From],
			EdgeParams: edge.Params,
		})
	}

	result, err := def.Compute(node.FormulaParams, children)
	if err != nil {
		return CalculationResult{}, engineErrorf(node.ID, "formula %q: %v", node.Formula, err)
	}
	return result, nil
}

// topologicalOrder returns the graph's nodes in dependency order using
// Kahn's algorithm. A cycle here means a stored graph bypassed validation.
func topologicalOrder(g GraphStructure) ([]Node, error) {
	indegree := make(map[string]int, len(g.Nodes))
	for _, node := range g.Nodes {
		indegree[node.ID] = 0
	}
	for _, edge := range g.Edges {
		if _, ok := indegree[edge.To]; ok {
			indegree[edge.To]++
		}
	}

	// Seed the queue in node-list order to keep evaluation deterministic.
	var queue []Node
	for _, node := range g.Nodes {
		if indegree[node.ID] == 0 {
			queue = append(queue, node)
		}
	}

	order := make([]Node, 0, len(g.Nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, edge := range g.Outgoing(node.ID) {
			if _, ok := indegree[edge.To]; !ok {
				continue
			}
			indegree[edge.To]--
			if indegree[edge.To] == 0 {
				if target, ok := g.NodeByID(edge.To); ok {
					queue = append(queue, target)
				}
			}
		}
	}

	if len(order) != len(g.Nodes) {
		return nil, engineErrorf("", "graph contains a cycle")
	}
	return order, nil
}
