// Package graph implements the grading-model evaluation engine: a DAG of
// grade-combination formulas that turns a student's raw task grades into a
// single course grade, plus the structural validator that keeps such graphs
// consistent as the course structure evolves.
//
// The package is pure: it performs no I/O, never logs, and never mutates its
// inputs. Callers fetch grades and source metadata before invoking it, which
// makes concurrent evaluation for many students safe without locking.
package graph

import "time"

// NodeType discriminates the three kinds of nodes a grading graph may contain.
type NodeType string

const (
	// NodeSource wraps a single grade-bearing course task or part.
	NodeSource NodeType = "source"
	// NodeFormula combines its children's results via a registered formula.
	NodeFormula NodeType = "formula"
	// NodeSink is the unique terminal node whose result is the final grade.
	NodeSink NodeType = "sink"
)

// Node is one element of a grading graph. Source nodes carry the id of the
// grade source they wrap, formula nodes carry a formula id and its node-level
// parameters, the sink carries nothing extra.
type Node struct {
	ID            string         `json:"id"`
	Type          NodeType       `json:"type"`
	SourceID      int64          `json:"sourceId,omitempty"`
	Formula       string         `json:"formula,omitempty"`
	FormulaParams map[string]any `json:"formulaParams,omitempty"`
}

// Edge is a directed connection between two nodes. Params are validated
// against the target formula's child-parameter schema; they live on the edge
// because the same upstream node may feed different formulas in different
// roles (a weight for one, a rise threshold for another).
type Edge struct {
	From   string         `json:"from"`
	To     string         `json:"to"`
	Params map[string]any `json:"params,omitempty"`
}

// GraphStructure is the serialized form of a grading model's graph, persisted
// with the model as an opaque blob by the storage layer.
type GraphStructure struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeByID returns the node with the given id, if present.
func (g GraphStructure) NodeByID(id string) (Node, bool) {
	for _, node := range g.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return Node{}, false
}

// Incoming returns the edges targeting the given node, in edge-list order.
// Edge-list order is what makes evaluation deterministic for formulas that
// care about child ordering.
func (g GraphStructure) Incoming(nodeID string) []Edge {
	var edges []Edge
	for _, edge := range g.Edges {
		if edge.To == nodeID {
			edges = append(edges, edge)
		}
	}
	return edges
}

// Outgoing returns the edges leaving the given node.
func (g GraphStructure) Outgoing(nodeID string) []Edge {
	var edges []Edge
	for _, edge := range g.Edges {
		if edge.From == nodeID {
			edges = append(edges, edge)
		}
	}
	return edges
}

// Sink returns the graph's sink node. The second return value is false when
// the graph has no sink or more than one; such graphs never pass validation.
func (g GraphStructure) Sink() (Node, bool) {
	var sink Node
	found := 0
	for _, node := range g.Nodes {
		if node.Type == NodeSink {
			sink = node
			found++
		}
	}
	return sink, found == 1
}

// SourceIDs returns the grade-source ids referenced by the graph's source
// nodes, in node-list order. Duplicates are returned as-is; uniqueness is the
// validator's concern.
func (g GraphStructure) SourceIDs() []int64 {
	var ids []int64
	for _, node := range g.Nodes {
		if node.Type == NodeSource {
			ids = append(ids, node.SourceID)
		}
	}
	return ids
}

// RawGrade is one recorded measurement for a (student, source) pair. Multiple
// raw grades may exist per pair, e.g. resubmissions; the selection policy
// picks the one that counts.
type RawGrade struct {
	Grade      float64
	Date       time.Time
	ExpiryDate *time.Time
	Manual     bool
	Comment    string
}

// Expired reports whether the grade's expiry date has passed. Grades without
// an expiry date never expire.
func (r RawGrade) Expired(now time.Time) bool {
	return r.ExpiryDate != nil && r.ExpiryDate.Before(now)
}

// GradeSource is the engine's read-only view of a course task or part that
// source nodes refer to. The owning course layer computes ExpiryDate from the
// source's validity window.
type GradeSource struct {
	ID         int64
	Archived   bool
	ExpiryDate *time.Time
}

// Status is the outcome attached to every per-node result. Pending means the
// result is not computable yet and must propagate upward instead of being
// silently defaulted.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusPending Status = "pending"
)

// CalculationResult is the engine's per-node output. Results are transient;
// only the sink's grade is ever persisted, by the caller.
type CalculationResult struct {
	NodeID string  `json:"nodeId"`
	Grade  float64 `json:"grade"`
	Status Status  `json:"status"`
}
