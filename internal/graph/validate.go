package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationReport is the outcome of a structural validation run. Structural
// problems are data, not errors: callers surface them to the teacher editing
// the model and refuse to save.
type ValidationReport struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// StalenessFlags report that a valid graph references sources that have since
// been deleted, archived, or expired. They are soft signals for UI banners;
// existing students can still be evaluated against the graph as-is.
type StalenessFlags struct {
	HasDeletedSources  bool `json:"hasDeletedSources"`
	HasArchivedSources bool `json:"hasArchivedSources"`
	HasExpiredSources  bool `json:"hasExpiredSources"`
}

// Stale reports whether any staleness flag is raised.
func (f StalenessFlags) Stale() bool {
	return f.HasDeletedSources || f.HasArchivedSources || f.HasExpiredSources
}

// Validate checks that the graph is a single connected DAG rooted at one
// sink and that every formula node's parameters satisfy its formula's
// schemas. All problems are collected into one report rather than failing
// fast, so the editor can show everything at once.
func Validate(g GraphStructure, registry *Registry) ValidationReport {
	v := &graphValidator{graph: g, registry: registry}
	v.checkNodes()
	v.checkEdges()
	v.checkSink()
	v.checkOutgoing()
	v.checkAcyclic()
	v.checkConnectivity()
	v.checkFormulas()
	return ValidationReport{Valid: len(v.errors) == 0, Errors: v.errors}
}

// CheckSources compares the graph's source references against the course's
// current grade sources.
func CheckSources(g GraphStructure, sources []GradeSource, now time.Time) StalenessFlags {
	byID := make(map[int64]GradeSource, len(sources))
	for _, source := range sources {
		byID[source.ID] = source
	}

	var flags StalenessFlags
	for _, id := range g.SourceIDs() {
		source, ok := byID[id]
		if !ok {
			flags.HasDeletedSources = true
			continue
		}
		if source.Archived {
			flags.HasArchivedSources = true
		}
		if source.ExpiryDate != nil && source.ExpiryDate.Before(now) {
			flags.HasExpiredSources = true
		}
	}
	return flags
}

type graphValidator struct {
	graph    GraphStructure
	registry *Registry
	errors   []string
}

func (v *graphValidator) errorf(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *graphValidator) checkNodes() {
	seen := make(map[string]bool, len(v.graph.Nodes))
	sourceIDs := make(map[int64]bool)
	for _, node := range v.graph.Nodes {
		if node.ID == "" {
			v.errorf("node without an id")
			continue
		}
		if seen[node.ID] {
			v.errorf("duplicate node id %q", node.ID)
		}
		seen[node.ID] = true

		switch node.Type {
		case NodeSource:
			if node.SourceID <= 0 {
				v.errorf("source node %q has no source reference", node.ID)
			} else if sourceIDs[node.SourceID] {
				v.errorf("source %d is referenced by more than one node", node.SourceID)
			}
			sourceIDs[node.SourceID] = true
		case NodeFormula:
			if node.Formula == "" {
				v.errorf("formula node %q has no formula", node.ID)
			}
		case NodeSink:
		default:
			v.errorf("node %q has unknown type %q", node.ID, node.Type)
		}
	}
}

func (v *graphValidator) checkEdges() {
	for _, edge := range v.graph.Edges {
		if _, ok := v.graph.NodeByID(edge.From); !ok {
			v.errorf("edge references unknown node %q", edge.From)
		}
		if _, ok := v.graph.NodeByID(edge.To); !ok {
			v.errorf("edge references unknown node %q", edge.To)
		}
		if edge.From == edge.To {
			v.errorf("node %q has an edge to itself", edge.From)
		}
		if target, ok := v.graph.NodeByID(edge.To); ok && target.Type == NodeSource {
			v.errorf("source node %q must not have incoming edges", target.ID)
		}
	}
}

func (v *graphValidator) checkSink() {
	sinks := 0
	for _, node := range v.graph.Nodes {
		if node.Type == NodeSink {
			sinks++
		}
	}
	if sinks != 1 {
		v.errorf("graph must have exactly one sink, found %d", sinks)
		return
	}

	sink, _ := v.graph.Sink()
	if len(v.graph.Outgoing(sink.ID)) > 0 {
		v.errorf("sink %q must not have outgoing edges", sink.ID)
	}
	if len(v.graph.Incoming(sink.ID)) != 1 {
		v.errorf("sink %q must have exactly one incoming edge", sink.ID)
	}
}

func (v *graphValidator) checkOutgoing() {
	for _, node := range v.graph.Nodes {
		if node.Type == NodeSink {
			continue
		}
		if len(v.graph.Outgoing(node.ID)) == 0 {
			v.errorf("node %q leads nowhere", node.ID)
		}
	}
}

func (v *graphValidator) checkAcyclic() {
	if _, err := topologicalOrder(v.graph); err != nil {
		v.errorf("graph contains a cycle")
	}
}

// checkConnectivity verifies there are no disconnected islands: every node
// must be reachable from a legitimate leaf, and the sink must be reachable
// from every node. Source nodes are leaves; so are formula nodes whose
// formula accepts an empty child set, such as manual grades.
func (v *graphValidator) checkConnectivity() {
	leaves := make(map[string]bool)
	for _, node := range v.graph.Nodes {
		if len(v.graph.Incoming(node.ID)) > 0 {
			continue
		}
		switch node.Type {
		case NodeSource:
			leaves[node.ID] = true
		case NodeFormula:
			if def, ok := v.registry.Get(node.Formula); ok {
				if def.ValidateChildren == nil || def.ValidateChildren(nil) == nil {
					leaves[node.ID] = true
					continue
				}
			}
			v.errorf("formula node %q has no children", node.ID)
		case NodeSink:
			// Already reported by checkSink.
		}
	}

	forward := make(map[string]bool)
	for id := range leaves {
		v.walk(id, forward, func(nodeID string) []Edge { return v.graph.Outgoing(nodeID) }, func(e Edge) string { return e.To })
	}
	for _, node := range v.graph.Nodes {
		if !forward[node.ID] {
			v.errorf("node %q is not reachable from any grade source", node.ID)
		}
	}

	sink, ok := v.graph.Sink()
	if !ok {
		return
	}
	backward := make(map[string]bool)
	v.walk(sink.ID, backward, func(nodeID string) []Edge { return v.graph.Incoming(nodeID) }, func(e Edge) string { return e.From })
	for _, node := range v.graph.Nodes {
		if !backward[node.ID] && node.ID != sink.ID {
			v.errorf("the final grade does not depend on node %q", node.ID)
		}
	}
}

func (v *graphValidator) walk(start string, visited map[string]bool, edges func(string) []Edge, next func(Edge) string) {
	if visited[start] {
		return
	}
	visited[start] = true
	for _, edge := range edges(start) {
		v.walk(next(edge), visited, edges, next)
	}
}

func (v *graphValidator) checkFormulas() {
	for _, node := range v.graph.Nodes {
		if node.Type != NodeFormula || node.Formula == "" {
			continue
		}
		def, ok := v.registry.Get(node.Formula)
		if !ok {
			v.errorf("formula node %q uses unknown formula %q", node.ID, node.Formula)
			continue
		}

		if def.NodeParamsSchema != nil {
			if err := def.NodeParamsSchema.Validate(normalizeParams(node.FormulaParams)); err != nil {
				v.errorf("formula node %q has invalid parameters: %v", node.ID, schemaErrorMessage(err))
			}
		}

		incoming := v.graph.Incoming(node.ID)
		childParams := make([]map[string]any, 0, len(incoming))
		for _, edge := range incoming {
			if def.ChildParamsSchema != nil {
				if err := def.ChildParamsSchema.Validate(normalizeParams(edge.Params)); err != nil {
					v.errorf("edge %s -> %s has invalid parameters: %v", edge.From, edge.To, schemaErrorMessage(err))
				}
			}
			childParams = append(childParams, edge.Params)
		}
		if def.ValidateChildren != nil {
			if err := def.ValidateChildren(childParams); err != nil {
				v.errorf("formula node %q: %v", node.ID, err)
			}
		}
	}
}

// normalizeParams round-trips a parameter map through JSON so that in-Go
// integer values look the same to the schema validator as values decoded
// from a stored graph blob.
func normalizeParams(params map[string]any) any {
	if params == nil {
		return map[string]any{}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return params
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return params
	}
	return normalized
}

// schemaErrorMessage flattens a jsonschema validation error into one line
// suitable for a report entry.
func schemaErrorMessage(err error) string {
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		leaf := ve
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		if leaf.InstanceLocation != "" {
			return fmt.Sprintf("%s: %s", leaf.InstanceLocation, leaf.Message)
		}
		return leaf.Message
	}
	return err.Error()
}
