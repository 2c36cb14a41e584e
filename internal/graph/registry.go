package graph

import (
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ChildInput pairs an upstream node's result with the parameters of the edge
// that delivered it.
type ChildInput struct {
	Result     CalculationResult
	EdgeParams map[string]any
}

// ComputeFunc combines child results into a single result. Implementations
// must be pure: no I/O and no mutation of their inputs, so that evaluation is
// deterministic and safe to run concurrently. The returned result's NodeID is
// filled in by the engine.
type ComputeFunc func(nodeParams map[string]any, children []ChildInput) (CalculationResult, error)

// FormulaDefinition describes one registered combination formula.
type FormulaDefinition struct {
	ID      string
	Compute ComputeFunc

	// NodeParamsSchema validates a formula node's own parameters,
	// ChildParamsSchema the parameters of each incoming edge. Both are
	// enforced at graph-save time by the validator, never re-checked
	// during evaluation.
	NodeParamsSchema  *jsonschema.Schema
	ChildParamsSchema *jsonschema.Schema

	// ValidateChildren checks constraints that span the whole child set,
	// such as "exactly one main-tagged child" or "weight sum above zero".
	// A nil child set probes whether the formula accepts zero children.
	// Optional; nil means any child set passes.
	ValidateChildren func(children []map[string]any) error

	// DefaultChildParams seeds edge parameters in graph editors.
	DefaultChildParams map[string]any
}

// Registry maps formula ids to their definitions. It is populated once at
// process start and treated as read-only afterwards, so concurrent lookups
// from parallel evaluations need no locking.
type Registry struct {
	formulas map[string]FormulaDefinition
}

// NewEmptyRegistry returns a registry without any formulas. Most callers want
// NewRegistry, which includes the built-ins.
func NewEmptyRegistry() *Registry {
	return &Registry{formulas: make(map[string]FormulaDefinition)}
}

// Register adds a formula definition. Registering a duplicate or incomplete
// definition is a programming error and fails loudly.
func (r *Registry) Register(def FormulaDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("formula id must not be empty")
	}
	if def.Compute == nil {
		return fmt.Errorf("formula %q: compute function must not be nil", def.ID)
	}
	if _, exists := r.formulas[def.ID]; exists {
		return fmt.Errorf("formula %q is already registered", def.ID)
	}
	r.formulas[def.ID] = def
	return nil
}

// MustRegister is Register for process-start wiring, where a bad definition
// should abort startup.
func (r *Registry) MustRegister(def FormulaDefinition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get looks up a formula definition by id.
func (r *Registry) Get(id string) (FormulaDefinition, bool) {
	def, ok := r.formulas[id]
	return def, ok
}

// IDs returns the registered formula ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.formulas))
	for id := range r.formulas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// mustCompileSchema compiles an inline JSON Schema document. Schemas are
// string literals fixed at build time, so compilation failure is fatal.
func mustCompileSchema(doc string) *jsonschema.Schema {
	return jsonschema.MustCompileString("params.json", doc)
}
