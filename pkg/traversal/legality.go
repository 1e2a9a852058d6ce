package traversal

import "github.com/helixdb/helix-go/pkg/herr"

// Step names the transition steps from the kind-legality table. Source
// steps aren't part of this table since they have no "from" kind.
type Step string

const (
	StepOut          Step = "out"
	StepIn           Step = "in"
	StepOutE         Step = "out_e"
	StepInE          Step = "in_e"
	StepFromN        Step = "from_n"
	StepToN          Step = "to_n"
	StepFromV        Step = "from_v"
	StepToV          Step = "to_v"
	StepShortestPath Step = "shortest_path"
	StepWhere        Step = "where"
	StepFilterRef    Step = "filter_ref"
	StepCount        Step = "count"
	StepRange        Step = "range"
	StepOrderByAsc   Step = "order_by_asc"
	StepOrderByDesc  Step = "order_by_desc"
	StepDedup        Step = "dedup"
	StepUpdate       Step = "update"
	StepDrop         Step = "drop"
	StepObject       Step = "object"
	StepClosure      Step = "closure"
	StepExclude      Step = "exclude"
)

// anyKind is used as a wildcard "from" key in the legality table.
const anyKind = Kind(-1)

type transitionKey struct {
	from Kind
	step Step
}

// legalityTable is the static From/Step/To table. Entries keyed by anyKind
// apply regardless of the incoming element kind.
var legalityTable = map[transitionKey]Kind{
	{KindNode, StepOut}:  KindNode, // per-edge-schema target kind is resolved by the analyzer's analyzeStep
	{KindNode, StepIn}:   KindNode,
	{KindNode, StepOutE}: KindEdge,
	{KindNode, StepInE}:  KindEdge,

	{KindEdge, StepFromN}: KindNode,
	{KindEdge, StepToN}:   KindNode,
	{KindEdge, StepFromV}: KindVector,
	{KindEdge, StepToV}:   KindVector,

	{KindNode, StepShortestPath}: KindPath,

	{anyKind, StepCount}: KindCount,
	{anyKind, StepRange}: anyKind,
	{anyKind, StepOrderByAsc}:  anyKind,
	{anyKind, StepOrderByDesc}: anyKind,
	{anyKind, StepDedup}:       anyKind,
	{anyKind, StepObject}:      KindObject,
	{anyKind, StepClosure}:     KindObject,
	{anyKind, StepExclude}:     anyKind,

	{KindNode, StepWhere}:   KindNode,
	{KindEdge, StepWhere}:   KindEdge,
	{KindVector, StepWhere}: KindVector,
	{KindNode, StepFilterRef}:   KindNode,
	{KindEdge, StepFilterRef}:   KindEdge,
	{KindVector, StepFilterRef}: KindVector,

	{KindNode, StepUpdate}: KindNode,
	{KindEdge, StepUpdate}: KindEdge,

	{KindNode, StepDrop}:   KindEmpty,
	{KindEdge, StepDrop}:   KindEmpty,
	{KindVector, StepDrop}: KindEmpty,
}

// suggestions names the legal replacement offered in a TraversalTypeError
// diagnostic for a step applied to the wrong kind, per spec §4.5 ("suggests
// the legal replacement").
var suggestions = map[Step]string{
	StepOut:          "use out(label) only from a Node",
	StepIn:           "use in(label) only from a Node",
	StepOutE:         "use out_e(label) only from a Node",
	StepInE:          "use in_e(label) only from a Node",
	StepFromN:        "use from_n/to_n to traverse nodes from an edge",
	StepToN:          "use from_n/to_n to traverse nodes from an edge",
	StepFromV:        "use from_v/to_v to traverse vectors from an edge",
	StepToV:          "use from_v/to_v to traverse vectors from an edge",
	StepShortestPath: "shortest_path starts from a Node",
	StepUpdate:       "update is only legal on Node or Edge",
	StepDrop:         "drop is only legal on Node, Edge, or Vector",
}

// CheckTransition reports the resulting kind of applying step to a
// from-kind pipeline, or a TraversalTypeError diagnostic naming the
// offending kind/step and a suggested fix.
func CheckTransition(from Kind, step Step) (Kind, error) {
	if to, ok := legalityTable[transitionKey{from, step}]; ok {
		if to == anyKind {
			return from, nil
		}
		return to, nil
	}
	if to, ok := legalityTable[transitionKey{anyKind, step}]; ok {
		if to == anyKind {
			return from, nil
		}
		return to, nil
	}
	hint := suggestions[step]
	if hint == "" {
		hint = "no legal transition for this step"
	}
	return KindEmpty, herr.New(herr.KindTraversalType,
		"step %q is not legal on kind %s: %s", step, from, hint)
}
