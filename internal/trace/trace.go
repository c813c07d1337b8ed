// Package trace implements the upstream ancestor-closure walk and its
// inverse, the downstream cascading-deletion fixed point.
package trace

import (
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
)

// Set is a set of node ids.
type Set map[string]struct{}

// Contains reports membership.
func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Upstream computes the closed set of ancestors reachable from start by
// following link inputs transitively, start included.
//
// The visited set is the sole cycle guard: a well-formed graph is acyclic,
// but a malformed cyclic one must still terminate, so a node already visited
// is never re-processed. Returns an empty set when start cannot be resolved;
// callers treat that as a malformed workflow, not a retryable condition.
func Upstream(r ports.NodeResolver, start string) Set {
	visited := make(Set)
	stack := []string{start}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited.Contains(id) {
			continue
		}
		node, ok := r.Resolve(id)
		if !ok {
			continue
		}
		visited[id] = struct{}{}

		for _, v := range node.Inputs {
			if link, ok := v.AsLink(); ok && !visited.Contains(link.Producer) {
				stack = append(stack, link.Producer)
			}
		}
	}
	return visited
}

// UpstreamGraph is the materialized-graph variant of Upstream.
func UpstreamGraph(g domain.Graph, start string) Set {
	return Upstream(g, start)
}

// Dependents is an inverted adjacency index: producer id to the ids of nodes
// holding a link input on it. Built once so cascading deletion is a linear
// fixed-point loop instead of a re-scan per deleted node.
type Dependents map[string][]string

// BuildDependents indexes the graph's dependency edges in reverse.
func BuildDependents(g domain.Graph) Dependents {
	deps := make(Dependents)
	for id, node := range g {
		for _, v := range node.Inputs {
			if link, ok := v.AsLink(); ok {
				deps[link.Producer] = append(deps[link.Producer], id)
			}
		}
	}
	return deps
}

// Cascade expands doomed with every transitive dependent of start, start
// included. After it returns, no node outside doomed links to a node inside
// it, which is exactly the fixed point: re-running on the result is a no-op.
func (d Dependents) Cascade(start string, doomed Set) {
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if doomed.Contains(id) {
			continue
		}
		doomed[id] = struct{}{}
		stack = append(stack, d[id]...)
	}
}
