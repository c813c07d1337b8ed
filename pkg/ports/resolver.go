package ports

import "github.com/aretw0/graft/pkg/domain"

// NodeResolver resolves nodes by id on demand. It abstracts the host's graph
// representation so the tracer can walk graphs the host never materializes in
// full (lazy-evaluation hosts hand out one node at a time).
//
// domain.Graph itself satisfies this interface.
type NodeResolver interface {
	// Resolve returns the node for the given id, or false when absent.
	Resolve(id string) (*domain.Node, bool)
}
