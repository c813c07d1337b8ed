package rewrite

import (
	"fmt"
	"time"

	"github.com/aretw0/graft/internal/trace"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
)

// Materialize copies the nodes of an ancestor closure out of a lazy resolver
// into a standalone graph.
func Materialize(r ports.NodeResolver, closure trace.Set) (domain.Graph, error) {
	g := make(domain.Graph, len(closure))
	for id := range closure {
		node, ok := r.Resolve(id)
		if !ok {
			return nil, fmt.Errorf("closure references unresolvable node %s", id)
		}
		g[id] = node.Clone()
	}
	return g, nil
}

// BuildSubgraph copies only the closure nodes and appends a synthetic capture
// node wired to the trigger link, flagged as the final output. No cascading
// deletion happens here: the node set was produced by closure, not pruning,
// so every link already resolves inside the copy.
//
// Closure node ids may be host-scoped ("group:node"), so the capture id is
// always namespaced rather than numeric.
func BuildSubgraph(g domain.Graph, closure trace.Set, trigger domain.Link) (domain.Graph, string, error) {
	if len(closure) == 0 {
		return nil, "", domain.ErrEmptySubgraph
	}
	sub := make(domain.Graph, len(closure)+1)
	for id := range closure {
		node, ok := g[id]
		if !ok {
			return nil, "", fmt.Errorf("closure references unknown node %s", id)
		}
		sub[id] = node.Clone()
	}

	captureID := fmt.Sprintf("graft_capture_%d", time.Now().UnixMilli())
	sub[captureID] = &domain.Node{
		ClassType:   domain.ClassPreviewImage,
		Inputs:      map[string]domain.Value{domain.CaptureInputImages: domain.LinkTo(trigger.Producer, trigger.Slot)},
		FinalOutput: true,
	}
	return sub, captureID, nil
}
