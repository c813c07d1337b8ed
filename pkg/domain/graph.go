package domain

import "strconv"

// Node is a unit of computation: a class tag selecting behavior plus named
// inputs. Nodes are owned exclusively by the Graph that contains them.
type Node struct {
	ClassType string           `json:"class_type"`
	Inputs    map[string]Value `json:"inputs,omitempty"`

	// FinalOutput marks the node whose result must be retrieved after remote
	// execution. Exactly one node carries it in a dispatched subgraph.
	FinalOutput bool `json:"final_output,omitempty"`
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := &Node{
		ClassType:   n.ClassType,
		FinalOutput: n.FinalOutput,
	}
	if n.Inputs != nil {
		c.Inputs = make(map[string]Value, len(n.Inputs))
		for k, v := range n.Inputs {
			c.Inputs[k] = v
		}
	}
	return c
}

// Graph is a workflow in API form: nodes keyed by identifier. Identifiers are
// unique within a graph; no ordering is semantically meaningful.
type Graph map[string]*Node

// Clone returns a deep copy of the graph.
func (g Graph) Clone() Graph {
	c := make(Graph, len(g))
	for id, n := range g {
		c[id] = n.Clone()
	}
	return c
}

// MaxNumericID returns the largest numeric node id present. The second return
// is false when no id parses as an integer (e.g. "group:node" ids).
func (g Graph) MaxNumericID() (int, bool) {
	max, found := 0, false
	for id := range g {
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		if !found || n > max {
			max, found = n, true
		}
	}
	return max, found
}

// Resolve makes a Graph usable wherever a lazy node accessor is expected.
func (g Graph) Resolve(id string) (*Node, bool) {
	n, ok := g[id]
	return n, ok
}

// TriggerLink extracts the link carried by the named input of a node, for
// callers that designate a dispatch trigger by node and input name. Returns
// ErrTriggerNotLinked when the input is absent or holds a literal.
func TriggerLink(n *Node, input string) (Link, error) {
	link, ok := n.Inputs[input].AsLink()
	if !ok {
		return Link{}, ErrTriggerNotLinked
	}
	return link, nil
}
