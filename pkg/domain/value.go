package domain

import (
	"encoding/json"
	"fmt"
)

// Link references the output slot of a producer node. It denotes a data
// dependency, never ownership: deleting a Link does not delete the producer.
type Link struct {
	Producer string
	Slot     int
}

// Value is the tagged union held by a node input: either an opaque literal
// (string, number, bool, ...) or a Link to another node's output.
//
// On the wire a Link is the host's two-element list encoding
// ["producer_id", slot]; everything else is a literal. The union keeps that
// encoding detail out of the core algorithms.
type Value struct {
	literal any
	link    *Link
}

// Lit wraps a literal value.
func Lit(v any) Value {
	return Value{literal: v}
}

// LinkTo builds a link value pointing at the given producer output slot.
func LinkTo(producer string, slot int) Value {
	return Value{link: &Link{Producer: producer, Slot: slot}}
}

// IsLink reports whether the value is a dependency edge.
func (v Value) IsLink() bool {
	return v.link != nil
}

// AsLink returns the link and true, or the zero Link and false for literals.
func (v Value) AsLink() (Link, bool) {
	if v.link == nil {
		return Link{}, false
	}
	return *v.link, true
}

// Literal returns the wrapped literal, or nil for links.
func (v Value) Literal() any {
	return v.literal
}

// AsString returns the literal as a string when it is one.
func (v Value) AsString() (string, bool) {
	s, ok := v.literal.(string)
	return s, ok
}

// MarshalJSON encodes links as ["producer", slot] and literals verbatim.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.link != nil {
		return json.Marshal([2]any{v.link.Producer, v.link.Slot})
	}
	return json.Marshal(v.literal)
}

// UnmarshalJSON discriminates the union: a two-element array whose first
// element is a string and second a number is a Link, anything else a literal.
func (v *Value) UnmarshalJSON(data []byte) error {
	var probe []json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil && len(probe) == 2 {
		var producer string
		var slot int
		if json.Unmarshal(probe[0], &producer) == nil && json.Unmarshal(probe[1], &slot) == nil {
			v.link = &Link{Producer: producer, Slot: slot}
			v.literal = nil
			return nil
		}
	}

	var lit any
	if err := json.Unmarshal(data, &lit); err != nil {
		return fmt.Errorf("invalid input value: %w", err)
	}
	v.literal = lit
	v.link = nil
	return nil
}
