// Package capture implements the render-tree capture engine: item
// serialization, the per-cycle node cache, and DOM-to-node matching.
package capture

import (
	"reflect"

	"github.com/hazyhaar/treescope/rendertree/node"
)

// serializer converts host values into transport-safe items. Non-primitive
// values are handed to the retainer; the tokens issued during a cycle are
// remembered so the next cycle can release them.
type serializer struct {
	retainer node.Retainer
	retained []string
}

func newSerializer(r node.Retainer) *serializer {
	return &serializer{retainer: r}
}

// item passes primitives through unchanged and retains everything else.
// There is no error case: any non-primitive is retainable.
func (s *serializer) item(v any) node.Item {
	if v == nil {
		return node.Primitive(nil)
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return node.Primitive(v)
	}
	id := s.retainer.Retain(v)
	s.retained = append(s.retained, id)
	return node.Reference(id)
}

// dict serializes a named mapping element-wise, preserving keys.
func (s *serializer) dict(m map[string]any) map[string]node.Item {
	out := make(map[string]node.Item, len(m))
	for k, v := range m {
		out[k] = s.item(v)
	}
	return out
}

// array serializes a positional sequence element-wise, preserving order.
func (s *serializer) array(vs []any) []node.Item {
	out := make([]node.Item, len(vs))
	for i, v := range vs {
		out[i] = s.item(v)
	}
	return out
}

// drain releases every token issued since the previous drain. Called at
// the start of each build so retained objects never accumulate across
// capture cycles.
func (s *serializer) drain() {
	for _, id := range s.retained {
		s.retainer.Release(id)
	}
	s.retained = s.retained[:0]
}
