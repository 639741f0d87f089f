package chroma

import (
	"fmt"

	"github.com/papercomputeco/recall/pkg/vector"
)

// listKey is the metadata key flagging membership of value in a list field.
// Chroma metadata values are scalars, so each tag and person becomes its own
// boolean key.
func listKey(field vector.Field, value string) string {
	return string(field) + ":" + value
}

// CompileWhere translates a vector.Filter into a Chroma where document. The
// empty filter compiles to nil.
func CompileWhere(f vector.Filter) (map[string]any, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.IsEmpty() {
		return nil, nil
	}
	return compile(f)
}

func compile(f vector.Filter) (map[string]any, error) {
	key := string(f.Field)

	switch f.Op {
	case vector.OpAnd, vector.OpOr:
		parts := make([]map[string]any, 0, len(f.Children))
		for _, c := range f.Children {
			part, err := compile(c)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		if f.Op == vector.OpAnd {
			return join("$and", parts), nil
		}
		return join("$or", parts), nil

	case vector.OpEq:
		return map[string]any{key: map[string]any{"$eq": f.Value}}, nil

	case vector.OpAnyOf:
		if f.Field.Kind() == vector.KindString {
			return map[string]any{key: map[string]any{"$in": f.Values}}, nil
		}
		return join("$or", membership(f.Field, f.Values)), nil

	case vector.OpAllOf:
		return join("$and", membership(f.Field, f.Values)), nil

	case vector.OpRange:
		return join("$and", []map[string]any{
			{key: map[string]any{"$gte": f.Gte}},
			{key: map[string]any{"$lt": f.Lt}},
		}), nil
	}

	return nil, fmt.Errorf("%w: %s", vector.ErrUnsupportedFilter, f.Op)
}

func membership(field vector.Field, values []string) []map[string]any {
	parts := make([]map[string]any, len(values))
	for i, v := range values {
		parts[i] = map[string]any{listKey(field, v): map[string]any{"$eq": true}}
	}
	return parts
}

// join combines parts under a logical operator. Chroma rejects $and and $or
// with fewer than two operands.
func join(op string, parts []map[string]any) map[string]any {
	if len(parts) == 1 {
		return parts[0]
	}
	return map[string]any{op: parts}
}
