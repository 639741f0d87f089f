package qdrant

import (
	"fmt"

	qdrantgo "github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/recall/pkg/vector"
)

// CompileFilter translates a vector.Filter into a Qdrant filter. The empty
// filter compiles to nil.
func CompileFilter(f vector.Filter) (*qdrantgo.Filter, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.IsEmpty() {
		return nil, nil
	}

	switch f.Op {
	case vector.OpAnd:
		conds, err := conditions(f.Children)
		if err != nil {
			return nil, err
		}
		return &qdrantgo.Filter{Must: conds}, nil
	case vector.OpOr:
		conds, err := conditions(f.Children)
		if err != nil {
			return nil, err
		}
		return &qdrantgo.Filter{Should: conds}, nil
	}

	cond, err := condition(f)
	if err != nil {
		return nil, err
	}
	return &qdrantgo.Filter{Must: []*qdrantgo.Condition{cond}}, nil
}

func conditions(children []vector.Filter) ([]*qdrantgo.Condition, error) {
	out := make([]*qdrantgo.Condition, 0, len(children))
	for _, c := range children {
		cond, err := condition(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func condition(f vector.Filter) (*qdrantgo.Condition, error) {
	key := string(f.Field)

	switch f.Op {
	case vector.OpAnd, vector.OpOr:
		sub, err := CompileFilter(f)
		if err != nil {
			return nil, err
		}
		return qdrantgo.NewFilterAsCondition(sub), nil

	case vector.OpEq:
		switch v := f.Value.(type) {
		case string:
			return qdrantgo.NewMatch(key, v), nil
		case int64:
			return qdrantgo.NewMatchInt(key, v), nil
		case bool:
			return qdrantgo.NewMatchBool(key, v), nil
		}
		return nil, fmt.Errorf("%w: %T value for %s", vector.ErrUnsupportedFilter, f.Value, key)

	case vector.OpAnyOf:
		return qdrantgo.NewMatchKeywords(key, f.Values...), nil

	case vector.OpAllOf:
		// A keyword match on an array payload matches when any element is
		// equal, so every value gets its own condition.
		must := make([]*qdrantgo.Condition, len(f.Values))
		for i, v := range f.Values {
			must[i] = qdrantgo.NewMatch(key, v)
		}
		return qdrantgo.NewFilterAsCondition(&qdrantgo.Filter{Must: must}), nil

	case vector.OpRange:
		return qdrantgo.NewRange(key, &qdrantgo.Range{
			Gte: qdrantgo.PtrOf(float64(f.Gte)),
			Lt:  qdrantgo.PtrOf(float64(f.Lt)),
		}), nil
	}

	return nil, fmt.Errorf("%w: %s", vector.ErrUnsupportedFilter, f.Op)
}
