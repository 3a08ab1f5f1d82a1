package domain

import (
	"encoding/json"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// VariantKind distinguishes how a variant holds its value.
type VariantKind int

const (
	// VariantBool is an on/off switch written +name or ~name.
	VariantBool VariantKind = iota
	// VariantSingle holds one value out of an enumeration.
	VariantSingle
	// VariantMulti holds a set of values.
	VariantMulti
)

// VariantValue is the value of one variant on a spec.
// Boolean variants hold a single "true" or "false" value and multi-valued
// variants keep their values sorted.
type VariantValue struct {
	Kind   VariantKind
	Values []string
}

// BoolVariant returns a boolean variant value.
func BoolVariant(on bool) VariantValue {
	if on {
		return VariantValue{Kind: VariantBool, Values: []string{"true"}}
	}
	return VariantValue{Kind: VariantBool, Values: []string{"false"}}
}

// SingleVariant returns a single-valued variant value.
func SingleVariant(value string) VariantValue {
	return VariantValue{Kind: VariantSingle, Values: []string{value}}
}

// MultiVariant returns a multi-valued variant value.
func MultiVariant(values ...string) VariantValue {
	vs := slices.Clone(values)
	slices.Sort(vs)
	return VariantValue{Kind: VariantMulti, Values: slices.Compact(vs)}
}

// Bool reports whether a boolean variant is on.
func (v VariantValue) Bool() bool {
	return v.Kind == VariantBool && len(v.Values) == 1 && v.Values[0] == "true"
}

// Equal reports whether v and o hold the same kind and values.
func (v VariantValue) Equal(o VariantValue) bool {
	return v.Kind == o.Kind && slices.Equal(v.Values, o.Values)
}

// Satisfies reports whether v meets the constraint c.
// For multi-valued variants the constraint values must be a subset of v.
func (v VariantValue) Satisfies(c VariantValue) bool {
	if v.Kind != VariantMulti && c.Kind != VariantMulti {
		return slices.Equal(v.Values, c.Values)
	}
	for _, want := range c.Values {
		if !slices.Contains(v.Values, want) {
			return false
		}
	}
	return true
}

// Compatible reports whether some value satisfies both v and o.
func (v VariantValue) Compatible(o VariantValue) bool {
	if v.Kind == VariantMulti || o.Kind == VariantMulti {
		return true
	}
	return slices.Equal(v.Values, o.Values)
}

// Union merges two multi-valued constraints. Other kinds return v unchanged.
func (v VariantValue) Union(o VariantValue) VariantValue {
	if v.Kind != VariantMulti && o.Kind != VariantMulti {
		return v
	}
	return MultiVariant(append(slices.Clone(v.Values), o.Values...)...)
}

// Format renders the variant as it appears in a spec expression.
func (v VariantValue) Format(name string) string {
	if v.Kind == VariantBool {
		if v.Bool() {
			return "+" + name
		}
		return "~" + name
	}
	return name + "=" + strings.Join(v.Values, ",")
}

// MarshalJSON encodes booleans as JSON booleans, single values as strings
// and multi values as arrays.
func (v VariantValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case VariantBool:
		return json.Marshal(v.Bool())
	case VariantSingle:
		if len(v.Values) != 1 {
			return nil, zerr.With(zerr.Wrap(ErrInvalidVariantValue, "single variant needs one value"), "values", strings.Join(v.Values, ","))
		}
		return json.Marshal(v.Values[0])
	default:
		values := v.Values
		if values == nil {
			values = []string{}
		}
		return json.Marshal(values)
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *VariantValue) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = BoolVariant(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = SingleVariant(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return zerr.Wrap(ErrInvalidVariantValue, err.Error())
	}
	*v = MultiVariant(list...)
	return nil
}

// sortedVariantNames orders boolean variants first, then key=value variants,
// each group alphabetically.
func sortedVariantNames(vs map[string]VariantValue) []string {
	names := make([]string, 0, len(vs))
	for name := range vs {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		ab, bb := vs[a].Kind == VariantBool, vs[b].Kind == VariantBool
		if ab != bb {
			if ab {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})
	return names
}
