// Package cond implements attribute conditions and value ordering for the
// record query engine. Conditions match against a record's attribute map;
// Compare defines the natural ordering used by order-by and range filters.
package cond

import "fmt"

// Op is a comparison operator applied to a single attribute.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
)

// Matcher is implemented by every condition node.
type Matcher interface {
	Matches(attrs map[string]any) bool
}

// Field compares one attribute against a literal value.
// A record without the attribute never matches.
type Field struct {
	Attr  string
	Op    Op
	Value any
}

func (f Field) Matches(attrs map[string]any) bool {
	v, ok := attrs[f.Attr]
	if !ok {
		return false
	}
	switch f.Op {
	case OpEq:
		return Compare(v, f.Value) == 0
	case OpGte:
		return Compare(v, f.Value) >= 0
	case OpLte:
		return Compare(v, f.Value) <= 0
	}
	return false
}

// Range matches an attribute within an inclusive interval. Either bound may
// be absent: HasMax=false expresses [Min, +inf), HasMin=false (-inf, Max].
type Range struct {
	Attr   string
	Min    any
	Max    any
	HasMin bool
	HasMax bool
}

func (r Range) Matches(attrs map[string]any) bool {
	v, ok := attrs[r.Attr]
	if !ok {
		return false
	}
	if r.HasMin && Compare(v, r.Min) < 0 {
		return false
	}
	if r.HasMax && Compare(v, r.Max) > 0 {
		return false
	}
	return true
}

// AtLeast builds the open-ended range [min, +inf) on attr.
func AtLeast(attr string, min any) Range {
	return Range{Attr: attr, Min: min, HasMin: true}
}

// Between builds the inclusive range [min, max] on attr.
func Between(attr string, min, max any) Range {
	return Range{Attr: attr, Min: min, HasMin: true, Max: max, HasMax: true}
}

// And matches when every child matches. An empty And matches everything.
type And []Matcher

func (a And) Matches(attrs map[string]any) bool {
	for _, m := range a {
		if !m.Matches(attrs) {
			return false
		}
	}
	return true
}

// Compare returns -1, 0 or 1 using the natural ordering of the operands:
// numeric when both sides are numbers, boolean (false < true) when both are
// bools, lexicographic on the string form otherwise.
func Compare(a, b any) int {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		switch {
		case fa > fb:
			return 1
		case fa < fb:
			return -1
		default:
			return 0
		}
	}

	sa := fmt.Sprintf("%v", a)
	sb := fmt.Sprintf("%v", b)
	switch {
	case sa > sb:
		return 1
	case sa < sb:
		return -1
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
