package bunrel

import (
	"fmt"

	"github.com/samber/mo"
)

// RecordID identifies a record within its kind. IDs are assigned by the
// store, start at 1 and increase in insertion order.
type RecordID int64

// Record is a single instance of an entity kind. Identity is immutable;
// attributes are mutable only through the owning store (foreign-key writes
// performed by SetOne).
type Record struct {
	id    RecordID
	kind  string
	attrs map[string]any
}

// ID returns the record's identity within its kind.
func (r *Record) ID() RecordID {
	return r.id
}

// Kind returns the name of the entity kind this record belongs to.
func (r *Record) Kind() string {
	return r.kind
}

// Get returns the raw attribute value and whether it is set.
func (r *Record) Get(attr string) (any, bool) {
	v, ok := r.attrs[attr]
	return v, ok
}

// Lookup returns the attribute value as an Option; None when unset.
func (r *Record) Lookup(attr string) mo.Option[any] {
	if v, ok := r.attrs[attr]; ok && v != nil {
		return mo.Some(v)
	}
	return mo.None[any]()
}

// String returns the attribute as a string, or "" when unset.
func (r *Record) String(attr string) string {
	if v, ok := r.attrs[attr].(string); ok {
		return v
	}
	return ""
}

// Int returns the attribute as an int64, or 0 when unset or non-integer.
// Float-typed values with an integral magnitude convert losslessly.
func (r *Record) Int(attr string) int64 {
	switch v := r.attrs[attr].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Float returns the attribute as a float64, or 0 when unset or non-numeric.
func (r *Record) Float(attr string) float64 {
	switch v := r.attrs[attr].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Bool returns the attribute as a bool, or false when unset.
func (r *Record) Bool(attr string) bool {
	v, _ := r.attrs[attr].(bool)
	return v
}

// Attrs returns a copy of the attribute map. Mutating the copy does not
// affect the stored record.
func (r *Record) Attrs() map[string]any {
	out := make(map[string]any, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out
}

func (r *Record) GoString() string {
	return fmt.Sprintf("%s#%d%v", r.kind, r.id, r.attrs)
}
