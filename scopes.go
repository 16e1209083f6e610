package bunrel

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/kartikbazzad/bunbase/bunrel/internal/cond"
)

// ScopeFunc is a named, composable transformation over a record set. A
// scope must be pure: it returns a new set and never mutates records.
// Scopes compose by sequential application in chain order.
type ScopeFunc func(records []*Record, args ...any) ([]*Record, error)

// DefineScope registers a scope under a name unique within the kind.
func (s *Store) DefineScope(kind, name string, fn ScopeFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.kinds[kind]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if _, exists := s.scopes[kind][name]; exists {
		return fmt.Errorf("%w: %s.%s", ErrDuplicateScope, kind, name)
	}
	if s.scopes[kind] == nil {
		s.scopes[kind] = make(map[string]ScopeFunc)
	}
	s.scopes[kind][name] = fn

	s.log.Debugw("defined scope", "kind", kind, "name", name)
	return nil
}

// DefineScopeExpr registers a predicate scope from a CEL expression. The
// expression sees `record` (the attribute map) and `args` (the scope's
// invocation arguments) and must produce a boolean:
//
//	store.DefineScopeExpr("videos", "long", "record.duration >= int(args[0])")
//
// The expression is compiled here, so a malformed scope fails at definition
// time rather than on first use.
func (s *Store) DefineScopeExpr(kind, name, expression string) error {
	if err := s.exprs.Compile(expression); err != nil {
		return fmt.Errorf("%w: %s.%s: %v", ErrInvalidSchema, kind, name, err)
	}

	fn := func(records []*Record, args ...any) ([]*Record, error) {
		out := make([]*Record, 0, len(records))
		for _, r := range records {
			ok, err := s.exprs.Eval(expression, r.attrs, args)
			if err != nil {
				return nil, fmt.Errorf("scope %s.%s: %w", kind, name, err)
			}
			if ok {
				out = append(out, r)
			}
		}
		return out, nil
	}
	return s.DefineScope(kind, name, fn)
}

func (s *Store) scopeLocked(kind, name string) (ScopeFunc, error) {
	fn, ok := s.scopes[kind][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownScope, kind, name)
	}
	return fn, nil
}

// --- built-in scope primitives ---

// orderRecords stable-sorts by the attribute's natural ordering, ascending
// unless desc is set. Stability keeps insertion order among equal values.
func orderRecords(records []*Record, attr string, desc bool) []*Record {
	out := make([]*Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		c := cond.Compare(out[i].attrs[attr], out[j].attrs[attr])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// FilterRecords keeps the records satisfying pred. It is the building block
// for custom scopes that filter rather than reorder:
//
//	store.DefineScope("videos", "long", func(records []*Record, _ ...any) ([]*Record, error) {
//		return FilterRecords(records, func(r *Record) bool { return r.Int("duration") >= 100 }), nil
//	})
func FilterRecords(records []*Record, pred func(*Record) bool) []*Record {
	return lo.Filter(records, func(r *Record, _ int) bool {
		return pred(r)
	})
}
