package bunrel

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/tidwall/match"

	"github.com/kartikbazzad/bunbase/bunrel/internal/cond"
)

// Plan is an immutable, lazily evaluated chain of operations over a base
// kind. Chainable methods return a new Plan value; nothing touches the
// store until a terminal call (Records, Count, Average, First) materializes
// the chain. A plan holds no result state, so the same value may be
// materialized more than once — each terminal re-evaluates from the base
// kind.
//
// Definition-time mistakes (unknown scope or association) are caught while
// chaining and surfaced by the terminal call.
type Plan struct {
	store *Store
	base  string
	kind  string // current kind; changes across Join
	ops   []planOp
	err   error
}

// planOp transforms the iterator pipeline one step.
type planOp func(it Iterator) (Iterator, error)

// Query starts a plan over all records of a kind, in insertion order.
func (s *Store) Query(kind string) *Plan {
	p := &Plan{store: s, base: kind, kind: kind}
	if s.Kind(kind) == nil {
		p.err = fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return p
}

func (p *Plan) clone() *Plan {
	ops := make([]planOp, len(p.ops), len(p.ops)+1)
	copy(ops, p.ops)
	return &Plan{store: p.store, base: p.base, kind: p.kind, ops: ops, err: p.err}
}

func (p *Plan) with(op planOp) *Plan {
	next := p.clone()
	next.ops = append(next.ops, op)
	return next
}

func (p *Plan) fail(err error) *Plan {
	next := p.clone()
	if next.err == nil {
		next.err = err
	}
	return next
}

// Scope applies a named scope of the current kind with the given arguments.
func (p *Plan) Scope(name string, args ...any) *Plan {
	if p.err != nil {
		return p
	}
	p.store.mu.RLock()
	fn, err := p.store.scopeLocked(p.kind, name)
	p.store.mu.RUnlock()
	if err != nil {
		return p.fail(err)
	}

	return p.with(func(it Iterator) (Iterator, error) {
		records, err := drain(it)
		if err != nil {
			return nil, err
		}
		out, err := fn(records, args...)
		if err != nil {
			return nil, err
		}
		return newSliceIterator(out), nil
	})
}

// Where keeps records whose attribute equals the value.
func (p *Plan) Where(attr string, value any) *Plan {
	if p.err != nil {
		return p
	}
	return p.with(func(it Iterator) (Iterator, error) {
		return newFilterIterator(it, cond.Field{Attr: attr, Op: cond.OpEq, Value: value}), nil
	})
}

// WhereAtLeast keeps records whose attribute falls in [min, +inf).
func (p *Plan) WhereAtLeast(attr string, min any) *Plan {
	if p.err != nil {
		return p
	}
	return p.with(func(it Iterator) (Iterator, error) {
		return newFilterIterator(it, cond.AtLeast(attr, min)), nil
	})
}

// WhereRange keeps records whose attribute falls in the inclusive range
// [min, max].
func (p *Plan) WhereRange(attr string, min, max any) *Plan {
	if p.err != nil {
		return p
	}
	return p.with(func(it Iterator) (Iterator, error) {
		return newFilterIterator(it, cond.Between(attr, min, max)), nil
	})
}

// Match keeps records whose string attribute matches a glob pattern
// ('*' and '?' wildcards).
func (p *Plan) Match(attr, pattern string) *Plan {
	if p.err != nil {
		return p
	}
	return p.with(func(it Iterator) (Iterator, error) {
		return newFilterIterator(it, globMatcher{attr: attr, pattern: pattern}), nil
	})
}

// Order stable-sorts ascending by the attribute's natural ordering
// (numeric for int/float, lexicographic for strings).
func (p *Plan) Order(attr string) *Plan {
	return p.order(attr, false)
}

// OrderDesc stable-sorts descending.
func (p *Plan) OrderDesc(attr string) *Plan {
	return p.order(attr, true)
}

func (p *Plan) order(attr string, desc bool) *Plan {
	if p.err != nil {
		return p
	}
	return p.with(func(it Iterator) (Iterator, error) {
		records, err := drain(it)
		if err != nil {
			return nil, err
		}
		return newSliceIterator(orderRecords(records, attr, desc)), nil
	})
}

// Join maps every record in the set through one of its associations and
// flattens the targets: source order first, then per-source target order,
// duplicates retained. The plan's current kind becomes the association's
// target kind, so later scopes and filters apply to the targets.
func (p *Plan) Join(name string) *Plan {
	if p.err != nil {
		return p
	}
	p.store.mu.RLock()
	spec, err := p.store.associationLocked(p.kind, name)
	p.store.mu.RUnlock()
	if err != nil {
		return p.fail(err)
	}

	next := p.with(func(it Iterator) (Iterator, error) {
		records, err := drain(it)
		if err != nil {
			return nil, err
		}
		var out []*Record
		for _, rec := range records {
			targets, err := p.store.Resolve(rec, name)
			if err != nil {
				return nil, err
			}
			out = append(out, targets...)
		}
		return newSliceIterator(out), nil
	})
	next.kind = spec.Target
	return next
}

// Merge filters the set down to records whose identity (kind and id) appears
// in the other plan's result, preserving this plan's order. The other plan materializes
// when this one does. Typical use is applying a scope of a related kind
// across a join:
//
//	store.Query("playlists").Where("name", "Animals").Join("videos").
//		Merge(store.Query("videos").Scope("long", 100))
func (p *Plan) Merge(other *Plan) *Plan {
	if p.err != nil {
		return p
	}
	if other.err != nil {
		return p.fail(other.err)
	}
	return p.with(func(it Iterator) (Iterator, error) {
		records, err := other.Records()
		if err != nil {
			return nil, err
		}
		return newMergeIterator(it, records), nil
	})
}

// MergeRecords is Merge against an already-materialized record set.
func (p *Plan) MergeRecords(records []*Record) *Plan {
	if p.err != nil {
		return p
	}
	return p.with(func(it Iterator) (Iterator, error) {
		return newMergeIterator(it, records), nil
	})
}

// Limit caps the result at n records.
func (p *Plan) Limit(n int) *Plan {
	if p.err != nil {
		return p
	}
	return p.with(func(it Iterator) (Iterator, error) {
		return newLimitIterator(it, n), nil
	})
}

// Skip drops the first n records.
func (p *Plan) Skip(n int) *Plan {
	if p.err != nil {
		return p
	}
	return p.with(func(it Iterator) (Iterator, error) {
		return newSkipIterator(it, n), nil
	})
}

// --- terminals ---

// Records materializes the plan.
func (p *Plan) Records() ([]*Record, error) {
	if p.err != nil {
		return nil, p.err
	}

	base, err := p.store.All(p.base)
	if err != nil {
		return nil, err
	}

	var it Iterator = newSliceIterator(base)
	for _, op := range p.ops {
		it, err = op(it)
		if err != nil {
			return nil, err
		}
	}

	records, err := drain(it)
	if err != nil {
		return nil, err
	}
	p.store.log.Debugw("materialized plan", "kind", p.base, "ops", len(p.ops), "results", len(records))
	return records, nil
}

// Count materializes the plan and returns the result size. An empty set
// counts 0, not an error.
func (p *Plan) Count() (int, error) {
	records, err := p.Records()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Average materializes the plan and returns the mean of a numeric
// attribute. An empty set averages to 0.
func (p *Plan) Average(attr string) (float64, error) {
	records, err := p.Records()
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	sum := lo.SumBy(records, func(r *Record) float64 {
		return r.Float(attr)
	})
	return sum / float64(len(records)), nil
}

// AverageInt is Average truncated toward zero, for integer reporting.
func (p *Plan) AverageInt(attr string) (int64, error) {
	avg, err := p.Average(attr)
	if err != nil {
		return 0, err
	}
	return int64(avg), nil
}

// First materializes the plan and returns its first record. Unlike Count
// and Average, First on an empty set is an error.
func (p *Plan) First() (*Record, error) {
	records, err := p.Limit(1).Records()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: first on %s", ErrEmptySet, p.kind)
	}
	return records[0], nil
}

// globMatcher adapts a tidwall/match pattern to the cond.Matcher interface.
type globMatcher struct {
	attr    string
	pattern string
}

func (g globMatcher) Matches(attrs map[string]any) bool {
	v, ok := attrs[g.attr].(string)
	return ok && match.Match(v, g.pattern)
}
