package bunrel

import (
	"fmt"

	"github.com/kartikbazzad/bunbase/bunrel/internal/cond"
)

// Iterator is the cursor over query results: Next() advances, Value()
// retrieves. Plans compile into a pipeline of these; operators that need
// their whole input at once (sort, scopes, joins) drain the upstream
// iterator into a sliceIterator instead of wrapping it.
type Iterator interface {
	Next() bool
	Value() (*Record, error)
	Close() error
}

// sliceIterator walks a materialized record set. It backs the base kind
// scan and every buffering operator.
type sliceIterator struct {
	records []*Record
	index   int
}

func newSliceIterator(records []*Record) *sliceIterator {
	return &sliceIterator{records: records, index: -1}
}

func (it *sliceIterator) Next() bool {
	it.index++
	return it.index < len(it.records)
}

func (it *sliceIterator) Value() (*Record, error) {
	if it.index < 0 || it.index >= len(it.records) {
		return nil, fmt.Errorf("iterator out of bounds")
	}
	return it.records[it.index], nil
}

func (it *sliceIterator) Close() error {
	it.records = nil
	return nil
}

// filterIterator passes through records whose attributes satisfy a matcher.
type filterIterator struct {
	source  Iterator
	matcher cond.Matcher
	current *Record
}

func newFilterIterator(source Iterator, matcher cond.Matcher) *filterIterator {
	return &filterIterator{source: source, matcher: matcher}
}

func (it *filterIterator) Next() bool {
	for it.source.Next() {
		rec, err := it.source.Value()
		if err != nil {
			continue
		}
		if it.matcher.Matches(rec.attrs) {
			it.current = rec
			return true
		}
	}
	return false
}

func (it *filterIterator) Value() (*Record, error) {
	return it.current, nil
}

func (it *filterIterator) Close() error {
	return it.source.Close()
}

// recordKey identifies a record. IDs are assigned per kind, so the kind is
// part of the identity.
type recordKey struct {
	kind string
	id   RecordID
}

// mergeIterator intersects its source with another record set by identity.
// Source order is preserved; records absent from the other set are dropped.
type mergeIterator struct {
	source  Iterator
	keys    map[recordKey]struct{}
	current *Record
}

func newMergeIterator(source Iterator, other []*Record) *mergeIterator {
	keys := make(map[recordKey]struct{}, len(other))
	for _, r := range other {
		keys[recordKey{kind: r.kind, id: r.id}] = struct{}{}
	}
	return &mergeIterator{source: source, keys: keys}
}

func (it *mergeIterator) Next() bool {
	for it.source.Next() {
		rec, err := it.source.Value()
		if err != nil {
			continue
		}
		if _, ok := it.keys[recordKey{kind: rec.kind, id: rec.id}]; ok {
			it.current = rec
			return true
		}
	}
	return false
}

func (it *mergeIterator) Value() (*Record, error) {
	return it.current, nil
}

func (it *mergeIterator) Close() error {
	return it.source.Close()
}

// limitIterator caps the number of results.
type limitIterator struct {
	source Iterator
	limit  int
	count  int
}

func newLimitIterator(source Iterator, limit int) *limitIterator {
	return &limitIterator{source: source, limit: limit}
}

func (it *limitIterator) Next() bool {
	if it.count >= it.limit {
		return false
	}
	if it.source.Next() {
		it.count++
		return true
	}
	return false
}

func (it *limitIterator) Value() (*Record, error) {
	return it.source.Value()
}

func (it *limitIterator) Close() error {
	return it.source.Close()
}

// skipIterator drops the first N results.
type skipIterator struct {
	source  Iterator
	skip    int
	skipped bool
}

func newSkipIterator(source Iterator, skip int) *skipIterator {
	return &skipIterator{source: source, skip: skip}
}

func (it *skipIterator) Next() bool {
	if !it.skipped {
		for i := 0; i < it.skip; i++ {
			if !it.source.Next() {
				return false
			}
		}
		it.skipped = true
	}
	return it.source.Next()
}

func (it *skipIterator) Value() (*Record, error) {
	return it.source.Value()
}

func (it *skipIterator) Close() error {
	return it.source.Close()
}

// drain buffers the remaining records of an iterator and closes it.
func drain(it Iterator) ([]*Record, error) {
	defer it.Close()

	var out []*Record
	for it.Next() {
		rec, err := it.Value()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
