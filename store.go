package bunrel

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kartikbazzad/bunbase/bunrel/internal/expr"
)

// Store holds typed records per entity kind and is the root object of the
// library: kinds, associations and scopes are all defined on it, and query
// plans evaluate against it.
//
// The store assumes a single writer. Reads and writes are guarded by one
// RWMutex so the store stays consistent under concurrent readers, but
// callers who mutate from multiple goroutines must serialize externally.
type Store struct {
	opts Options
	log  *zap.SugaredLogger

	mu      sync.RWMutex
	kinds   map[string]*Kind
	records map[string][]*Record // per kind, insertion order
	byID    map[string]map[RecordID]*Record
	nextID  map[string]RecordID
	assocs  map[string]map[string]Association
	scopes  map[string]map[string]ScopeFunc

	exprs *expr.Engine
}

// New creates an empty store.
func New(opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	engine, err := expr.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize expression engine: %w", err)
	}
	return &Store{
		opts:    opts,
		log:     opts.Logger.Sugar(),
		kinds:   make(map[string]*Kind),
		records: make(map[string][]*Record),
		byID:    make(map[string]map[RecordID]*Record),
		nextID:  make(map[string]RecordID),
		assocs:  make(map[string]map[string]Association),
		scopes:  make(map[string]map[string]ScopeFunc),
		exprs:   engine,
	}, nil
}

// DefineKind registers a new entity kind with its attribute schema.
func (s *Store) DefineKind(name string, schema Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.kinds[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, name)
	}

	kind, err := newKind(name, schema, s.opts.AllowUnknownAttributes)
	if err != nil {
		return err
	}

	s.kinds[name] = kind
	s.byID[name] = make(map[RecordID]*Record)
	s.log.Debugw("defined kind", "kind", name, "attributes", len(schema))
	return nil
}

// Kind returns the definition of a kind, or nil if undefined.
func (s *Store) Kind(name string) *Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kinds[name]
}

// Insert validates the attribute map against the kind's schema, assigns the
// next id for that kind and stores the record. The returned record is owned
// by the store.
func (s *Store) Insert(kind string, attrs map[string]any) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(kind, attrs)
}

// InsertBatch inserts several records of one kind. Every attribute map is
// validated before any record is stored, so a failing batch leaves the
// store untouched.
func (s *Store) InsertBatch(kind string, batch []map[string]any) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	for _, attrs := range batch {
		if err := k.validate(attrs); err != nil {
			return nil, err
		}
	}

	out := make([]*Record, 0, len(batch))
	for _, attrs := range batch {
		rec, err := s.insertLocked(kind, attrs)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) insertLocked(kind string, attrs map[string]any) (*Record, error) {
	k, ok := s.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if err := k.validate(attrs); err != nil {
		return nil, err
	}

	s.nextID[kind]++
	rec := &Record{
		id:    s.nextID[kind],
		kind:  kind,
		attrs: k.normalize(attrs),
	}
	s.records[kind] = append(s.records[kind], rec)
	s.byID[kind][rec.id] = rec

	s.log.Debugw("inserted record", "kind", kind, "id", rec.id)
	return rec, nil
}

// Get looks up a record by id.
func (s *Store) Get(kind string, id RecordID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(kind, id)
}

func (s *Store) getLocked(kind string, id RecordID) (*Record, error) {
	index, ok := s.byID[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	rec, ok := index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", ErrNotFound, kind, id)
	}
	return rec, nil
}

// All returns every record of a kind in insertion order. The returned slice
// is a snapshot; appending to it does not affect the store.
func (s *Store) All(kind string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allLocked(kind)
}

func (s *Store) allLocked(kind string) ([]*Record, error) {
	if _, ok := s.kinds[kind]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	recs := s.records[kind]
	out := make([]*Record, len(recs))
	copy(out, recs)
	return out, nil
}

// Count returns the number of records stored for a kind.
func (s *Store) Count(kind string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.kinds[kind]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return len(s.records[kind]), nil
}
