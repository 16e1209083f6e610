package bunrel

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// AssociationKind tags the shape of a declared relationship.
type AssociationKind int

const (
	// HasOne stores the target's id in a foreign-key attribute on the
	// source record.
	HasOne AssociationKind = iota
	// HasMany finds target records whose foreign-key attribute equals the
	// source record's id.
	HasMany
	// HasManyThrough reaches targets via an intermediate join kind holding
	// one foreign key per side.
	HasManyThrough
)

// Association declares a named relationship from a source kind to a target
// kind. Kinds are referenced by name and resolved at query time, so
// mutually-referencing kinds can be declared in any order.
type Association struct {
	Kind   AssociationKind
	Target string
	// ForeignKey names the key attribute: on the source kind for HasOne,
	// on the target kind for HasMany. Unused for HasManyThrough.
	ForeignKey string
	// Through, SourceKey and TargetKey describe a HasManyThrough join
	// kind: SourceKey on the join record points at the source, TargetKey
	// at the target.
	Through   string
	SourceKey string
	TargetKey string
}

// DefineAssociation registers an association under a name unique within the
// source kind. The source kind must already be defined; for HasOne the
// foreign key must exist in the source kind's schema. Target and join kinds
// are looked up lazily at resolution time.
func (s *Store) DefineAssociation(kind, name string, spec Association) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.kinds[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if _, exists := s.assocs[kind][name]; exists {
		return fmt.Errorf("%w: %s.%s", ErrDuplicateAssociation, kind, name)
	}

	switch spec.Kind {
	case HasOne:
		if spec.ForeignKey == "" {
			return fmt.Errorf("%w: %s.%s requires a foreign key", ErrInvalidSchema, kind, name)
		}
		if !k.HasAttr(spec.ForeignKey) {
			return fmt.Errorf("%w: %s.%s on %s", ErrUnknownAttribute, kind, spec.ForeignKey, name)
		}
	case HasMany:
		if spec.ForeignKey == "" {
			return fmt.Errorf("%w: %s.%s requires a foreign key", ErrInvalidSchema, kind, name)
		}
	case HasManyThrough:
		if spec.Through == "" || spec.SourceKey == "" || spec.TargetKey == "" {
			return fmt.Errorf("%w: %s.%s requires a join kind and both foreign keys", ErrInvalidSchema, kind, name)
		}
	default:
		return fmt.Errorf("%w: %s.%s has invalid association kind", ErrInvalidSchema, kind, name)
	}
	if spec.Target == "" {
		return fmt.Errorf("%w: %s.%s requires a target kind", ErrInvalidSchema, kind, name)
	}

	if s.assocs[kind] == nil {
		s.assocs[kind] = make(map[string]Association)
	}
	s.assocs[kind][name] = spec

	s.log.Debugw("defined association", "kind", kind, "name", name, "target", spec.Target)
	return nil
}

func (s *Store) associationLocked(kind, name string) (Association, error) {
	spec, ok := s.assocs[kind][name]
	if !ok {
		return Association{}, fmt.Errorf("%w: %s.%s", ErrUnknownAssociation, kind, name)
	}
	return spec, nil
}

// Resolve walks an association from one record to its targets. HasOne
// yields zero or one record, HasMany and HasManyThrough yield the matching
// targets in insertion order. Through-resolution keeps duplicates: two join
// records for the same pair produce the target twice.
func (s *Store) Resolve(rec *Record, name string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(rec, name)
}

// ResolveOne resolves a HasOne association. The Option is None when the
// foreign key is unset; a set key pointing at a missing record is an
// ErrNotFound.
func (s *Store) ResolveOne(rec *Record, name string) (mo.Option[*Record], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spec, err := s.associationLocked(rec.kind, name)
	if err != nil {
		return mo.None[*Record](), err
	}
	if spec.Kind != HasOne {
		return mo.None[*Record](), fmt.Errorf("association %s.%s is not has-one", rec.kind, name)
	}
	return s.resolveOneLocked(rec, spec)
}

func (s *Store) resolveLocked(rec *Record, name string) ([]*Record, error) {
	spec, err := s.associationLocked(rec.kind, name)
	if err != nil {
		return nil, err
	}

	switch spec.Kind {
	case HasOne:
		opt, err := s.resolveOneLocked(rec, spec)
		if err != nil {
			return nil, err
		}
		if target, ok := opt.Get(); ok {
			return []*Record{target}, nil
		}
		return nil, nil

	case HasMany:
		// The key lives on the target kind, which may not have existed when
		// the association was defined. Check it now.
		if k := s.kinds[spec.Target]; k != nil && !k.HasAttr(spec.ForeignKey) {
			return nil, fmt.Errorf("%w: %s.%s on %s", ErrUnknownAttribute, spec.Target, spec.ForeignKey, name)
		}
		targets, err := s.allLocked(spec.Target)
		if err != nil {
			return nil, err
		}
		return lo.Filter(targets, func(t *Record, _ int) bool {
			v, ok := t.Get(spec.ForeignKey)
			return ok && v != nil && t.Int(spec.ForeignKey) == int64(rec.id)
		}), nil

	case HasManyThrough:
		if k := s.kinds[spec.Through]; k != nil && (!k.HasAttr(spec.SourceKey) || !k.HasAttr(spec.TargetKey)) {
			return nil, fmt.Errorf("%w: join kind %s must declare %s and %s", ErrUnknownAttribute, spec.Through, spec.SourceKey, spec.TargetKey)
		}
		joins, err := s.allLocked(spec.Through)
		if err != nil {
			return nil, err
		}
		var out []*Record
		for _, j := range joins {
			v, ok := j.Get(spec.SourceKey)
			if !ok || v == nil || j.Int(spec.SourceKey) != int64(rec.id) {
				continue
			}
			target, err := s.getLocked(spec.Target, RecordID(j.Int(spec.TargetKey)))
			if err != nil {
				return nil, fmt.Errorf("broken join record %s/%d: %w", spec.Through, j.id, err)
			}
			out = append(out, target)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAssociation, rec.kind, name)
}

func (s *Store) resolveOneLocked(rec *Record, spec Association) (mo.Option[*Record], error) {
	if rec.Lookup(spec.ForeignKey).IsAbsent() {
		return mo.None[*Record](), nil
	}
	target, err := s.getLocked(spec.Target, RecordID(rec.Int(spec.ForeignKey)))
	if err != nil {
		return mo.None[*Record](), err
	}
	return mo.Some(target), nil
}

// SetOne assigns a HasOne association: the target's id is written into the
// source record's foreign-key attribute immediately. A nil target clears
// the key.
func (s *Store) SetOne(rec *Record, name string, target *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec, err := s.associationLocked(rec.kind, name)
	if err != nil {
		return err
	}
	if spec.Kind != HasOne {
		return fmt.Errorf("association %s.%s is not has-one", rec.kind, name)
	}

	if target == nil {
		delete(rec.attrs, spec.ForeignKey)
		return nil
	}
	if target.kind != spec.Target {
		return fmt.Errorf("%w: %s.%s expects %s, got %s", ErrValidation, rec.kind, name, spec.Target, target.kind)
	}

	rec.attrs[spec.ForeignKey] = int64(target.id)
	s.log.Debugw("set association", "kind", rec.kind, "id", rec.id, "name", name, "target", target.id)
	return nil
}

// Append adds targets to a HasManyThrough collection by inserting one join
// record per target, in argument order. Appends never deduplicate: calling
// Append twice with the same target creates two join records and the target
// resolves twice.
func (s *Store) Append(rec *Record, name string, targets ...*Record) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec, err := s.associationLocked(rec.kind, name)
	if err != nil {
		return nil, err
	}
	if spec.Kind != HasManyThrough {
		return nil, fmt.Errorf("association %s.%s is not has-many-through", rec.kind, name)
	}

	joins := make([]*Record, 0, len(targets))
	for _, target := range targets {
		if target.kind != spec.Target {
			return nil, fmt.Errorf("%w: %s.%s expects %s, got %s", ErrValidation, rec.kind, name, spec.Target, target.kind)
		}
		join, err := s.insertLocked(spec.Through, map[string]any{
			spec.SourceKey: int64(rec.id),
			spec.TargetKey: int64(target.id),
		})
		if err != nil {
			return joins, err
		}
		joins = append(joins, join)
	}
	return joins, nil
}
