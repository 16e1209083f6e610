package bunrel

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// LoadJSON bulk-loads seed records from a JSON document of the form
//
//	{"videos": [{"name": "Cat", "duration": 90}, ...], "playlists": [...]}
//
// Kinds load in document order and records in array order, so foreign keys
// can refer to ids assigned earlier in the same document. Every kind must
// already be defined. Returns the number of records inserted; on error the
// records inserted before the failure remain stored.
func (s *Store) LoadJSON(data []byte) (int, error) {
	if !gjson.ValidBytes(data) {
		return 0, fmt.Errorf("%w: fixture is not valid JSON", ErrValidation)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return 0, fmt.Errorf("%w: fixture root must be an object keyed by kind", ErrValidation)
	}

	inserted := 0
	var loadErr error
	doc.ForEach(func(kind, rows gjson.Result) bool {
		if !rows.IsArray() {
			loadErr = fmt.Errorf("%w: fixture entry %s must be an array", ErrValidation, kind.String())
			return false
		}
		rows.ForEach(func(_, row gjson.Result) bool {
			attrs, ok := row.Value().(map[string]any)
			if !ok {
				loadErr = fmt.Errorf("%w: fixture row in %s must be an object", ErrValidation, kind.String())
				return false
			}
			if _, err := s.Insert(kind.String(), attrs); err != nil {
				loadErr = err
				return false
			}
			inserted++
			return true
		})
		return loadErr == nil
	})
	if loadErr != nil {
		return inserted, loadErr
	}

	s.log.Infow("loaded fixture", "records", inserted)
	return inserted, nil
}
