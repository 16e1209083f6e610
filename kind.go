package bunrel

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// AttrType enumerates the value types an attribute may hold.
type AttrType int

const (
	String AttrType = iota
	Int
	Float
	Bool
)

func (t AttrType) jsonType() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "integer"
	case Float:
		return "number"
	case Bool:
		return "boolean"
	}
	return ""
}

// AttrDef describes one attribute of an entity kind.
type AttrDef struct {
	Type     AttrType
	Required bool
}

// Schema maps attribute names to their definitions for one entity kind.
type Schema map[string]AttrDef

// Kind is a named record type: a schema plus its compiled validator.
// The validator is built once at definition time and reused on every insert.
type Kind struct {
	name     string
	schema   Schema
	compiled *gojsonschema.Schema
}

// Name returns the kind name.
func (k *Kind) Name() string {
	return k.name
}

// HasAttr reports whether the kind's schema declares the given attribute.
func (k *Kind) HasAttr(attr string) bool {
	_, ok := k.schema[attr]
	return ok
}

// newKind compiles the attribute schema into a JSON Schema document.
// Foreign keys are integer attributes like any other; an unset foreign key
// is simply absent from the record, so they must not be marked Required.
func newKind(name string, schema Schema, allowUnknown bool) (*Kind, error) {
	if len(schema) == 0 {
		return nil, fmt.Errorf("%w: kind %s declares no attributes", ErrInvalidSchema, name)
	}

	props := make(map[string]any, len(schema))
	required := make([]string, 0)
	for attr, def := range schema {
		jt := def.Type.jsonType()
		if jt == "" {
			return nil, fmt.Errorf("%w: attribute %s.%s has invalid type", ErrInvalidSchema, name, attr)
		}
		props[attr] = map[string]any{"type": jt}
		if def.Required {
			required = append(required, attr)
		}
	}

	doc := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": allowUnknown,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: kind %s: %v", ErrInvalidSchema, name, err)
	}

	return &Kind{name: name, schema: schema, compiled: compiled}, nil
}

// validate checks an attribute map against the kind's compiled schema.
func (k *Kind) validate(attrs map[string]any) error {
	result, err := k.compiled.Validate(gojsonschema.NewGoLoader(attrs))
	if err != nil {
		return fmt.Errorf("%w: kind %s: %v", ErrValidation, k.name, err)
	}
	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("%w: kind %s: %v", ErrValidation, k.name, msgs)
	}
	return nil
}

// normalize copies the attribute map, coercing numeric values to the
// schema's declared type. JSON decoding hands every number over as float64;
// integer attributes are stored as int64 so comparisons and foreign-key
// lookups stay exact.
func (k *Kind) normalize(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for attr, v := range attrs {
		def, ok := k.schema[attr]
		if !ok {
			out[attr] = v
			continue
		}
		switch def.Type {
		case Int:
			switch n := v.(type) {
			case float64:
				out[attr] = int64(n)
			case int:
				out[attr] = int64(n)
			case RecordID:
				out[attr] = int64(n)
			default:
				out[attr] = v
			}
		case Float:
			switch n := v.(type) {
			case int:
				out[attr] = float64(n)
			case int64:
				out[attr] = float64(n)
			default:
				out[attr] = v
			}
		default:
			out[attr] = v
		}
	}
	return out
}
