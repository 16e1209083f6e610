package bunrel

import "errors"

// Common errors used throughout bunrel. Callers match them with errors.Is;
// wrapped messages carry the kind/attribute detail.
var (
	// Record store errors
	ErrValidation    = errors.New("record failed schema validation")
	ErrNotFound      = errors.New("record not found")
	ErrUnknownKind   = errors.New("unknown entity kind")
	ErrDuplicateKind = errors.New("entity kind already defined")
	ErrInvalidSchema = errors.New("invalid attribute schema")

	// Association errors
	ErrDuplicateAssociation = errors.New("association already defined")
	ErrUnknownAssociation   = errors.New("unknown association")
	ErrUnknownAttribute     = errors.New("unknown attribute")

	// Scope and query errors
	ErrDuplicateScope = errors.New("scope already defined")
	ErrUnknownScope   = errors.New("unknown scope")
	ErrEmptySet       = errors.New("empty record set")
)
