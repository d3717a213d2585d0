package schema

import "errors"

var (
	// ErrDuplicateAttribute is returned when an attribute name is declared twice.
	ErrDuplicateAttribute = errors.New("persistence: duplicate attribute")

	// ErrUnknownAttribute is returned when a name is not declared in the schema.
	ErrUnknownAttribute = errors.New("persistence: unknown attribute")

	// ErrTypeMismatch is returned when a value cannot be cast to an attribute's kind.
	ErrTypeMismatch = errors.New("persistence: type mismatch")

	// ErrReservedAttribute is returned when declaring a name the store manages itself.
	ErrReservedAttribute = errors.New("persistence: reserved attribute name")

	// ErrInvalidKind is returned for an unknown attribute kind.
	ErrInvalidKind = errors.New("persistence: invalid attribute kind")
)
