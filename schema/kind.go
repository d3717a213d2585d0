package schema

import (
	"fmt"
	"strings"
)

// Kind is the closed set of attribute types a schema can declare.
type Kind int

const (
	String Kind = iota + 1
	Integer
	Float
	Boolean
	Date
	Time
)

var kindNames = map[Kind]string{
	String:  "string",
	Integer: "integer",
	Float:   "float",
	Boolean: "boolean",
	Date:    "date",
	Time:    "time",
}

// String returns the lowercase kind name used in YAML declarations.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Numeric reports whether values of this kind can be incremented.
func (k Kind) Numeric() bool {
	return k == Integer || k == Float
}

// ParseKind resolves a kind name. Common aliases ("int", "bool", "datetime", ...) are accepted.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "text", "keyword":
		return String, nil
	case "integer", "int", "long":
		return Integer, nil
	case "float", "double", "number":
		return Float, nil
	case "boolean", "bool":
		return Boolean, nil
	case "date":
		return Date, nil
	case "time", "datetime", "timestamp":
		return Time, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidKind, name)
}
