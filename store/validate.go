package store

import (
	"strings"
	"time"
)

// Validator checks a record before it is saved. An empty result means valid.
type Validator interface {
	Validate(r *Record) []Violation
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(r *Record) []Violation

// Validate calls f.
func (f ValidatorFunc) Validate(r *Record) []Violation { return f(r) }

// Validators runs every validator and concatenates their violations.
func Validators(vs ...Validator) Validator {
	return ValidatorFunc(func(r *Record) []Violation {
		var out []Violation
		for _, v := range vs {
			if v == nil {
				continue
			}
			out = append(out, v.Validate(r)...)
		}
		return out
	})
}

// RequirePresent fails for each named attribute holding an empty string or a zero time.
// Integers, floats and booleans always count as present.
func RequirePresent(names ...string) Validator {
	return ValidatorFunc(func(r *Record) []Violation {
		var out []Violation
		for _, name := range names {
			v, ok := r.Get(name)
			if !ok || blank(v) {
				out = append(out, Violation{Field: name, Message: "can't be blank"})
			}
		}
		return out
	})
}

func blank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case time.Time:
		return t.IsZero()
	}
	return false
}
