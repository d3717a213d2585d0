package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the store representation of Date attributes.
	DateLayout = "2006-01-02"

	// TimeLayout is the store representation of Time attributes and of the
	// created_at/updated_at fields. The fixed microsecond width keeps stored
	// timestamps lexically ordered.
	TimeLayout = "2006-01-02T15:04:05.000000Z07:00"
)

// Zero returns the typed zero value of the kind.
func (k Kind) Zero() any {
	switch k {
	case String:
		return ""
	case Integer:
		return int64(0)
	case Float:
		return float64(0)
	case Boolean:
		return false
	case Date, Time:
		return time.Time{}
	}
	return nil
}

// FormatTime renders a timestamp in TimeLayout (UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a stored timestamp. Any RFC 3339 string is accepted.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a timestamp", ErrTypeMismatch, s)
	}
	return t.UTC().Truncate(time.Microsecond), nil
}

type int64er interface {
	Int64() (int64, error)
}

type float64er interface {
	Float64() (float64, error)
}

func cast(kind Kind, raw any) (any, error) {
	if raw == nil {
		return kind.Zero(), nil
	}
	switch kind {
	case String:
		return castString(raw)
	case Integer:
		return castInteger(raw)
	case Float:
		return castFloat(raw)
	case Boolean:
		return castBoolean(raw)
	case Date:
		return castDate(raw)
	case Time:
		return castTime(raw)
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidKind, kind)
}

func mismatch(kind Kind, raw any) error {
	return fmt.Errorf("%w: cannot use %T(%v) as %s", ErrTypeMismatch, raw, raw, kind)
}

func castString(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	if n, ok := asInt64(raw); ok {
		return strconv.FormatInt(n, 10), nil
	}
	if u, ok := raw.(uint64); ok {
		return strconv.FormatUint(u, 10), nil
	}
	return nil, mismatch(String, raw)
}

// asInt64 converts Go integer types that fit in an int64.
func asInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

func integralFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func castInteger(raw any) (any, error) {
	if n, ok := asInt64(raw); ok {
		return n, nil
	}
	switch v := raw.(type) {
	case float32:
		if n, ok := integralFloat(float64(v)); ok {
			return n, nil
		}
	case float64:
		if n, ok := integralFloat(v); ok {
			return n, nil
		}
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if n, ok := integralFloat(f); ok {
				return n, nil
			}
		}
	case int64er:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		if fv, ok := raw.(float64er); ok {
			if f, err := fv.Float64(); err == nil {
				if n, ok := integralFloat(f); ok {
					return n, nil
				}
			}
		}
	}
	return nil, mismatch(Integer, raw)
}

func castFloat(raw any) (any, error) {
	if n, ok := asInt64(raw); ok {
		return float64(n), nil
	}
	switch v := raw.(type) {
	case uint64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, nil
		}
	case float64er:
		if f, err := v.Float64(); err == nil {
			return f, nil
		}
	}
	return nil, mismatch(Float, raw)
}

func castBoolean(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "t", "1", "yes", "y", "on":
			return true, nil
		case "false", "f", "0", "no", "n", "off":
			return false, nil
		}
	default:
		if n, ok := asInt64(raw); ok && (n == 0 || n == 1) {
			return n == 1, nil
		}
	}
	return nil, mismatch(Boolean, raw)
}

func castDate(raw any) (any, error) {
	switch v := raw.(type) {
	case *time.Time:
		if v == nil {
			return time.Time{}, nil
		}
		return castDate(*v)
	case time.Time:
		if v.IsZero() {
			return v, nil
		}
		return calendarDay(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, nil
		}
		if d, err := time.Parse(DateLayout, s); err == nil {
			return d, nil
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return calendarDay(t), nil
		}
		return nil, mismatch(Date, raw)
	}
	t, err := castTime(raw)
	if err != nil {
		return nil, mismatch(Date, raw)
	}
	tt := t.(time.Time)
	if tt.IsZero() {
		return tt, nil
	}
	return calendarDay(tt), nil
}

// calendarDay returns UTC midnight of the day t falls on in its own location.
func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func castTime(raw any) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, nil
		}
		return v.UTC().Truncate(time.Microsecond), nil
	case *time.Time:
		if v == nil {
			return time.Time{}, nil
		}
		return castTime(*v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, nil
		}
		if t, err := ParseTime(s); err == nil {
			return t, nil
		}
		if d, err := time.Parse(DateLayout, s); err == nil {
			return d, nil
		}
	default:
		if n, ok := asInt64(raw); ok {
			return time.Unix(n, 0).UTC(), nil
		}
		if iv, ok := raw.(int64er); ok {
			if n, err := iv.Int64(); err == nil {
				return time.Unix(n, 0).UTC(), nil
			}
		}
	}
	return nil, mismatch(Time, raw)
}

func encode(kind Kind, value any) (any, error) {
	v, err := cast(kind, value)
	if err != nil {
		return nil, err
	}
	switch kind {
	case Date:
		t := v.(time.Time)
		if t.IsZero() {
			return nil, nil
		}
		return t.Format(DateLayout), nil
	case Time:
		t := v.(time.Time)
		if t.IsZero() {
			return nil, nil
		}
		return FormatTime(t), nil
	}
	return v, nil
}
