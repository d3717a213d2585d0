package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNextTimestamp_ClockAdvances(t *testing.T) {
	prev := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := prev.Add(time.Second + 1500*time.Nanosecond)
	got := nextTimestamp(ClockFunc(func() time.Time { return now }), prev)

	want := prev.Add(time.Second + time.Microsecond)
	if !got.Equal(want) {
		t.Errorf("expected %v (truncated to µs), got %v", want, got)
	}
}

func TestNextTimestamp_ClockStalls(t *testing.T) {
	prev := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		now  time.Time
	}{
		{"same instant", prev},
		{"within resolution", prev.Add(400 * time.Nanosecond)},
		{"clock went back", prev.Add(-time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextTimestamp(ClockFunc(func() time.Time { return tt.now }), prev)
			if !got.Equal(prev.Add(time.Microsecond)) {
				t.Errorf("expected prev+1µs, got %v", got)
			}
		})
	}
}

func TestNextTimestamp_FirstWrite(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("X", 7200))
	got := nextTimestamp(ClockFunc(func() time.Time { return now }), time.Time{})
	if !got.Equal(now) || got.Location() != time.UTC {
		t.Errorf("expected %v in UTC, got %v", now, got)
	}
}

func TestClassify(t *testing.T) {
	cause := errors.New("socket closed")
	tests := []struct {
		name string
		err  error
		want []error
	}{
		{"nil", nil, nil},
		{"not found", fmt.Errorf("get: %w", ErrNotFound), []error{ErrNotFound}},
		{"conflict", ErrVersionConflict, []error{ErrVersionConflict}},
		{"deadline", context.DeadlineExceeded, []error{ErrTimeout, context.DeadlineExceeded}},
		{"other", cause, []error{ErrTransport, cause}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if tt.want == nil {
				if got != nil {
					t.Errorf("expected nil, got %v", got)
				}
				return
			}
			for _, w := range tt.want {
				if !errors.Is(got, w) {
					t.Errorf("expected %v to match %v", got, w)
				}
			}
		})
	}
	if errors.Is(classify(ErrNotFound), ErrTransport) {
		t.Error("ErrNotFound must not be reported as a transport error")
	}
}

func TestConfigValidate(t *testing.T) {
	c := Config{Timeout: -time.Second}
	c.validate("person")

	if c.IndexName != "person" || c.DocumentType != "person" {
		t.Errorf("expected names from schema, got %q/%q", c.IndexName, c.DocumentType)
	}
	if c.Timeout != 0 {
		t.Errorf("expected negative timeout clamped to 0, got %v", c.Timeout)
	}
	if c.Clock == nil || c.Logger == nil {
		t.Error("expected default clock and logger")
	}

	c = Config{IndexName: "people", DocumentType: "human"}
	c.validate("person")
	if c.IndexName != "people" || c.DocumentType != "human" {
		t.Errorf("explicit names overwritten: %q/%q", c.IndexName, c.DocumentType)
	}
}
