package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-01-15", "2024-01-15", true},
		{" 2024-02-29 ", "2024-02-29", true},
		{"2024-01-15T00:00:00Z", "2024-01-15", true},
		{"2024-01-15T23:30:00-05:00", "2024-01-16", true},
		{"2024-01-15T01:00:00+02:00", "2024-01-14", true},
		{"2023-02-29", "", false},
		{"15/01/2024", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			d, err := ParseDate(tc.in)
			if !tc.ok {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.String() != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, d)
			}
			if d.Location() != time.UTC || d.Hour() != 0 {
				t.Fatalf("date not anchored at UTC midnight: %v", d.Time)
			}
		})
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	in := NewDate(2024, 1, 15)
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2024-01-15"` {
		t.Fatalf("unexpected json %s", b)
	}
	var out Date
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if !out.Equal(in.Time) {
		t.Fatalf("round trip mismatch: %v vs %v", out, in)
	}
}

func TestDateScan(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	sources := []any{
		"2024-01-15",
		[]byte("2024-01-15"),
		"2024-01-15T00:00:00Z",
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 0, 0, 0, 0, est),
	}
	for _, src := range sources {
		var d Date
		if err := d.Scan(src); err != nil {
			t.Fatalf("%v: %v", src, err)
		}
		if d.String() != "2024-01-15" {
			t.Fatalf("%v: got %s", src, d)
		}
	}
	var d Date
	if err := d.Scan(42); err == nil {
		t.Fatal("expected error for int")
	}
	v, _ := NewDate(2024, 3, 1).Value()
	if v != "2024-03-01" {
		t.Fatalf("unexpected driver value %v", v)
	}
}
