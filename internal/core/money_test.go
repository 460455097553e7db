package core

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"0", 0, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.cents {
				t.Fatalf("%q expected %d cents, got %d (err=%v)", tc.in, tc.cents, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	cases := []struct {
		cents int64
		wire  string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{123, "1.23"},
		{150000, "1500.00"},
	}
	for _, tc := range cases {
		b, err := json.Marshal(Money{Cents: tc.cents})
		if err != nil {
			t.Fatalf("marshal %d: %v", tc.cents, err)
		}
		if string(b) != tc.wire {
			t.Fatalf("marshal %d: expected %s, got %s", tc.cents, tc.wire, b)
		}
		var m Money
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if m.Cents != tc.cents {
			t.Fatalf("round trip %d: got %d", tc.cents, m.Cents)
		}
	}
}

func TestMoneyDivideBy(t *testing.T) {
	cases := []struct {
		cents int64
		n     int
		want  int64
	}{
		{1000, 10, 100},
		{1001, 10, 100},
		{1005, 10, 101}, // half-up
		{1000, 0, 0},
		{1000, -3, 0},
	}
	for _, tc := range cases {
		if got := CentsOf(tc.cents).DivideBy(tc.n); got.Cents != tc.want {
			t.Fatalf("%d / %d: expected %d, got %d", tc.cents, tc.n, tc.want, got.Cents)
		}
	}
}
