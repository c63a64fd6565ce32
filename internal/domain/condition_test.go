package domain

import (
	"testing"
	"time"
)

func TestConditionSatisfiedTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		openDate *time.Time
		want     bool
	}{
		{"before open date", ptrTime(now.Add(time.Hour)), false},
		{"exactly at open date", ptrTime(now), true},
		{"after open date", ptrTime(now.Add(-time.Second)), true},
		{"missing open date", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Capsule{ConditionType: ConditionTime, OpenDate: tc.openDate}
			if got := ConditionSatisfied(c, now); got != tc.want {
				t.Fatalf("expected %v got %v", tc.want, got)
			}
		})
	}
}

func TestConditionSatisfiedUnsupportedTypes(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	for _, ct := range []ConditionType{ConditionMultisig, ConditionOracle, ConditionCompound, ConditionType("BOGUS")} {
		c := Capsule{ConditionType: ct, OpenDate: &past}
		if ConditionSatisfied(c, now) {
			t.Fatalf("condition type %s must never be satisfied", ct)
		}
	}
}

func TestIsRecipient(t *testing.T) {
	c := Capsule{RecipientAddress: "0xABCdef"}

	if !c.IsRecipient("0xabcDEF") {
		t.Fatalf("recipient match must be case-insensitive")
	}
	if c.IsRecipient("0x123456") {
		t.Fatalf("different address must not match")
	}
	if (Capsule{}).IsRecipient("") {
		t.Fatalf("empty recipient must never match")
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
