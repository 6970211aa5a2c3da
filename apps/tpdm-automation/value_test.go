package main

import (
	"testing"
	"time"
)

func TestValueString(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"empty", EmptyValue(), ""},
		{"string", StringValue("Jane Smith"), "Jane Smith"},
		{"integer number", NumberValue(42), "42"},
		{"fractional number", NumberValue(3.25), "3.25"},
		{"date", DateValue(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)), "2024-01-15"},
		{"date with time", DateValue(time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)), "2024-01-15 09:30:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStringValueEmpty(t *testing.T) {
	if v := StringValue(""); !v.IsEmpty() {
		t.Errorf("StringValue(\"\") kind = %v, want KindEmpty", v.Kind)
	}
	if v := StringValue(" "); v.IsEmpty() {
		t.Error("StringValue(\" \") should keep whitespace as a string")
	}
}
