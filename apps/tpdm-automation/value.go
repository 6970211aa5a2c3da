package main

import (
	"strconv"
	"time"
)

// Kind tags the scalar held by a Value.
type Kind int

const (
	KindEmpty Kind = iota
	KindString
	KindNumber
	KindDate
)

// Value is a single spreadsheet cell: empty, string, number or date.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Time time.Time
}

func EmptyValue() Value { return Value{Kind: KindEmpty} }

// StringValue returns a string cell. The empty string is kept as KindEmpty so
// blank cells compare equal no matter how the reader produced them.
func StringValue(s string) Value {
	if s == "" {
		return EmptyValue()
	}
	return Value{Kind: KindString, Str: s}
}

func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }

func DateValue(t time.Time) Value { return Value{Kind: KindDate, Time: t} }

func (v Value) IsEmpty() bool { return v.Kind == KindEmpty }

// String renders the value the way it is shown in logs and comment extraction.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindDate:
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && v.Time.Second() == 0 {
			return v.Time.Format("2006-01-02")
		}
		return v.Time.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// cellValue returns the native value handed to the workbook writer.
func (v Value) cellValue() interface{} {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindDate:
		return v.Time
	default:
		return ""
	}
}
