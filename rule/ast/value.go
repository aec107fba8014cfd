package ast

import (
	"math"
	"regexp"
	"strconv"
)

// decimalLiteral is the only number syntax rules accept. Go extensions such as
// hex floats, base prefixes and digit underscores stay textual.
var decimalLiteral = regexp.MustCompile(`^[+-]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

// ValueKind tells numeric literals apart from textual ones.
type ValueKind uint8

const (
	KindText ValueKind = iota
	KindNumber
)

// Value is the literal side of a comparison. The zero value is the empty text.
type Value struct {
	kind ValueKind
	num  float64
	text string
}

// NumberValue returns a numeric literal.
func NumberValue(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// TextValue returns a textual literal.
func TextValue(s string) Value {
	return Value{kind: KindText, text: s}
}

// ParseValue coerces a literal to a number when the whole text is a finite
// decimal number, and keeps it as text otherwise. Empty text stays textual.
func ParseValue(s string) Value {
	if !decimalLiteral.MatchString(s) {
		return TextValue(s)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return TextValue(s)
	}

	return NumberValue(f)
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNumber() bool { return v.kind == KindNumber }

// Number returns the numeric literal. It is zero for textual values.
func (v Value) Number() float64 { return v.num }

// Text returns the textual literal. It is empty for numeric values.
func (v Value) Text() string { return v.text }

// Interface returns the literal as float64 or string.
func (v Value) Interface() any {
	if v.kind == KindNumber {
		return v.num
	}
	return v.text
}

// String renders the literal the way it would be written in a rule.
func (v Value) String() string {
	if v.kind == KindNumber {
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	}
	return strconv.Quote(v.text)
}
