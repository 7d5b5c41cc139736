package value

import (
	"math"
	"regexp"
	"strconv"
)

// jsonNumber matches the JSON number grammar. Strings outside it are never
// treated as numbers, so "0x10", "1_000" and "Inf" stay strings.
var jsonNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// Coerce converts v to kind k when the conversion loses no information.
// Supported conversions besides identity:
//
//	string -> number   numeric strings in JSON number syntax
//	string -> boolean  exactly "true" or "false"
//	number -> string   shortest decimal representation
//	boolean -> string  "true" / "false"
//
// Null never coerces; callers fall back to schema defaults instead.
func Coerce(v Value, k Kind) (Value, bool) {
	if v.kind == k {
		return v, true
	}
	switch {
	case v.kind == String && k == Number:
		if !jsonNumber.MatchString(v.str) {
			return Value{}, false
		}
		f, err := strconv.ParseFloat(v.str, 64)
		if err != nil || math.IsInf(f, 0) {
			return Value{}, false
		}
		return NumberOf(f), true
	case v.kind == String && k == Bool:
		switch v.str {
		case "true":
			return BoolOf(true), true
		case "false":
			return BoolOf(false), true
		}
		return Value{}, false
	case v.kind == Number && k == String:
		return StringOf(strconv.FormatFloat(v.num, 'f', -1, 64)), true
	case v.kind == Bool && k == String:
		return StringOf(strconv.FormatBool(v.b)), true
	}
	return Value{}, false
}
