// Package interpret decodes handshake response bodies and pulls fields out of
// them under ordered alias lists.
package interpret

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Alias tables, highest priority first.
var (
	FirstPartKeys  = []string{"part1", "code_part1", "first", "code1"}
	NextURIKeys    = []string{"uri", "next"}
	SecondPartKeys = []string{"part2", "code_part2", "second", "code2", "code", "data"}
	MessageKeys    = []string{"message", "result", "msg"}
)

// Object is a decoded JSON object.
type Object struct {
	raw    string
	fields map[string]gjson.Result
}

// DecodeJSON parses body as a JSON object. ok is false when the body is not
// valid JSON or is valid JSON of another kind (array, string, number...).
func DecodeJSON(body []byte) (obj Object, ok bool) {
	if !gjson.ValidBytes(body) {
		return Object{}, false
	}
	res := gjson.ParseBytes(body)
	if !res.IsObject() {
		return Object{}, false
	}
	return Object{raw: res.Raw, fields: res.Map()}, true
}

// ExtractField returns the value of the first alias present in obj.
// Keys holding JSON null are treated as absent.
func ExtractField(obj Object, aliases []string) (gjson.Result, bool) {
	for _, key := range aliases {
		v, ok := obj.fields[key]
		if !ok || v.Type == gjson.Null {
			continue
		}
		return v, true
	}
	return gjson.Result{}, false
}

// Text renders a JSON value as a plain string the way a loosely typed caller
// would: strings verbatim, integers as written, other numbers in their
// shortest form (1.0 -> "1"), true as "1" and false as "", objects and arrays
// as compact JSON.
func Text(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number:
		return numberText(v)
	case gjson.True:
		return "1"
	case gjson.False:
		return ""
	case gjson.JSON:
		return string(pretty.Ugly([]byte(v.Raw)))
	default:
		return ""
	}
}

// numberText keeps integer literals exact and formats fractional or
// exponent literals as the shortest decimal that round-trips.
func numberText(v gjson.Result) string {
	if !strings.ContainsAny(v.Raw, ".eE") {
		return v.Raw
	}
	if math.Abs(v.Num) < 1e15 {
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	}
	return strconv.FormatFloat(v.Num, 'E', -1, 64)
}

// Compact re-serialises the whole object without insignificant whitespace,
// keeping the original key order.
func Compact(obj Object) string {
	return string(pretty.Ugly([]byte(obj.raw)))
}

// PlainText is the fallback used when a body is not a JSON object.
func PlainText(body []byte) string {
	return strings.TrimSpace(string(body))
}
