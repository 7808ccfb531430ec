package bidrequest

import (
	"math"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
)

// Path segments use jsonparser syntax: object keys as-is, array elements as "[n]".
//
// Every helper returns its default the moment a segment is missing or an
// intermediate node has the wrong type. Leaves are coerced the lenient way
// exchanges expect: numeric text is a number, and a number or boolean is
// read as its text. Objects, arrays and null are never usable leaves.

// intAt reads an integer. Numbers with a fractional part are truncated toward
// zero; values outside the int32 range are rejected.
func intAt(data []byte, def int, path ...string) int {
	f, ok := numberAt(data, path...)
	if !ok {
		return def
	}
	f = math.Trunc(f)
	if f > math.MaxInt32 || f < math.MinInt32 {
		return def
	}
	return int(f)
}

// nonNegativeIntAt is intAt with negative values read as absent.
func nonNegativeIntAt(data []byte, def int, path ...string) int {
	v := intAt(data, def, path...)
	if v < 0 {
		return def
	}
	return v
}

// nonNegativeFloatAt reads a finite, non-negative number.
func nonNegativeFloatAt(data []byte, def float64, path ...string) float64 {
	f, ok := numberAt(data, path...)
	if !ok || f < 0 {
		return def
	}
	if f == 0 {
		// normalises -0
		return 0
	}
	return f
}

// TextAt reads the text at path, returning "" when it is absent, null or a
// container. String escapes are decoded; numbers and booleans keep their
// literal JSON text.
func TextAt(data []byte, path ...string) string {
	return stringAt(data, "", path...)
}

func stringAt(data []byte, def string, path ...string) string {
	raw, typ := valueAt(data, path...)
	switch typ {
	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			return def
		}
		return s
	case jsonparser.Number, jsonparser.Boolean:
		return string(raw)
	default:
		return def
	}
}

// numberAt reads a JSON number, or a string holding a decimal number.
func numberAt(data []byte, path ...string) (float64, bool) {
	raw, typ := valueAt(data, path...)
	var (
		f   float64
		err error
	)
	switch typ {
	case jsonparser.Number:
		f, err = jsonparser.ParseFloat(raw)
	case jsonparser.String:
		var s string
		if s, err = jsonparser.ParseString(raw); err == nil {
			f, err = parseNumericText(s)
		}
	default:
		return 0, false
	}
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// parseNumericText accepts decimal notation only; hex floats are refused.
// Inf and NaN spellings parse here and are dropped by the caller.
func parseNumericText(s string) (float64, error) {
	if strings.ContainsAny(s, "xX") {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseFloat(s, 64)
}

// valueAt walks path one segment at a time so that a scalar where a container
// was expected stops the walk instead of letting the search continue into a
// sibling subtree. data must be a JSON object. Returns NotExist on any miss.
func valueAt(data []byte, path ...string) ([]byte, jsonparser.ValueType) {
	node, typ := data, jsonparser.Object
	for _, seg := range path {
		want := jsonparser.Object
		if isIndex(seg) {
			want = jsonparser.Array
		}
		if typ != want {
			return nil, jsonparser.NotExist
		}
		v, t, _, err := jsonparser.Get(node, seg)
		if err != nil {
			return nil, jsonparser.NotExist
		}
		node, typ = v, t
	}
	return node, typ
}

func isIndex(seg string) bool {
	return strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]")
}
