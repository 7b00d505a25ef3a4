package formenc

import (
	"fmt"
	"net/url"
	"strings"
)

// literalBrackets reverts the escaping of square brackets after standard
// form encoding. Servers accept them raw, and bracket-notated keys stay
// readable.
var literalBrackets = strings.NewReplacer("%5B", "[", "%5D", "]")

// EncodeQueryString percent-encodes flattened pairs into a
// "key=value&key=value" query string.
//
// Standard form escaping applies (space -> "+", reserved characters
// escaped) with one exception: literal square brackets are kept in both
// keys and values, so "items[0][plan]" is emitted as-is rather than as
// "items%5B0%5D%5Bplan%5D". A nil or empty pair slice yields "".
//
// Non-string values are stringified first; an explicit nil value encodes
// as the literal "null". The flattener never produces nil values, so that
// rule only applies to hand-built pairs.
func EncodeQueryString(pairs []Pair) string {
	if len(pairs) == 0 {
		return ""
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, urlEncode(p.Key)+"="+urlEncode(stringifyValue(p.Value)))
	}
	return strings.Join(parts, "&")
}

// urlEncode applies standard form escaping and restores literal brackets.
func urlEncode(s string) string {
	return literalBrackets.Replace(url.QueryEscape(s))
}

// stringifyValue renders a pair value for encoding. nil becomes the
// literal "null".
func stringifyValue(v any) string {
	switch s := v.(type) {
	case nil:
		return "null"
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
