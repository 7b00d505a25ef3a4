package formenc

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// ErrMalformedParams reports a parameter tree that cannot be flattened,
// typically one nested beyond any plausible depth (a reference cycle) or
// one whose custom marshaler fails.
var ErrMalformedParams = errors.New("formenc: malformed params")

// maxNestingDepth bounds the flattening recursion. Well-formed parameter
// trees are a handful of levels deep; anything past this limit is treated
// as cyclic and rejected instead of recursing unboundedly.
const maxNestingDepth = 64

// Pair is a single flattened key/value entry.
//
// After flattening, Value is always a string or a *Blob. Binary payloads
// pass through untouched so the multipart encoder can stream them.
type Pair struct {
	// Key is the bracket-notated form field name, e.g. "items[0][plan]".
	Key string

	// Value is the field value: a string, or a *Blob for binary payloads.
	Value any
}

// FlattenParams walks an arbitrarily nested parameter map and returns the
// flat ordered sequence of bracket-notated key/value pairs.
//
// Map entries are visited in sorted key order and list elements in index
// order, so the same input always produces the same sequence.
//
// Example:
//
//	pairs, _ := formenc.FlattenParams(map[string]any{
//	    "amount": 234,
//	    "items": []any{
//	        map[string]any{"plan": "gold"},
//	        map[string]any{"plan": "silver"},
//	    },
//	})
//	// ("amount", "234")
//	// ("items[0][plan]", "gold")
//	// ("items[1][plan]", "silver")
//
// Flattening rules:
//   - nil becomes an empty string
//   - nested maps recurse, composing keys with bracket notation
//   - lists recurse per index ("items" -> "items[0]"); a list that
//     flattens to nothing becomes a single empty-string pair, since the
//     urlencoded format cannot represent an empty list
//   - strings and *Blob values pass through untouched
//   - types with their own serialized form (json.Marshaler,
//     encoding.TextMarshaler, fmt.Stringer) render to that form, with any
//     surrounding JSON quoting stripped
//   - everything else falls back to its default string representation
//
// The only failure mode is ErrMalformedParams.
func FlattenParams(params map[string]any) ([]Pair, error) {
	return flattenValue(params, "", 0)
}

// flattenValue dispatches on the value's shape. Concrete fast paths come
// first, marshaler interfaces next; reflection handles the long tail of
// named map, slice, and pointer types.
func flattenValue(value any, keyPrefix string, depth int) ([]Pair, error) {
	if depth > maxNestingDepth {
		return nil, fmt.Errorf("%w: nested deeper than %d levels at key %q",
			ErrMalformedParams, maxNestingDepth, keyPrefix)
	}

	switch v := value.(type) {
	case nil:
		return []Pair{{Key: keyPrefix, Value: ""}}, nil
	case map[string]any:
		return flattenMap(v, keyPrefix, depth)
	case string:
		return []Pair{{Key: keyPrefix, Value: v}}, nil
	case *Blob:
		if v == nil {
			return []Pair{{Key: keyPrefix, Value: ""}}, nil
		}
		return []Pair{{Key: keyPrefix, Value: v}}, nil
	case []any:
		return flattenList(v, keyPrefix, depth)
	case json.Marshaler:
		if isNilPointer(v) {
			return []Pair{{Key: keyPrefix, Value: ""}}, nil
		}
		data, err := v.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("%w: marshaling key %q: %v", ErrMalformedParams, keyPrefix, err)
		}
		return []Pair{{Key: keyPrefix, Value: unquoteJSON(data)}}, nil
	case encoding.TextMarshaler:
		if isNilPointer(v) {
			return []Pair{{Key: keyPrefix, Value: ""}}, nil
		}
		text, err := v.MarshalText()
		if err != nil {
			return nil, fmt.Errorf("%w: marshaling key %q: %v", ErrMalformedParams, keyPrefix, err)
		}
		return []Pair{{Key: keyPrefix, Value: string(text)}}, nil
	case fmt.Stringer:
		if isNilPointer(v) {
			return []Pair{{Key: keyPrefix, Value: ""}}, nil
		}
		return []Pair{{Key: keyPrefix, Value: v.String()}}, nil
	}

	return flattenReflect(value, keyPrefix, depth)
}

// flattenMap recurses into each entry in sorted key order.
func flattenMap(params map[string]any, keyPrefix string, depth int) ([]Pair, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]Pair, 0, len(params))
	for _, k := range keys {
		flat, err := flattenValue(params[k], childKey(keyPrefix, k), depth+1)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, flat...)
	}
	return pairs, nil
}

// flattenList recurses into each element with an indexed child key.
func flattenList(list []any, keyPrefix string, depth int) ([]Pair, error) {
	pairs := make([]Pair, 0, len(list))
	for i, v := range list {
		flat, err := flattenValue(v, fmt.Sprintf("%s[%d]", keyPrefix, i), depth+1)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, flat...)
	}

	// The urlencoded format cannot represent an empty list. By convention a
	// list that flattened to nothing becomes a single empty-string value.
	if len(pairs) == 0 {
		return []Pair{{Key: keyPrefix, Value: ""}}, nil
	}
	return pairs, nil
}

// flattenReflect covers named map types, typed slices and arrays, and
// pointers that the concrete type switch did not catch.
func flattenReflect(value any, keyPrefix string, depth int) ([]Pair, error) {
	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Map:
		type entry struct {
			key   string
			value reflect.Value
		}
		entries := make([]entry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, entry{fmt.Sprint(iter.Key().Interface()), iter.Value()})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

		pairs := make([]Pair, 0, len(entries))
		for _, e := range entries {
			flat, err := flattenValue(e.value.Interface(), childKey(keyPrefix, e.key), depth+1)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, flat...)
		}
		return pairs, nil

	case reflect.Slice, reflect.Array:
		// Box typed elements so primitive slices flatten like []any.
		boxed := make([]any, rv.Len())
		for i := range boxed {
			boxed[i] = rv.Index(i).Interface()
		}
		return flattenList(boxed, keyPrefix, depth)

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return []Pair{{Key: keyPrefix, Value: ""}}, nil
		}
		return flattenValue(rv.Elem().Interface(), keyPrefix, depth+1)

	default:
		return []Pair{{Key: keyPrefix, Value: fmt.Sprintf("%v", value)}}, nil
	}
}

// childKey composes a field key under an existing prefix using bracket
// notation. A key that already carries brackets splits at the first one so
// only its head is wrapped: "bar[baz]" under "foo" yields "foo[bar][baz]".
func childKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if i := strings.IndexByte(key, '['); i >= 0 {
		return prefix + "[" + key[:i] + "]" + key[i:]
	}
	return prefix + "[" + key + "]"
}

// unquoteJSON undoes the quoting on a marshaled JSON string. Values that
// did not marshal to a JSON string (numbers, objects) keep their raw
// encoding.
func unquoteJSON(data []byte) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return string(data)
}

// isNilPointer reports whether a marshaler interface hides a nil pointer,
// which would panic on method call. Those values flatten like nil.
func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
