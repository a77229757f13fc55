// Package rows holds the JSON reshaping helpers shared by every report:
// dotted-path extraction from parsed response bodies and the flattening
// applied to rows before they reach a sink.
//
// Sinks only accept scalar-typed columns, so any array found below the root
// of a row is replaced by its JSON string. Objects are walked in place.
package rows

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	jsonpool "github.com/ajitpratap0/nebula-domo/pkg/json"
)

// Row is a single JSON object handed to a sink
type Row = map[string]interface{}

// Lookup walks a dot-delimited path through v. Objects are indexed by key
// and arrays by a decimal index. It reports false when the path is empty or
// any segment is missing; it never panics.
func Lookup(v interface{}, path string) (interface{}, bool) {
	if v == nil || path == "" {
		return nil, false
	}

	cur := v
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = next
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Array returns the value at path when it is a JSON array
func Array(v interface{}, path string) ([]interface{}, bool) {
	found, ok := Lookup(v, path)
	if !ok {
		return nil, false
	}
	arr, ok := found.([]interface{})
	return arr, ok
}

// Object returns the value at path when it is a JSON object
func Object(v interface{}, path string) (Row, bool) {
	found, ok := Lookup(v, path)
	if !ok {
		return nil, false
	}
	obj, ok := found.(map[string]interface{})
	return obj, ok
}

// Flatten replaces every array nested inside an object with its JSON
// string form. A root array is walked element by element and kept as an
// array. Objects are modified in place and returned.
func Flatten(v interface{}) interface{} {
	switch node := v.(type) {
	case []interface{}:
		for i, item := range node {
			node[i] = Flatten(item)
		}
		return node
	case []Row:
		for i, item := range node {
			node[i] = flattenObject(item)
		}
		return node
	case map[string]interface{}:
		return flattenObject(node)
	default:
		return v
	}
}

func flattenObject(obj map[string]interface{}) map[string]interface{} {
	for key, value := range obj {
		switch child := value.(type) {
		case []interface{}:
			obj[key] = stringify(child)
		case map[string]interface{}:
			obj[key] = flattenObject(child)
		}
	}
	return obj
}

func stringify(v interface{}) string {
	data, err := jsonpool.MarshalCompact(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// ToRows normalizes a single object or an array of objects into rows.
// Elements that are not objects are dropped.
func ToRows(v interface{}) []Row {
	switch node := v.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		return []Row{node}
	case []Row:
		return node
	case []interface{}:
		out := make([]Row, 0, len(node))
		for _, item := range node {
			if obj, ok := item.(map[string]interface{}); ok {
				out = append(out, obj)
			}
		}
		return out
	default:
		return nil
	}
}

// Int coerces a decoded JSON number (or numeric string) to an int
func Int(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case interface{ Int64() (int64, error) }:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}

// Truthy mirrors the loose boolean checks used on response flags such as
// pageInfo.hasNextPage: only true, non-zero numbers and non-empty strings
// count.
func Truthy(v interface{}) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case float64:
		return b != 0
	case string:
		return b != ""
	default:
		return true
	}
}

// String returns v as a string when it is a non-empty string or a number
func String(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, s != ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	default:
		return "", false
	}
}
