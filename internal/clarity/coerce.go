package clarity

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CoerceUint converts the loose JSON-ish encodings seen in cached stats
// payloads (native numbers, numeric strings with a trailing bigint marker,
// json.Number, nested {value:...}/{data:...} wrappers, or an already decoded
// Value) into a plain integer. Unrecognized shapes yield 0; it never panics
// and is idempotent over its own output.
func CoerceUint(raw interface{}) uint64 {
	switch typed := raw.(type) {
	case nil:
		return 0
	case uint64:
		return typed
	case uint:
		return uint64(typed)
	case uint32:
		return uint64(typed)
	case int:
		if typed < 0 {
			return 0
		}
		return uint64(typed)
	case int64:
		if typed < 0 {
			return 0
		}
		return uint64(typed)
	case float64:
		if typed < 0 || math.IsNaN(typed) || math.IsInf(typed, 0) {
			return 0
		}
		return uint64(typed)
	case json.Number:
		return coerceNumericString(typed.String())
	case string:
		return coerceNumericString(typed)
	case map[string]interface{}:
		if inner, ok := typed["value"]; ok {
			return CoerceUint(inner)
		}
		if inner, ok := typed["data"]; ok {
			return CoerceUint(inner)
		}
		return 0
	case Value:
		return UintOf(typed)
	default:
		return 0
	}
}

// CoerceString reaches a primitive string through up to two levels of
// {value:...}/{data:...} wrapping. Failure yields "".
func CoerceString(raw interface{}) string {
	return coerceString(raw, 0)
}

func coerceString(raw interface{}, depth int) string {
	if depth > 2 {
		return ""
	}
	switch typed := raw.(type) {
	case string:
		return typed
	case map[string]interface{}:
		if inner, ok := typed["value"]; ok {
			return coerceString(inner, depth+1)
		}
		if inner, ok := typed["data"]; ok {
			return coerceString(inner, depth+1)
		}
		return ""
	case Value:
		return StringOf(typed)
	default:
		return ""
	}
}

func coerceNumericString(s string) uint64 {
	s = strings.TrimSpace(s)
	// Tolerate a trailing bigint marker ("42n") and uint sigil ("u42").
	s = strings.TrimSuffix(s, "n")
	s = strings.TrimPrefix(s, "u")
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		// Numeric strings may arrive in float form from JSON re-encoding.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f < 0 {
			return 0
		}
		return uint64(f)
	}
	return n
}
