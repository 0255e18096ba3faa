package cycle

import (
	"encoding/json"
	"sort"
)

// canonicalize produces a deterministic JSON encoding of v: object keys
// are sorted, array order is preserved (spec.md §4.6, §9 "Canonicalize
// (key-sort objects, preserve arrays) before hashing for cycle
// detection").
func canonicalize(v any) string {
	buf, _ := json.Marshal(canonicalValue(v))
	return string(buf)
}

func canonicalValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		// encoding/json already sorts map[string]any keys on Marshal, but
		// we rebuild explicitly so the ordering rule is a first-class,
		// testable invariant of this package rather than an incidental
		// property of the standard library encoder.
		ordered := make(orderedMap, 0, len(keys))
		for _, k := range keys {
			ordered = append(ordered, kv{k, canonicalValue(t[k])})
		}
		return ordered
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonicalValue(e)
		}
		return out
	default:
		return t
	}
}

type kv struct {
	Key   string
	Value any
}

// orderedMap marshals as a JSON object preserving insertion order,
// which canonicalValue has already sorted by key.
type orderedMap []kv

func (m orderedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, e := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyBuf, _ := json.Marshal(e.Key)
		buf = append(buf, keyBuf...)
		buf = append(buf, ':')
		valBuf, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, valBuf...)
	}
	buf = append(buf, '}')
	return buf, nil
}
