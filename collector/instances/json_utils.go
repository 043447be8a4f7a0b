package collector_instances

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Provider payloads are decoded into generic maps and probed field by field,
// their schema changes without notice.
type jsonObject = map[string]interface{}

func decodeObject(raw []byte) (jsonObject, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	// Ids are 64 bit integers in some payload variants, keep them exact.
	dec.UseNumber()
	var obj jsonObject
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// lookupObject walks path and returns the object found there, or nil when any
// step is missing or not an object.
func lookupObject(obj jsonObject, path ...string) jsonObject {
	cur := obj
	for _, key := range path {
		next, ok := cur[key].(jsonObject)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func lookupArray(obj jsonObject, path ...string) []interface{} {
	if len(path) == 0 || obj == nil {
		return nil
	}
	parent := lookupObject(obj, path[:len(path)-1]...)
	if parent == nil {
		return nil
	}
	arr, _ := parent[path[len(path)-1]].([]interface{})
	return arr
}

// lookupString returns the string or number under key, trimmed. Numbers are
// rendered exactly as they appeared in the payload.
func lookupString(obj jsonObject, key string) string {
	if obj == nil {
		return ""
	}
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}

// firstString returns the first non empty value among keys.
func firstString(obj jsonObject, keys ...string) string {
	for _, key := range keys {
		if v := lookupString(obj, key); v != "" {
			return v
		}
	}
	return ""
}
