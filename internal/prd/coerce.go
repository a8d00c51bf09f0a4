package prd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// canonicalKey folds case and separators so "elevator_pitch", "ElevatorPitch"
// and "elevatorPitch" compare equal.
func canonicalKey(k string) string {
	var b strings.Builder
	b.Grow(len(k))
	for _, r := range strings.ToLower(k) {
		switch r {
		case '_', '-', ' ', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// lookup returns the first value found under any of the keys. Exact matches
// win over folded matches.
func lookup(m map[string]any, keys ...string) (any, bool) {
	if m == nil {
		return nil, false
	}
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	folded := make(map[string]string, len(m))
	for _, k := range sortedKeys(m) {
		ck := canonicalKey(k)
		if _, seen := folded[ck]; !seen {
			folded[ck] = k
		}
	}
	for _, k := range keys {
		if orig, ok := folded[canonicalKey(k)]; ok && m[orig] != nil {
			return m[orig], true
		}
	}
	return nil, false
}

func field(m map[string]any, keys ...string) any {
	v, _ := lookup(m, keys...)
	return v
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func object(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	}
	return nil
}

// text coerces any JSON value into a single string. Objects flatten into
// sorted "key: value" lines, arrays join with ", ".
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := text(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return text(toAnySlice(t))
	}
	if m := object(v); m != nil {
		lines := make([]string, 0, len(m))
		for _, k := range sortedKeys(m) {
			if s := text(m[k]); s != "" {
				lines = append(lines, k+": "+s)
			}
		}
		return strings.Join(lines, "\n")
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// textList coerces a value into a list of non-empty strings. A bare string
// becomes a one-element list.
func textList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case nil:
		return out
	case []any:
		for _, item := range t {
			if s := text(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return textList(toAnySlice(t))
	}
	if m := object(v); m != nil {
		for _, k := range sortedKeys(m) {
			if s := text(m[k]); s != "" {
				out = append(out, k+": "+s)
			}
		}
		return out
	}
	if s := text(v); s != "" {
		out = append(out, s)
	}
	return out
}

// items unwraps a collection that may sit directly in v, under one of the
// given keys one level down, or be a single object standing in for a list.
func items(v any, keys ...string) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []any{t}
	}
	m := object(v)
	if m == nil {
		return []any{v}
	}
	if len(m) == 0 {
		return nil
	}
	if inner, ok := lookup(m, keys...); ok {
		if list, isList := inner.([]any); isList {
			return list
		}
		if len(m) == 1 {
			return []any{inner}
		}
	}
	return []any{m}
}

// splitPair splits "name: description" on the first colon.
func splitPair(s string) (string, string) {
	name, desc, ok := strings.Cut(s, ":")
	if !ok {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(name), strings.TrimSpace(desc)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
