package records

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Record is one row of a collection. Field values are strings, float64 numbers,
// bools or string lists (multi-selects and reference links).
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Store is the boundary to the external record store.
type Store interface {
	// QueryByFilter returns at most maxRecords rows matching f. maxRecords <= 0 means no limit.
	QueryByFilter(ctx context.Context, collection string, f Eq, maxRecords int) ([]Record, error)
	QueryAll(ctx context.Context, collection string) ([]Record, error)
	UpdateRecord(ctx context.Context, collection, id string, fields map[string]any) (Record, error)
	CreateRecord(ctx context.Context, collection string, fields map[string]any) (Record, error)
}

var (
	ErrRecordNotFound = errors.New("record not found")
	// ErrUpdateConflict means the row kept changing under a merge update.
	ErrUpdateConflict = errors.New("record changed during update")
)

// Eq is an exact, case-sensitive equality predicate on a single field.
type Eq struct {
	Field string
	Value string
}

// Formula renders the predicate in the record store's filter formula syntax.
func (e Eq) Formula() string {
	v := strings.ReplaceAll(e.Value, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "{" + e.Field + "} = '" + v + "'"
}

// Match evaluates the predicate locally. Text fields compare exactly; list
// fields match when any element equals the value; numbers compare by their
// canonical text form.
func (e Eq) Match(fields map[string]any) bool {
	switch v := fields[e.Field].(type) {
	case string:
		return v == e.Value
	case []string:
		for _, s := range v {
			if s == e.Value {
				return true
			}
		}
	case []any:
		for _, s := range v {
			if str, ok := s.(string); ok && str == e.Value {
				return true
			}
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64) == e.Value
	}
	return false
}

// Text returns the field as text. Numbers are formatted, lists yield their
// first element, everything else is "".
func Text(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// Number reads a numeric field. Numeric strings are accepted; anything else,
// including NaN and infinities, reports ok=false.
func Number(fields map[string]any, key string) (float64, bool) {
	return ToNumber(fields[key])
}

// ToNumber coerces a loosely typed value to a finite float64.
func ToNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		p, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = p
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Bool reads a checkbox field. Missing fields are false.
func Bool(fields map[string]any, key string) bool {
	switch v := fields[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// Strings reads a list field. A comma separated string is split; a scalar
// becomes a one-element list. Blank entries are dropped, order is kept.
func Strings(fields map[string]any, key string) []string {
	var raw []string
	switch v := fields[key].(type) {
	case nil:
		return nil
	case []string:
		raw = v
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = strings.Split(v, ",")
	default:
		if s := Text(fields, key); s != "" {
			raw = []string{s}
		}
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SingleLink reads a reference field that must hold exactly one linked record
// id. Any other shape (absent, scalar, empty or multi-element list) reports
// ok=false and the caller should ignore the link.
func SingleLink(fields map[string]any, key string) (string, bool) {
	var ids []string
	switch v := fields[key].(type) {
	case []string:
		ids = v
	case []any:
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return "", false
			}
			ids = append(ids, s)
		}
	default:
		return "", false
	}
	if len(ids) != 1 || ids[0] == "" {
		return "", false
	}
	return ids[0], true
}

// Clone returns a shallow copy of the record with its own fields map.
func (r Record) Clone() Record {
	out := Record{ID: r.ID, Fields: make(map[string]any, len(r.Fields))}
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	}
	return v
}

func normalizeFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = normalizeValue(v)
	}
	return out
}
