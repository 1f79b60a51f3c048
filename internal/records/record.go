package records

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Record is the flat, string-keyed form of an entity. It is what gets
// written to and read from the JSON data files.
type Record map[string]interface{}

// Identified is implemented by every entity that lives in a collection.
type Identified interface {
	Identity() int
}

func (r Record) String(field string) (string, error) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", missingField(field)
	}
	s, ok := v.(string)
	if !ok {
		return "", wrongKind(field, "text", v)
	}
	return s, nil
}

// OptionalString returns "" when the field is absent.
func (r Record) OptionalString(field string) (string, error) {
	if v, ok := r[field]; !ok || v == nil {
		return "", nil
	}
	return r.String(field)
}

func (r Record) Int(field string) (int, error) {
	v, ok := r[field]
	if !ok || v == nil {
		return 0, missingField(field)
	}

	switch n := v.(type) {
	case bool:
		return 0, wrongKind(field, "integer", v)
	case float64:
		return integral(field, n)
	case float32:
		return integral(field, float64(n))
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, wrongKind(field, "integer", v)
		}
		return integral(field, f)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, wrongKind(field, "integer", v)
		}
		return i, nil
	}

	i, err := cast.ToIntE(v)
	if err != nil {
		return 0, wrongKind(field, "integer", v)
	}
	return i, nil
}

func (r Record) Float(field string) (float64, error) {
	v, ok := r[field]
	if !ok || v == nil {
		return 0, missingField(field)
	}
	if _, isBool := v.(bool); isBool {
		return 0, wrongKind(field, "number", v)
	}

	var (
		f   float64
		err error
	)
	if n, isNumber := v.(json.Number); isNumber {
		f, err = n.Float64()
	} else {
		f, err = cast.ToFloat64E(v)
	}
	if err != nil {
		return 0, wrongKind(field, "number", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, wrongKind(field, "finite number", v)
	}
	return f, nil
}

// ID reads an identity field, which must be a positive integer.
func (r Record) ID(field string) (int, error) {
	id, err := r.Int(field)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, &MalformedRecordError{Field: field, Reason: fmt.Sprintf("must be a positive id, got %d", id)}
	}
	return id, nil
}

func (r Record) NonNegativeInt(field string) (int, error) {
	n, err := r.Int(field)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, &MalformedRecordError{Field: field, Reason: fmt.Sprintf("must not be negative, got %d", n)}
	}
	return n, nil
}

func (r Record) NonNegativeFloat(field string) (float64, error) {
	f, err := r.Float(field)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, &MalformedRecordError{Field: field, Reason: fmt.Sprintf("must not be negative, got %v", f)}
	}
	return f, nil
}

// Strings reads an optional list of text values. Non-text scalars are
// rendered as text; nested objects are rejected.
func (r Record) Strings(field string) ([]string, error) {
	v, ok := r[field]
	if !ok || v == nil {
		return []string{}, nil
	}

	switch list := v.(type) {
	case []string:
		return append([]string{}, list...), nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, err := cast.ToStringE(item)
			if err != nil {
				return nil, &MalformedRecordError{Field: fmt.Sprintf("%s[%d]", field, i), Reason: "not a text value"}
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, wrongKind(field, "list", v)
	}
}

// List returns the raw elements of an optional list field.
func (r Record) List(field string) ([]interface{}, error) {
	v, ok := r[field]
	if !ok || v == nil {
		return []interface{}{}, nil
	}

	switch list := v.(type) {
	case []interface{}:
		return list, nil
	case []Record:
		out := make([]interface{}, len(list))
		for i := range list {
			out[i] = list[i]
		}
		return out, nil
	case []map[string]interface{}:
		out := make([]interface{}, len(list))
		for i := range list {
			out[i] = list[i]
		}
		return out, nil
	case []string:
		out := make([]interface{}, len(list))
		for i := range list {
			out[i] = list[i]
		}
		return out, nil
	default:
		return nil, wrongKind(field, "list", v)
	}
}

// AsRecord converts a decoded JSON object into a Record.
func AsRecord(v interface{}) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, true
	case map[string]interface{}:
		return Record(m), true
	default:
		return nil, false
	}
}

func integral(field string, f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, wrongKind(field, "integer", f)
	}
	return int(f), nil
}
