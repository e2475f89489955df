package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	formschema "github.com/gorilla/schema"
)

var (
	validate = newValidator()
	coercer  = formschema.NewDecoder()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _ := parseJSONTag(f.Tag.Get("json"))
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}


// ValidateStruct runs struct validation on v if it is a struct or a pointer
// to one; other values pass unchecked.
func ValidateStruct(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct || !isRecordType(rv.Type()) {
		return nil
	}
	return validate.Struct(rv.Interface())
}

// Decode parses one CSV row against rs. The row must have exactly one cell
// per field; otherwise a *ShapeMismatchError is returned before any cell is
// parsed. An empty cell of an optional field is absent. The first cell that
// fails aborts decoding with a *FieldError.
func Decode(rs *RecordSchema, row []string) (*Record, error) {
	if len(row) != len(rs.fields) {
		return nil, &ShapeMismatchError{
			Row:    append([]string(nil), row...),
			Fields: rs.FieldNames(),
		}
	}

	rec := &Record{
		schema:  rs,
		values:  make([]any, len(row)),
		present: make([]bool, len(row)),
	}
	for i, f := range rs.fields {
		if row[i] == "" && f.Optional {
			continue
		}
		v, ok, err := f.Descriptor.Parse(row[i])
		if err != nil {
			return nil, &FieldError{Field: f.Name, Value: row[i], Err: err}
		}
		rec.values[i], rec.present[i] = v, ok
	}
	return rec, nil
}

// Parse converts a raw cell into a typed value. ok is false when the cell
// is empty and the descriptor treats empty as absent.
func (d *Descriptor) Parse(raw string) (v any, ok bool, err error) {
	switch d.kind {
	case KindLiteral:
		for _, allowed := range d.literals {
			if raw == allowed {
				return raw, true, nil
			}
		}
		return nil, false, &LiteralError{Value: raw, Allowed: d.Literals()}

	case KindUnion:
		if raw == "" {
			return nil, false, nil
		}
		// Every candidate failure means "try the next one".
		for _, c := range d.candidates {
			if v, ok, err := c.Parse(raw); err == nil {
				return v, ok, nil
			}
		}
		return nil, false, fmt.Errorf("could not parse %q as any of the possible types %s", raw, d)

	case KindList, KindNestedRecordList:
		if raw == "" {
			return nil, false, nil
		}
		v, err := d.parseList(raw)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil

	case KindBoolean:
		if raw == "" {
			return nil, false, nil
		}
		switch strings.ToLower(raw) {
		case "true":
			return true, true, nil
		case "false":
			return false, true, nil
		}
		return nil, false, fmt.Errorf("invalid value %q for boolean field, expected 'true' or 'false'", raw)

	default:
		if raw == "" {
			return nil, false, nil
		}
		v, err := d.parseScalar(raw)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
}

func (d *Descriptor) parseList(raw string) (any, error) {
	if d.goType != nil {
		ptr := reflect.New(d.goType)
		if err := json.Unmarshal([]byte(raw), ptr.Interface()); err != nil {
			return nil, fmt.Errorf("expected a JSON array: %w", err)
		}
		list := ptr.Elem()
		if d.record != nil {
			for i := 0; i < list.Len(); i++ {
				if err := ValidateStruct(list.Index(i).Interface()); err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
			}
		}
		return list.Interface(), nil
	}

	if d.record != nil {
		var elems []json.RawMessage
		if err := json.Unmarshal([]byte(raw), &elems); err != nil {
			return nil, fmt.Errorf("expected a JSON array of objects: %w", err)
		}
		items := make([]map[string]any, len(elems))
		for i, elem := range elems {
			if err := d.record.ValidateJSONBytes(elem); err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			if err := json.Unmarshal(elem, &items[i]); err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
		}
		return items, nil
	}

	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("expected a JSON array: %w", err)
	}
	return items, nil
}

func (d *Descriptor) parseScalar(raw string) (any, error) {
	// Direct coercion: decode the single-element collection {"v": [raw]}.
	if d.direct != nil {
		w := reflect.New(d.direct)
		if err := coercer.Decode(w.Interface(), map[string][]string{"v": {raw}}); err == nil {
			v := w.Elem().Field(0).Interface()
			if err := checkFinite(v); err != nil {
				return nil, err
			}
			return v, nil
		}
	}
	v, err := d.fallback(raw, d.target)
	if err != nil {
		return nil, err
	}
	if err := checkFinite(v); err != nil {
		return nil, err
	}
	if err := ValidateStruct(v); err != nil {
		return nil, err
	}
	return v, nil
}

// checkFinite rejects NaN and infinities, which JSON cannot carry.
func checkFinite(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Float32 && rv.Kind() != reflect.Float64 {
		return nil
	}
	if f := rv.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%v is not a finite number", f)
	}
	return nil
}
