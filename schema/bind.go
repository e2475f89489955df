package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Record is one decoded row. Values are held in field order; a field whose
// cell was empty and treated as absent has no value.
type Record struct {
	schema  *RecordSchema
	values  []any
	present []bool
}

// Schema returns the schema the record was decoded against.
func (r *Record) Schema() *RecordSchema { return r.schema }

// Get returns the value of the named field (name or alias).
func (r *Record) Get(name string) (any, bool) {
	i, ok := r.schema.byName[name]
	if !ok {
		f, found := r.schema.Field(name)
		if !found {
			return nil, false
		}
		i = r.schema.byName[f.Name]
	}
	return r.values[i], r.present[i]
}

// Values returns the field values in declared order. Absent fields are nil.
func (r *Record) Values() []any {
	return append([]any(nil), r.values...)
}

// Map returns the present fields keyed by field name.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for i, f := range r.schema.fields {
		if r.present[i] {
			m[f.Name] = r.values[i]
		}
	}
	return m
}

// Into stores the record in dst, which must be a non-nil pointer. When dst
// is the struct type the schema was derived from, values are assigned field
// by field along their index paths; otherwise the field map is decoded into
// dst by json tag name.
func (r *Record) Into(dst any) error {
	pv := reflect.ValueOf(dst)
	if pv.Kind() != reflect.Pointer || pv.IsNil() {
		return errors.New("schema: Into requires a non-nil pointer")
	}
	v := pv.Elem()
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}

	if r.schema.goType == nil || v.Type() != r.schema.goType {
		return decodeInto(v.Addr().Interface(), r.Map())
	}

	for i, f := range r.schema.fields {
		if !r.present[i] {
			continue
		}
		fv, err := fieldByIndexAlloc(v, f.index)
		if err != nil {
			return fmt.Errorf("schema: field %q: %w", f.Name, err)
		}
		if err := assign(fv, r.values[i]); err != nil {
			return fmt.Errorf("schema: field %q: %w", f.Name, err)
		}
	}
	return nil
}

// fieldByIndexAlloc is like reflect.Value.FieldByIndex but allocates nil
// embedded struct pointers on the way down.
func fieldByIndexAlloc(v reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, fmt.Errorf("cannot allocate embedded pointer to unexported %s", v.Type().Elem())
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, nil
}

func assign(dst reflect.Value, val any) error {
	if val == nil {
		return nil
	}
	rv := reflect.ValueOf(val)
	dt := dst.Type()

	switch {
	case rv.Type().AssignableTo(dt):
		dst.Set(rv)
		return nil
	case dt.Kind() == reflect.Pointer && rv.Type().AssignableTo(dt.Elem()):
		p := reflect.New(dt.Elem())
		p.Elem().Set(rv)
		dst.Set(p)
		return nil
	case rv.Kind() == indirect(dt).Kind() && rv.Type().ConvertibleTo(indirect(dt)):
		c := rv.Convert(indirect(dt))
		if dt.Kind() == reflect.Pointer {
			p := reflect.New(dt.Elem())
			p.Elem().Set(c)
			c = p
		}
		dst.Set(c)
		return nil
	}

	return decodeInto(dst.Addr().Interface(), val)
}

// decodeInto decodes a generic value (maps, slices, scalars) into the value
// dst points to, matching struct fields by json tag name. Embedded structs
// are flattened the same way FromType flattens them.
func decodeInto(dst, src any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Squash:  true,
		Result:  dst,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(src)
}

// EncodeRow renders v as one CSV row in field order. v may be a *Record, a
// map keyed by field name or alias, the struct type the schema was derived
// from, or anything that marshals to a JSON object. Absent values render as
// empty cells, which Decode reads back as absent.
func (rs *RecordSchema) EncodeRow(v any) ([]string, error) {
	values, err := rs.valuesOf(v)
	if err != nil {
		return nil, err
	}
	row := make([]string, len(rs.fields))
	for i, f := range rs.fields {
		cell, err := FormatValue(values[i])
		if err != nil {
			return nil, fmt.Errorf("schema: field %q: %w", f.Name, err)
		}
		row[i] = cell
	}
	return row, nil
}

func (rs *RecordSchema) valuesOf(v any) ([]any, error) {
	out := make([]any, len(rs.fields))

	switch x := v.(type) {
	case *Record:
		for i, f := range rs.fields {
			out[i], _ = x.Get(f.Name)
		}
		return out, nil
	case map[string]any:
		for i, f := range rs.fields {
			if val, ok := x[f.Name]; ok {
				out[i] = val
			} else {
				out[i] = x[f.Alias]
			}
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rs.goType != nil && rv.IsValid() && rv.Type() == rs.goType {
		for i, f := range rs.fields {
			fv, ok := fieldByIndex(rv, f.index)
			if !ok || (f.Optional && fv.IsZero()) {
				continue
			}
			out[i] = fv.Interface()
		}
		return out, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("schema: cannot encode %T as a %s row: %w", v, rs.name, err)
	}
	return rs.valuesOf(m)
}

// fieldByIndex walks index, reporting false when it meets a nil embedded
// pointer.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}
