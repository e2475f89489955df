package schema

import (
	"fmt"
	"reflect"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchema returns the JSON Schema of the record as a generic map.
// Fields are keyed by name; fields without validate:"required" also accept null.
func (rs *RecordSchema) JSONSchema() map[string]any {
	return rs.jsonSchema(make(map[*RecordSchema]bool))
}

func (rs *RecordSchema) jsonSchema(seen map[*RecordSchema]bool) map[string]any {
	if seen[rs] {
		return map[string]any{"type": "object"}
	}
	seen[rs] = true
	defer delete(seen, rs)

	props := make(map[string]any, len(rs.fields))
	required := []string{}
	for _, f := range rs.fields {
		s := f.Descriptor.jsonSchema(seen)
		if f.Required {
			required = append(required, f.Name)
		} else {
			s = map[string]any{"anyOf": []any{s, map[string]any{"type": "null"}}}
		}
		props[f.Name] = s
	}

	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if rs.name != "" {
		out["title"] = rs.name
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// JSONSchema returns the JSON Schema of values accepted by the descriptor.
func (d *Descriptor) JSONSchema() map[string]any {
	return d.jsonSchema(make(map[*RecordSchema]bool))
}

func (d *Descriptor) jsonSchema(seen map[*RecordSchema]bool) map[string]any {
	switch d.kind {
	case KindLiteral:
		enum := make([]any, len(d.literals))
		for i, l := range d.literals {
			enum[i] = l
		}
		return map[string]any{"type": "string", "enum": enum}

	case KindUnion:
		anyOf := make([]any, len(d.candidates))
		for i, c := range d.candidates {
			anyOf[i] = c.jsonSchema(seen)
		}
		return map[string]any{"anyOf": anyOf}

	case KindList, KindNestedRecordList:
		items := map[string]any{}
		switch {
		case d.record != nil:
			items = d.record.jsonSchema(seen)
		case d.goType != nil:
			items = typeSchema(d.goType.Elem(), seen)
		}
		return map[string]any{"type": "array", "items": items}

	case KindBoolean:
		return map[string]any{"type": "boolean"}

	default:
		return typeSchema(d.target, seen)
	}
}

func typeSchema(t reflect.Type, seen map[*RecordSchema]bool) map[string]any {
	t = indirect(t)
	switch {
	case t == urlType:
		return map[string]any{"type": "string", "format": "uri"}
	case t == timeType:
		return map[string]any{"type": "string", "format": "date-time"}
	case t == bytesType:
		return map[string]any{"type": "string", "contentEncoding": "base64"}
	case t == durationType:
		// time.Duration is an int64 on the JSON wire.
		return map[string]any{"type": "integer"}
	case reflect.PointerTo(t).Implements(textUnmarshalerType):
		return map[string]any{"type": "string"}
	}

	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return map[string]any{"type": "integer"}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer", "minimum": 0}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": typeSchema(t.Elem(), seen)}
	case reflect.Map:
		return map[string]any{"type": "object"}
	case reflect.Struct:
		if rs, err := FromType(t); err == nil {
			return rs.jsonSchema(seen)
		}
		return map[string]any{"type": "object"}
	default:
		return map[string]any{}
	}
}

func (rs *RecordSchema) compiledSchema() (*gojsonschema.Schema, error) {
	rs.compileOnce.Do(func() {
		rs.compiled, rs.compileErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(rs.JSONSchema()))
		if rs.compileErr != nil {
			rs.compileErr = fmt.Errorf("schema: compile %s: %w", rs.name, rs.compileErr)
		}
	})
	return rs.compiled, rs.compileErr
}

// ValidateJSON validates a JSON-compatible Go value (typically a decoded
// object) against the record's JSON Schema. Violations are reported as a
// *ValidationError.
func (rs *RecordSchema) ValidateJSON(v any) error {
	return rs.validate(gojsonschema.NewGoLoader(v))
}

// ValidateJSONBytes is like ValidateJSON for a raw JSON document.
func (rs *RecordSchema) ValidateJSONBytes(b []byte) error {
	return rs.validate(gojsonschema.NewBytesLoader(b))
}

func (rs *RecordSchema) validate(doc gojsonschema.JSONLoader) error {
	s, err := rs.compiledSchema()
	if err != nil {
		return err
	}
	result, err := s.Validate(doc)
	if err != nil {
		return &ValidationError{
			Schema:   rs.name,
			Problems: []Problem{{Field: "(root)", Message: err.Error()}},
		}
	}
	if result.Valid() {
		return nil
	}
	verr := &ValidationError{Schema: rs.name}
	for _, desc := range result.Errors() {
		verr.Problems = append(verr.Problems, Problem{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return verr
}
