package schema

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/xeipuuv/gojsonschema"
)

// Field is one named, typed position in a record schema.
type Field struct {
	// Name is the internal field identity. For schemas derived from Go types
	// it is the json tag name.
	Name string

	// Alias is the external camel-case name. NewRecordSchema fills it in
	// from Name when empty.
	Alias string

	// Descriptor classifies the field's type.
	Descriptor *Descriptor

	// Optional is set for pointer fields and fields with a json or
	// validate omitempty option. An empty cell leaves them absent.
	Optional bool

	// Required is set when the field carries validate:"required".
	Required bool

	index []int // Go field index path, nil for explicit schemas
}

// RecordSchema is an ordered list of fields describing one document,
// parameters or envelope shape. Field order is fixed at construction and
// defines the positional mapping of CSV cells.
type RecordSchema struct {
	name   string
	fields []Field
	byName map[string]int
	goType reflect.Type

	compileOnce sync.Once
	compiled    *gojsonschema.Schema
	compileErr  error
}

// NewRecordSchema builds a record schema from explicit fields.
func NewRecordSchema(name string, fields ...Field) *RecordSchema {
	rs := &RecordSchema{name: name}
	rs.setFields(fields)
	return rs
}

func (rs *RecordSchema) setFields(fields []Field) {
	rs.fields = make([]Field, len(fields))
	rs.byName = make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Alias == "" {
			f.Alias = CamelCase(f.Name)
		}
		rs.fields[i] = f
		rs.byName[f.Name] = i
	}
}

// Name returns the schema name.
func (rs *RecordSchema) Name() string { return rs.name }

// Len returns the number of fields.
func (rs *RecordSchema) Len() int { return len(rs.fields) }

// GoType returns the struct type the schema was derived from, or nil.
func (rs *RecordSchema) GoType() reflect.Type { return rs.goType }

// Fields returns a copy of the fields in declared order.
func (rs *RecordSchema) Fields() []Field {
	return append([]Field(nil), rs.fields...)
}

// FieldNames returns the field names in declared order.
func (rs *RecordSchema) FieldNames() []string {
	names := make([]string, len(rs.fields))
	for i, f := range rs.fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a field by name or alias.
func (rs *RecordSchema) Field(name string) (Field, bool) {
	if i, ok := rs.byName[name]; ok {
		return rs.fields[i], true
	}
	for _, f := range rs.fields {
		if f.Alias == name {
			return f, true
		}
	}
	return Field{}, false
}

// CanonicalKeys returns a copy of obj with field aliases replaced by field
// names. A key already present under its field name wins over its alias.
func (rs *RecordSchema) CanonicalKeys(obj map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	for _, f := range rs.fields {
		if f.Alias == f.Name {
			continue
		}
		v, ok := out[f.Alias]
		if !ok {
			continue
		}
		delete(out, f.Alias)
		if _, exists := out[f.Name]; !exists {
			out[f.Name] = v
		}
	}
	return out
}

// DocList is a list of nested records. A field declared as DocList[T] is
// classified as NestedRecordList; a plain []T is classified as List.
type DocList[T any] []T

func (DocList[T]) recordListElem() reflect.Type { return reflect.TypeFor[T]() }

type recordList interface {
	recordListElem() reflect.Type
}

var recordListType = reflect.TypeFor[recordList]()

// CamelCase converts a snake_case name to camelCase ("request_id" -> "requestId").
func CamelCase(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}
