package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Enum is implemented by string types with a closed set of values.
// Fields of such types are classified as Literal.
type Enum interface {
	Values() []string
}

var enumType = reflect.TypeFor[Enum]()

// schemas caches record schemas derived from Go types.
var schemas sync.Map // reflect.Type -> *RecordSchema

// FromType derives the record schema of a struct type. Fields appear in
// declaration order under their json tag names; embedded structs without a
// json name are flattened. Results are cached per type.
func FromType(t reflect.Type) (*RecordSchema, error) {
	r := newResolver()
	rs, err := r.record(indirect(t))
	if err != nil {
		return nil, err
	}
	r.commit()
	return cachedOr(rs), nil
}

// For returns the record schema of T.
func For[T any]() (*RecordSchema, error) {
	return FromType(reflect.TypeFor[T]())
}

// Resolve classifies a declared field type. Pointer types are unwrapped and
// reported as optional. Classification precedence is
// Literal > Union > List > NestedRecordList > Boolean > Scalar.
func Resolve(t reflect.Type, tag reflect.StructTag) (d *Descriptor, optional bool, err error) {
	r := newResolver()
	if d, optional, err = r.resolve(t, tag); err != nil {
		return nil, false, err
	}
	r.commit()
	return d, optional, nil
}

// resolver builds record schemas for one resolution. Schemas it builds are
// published to the cache only once the whole resolution succeeded, so a
// failed field never leaves a half-built parent behind.
type resolver struct {
	built map[reflect.Type]*RecordSchema
}

func newResolver() *resolver {
	return &resolver{built: make(map[reflect.Type]*RecordSchema)}
}

func (r *resolver) commit() {
	for t, rs := range r.built {
		schemas.LoadOrStore(t, rs)
	}
}

// cachedOr returns the cached schema for rs's type, which differs from rs
// when another resolution of the same type won the race.
func cachedOr(rs *RecordSchema) *RecordSchema {
	if cached, ok := schemas.Load(rs.goType); ok {
		return cached.(*RecordSchema)
	}
	return rs
}

func (r *resolver) record(t reflect.Type) (*RecordSchema, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: %s is not a struct", t)
	}
	if cached, ok := schemas.Load(t); ok {
		return cached.(*RecordSchema), nil
	}
	if rs, ok := r.built[t]; ok {
		// Either already built in this resolution or a recursive type still
		// being built.
		return rs, nil
	}

	rs := &RecordSchema{name: t.Name(), goType: t}
	r.built[t] = rs

	var fields []Field
	if err := r.collect(t, nil, &fields); err != nil {
		return nil, err
	}
	rs.setFields(fields)
	return rs, nil
}

func (r *resolver) collect(t reflect.Type, index []int, fields *[]Field) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		idx := append(append([]int(nil), index...), i)

		jsonTag := sf.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name, omit := parseJSONTag(jsonTag)

		if sf.Anonymous && name == "" {
			if et := indirect(sf.Type); et.Kind() == reflect.Struct {
				if err := r.collect(et, idx, fields); err != nil {
					return err
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}

		d, optional, err := r.resolve(sf.Type, sf.Tag)
		if err != nil {
			return fmt.Errorf("schema: field %s.%s: %w", t.Name(), sf.Name, err)
		}
		rules := sf.Tag.Get("validate")
		*fields = append(*fields, Field{
			Name:       name,
			Descriptor: d,
			// validate:"omitempty" accepts the zero value, so an empty cell
			// is as valid as an absent one.
			Optional: optional || omit || hasRule(rules, "omitempty"),
			Required: hasRule(rules, "required"),
			index:      idx,
		})
	}
	return nil
}

func (r *resolver) resolve(t reflect.Type, tag reflect.StructTag) (*Descriptor, bool, error) {
	optional := false
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
		optional = true
	}

	if values := literalValues(t, tag); values != nil {
		return Literal(values...), optional, nil
	}

	if spec := tag.Get("union"); spec != "" {
		candidates, err := unionCandidates(spec)
		if err != nil {
			return nil, false, err
		}
		return Union(candidates...), optional, nil
	}

	if t.Kind() == reflect.Slice && t.Name() == "" && t.Elem().Kind() != reflect.Uint8 {
		d := &Descriptor{kind: KindList, goType: t}
		if elem := indirect(t.Elem()); isRecordType(elem) {
			rs, err := r.record(elem)
			if err != nil {
				return nil, false, err
			}
			d.record = rs
		}
		return d, optional, nil
	}

	if t.Implements(recordListType) {
		elem := reflect.Zero(t).Interface().(recordList).recordListElem()
		rs, err := r.record(indirect(elem))
		if err != nil {
			return nil, false, err
		}
		return &Descriptor{kind: KindNestedRecordList, record: rs, goType: t}, optional, nil
	}

	if t.Kind() == reflect.Bool {
		return Bool(), optional, nil
	}

	return Scalar(t), optional, nil
}

func literalValues(t reflect.Type, tag reflect.StructTag) []string {
	if t.Kind() != reflect.String {
		return nil
	}
	if t.Implements(enumType) {
		return reflect.Zero(t).Interface().(Enum).Values()
	}
	for _, rule := range strings.Split(tag.Get("validate"), ",") {
		if v, ok := strings.CutPrefix(rule, "oneof="); ok {
			return strings.Fields(v)
		}
	}
	return nil
}

// unionCandidates parses a union tag such as "int,float,string".
func unionCandidates(spec string) ([]*Descriptor, error) {
	var out []*Descriptor
	for _, name := range strings.Split(spec, ",") {
		switch strings.TrimSpace(name) {
		case "string":
			out = append(out, String())
		case "int":
			out = append(out, Int())
		case "float":
			out = append(out, Float())
		case "bool":
			out = append(out, Bool())
		case "url":
			out = append(out, URL())
		case "bytes":
			out = append(out, Bytes())
		case "time":
			out = append(out, Time())
		case "duration":
			out = append(out, Duration())
		case "json":
			out = append(out, Any())
		case "list":
			out = append(out, List())
		default:
			return nil, fmt.Errorf("unknown union candidate %q", name)
		}
	}
	return out, nil
}

func parseJSONTag(tag string) (name string, omit bool) {
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			omit = true
		}
	}
	return parts[0], omit
}

func hasRule(validateTag, rule string) bool {
	for _, r := range strings.Split(validateTag, ",") {
		if r == rule {
			return true
		}
	}
	return false
}
