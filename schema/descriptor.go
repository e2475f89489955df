package schema

import (
	"encoding"
	"fmt"
	"net/url"
	"reflect"
	"time"
)

// Kind identifies the shape category of a field descriptor.
//
// The set is closed: every declared field type is classified into exactly one
// of these kinds, using the precedence order in which they are listed.
type Kind int

const (
	KindLiteral          Kind = iota // Finite set of allowed string values
	KindUnion                        // Ordered candidates, first successful parse wins
	KindList                         // JSON array, elements passed through or validated
	KindNestedRecordList             // JSON array of nested records (DocList[T])
	KindBoolean                      // "true" / "false", case-insensitive
	KindScalar                       // Any other target type, with fallback parsing
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "Literal"
	case KindUnion:
		return "Union"
	case KindList:
		return "List"
	case KindNestedRecordList:
		return "NestedRecordList"
	case KindBoolean:
		return "Boolean"
	case KindScalar:
		return "Scalar"
	default:
		return "Unknown"
	}
}

// ParseFunc parses a raw cell into a value of type t.
// It is the fallback used by Scalar descriptors when direct coercion fails.
type ParseFunc func(raw string, t reflect.Type) (any, error)

// Descriptor is the classified shape of one field.
// Descriptors are immutable once constructed and safe for concurrent use.
type Descriptor struct {
	kind Kind

	// Literal
	literals []string

	// Union
	candidates []*Descriptor

	// List and NestedRecordList.
	// goType is the slice type values are decoded into; nil means untyped JSON.
	// record, when set, validates each element.
	goType reflect.Type
	record *RecordSchema

	// Scalar
	target   reflect.Type
	direct   reflect.Type // wrapper struct for direct coercion, nil if not coercible
	fallback ParseFunc
}

// Kind returns the descriptor kind for type switching.
func (d *Descriptor) Kind() Kind { return d.kind }

// Literals returns the allowed values of a Literal descriptor.
func (d *Descriptor) Literals() []string {
	return append([]string(nil), d.literals...)
}

// Candidates returns the ordered candidates of a Union descriptor.
func (d *Descriptor) Candidates() []*Descriptor {
	return append([]*Descriptor(nil), d.candidates...)
}

// Record returns the element record schema of a List or NestedRecordList
// descriptor, or nil if elements are not records.
func (d *Descriptor) Record() *RecordSchema { return d.record }

// Target returns the Go type a Scalar descriptor parses into.
// For List and NestedRecordList it returns the slice type, which may be nil.
func (d *Descriptor) Target() reflect.Type {
	if d.kind == KindScalar {
		return d.target
	}
	return d.goType
}

// String returns a compact description such as "Union[Int, String]".
func (d *Descriptor) String() string {
	switch d.kind {
	case KindLiteral:
		return fmt.Sprintf("Literal%q", d.literals)
	case KindUnion:
		s := "Union["
		for i, c := range d.candidates {
			if i > 0 {
				s += ", "
			}
			s += c.String()
		}
		return s + "]"
	case KindList:
		if d.record != nil {
			return "List[" + d.record.Name() + "]"
		}
		if d.goType != nil {
			return "List[" + d.goType.Elem().String() + "]"
		}
		return "List[any]"
	case KindNestedRecordList:
		return "DocList[" + d.record.Name() + "]"
	case KindBoolean:
		return "Boolean"
	default:
		return "Scalar[" + d.target.String() + "]"
	}
}

// Literal returns a descriptor that accepts exactly the given values.
func Literal(values ...string) *Descriptor {
	return &Descriptor{kind: KindLiteral, literals: append([]string(nil), values...)}
}

// Union returns a descriptor that tries each candidate in order.
func Union(candidates ...*Descriptor) *Descriptor {
	return &Descriptor{kind: KindUnion, candidates: append([]*Descriptor(nil), candidates...)}
}

// List returns a descriptor for a JSON-encoded array whose elements are
// passed through unchanged.
func List() *Descriptor {
	return &Descriptor{kind: KindList}
}

// ListOf returns a descriptor for a JSON-encoded array decoded into sliceType.
// Struct elements are validated after decoding.
func ListOf(sliceType reflect.Type) (*Descriptor, error) {
	if sliceType.Kind() != reflect.Slice {
		return nil, fmt.Errorf("schema: %s is not a slice", sliceType)
	}
	d := &Descriptor{kind: KindList, goType: sliceType}
	if elem := indirect(sliceType.Elem()); isRecordType(elem) {
		rs, err := FromType(elem)
		if err != nil {
			return nil, err
		}
		d.record = rs
	}
	return d, nil
}

// ListOfRecords returns a List descriptor whose elements are validated
// against rs.
func ListOfRecords(rs *RecordSchema) *Descriptor {
	d := &Descriptor{kind: KindList, record: rs}
	if rs.goType != nil {
		d.goType = reflect.SliceOf(rs.goType)
	}
	return d
}

// Records returns a NestedRecordList descriptor for rs.
func Records(rs *RecordSchema) *Descriptor {
	d := &Descriptor{kind: KindNestedRecordList, record: rs}
	if rs.goType != nil {
		d.goType = reflect.SliceOf(rs.goType)
	}
	return d
}

// Bool returns a Boolean descriptor.
func Bool() *Descriptor {
	return &Descriptor{kind: KindBoolean}
}

// Scalar returns a descriptor that parses into t using direct coercion
// first and ParseValue as the fallback.
func Scalar(t reflect.Type) *Descriptor {
	return ScalarWith(t, ParseValue)
}

// ScalarWith is like Scalar but uses fallback when direct coercion fails.
func ScalarWith(t reflect.Type, fallback ParseFunc) *Descriptor {
	if fallback == nil {
		fallback = ParseValue
	}
	return &Descriptor{
		kind:     KindScalar,
		target:   t,
		direct:   directWrapper(t),
		fallback: fallback,
	}
}

// Convenience constructors for common scalars.

// String returns a Scalar descriptor for string.
func String() *Descriptor { return Scalar(stringType) }

// Int returns a Scalar descriptor for int64.
func Int() *Descriptor { return Scalar(reflect.TypeFor[int64]()) }

// Float returns a Scalar descriptor for float64.
func Float() *Descriptor { return Scalar(reflect.TypeFor[float64]()) }

// URL returns a Scalar descriptor for an absolute URL.
func URL() *Descriptor { return Scalar(urlType) }

// Bytes returns a Scalar descriptor for base64-encoded bytes.
func Bytes() *Descriptor { return Scalar(bytesType) }

// Time returns a Scalar descriptor for an RFC 3339 timestamp.
func Time() *Descriptor { return Scalar(timeType) }

// Duration returns a Scalar descriptor for a Go duration string.
func Duration() *Descriptor { return Scalar(durationType) }

// Any returns a Scalar descriptor that accepts JSON or falls back to the raw string.
func Any() *Descriptor { return Scalar(anyType) }

// Map returns a Scalar descriptor for a JSON object.
func Map() *Descriptor { return Scalar(mapType) }

var (
	stringType          = reflect.TypeFor[string]()
	urlType             = reflect.TypeFor[url.URL]()
	bytesType           = reflect.TypeFor[[]byte]()
	timeType            = reflect.TypeFor[time.Time]()
	durationType        = reflect.TypeFor[time.Duration]()
	anyType             = reflect.TypeFor[any]()
	mapType             = reflect.TypeFor[map[string]any]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// directWrapper returns a single-field struct type holding t, used to run t
// through the form decoder. It returns nil for types the form decoder cannot
// coerce from a single string.
func directWrapper(t reflect.Type) reflect.Type {
	if t == durationType || reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return nil
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return reflect.StructOf([]reflect.StructField{{
			Name: "V",
			Type: t,
			Tag:  `schema:"v"`,
		}})
	default:
		return nil
	}
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// isRecordType reports whether t is a struct that should be described by
// its own record schema rather than parsed as an opaque scalar.
func isRecordType(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	if t == timeType || t == urlType {
		return false
	}
	return !reflect.PointerTo(t).Implements(textUnmarshalerType)
}
