package schema

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"time"
)

var errNotAbsolute = errors.New("URL must be absolute")

// ParseValue is the default fallback parser for Scalar descriptors. It
// handles URLs, durations, base64 bytes, encoding.TextUnmarshaler
// implementations, and otherwise decodes raw as JSON (then as a JSON string)
// into t. Interface targets accept any JSON value and fall back to raw.
func ParseValue(raw string, t reflect.Type) (any, error) {
	switch {
	case t == urlType:
		u, err := url.Parse(raw)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errNotAbsolute
		}
		return *u, nil

	case t == durationType:
		return time.ParseDuration(raw)

	case t == bytesType:
		return base64.StdEncoding.DecodeString(raw)

	case reflect.PointerTo(t).Implements(textUnmarshalerType):
		ptr := reflect.New(t)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw)); err != nil {
			return nil, err
		}
		return ptr.Elem().Interface(), nil

	case t.Kind() == reflect.Interface:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v, nil
		}
		return raw, nil
	}

	ptr := reflect.New(t)
	err := json.Unmarshal([]byte(raw), ptr.Interface())
	if err == nil {
		return ptr.Elem().Interface(), nil
	}
	quoted, _ := json.Marshal(raw)
	ptr = reflect.New(t)
	if json.Unmarshal(quoted, ptr.Interface()) == nil {
		return ptr.Elem().Interface(), nil
	}
	return nil, fmt.Errorf("cannot parse %q as %s: %w", raw, t, err)
}

// FormatValue renders a value as a CSV cell. It is the inverse of
// Descriptor.Parse for every kind: nil renders as the empty cell.
func FormatValue(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", nil
		}
		rv = rv.Elem()
	}
	v = rv.Interface()

	switch x := v.(type) {
	case url.URL:
		return x.String(), nil
	case time.Duration:
		return x.String(), nil
	case []byte:
		return base64.StdEncoding.EncodeToString(x), nil
	case encoding.TextMarshaler:
		b, err := x.MarshalText()
		return string(b), err
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), nil
	case reflect.Slice, reflect.Map:
		if rv.IsNil() {
			return "", nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
