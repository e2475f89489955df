package schema

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type level string

func (level) Values() []string { return []string{"low", "high"} }

type item struct {
	Name string `json:"name" validate:"required"`
}

type meta struct {
	Source string `json:"source" validate:"required"`
}

type sample struct {
	ID     string        `json:"id" validate:"required"`
	Score  string        `json:"score" validate:"omitempty,oneof=low high"`
	Level  level         `json:"level"`
	Value  any           `json:"value" union:"int,float,string"`
	Tags   []string      `json:"tags"`
	Items  DocList[item] `json:"items"`
	Active bool          `json:"active"`
	Count  *int          `json:"count"`
	Raw    []byte        `json:"raw"`
	Meta   meta          `json:"meta,omitempty"`
	When   time.Time     `json:"when"`
	Skip   string        `json:"-"`
	hidden string
}

type base struct {
	ID string `json:"id"`
}

type withBase struct {
	base
	Name string `json:"name"`
}

type node struct {
	Name     string        `json:"name"`
	Children DocList[node] `json:"children"`
}

func TestFromTypeKinds(t *testing.T) {
	rs, err := For[sample]()
	if err != nil {
		t.Fatalf("For: %v", err)
	}

	wantNames := []string{"id", "score", "level", "value", "tags", "items", "active", "count", "raw", "meta", "when"}
	if diff := cmp.Diff(wantNames, rs.FieldNames()); diff != "" {
		t.Errorf("field names mismatch (-want +got):\n%s", diff)
	}

	wantKinds := map[string]Kind{
		"id":     KindScalar,
		"score":  KindLiteral,
		"level":  KindLiteral,
		"value":  KindUnion,
		"tags":   KindList,
		"items":  KindNestedRecordList,
		"active": KindBoolean,
		"count":  KindScalar,
		"raw":    KindScalar,
		"meta":   KindScalar,
		"when":   KindScalar,
	}
	for name, want := range wantKinds {
		f, ok := rs.Field(name)
		if !ok {
			t.Fatalf("field %q missing", name)
		}
		if got := f.Descriptor.Kind(); got != want {
			t.Errorf("field %q: expected kind %s, got %s", name, want, got)
		}
	}

	score, _ := rs.Field("score")
	if diff := cmp.Diff([]string{"low", "high"}, score.Descriptor.Literals()); diff != "" {
		t.Errorf("score literals mismatch (-want +got):\n%s", diff)
	}

	value, _ := rs.Field("value")
	var candidates []string
	for _, c := range value.Descriptor.Candidates() {
		candidates = append(candidates, c.String())
	}
	if diff := cmp.Diff([]string{"Scalar[int64]", "Scalar[float64]", "Scalar[string]"}, candidates); diff != "" {
		t.Errorf("union candidates mismatch (-want +got):\n%s", diff)
	}

	id, _ := rs.Field("id")
	if !id.Required || id.Optional {
		t.Errorf("id: expected required and not optional, got required=%v optional=%v", id.Required, id.Optional)
	}
	count, _ := rs.Field("count")
	if !count.Optional {
		t.Error("count: expected optional for pointer field")
	}
	if score.Required || !score.Optional {
		t.Errorf("score: expected optional from validate omitempty, got required=%v optional=%v", score.Required, score.Optional)
	}
	m, _ := rs.Field("meta")
	if !m.Optional {
		t.Error("meta: expected optional for omitempty field")
	}
}

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		typ      reflect.Type
		tag      reflect.StructTag
		want     Kind
		optional bool
	}{
		{"oneof beats everything", reflect.TypeFor[string](), `validate:"oneof=a b" union:"int,string"`, KindLiteral, false},
		{"enum type", reflect.TypeFor[level](), "", KindLiteral, false},
		{"union tag on slice", reflect.TypeFor[[]string](), `union:"list,string"`, KindUnion, false},
		{"unnamed slice", reflect.TypeFor[[]int](), "", KindList, false},
		{"doc list", reflect.TypeFor[DocList[item]](), "", KindNestedRecordList, false},
		{"bytes are scalar", reflect.TypeFor[[]byte](), "", KindScalar, false},
		{"bool", reflect.TypeFor[bool](), "", KindBoolean, false},
		{"optional bool", reflect.TypeFor[*bool](), "", KindBoolean, true},
		{"int", reflect.TypeFor[int](), "", KindScalar, false},
		{"map", reflect.TypeFor[map[string]any](), "", KindScalar, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, optional, err := Resolve(tt.typ, tt.tag)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if d.Kind() != tt.want {
				t.Errorf("expected kind %s, got %s", tt.want, d.Kind())
			}
			if optional != tt.optional {
				t.Errorf("expected optional=%v, got %v", tt.optional, optional)
			}
		})
	}
}

func TestFromTypeEmbedded(t *testing.T) {
	rs, err := For[withBase]()
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if diff := cmp.Diff([]string{"id", "name"}, rs.FieldNames()); diff != "" {
		t.Errorf("field names mismatch (-want +got):\n%s", diff)
	}
}

func TestFromTypeRecursive(t *testing.T) {
	rs, err := For[node]()
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	children, ok := rs.Field("children")
	if !ok {
		t.Fatal("children field missing")
	}
	if children.Descriptor.Record() != rs {
		t.Error("expected recursive field to reference its own schema")
	}
}

func TestFromTypeCached(t *testing.T) {
	a, err := For[sample]()
	if err != nil {
		t.Fatal(err)
	}
	b, err := FromType(reflect.TypeFor[*sample]())
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("expected the same schema instance for repeated derivation")
	}
}

func TestFromTypeErrors(t *testing.T) {
	type badUnion struct {
		V any `json:"v" union:"int,nope"`
	}
	if _, err := For[badUnion](); err == nil {
		t.Error("expected error for unknown union candidate")
	}
	if _, err := For[int](); err == nil {
		t.Error("expected error for non-struct type")
	}
}

type cacheChild struct {
	Name string `json:"name"`
}

type cacheParent struct {
	Kids DocList[cacheChild] `json:"kids"`
	V    any                 `json:"v" union:"int,nope"`
}

type cacheNode struct {
	Children DocList[cacheNode] `json:"children"`
	V        any                `json:"v" union:"nope"`
}

func TestFromTypeFailureNotCached(t *testing.T) {
	if _, err := For[cacheParent](); err == nil {
		t.Fatal("expected error for unknown union candidate")
	}
	if _, err := For[cacheNode](); err == nil {
		t.Fatal("expected error for unknown union candidate")
	}
	for _, typ := range []reflect.Type{
		reflect.TypeFor[cacheChild](),
		reflect.TypeFor[cacheParent](),
		reflect.TypeFor[cacheNode](),
	} {
		if _, ok := schemas.Load(typ); ok {
			t.Errorf("expected %s to stay out of the cache after a failed resolution", typ)
		}
	}

	// The child resolves on its own and is cached then.
	rs, err := For[cacheChild]()
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if cached, ok := schemas.Load(reflect.TypeFor[cacheChild]()); !ok || cached != rs {
		t.Error("expected successful resolution to be cached")
	}
}

func TestCamelCase(t *testing.T) {
	tests := map[string]string{
		"request_id": "requestId",
		"data":       "data",
		"a_b_c":      "aBC",
		"trailing_":  "trailing",
	}
	for in, want := range tests {
		if got := CamelCase(in); got != want {
			t.Errorf("CamelCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCanonicalKeys(t *testing.T) {
	rs := NewRecordSchema("Header", Field{Name: "request_id", Descriptor: String()})

	f, ok := rs.Field("requestId")
	if !ok || f.Name != "request_id" {
		t.Fatalf("expected alias lookup to find request_id, got %+v", f)
	}

	got := rs.CanonicalKeys(map[string]json.RawMessage{
		"requestId": json.RawMessage(`"a"`),
		"other":     json.RawMessage(`1`),
	})
	want := map[string]json.RawMessage{
		"request_id": json.RawMessage(`"a"`),
		"other":      json.RawMessage(`1`),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("canonical keys mismatch (-want +got):\n%s", diff)
	}

	got = rs.CanonicalKeys(map[string]json.RawMessage{
		"requestId":  json.RawMessage(`"alias"`),
		"request_id": json.RawMessage(`"name"`),
	})
	if string(got["request_id"]) != `"name"` {
		t.Errorf("expected field name to win over alias, got %s", got["request_id"])
	}
	if _, ok := got["requestId"]; ok {
		t.Error("expected alias key to be removed")
	}
}
