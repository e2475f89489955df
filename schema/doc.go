// Package schema classifies declared field types into a closed set of shapes
// and decodes headerless CSV rows into typed records.
//
// A RecordSchema is an ordered list of fields. Schemas are derived from Go
// struct types with FromType (json tag names, declaration order) or built
// explicitly with NewRecordSchema and the descriptor constructors:
//
//	rs := schema.NewRecordSchema("Doc",
//	    schema.Field{Name: "id", Descriptor: schema.String()},
//	    schema.Field{Name: "score", Descriptor: schema.Literal("low", "high")},
//	)
//	rec, err := schema.Decode(rs, []string{"x1", "high"})
//
// Each field type is classified, in precedence order, as Literal, Union,
// List, NestedRecordList, Boolean or Scalar. Decode is strict: either every
// cell parses or the row fails with a *ShapeMismatchError or *FieldError.
package schema
