package postgres

import (
	"reflect"
	"slices"
	"sync"

	"github.com/Masterminds/squirrel"
)

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// ExtractDBColumns extracts all column names from struct "db" tags.
// Embedded structs (entity.BaseEntity) are flattened in field order.
//
// Usage:
//
//	columns := ExtractDBColumns[batch.Batch]()
//	// Returns: ["id", "version", "created_at", "updated_at", "product_id", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	meta := typeMetadataFor(reflect.TypeOf(zero))
	cols := make([]string, 0, len(meta.fields))
	for _, f := range meta.fields {
		cols = append(cols, f.column)
	}
	return cols
}

// ColumnsExcept drops the named columns, keeping order.
func ColumnsExcept(cols []string, drop ...string) []string {
	return slices.DeleteFunc(slices.Clone(cols), func(c string) bool {
		return slices.Contains(drop, c)
	})
}

// fieldInfo is one tagged field, addressed by its index path through embedded structs.
type fieldInfo struct {
	index  []int
	column string
}

type typeMetadata struct {
	fields []fieldInfo
}

// typeCache holds metadata per struct type. Reflection runs once per type.
var typeCache sync.Map // map[reflect.Type]*typeMetadata

func typeMetadataFor(t reflect.Type) *typeMetadata {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{}
	if t.Kind() == reflect.Struct {
		collectFields(t, nil, meta)
	}
	actual, _ := typeCache.LoadOrStore(t, meta)
	return actual.(*typeMetadata)
}

func collectFields(t reflect.Type, prefix []int, meta *typeMetadata) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		path := append(slices.Clone(prefix), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectFields(field.Type, path, meta)
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		meta.fields = append(meta.fields, fieldInfo{index: path, column: tag})
	}
}

// StructToMap converts a struct to a column map using "db" tags.
// When columns is non-empty only those columns are kept.
func StructToMap(v any, columns ...string) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	meta := typeMetadataFor(rv.Type())
	res := make(map[string]any, len(meta.fields))
	for _, f := range meta.fields {
		if len(columns) > 0 && !slices.Contains(columns, f.column) {
			continue
		}
		res[f.column] = rv.FieldByIndex(f.index).Interface()
	}
	return res
}
