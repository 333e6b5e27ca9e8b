package frame

import (
	"fmt"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
)

// FromStructs derives a column schema from T using JSON Schema reflection
// and fills one row per item. Field descriptions come from
// `jsonschema:"description=..."` tags, column names from `json` tags and
// required columns from the generated schema.
func FromStructs[T any](items []T) (*Frame, error) {
	structType, err := structTypeFor[T]()
	if err != nil {
		return nil, err
	}
	cols, fields, err := columnsForStruct(structType)
	if err != nil {
		return nil, err
	}
	f, err := New(cols)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		v := reflect.ValueOf(item)
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				continue
			}
			v = v.Elem()
		}
		row := make([]any, len(cols))
		for i, fi := range fields {
			if fi < 0 {
				continue
			}
			row[i] = cellFromField(cols[i].Type, v.Field(fi))
		}
		if err := f.Append(row...); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// ColumnsFor derives just the column schema for T.
func ColumnsFor[T any]() ([]Column, error) {
	structType, err := structTypeFor[T]()
	if err != nil {
		return nil, err
	}
	cols, _, err := columnsForStruct(structType)
	return cols, err
}

func structTypeFor[T any]() (reflect.Type, error) {
	t := reflect.TypeFor[T]()
	switch t.Kind() {
	case reflect.Pointer:
		if t.Elem().Kind() != reflect.Struct {
			return nil, fmt.Errorf("type must be a struct or pointer to struct, got %s", t.Kind())
		}
		return t.Elem(), nil
	case reflect.Struct:
		return t, nil
	}
	return nil, fmt.Errorf("type must be a struct or pointer to struct, got %s", t.Kind())
}

// columnsForStruct reflects a JSON Schema out of the struct type and pairs
// every property with the struct field it came from. The field index is -1
// for properties without a directly addressable field, such as promoted
// fields of embedded structs.
func columnsForStruct(structType reflect.Type) ([]Column, []int, error) {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	schema := r.ReflectFromType(structType)

	required := make(map[string]bool)
	for _, name := range schema.Required {
		required[name] = true
	}

	var cols []Column
	var fields []int
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		name := pair.Key

		colType := Text
		fieldIndex := -1
		for i := range structType.NumField() {
			field := structType.Field(i)
			if jsonFieldName(&field) == name {
				colType = typeForGo(field.Type)
				fieldIndex = i
				break
			}
		}

		cols = append(cols, Column{
			Name:        name,
			Type:        colType,
			Required:    required[name],
			Description: pair.Value.Description,
		})
		fields = append(fields, fieldIndex)
	}
	return cols, fields, nil
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(field *reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	// Handle "name,omitempty" format
	for i, c := range tag {
		if c == ',' {
			if i == 0 {
				return field.Name
			}
			return tag[:i]
		}
	}
	return tag
}

// typeForGo maps Go types to column types.
func typeForGo(t reflect.Type) Type {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == reflect.TypeFor[time.Time]() {
		return Date
	}
	switch t.Kind() {
	case reflect.String:
		return Text
	case reflect.Bool:
		return Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return Number
	case reflect.Struct, reflect.Slice, reflect.Array, reflect.Map:
		return JSONB
	}
	return Text
}

// cellFromField converts a struct field value to the canonical cell form for
// its column type. Nil pointers become nil cells.
func cellFromField(t Type, v reflect.Value) any {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch t {
	case Text:
		if v.Kind() == reflect.String {
			return v.String()
		}
		return fmt.Sprint(v.Interface())
	case Number:
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(v.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return float64(v.Uint())
		}
		return v.Float()
	case Bool:
		return v.Bool()
	}
	return v.Interface()
}
