package schema

import (
	"reflect"
	"strconv"
	"strings"
)

// FromStruct derives a Definition from a struct type using reflection.
// Field names follow the json tag, pointer and omitempty fields are
// optional, and the tags `description`, `enum` (comma separated) and
// `min`/`max` (numeric) refine the declaration.
//
// Example:
//
//	type TaskResult struct {
//		Task      string `json:"task" description:"What needs doing"`
//		Completed bool   `json:"completed"`
//		Priority  int    `json:"priority" min:"1" max:"3"`
//	}
//
//	def := schema.FromStruct("task_result", TaskResult{})
func FromStruct(name string, structType any) Definition {
	t := reflect.TypeOf(structType)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return New(name)
	}

	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		jsonTag := sf.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		fieldName := sf.Name
		if jsonTag != "" {
			if n := strings.Split(jsonTag, ",")[0]; n != "" {
				fieldName = n
			}
		}

		ft, ok := fieldType(sf.Type)
		if !ok {
			continue
		}

		f := Field{
			Name:        fieldName,
			Type:        ft,
			Required:    !hasOmitEmpty(jsonTag) && sf.Type.Kind() != reflect.Ptr,
			Description: sf.Tag.Get("description"),
		}
		if enum := sf.Tag.Get("enum"); enum != "" {
			f.Enum = strings.Split(enum, ",")
		}
		if min, err := strconv.ParseFloat(sf.Tag.Get("min"), 64); err == nil {
			f.Min = Float(min)
		}
		if max, err := strconv.ParseFloat(sf.Tag.Get("max"), 64); err == nil {
			f.Max = Float(max)
		}
		fields = append(fields, f)
	}

	return New(name, fields...)
}

func fieldType(t reflect.Type) (Type, bool) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return TypeString, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInt, true
	case reflect.Float32, reflect.Float64:
		return TypeFloat, true
	case reflect.Bool:
		return TypeBool, true
	default:
		return "", false
	}
}

func hasOmitEmpty(tag string) bool {
	parts := strings.Split(tag, ",")
	for _, part := range parts[1:] {
		if strings.TrimSpace(part) == "omitempty" {
			return true
		}
	}
	return false
}
