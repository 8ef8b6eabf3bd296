package executable

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/stoewer/go-strcase"

	schema "github.com/hanpama/envelope/internal/schema"
)

// DefaultResolve projects field out of source. Maps are indexed by the field
// name; structs are matched by json tag, then by the UpperCamelCase form of
// the field name (also trying a trailing "ID" for "Id"), then by a method of
// that name taking no arguments.
func DefaultResolve(source any, field string) (any, error) {
	if source == nil {
		return nil, nil
	}
	if m, ok := source.(map[string]any); ok {
		return m[field], nil
	}

	rv := reflect.ValueOf(source)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, nil
	}
	if m := methodByField(rv, field); m.IsValid() {
		return callGetter(m)
	}
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, nil
		}
		v := rv.MapIndex(reflect.ValueOf(field).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	case reflect.Struct:
		if f, ok := structField(rv, field); ok {
			return f.Interface(), nil
		}
		if m := methodByField(rv, field); m.IsValid() {
			return callGetter(m)
		}
	}
	return nil, nil
}

func goNames(field string) []string {
	name := strcase.UpperCamelCase(field)
	names := []string{name}
	if strings.HasSuffix(name, "Id") {
		names = append(names, strings.TrimSuffix(name, "Id")+"ID")
	}
	return names
}

func structField(rv reflect.Value, field string) (reflect.Value, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := strings.Split(sf.Tag.Get("json"), ",")[0]
		if tag == field {
			return rv.Field(i), true
		}
	}
	for _, name := range goNames(field) {
		if sf, ok := rt.FieldByName(name); ok && sf.IsExported() {
			return rv.FieldByIndex(sf.Index), true
		}
	}
	return reflect.Value{}, false
}

func methodByField(rv reflect.Value, field string) reflect.Value {
	if !rv.IsValid() {
		return reflect.Value{}
	}
	for _, name := range goNames(field) {
		m := rv.MethodByName(name)
		if m.IsValid() && m.Type().NumIn() == 0 && (m.Type().NumOut() == 1 || m.Type().NumOut() == 2) {
			return m
		}
	}
	return reflect.Value{}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func callGetter(m reflect.Value) (any, error) {
	out := m.Call(nil)
	if len(out) == 2 && out[1].Type().Implements(errorType) {
		if err, _ := out[1].Interface().(error); err != nil {
			return nil, err
		}
	}
	return out[0].Interface(), nil
}

// typeNameOf reads "__typename" from map values or falls back to the Go type
// name of struct values.
func typeNameOf(value any) string {
	if m, ok := value.(map[string]any); ok {
		name, _ := m["__typename"].(string)
		return name
	}
	rt := reflect.TypeOf(value)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil {
		return ""
	}
	return rt.Name()
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

func serializeEnum(t *schema.Type, value any) (any, error) {
	name := fmt.Sprint(value)
	if s, ok := value.(fmt.Stringer); ok {
		name = s.String()
	}
	for _, ev := range t.EnumValues {
		if ev.Name == name {
			return name, nil
		}
	}
	return nil, fmt.Errorf("enum %s cannot represent value %v", t.Name, value)
}

func serializeBuiltin(typeName string, value any) (any, error) {
	switch typeName {
	case "Int":
		return serializeInt(value)
	case "Float":
		return serializeFloat(value)
	case "String", "ID":
		switch v := value.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		case int, int32, int64, uint, uint32, uint64:
			return fmt.Sprint(v), nil
		case bool:
			if typeName == "String" {
				return strconv.FormatBool(v), nil
			}
		}
		return nil, fmt.Errorf("%s cannot represent value %v", typeName, value)
	case "Boolean":
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %v", value)
	default:
		return value, nil
	}
}

func serializeInt(value any) (any, error) {
	var n int64
	switch v := value.(type) {
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %v", v)
		}
		n = int64(v)
	default:
		return nil, fmt.Errorf("Int cannot represent value %v", value)
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %d", n)
	}
	return int(n), nil
}

func serializeFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return nil, fmt.Errorf("Float cannot represent value %v", value)
}
