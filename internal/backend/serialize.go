package backend

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// SerializeArgument renders one positional argument to a stable, JSON-safe
// scalar string. Objects become JSON text; values that JSON-encoding cannot
// represent faithfully degrade to a type-tagged print form. It never panics
// and never returns a live reference to the input.
func SerializeArgument(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return fmt.Sprintf("%v", t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case error:
		return t.Error()
	}

	b, err := marshalSafe(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	s := string(b)
	if s == "{}" && !marshalsToEmptyObject(v) {
		// JSON dropped everything (unexported fields, exotic types); keep
		// the type name and a printed form instead of an empty literal.
		return fmt.Sprintf("%T(%+v)", v, v)
	}
	return s
}

// marshalSafe wraps json.Marshal so a panicking custom marshaller cannot
// escape the ingest path.
func marshalSafe(v interface{}) (b []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend: marshal panic: %v", r)
		}
	}()
	return json.Marshal(v)
}

// marshalsToEmptyObject reports whether "{}" is a faithful encoding of v:
// an empty map, a fieldless struct, or a pointer to either.
func marshalsToEmptyObject(v interface{}) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return true
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		return rv.Len() == 0
	case reflect.Struct:
		return rv.NumField() == 0
	default:
		return false
	}
}
