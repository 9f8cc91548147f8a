package genfun

import "reflect"

// Hashable reports whether v can be used as a map key without panicking.
// A comparable type is not enough: a struct with an interface field holding
// a slice, map or func panics when hashed.
func Hashable(v any) bool {
	if v == nil {
		return true
	}
	return hashable(reflect.ValueOf(v))
}

func hashable(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Func:
		return false
	case reflect.Interface:
		return v.IsNil() || hashable(v.Elem())
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if !hashable(v.Index(i)) {
				return false
			}
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !hashable(v.Field(i)) {
				return false
			}
		}
	}
	return true
}
