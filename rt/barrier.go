package rt

import (
	"reflect"
)

// ---------------------------------------------------------------------------
// Safety barriers
// ---------------------------------------------------------------------------

// NullCheck returns v unchanged when it is non-nil and raises NullDereference
// otherwise. Translated code wraps every dereference in it.
func NullCheck[T any](v T) T {
	if IsNil(v) {
		Raise(NullDereference, nil, "dereference of null %s", typeName[T]())
	}
	return v
}

// Cast views src as D, checking the dynamic type of src rather than its
// declared type S. A nil src always succeeds and yields the nil D. A non-nil
// src of an incompatible dynamic type raises InvalidCast with f as the
// call-site context. On success the result is the same value, not a copy.
func Cast[D any, S any](f *Frame, src S) D {
	var zero D
	v := any(src)
	if IsNil(v) {
		return zero
	}
	d, ok := v.(D)
	if !ok {
		Raise(InvalidCast, f, "%s cannot be cast to %s", reflect.TypeOf(v), typeName[D]())
	}
	return d
}

// InstanceOf reports whether v is non-nil and its dynamic type is compatible
// with D.
func InstanceOf[D any](v any) bool {
	if IsNil(v) {
		return false
	}
	_, ok := v.(D)
	return ok
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}
