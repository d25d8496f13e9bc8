package orm

import (
	"reflect"

	"github.com/iov-one/custody"
	"github.com/iov-one/custody/errors"
)

// Model is implemented by any entity that can be stored using ModelBucket.
type Model interface {
	custody.Persistent
	Validate() error
}

// ModelSlicePtr represents a pointer to a slice of models. Think of it as
// *[]Model Because of Go type system, using []Model type would not work for
// us. Instead we use a placeholder type and the validation is done during the
// runtime.
type ModelSlicePtr interface{}

// newModel returns a fresh instance of the same type as given model, which
// must be a pointer to a struct.
func newModel(proto Model) Model {
	return reflect.New(reflect.TypeOf(proto).Elem()).Interface().(Model)
}

// appendModel appends given model to the slice that dest points to. The
// slice element can be either the model struct or a pointer to it.
func appendModel(dest ModelSlicePtr, m Model) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.Elem().Kind() != reflect.Slice {
		return errors.Wrapf(errors.ErrType, "destination must be a pointer to a slice, got %T", dest)
	}
	slice := dv.Elem()
	elemType := slice.Type().Elem()
	mv := reflect.ValueOf(m)

	switch {
	case mv.Type().AssignableTo(elemType):
		slice.Set(reflect.Append(slice, mv))
	case mv.Elem().Type().AssignableTo(elemType):
		slice.Set(reflect.Append(slice, mv.Elem()))
	default:
		return errors.Wrapf(errors.ErrType, "%T cannot be stored in %T", m, dest)
	}
	return nil
}

// load copies src into dest. Both must be pointers to the same type.
func load(dest, src Model) error {
	if reflect.TypeOf(dest) != reflect.TypeOf(src) {
		return errors.Wrapf(errors.ErrType, "%T cannot be represented as %T", src, dest)
	}
	reflect.ValueOf(dest).Elem().Set(reflect.ValueOf(src).Elem())
	return nil
}
