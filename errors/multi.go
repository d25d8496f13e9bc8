package errors

import (
	"fmt"
	"strings"
)

// Append clubs together all provided errors. Nil values are ignored.
//
// If no error or only nil values are given, nil is returned. A single
// non-nil error is returned unchanged.
func Append(errs ...error) error {
	var res multiErr
	for _, e := range errs {
		if isNil(e) {
			continue
		}
		if m, ok := e.(*multiErr); ok {
			res = append(res, *m...)
			continue
		}
		res = append(res, e)
	}
	switch len(res) {
	case 0:
		return nil
	case 1:
		return res[0]
	default:
		return &res
	}
}

// multiErr is a collection of errors that are all reported at once. Its
// code is the code of the first member so that validation reports the
// failure that was found first.
type multiErr []error

func (m *multiErr) Error() string {
	points := make([]string, len(*m))
	for i, err := range *m {
		points[i] = fmt.Sprintf("* %s", err)
	}
	return fmt.Sprintf("%d errors occurred:\n\t%s\n", len(*m), strings.Join(points, "\n\t"))
}

// Unpack implements the unpacker interface.
func (m *multiErr) Unpack() []error {
	return *m
}

// Code returns the code of the first error.
func (m *multiErr) Code() uint32 {
	return Code((*m)[0])
}

// unpacker is implemented by errors that hold more than one error.
type unpacker interface {
	Unpack() []error
}
