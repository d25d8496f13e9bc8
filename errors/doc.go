/*
Package errors implements the error model shared by every custody package.

Each failure is a wrapped instance of one of the root errors registered in
this package (or registered by an extension with Register). A root error
carries an integer code that survives wrapping, so the caller can classify a
failure without parsing its message:

	if lock.ErrDuplicateRecord.Is(err) {
		// the record exists already
	}

Create errors at the point of failure using ErrXyz.New or Wrap so that a
stacktrace is attached. Only the innermost wrap records the stack.

	%s  is the error message
	%+v is the message followed by the full stack trace
	%v  is the message and a compressed [file:line] of the creation point
*/
package errors
