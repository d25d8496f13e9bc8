package errors

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// stackTrace returns the outermost stack trace found in the chain of err,
// or nil.
func stackTrace(err error) errors.StackTrace {
	var st errors.StackTrace
	walk(err, func(cur error) bool {
		if t, ok := cur.(stackTracer); ok {
			st = t.StackTrace()
			return true
		}
		return false
	})
	return st
}

// helperFrames are the functions of this package that create errors. They
// never are the frame a caller is interested in.
var helperFrames = []string{
	"github.com/iov-one/custody/errors.Wrap",
	"github.com/iov-one/custody/errors.Wrapf",
	"github.com/iov-one/custody/errors.(*Error).New",
	"github.com/iov-one/custody/errors.(*Error).Newf",
	"github.com/iov-one/custody/errors.Field",
	"github.com/iov-one/custody/errors.WithType",
	"runtime.",
	// Coverage instrumented test binaries.
	"/_test/",
}

func frameFunc(f errors.Frame) *runtime.Func {
	return runtime.FuncForPC(uintptr(f) - 1)
}

func isFrameOf(f errors.Frame, prefixes []string) bool {
	fn := frameFunc(f)
	if fn == nil {
		return false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(fn.Name(), p) {
			return true
		}
	}
	return false
}

// trimStack drops the error helpers from the top of the stack and the
// runtime and testing frames from its bottom.
func trimStack(st errors.StackTrace) errors.StackTrace {
	for len(st) > 1 && isFrameOf(st[0], helperFrames) {
		st = st[1:]
	}
	outer := []string{"runtime.", "testing."}
	for len(st) > 1 && isFrameOf(st[len(st)-1], outer) {
		st = st[:len(st)-1]
	}
	return st
}

// shortLocation returns the file and line of f with the path cut after the
// module host, for example iov-one/custody/x/lock/ledger.go:120.
func shortLocation(f errors.Frame) string {
	fn := frameFunc(f)
	if fn == nil {
		return "unknown:0"
	}
	file, line := fn.FileLine(uintptr(f) - 1)
	if i := strings.Index(file, "github.com/"); i >= 0 {
		file = file[i+len("github.com/"):]
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// Format supports the %s, %v and %+v verbs. %v appends the location the
// error was created at, %+v the whole stack.
func (e *wrappedError) Format(s fmt.State, verb rune) {
	if verb != 'v' {
		fmt.Fprint(s, e.Error())
		return
	}
	st := trimStack(stackTrace(e))
	switch {
	case s.Flag('+'):
		fmt.Fprintf(s, "%+v\n%s", st, e.Error())
	case len(st) > 0:
		fmt.Fprintf(s, "%s [%s]", e.Error(), shortLocation(st[0]))
	default:
		fmt.Fprint(s, e.Error())
	}
}
