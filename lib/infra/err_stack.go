package infra

import (
	"fmt"
	"io"
	"path"
	"runtime"
	"strconv"
	"strings"
)

// References:
// https://github.com/pkg/errors/blob/master/stack.go

type Frame uintptr

func (frame Frame) pc() uintptr {
	return uintptr(frame) - 1
}

func (frame Frame) file() string {
	pc := frame.pc()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknownFile"
	}
	f, _ := fn.FileLine(pc)
	return f
}

func (frame Frame) line() int {
	pc := frame.pc()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return 0
	}
	_, l := fn.FileLine(pc)
	return l
}

func (frame Frame) name() string {
	pc := frame.pc()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknownFunc"
	}
	return fn.Name()
}

// Format characters:
// %s - source file
// %d - source line
// %n - function name
// %v - verbose, equivalent to %s:%d
// %+s - full path, the root path is relative to the compile time GOPATH
// separated by \n\t (<function-name>\n\t<path>)
// %+v - equivalent to %+s:%d
func (frame Frame) Format(s fmt.State, verb rune) {
	switch verb {
	case 's':
		if s.Flag('+') {
			_, _ = io.WriteString(s, frame.name())
			_, _ = io.WriteString(s, "\n\t")
			_, _ = io.WriteString(s, frame.file())
		} else {
			_, _ = io.WriteString(s, path.Base(frame.file()))
		}
	case 'd':
		_, _ = io.WriteString(s, strconv.Itoa(frame.line()))
	case 'n':
		_, _ = io.WriteString(s, funcName(frame.name()))
	case 'v':
		frame.Format(s, 's')
		_, _ = io.WriteString(s, ":")
		frame.Format(s, 'd')
	}
}

func funcName(name string) string {
	i := strings.LastIndex(name, "/")
	name = name[i+1:]
	i = strings.Index(name, ".")
	return name[i+1:]
}

func caller(skip int) Frame {
	var pcs [1]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	if n == 0 {
		return 0
	}
	return Frame(pcs[0])
}

// InvariantViolation is a fatal programming-error condition: a
// structural invariant (e.g. parent/child back-link consistency)
// was found broken while the locks that should guarantee it were
// held. It is never returned to a caller; it is only ever panicked.
type InvariantViolation struct {
	What  string
	Frame Frame
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("%s (at %+v)", e.What, e.Frame)
}

// AssertInvariant panics with an InvariantViolation if cond is false.
// Call sites are the handful of structural checks the core performs
// while it already holds every lock that should make the checked
// property true; a failure here means a prior step in the protocol
// has a bug, not that the caller passed bad input.
func AssertInvariant(cond bool, what string) {
	if cond {
		return
	}
	panic(&InvariantViolation{What: what, Frame: caller(1)})
}
