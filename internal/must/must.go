// Package must asserts invariants that hold for the program to work at all,
// such as built-in styles being well-formed.
// Violations panic.
package must

import "fmt"

// NotErrorf panics if err is non-nil,
// adding the printf-style message to the panic.
func NotErrorf(err error, format string, args ...any) {
	if err != nil {
		panic(fmt.Sprintf("unexpected error: %v\n%v", err, fmt.Sprintf(format, args...)))
	}
}
