package z3

import "fmt"

// Error represents an error reported by the Z3 API after a call.
type Error struct {
	Code    int
	Op      string
	Message string
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (code %d)", e.Op, e.Message, e.Code)
}
