package transport

import (
	"errors"
	"fmt"
)

// ErrUnexpectedReply reports a reply frame whose command tag does not match
// the expectation. The accept filter should make this unreachable; the check
// guards against a filter race. Never retried.
var ErrUnexpectedReply = errors.New("transport: unexpected reply command")

// Error wraps a connection, write, or deadline failure with the exchange
// context needed to tell which device and command failed.
type Error struct {
	Host    string
	Port    int
	Command string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s %s:%d command %s: %v", e.Op, e.Host, e.Port, e.Command, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
