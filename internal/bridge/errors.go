// internal/bridge/errors.go
package bridge

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Invoke when no function is registered under a keyword.
var ErrNotFound = errors.New("callable function not found")

// ErrFileAccessDisabled is returned when a file:// load is attempted while
// file access is switched off.
var ErrFileAccessDisabled = errors.New("file access is disabled")

// InvocationError describes a failed call into a registered function: wrong
// arity, an argument that does not decode against the declared signature, a
// handler error or a recovered panic.
type InvocationError struct {
	Keyword    string
	MethodName string
	Err        error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoking %s (keyword %q): %v", e.MethodName, e.Keyword, e.Err)
}

// Unwrap provides the underlying error for use with errors.Is/As.
func (e *InvocationError) Unwrap() error {
	return e.Err
}

// NavigationError represents a failure during a page navigation attempt.
type NavigationError struct {
	URL     string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *NavigationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Message, e.URL, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.URL)
}

// Unwrap provides the underlying error for use with errors.Is/As.
func (e *NavigationError) Unwrap() error {
	return e.Err
}
