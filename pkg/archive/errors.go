package archive

import "fmt"

// Error is returned for missing or malformed archive entries, zip structural
// errors, and filesystem failures while packing or unpacking.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}

	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func errorf(err error, format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Err: err}
}

// PathError is returned when a file name or parent directory cannot be derived
// from a caller-supplied path.
type PathError struct {
	Path string
	Msg  string
}

func (e *PathError) Error() string {
	return e.Msg + ", path: " + e.Path
}
