package media

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFile indicates no file was selected.
	ErrNoFile = errors.New("no file selected")
	// ErrTooLarge indicates a file exceeds the configured upload limit.
	ErrTooLarge = errors.New("file too large")
	// ErrNotDataURI indicates a payload is not a base64 data URI.
	ErrNotDataURI = errors.New("payload is not a base64 data uri")
	// ErrMalformedPayload indicates a data URI whose body is not valid base64.
	ErrMalformedPayload = errors.New("malformed data uri payload")
)

// ReadError reports a file that could not be read for encoding.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("read media: %v", e.Err)
	}
	return fmt.Sprintf("read media %q: %v", e.Name, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
