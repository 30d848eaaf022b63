package feedstore

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedStatus indicates the store answered with a non-2xx status.
	ErrUnexpectedStatus = errors.New("feedstore: unexpected status")
	// ErrMalformedResponse indicates the response body could not be decoded.
	ErrMalformedResponse = errors.New("feedstore: malformed response")
	// ErrStoreRejected indicates a 2xx response that carried an error field.
	ErrStoreRejected = errors.New("feedstore: request rejected")
)

// TransportError is returned for every failed store operation.
type TransportError struct {
	Op     string
	Method string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("feedstore %s (%s, status %d): %v", e.Op, e.Method, e.Status, e.Err)
	}
	return fmt.Sprintf("feedstore %s (%s): %v", e.Op, e.Method, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
