package feed

import "fmt"

// FetchError reports a refresh that could not reach or read the store. The
// cache keeps serving the previous snapshot when one is returned.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("refresh feed: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
