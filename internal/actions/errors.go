package actions

import (
	"errors"
	"fmt"
)

// ErrValidation matches every ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError reports input the caller should have rejected before
// dispatching. Nothing is sent to the store when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var (
	// ErrEmptyComment is returned for a comment draft that is blank after
	// trimming. It is not reported through the Notifier.
	ErrEmptyComment = &ValidationError{Field: "comment", Reason: "text is empty"}
	// ErrEmptyTitle is returned when an upload has no title.
	ErrEmptyTitle = &ValidationError{Field: "title", Reason: "must not be empty"}
	// ErrNoFile is returned when an action needs a file and none was selected.
	ErrNoFile = &ValidationError{Field: "file", Reason: "no file selected"}
	// ErrNoThumbnailTarget is returned when no video was picked for a
	// thumbnail replacement.
	ErrNoThumbnailTarget = &ValidationError{Field: "thumbnail_target", Reason: "no video selected"}
	// ErrUnknownVideo is returned for a video id missing from the feed.
	ErrUnknownVideo = &ValidationError{Field: "video_id", Reason: "video is not in the feed"}
	// ErrNotOwner is returned when replacing the thumbnail of another user's video.
	ErrNotOwner = &ValidationError{Field: "video_id", Reason: "video belongs to another user"}
)

var (
	// ErrShareFailed wraps failures of both the native share sheet and the
	// clipboard fallback.
	ErrShareFailed = errors.New("share failed")
	// ErrMissingDependency indicates the dispatcher was built without a
	// required collaborator.
	ErrMissingDependency = errors.New("dispatcher dependency missing")
)
