package media

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures. Every kind except
// KindDependencyMissing describes unusable input rather than a server fault.
type ErrorKind string

const (
	KindInvalidInput       ErrorKind = "invalid_input"
	KindPayloadTooLarge    ErrorKind = "payload_too_large"
	KindRedirectLoop       ErrorKind = "redirect_loop"
	KindNoMediaFound       ErrorKind = "no_media_found"
	KindUnsupportedContent ErrorKind = "unsupported_content"
	KindDownloadFailed     ErrorKind = "download_failed"
	KindNoFramesAnalyzed   ErrorKind = "no_frames_analyzed"
	KindDependencyMissing  ErrorKind = "dependency_missing"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
