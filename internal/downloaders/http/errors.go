package rangehttp

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRangeIgnored is returned with VerifyRanges when a ranged GET is not
	// answered with 206 Partial Content.
	ErrRangeIgnored = errors.New("server ignored range request")

	// ErrShortBody is returned when a body ends before the expected length.
	ErrShortBody = errors.New("response body shorter than expected")

	// ErrLongBody is returned when a body runs past the size reported by
	// HEAD. Nothing past that size is written; it is not retried.
	ErrLongBody = errors.New("response body longer than expected")

	// ErrOutputFile wraps local file failures; these are never retried.
	ErrOutputFile = errors.New("output file error")
)

// TimeoutError reports a chunk whose retry budget ran out. Err is the failure
// of the final attempt.
type TimeoutError struct {
	URL         string
	Range       Range
	Whole       bool
	Destination string
	Attempts    int
	Err         error
}

func (e *TimeoutError) Error() string {
	if e.Whole {
		return fmt.Sprintf("download %s to %s timed out after %d attempts: %v", e.URL, e.Destination, e.Attempts, e.Err)
	}
	return fmt.Sprintf("download part %s of %s to %s timed out after %d attempts: %v", e.Range.ID(), e.URL, e.Destination, e.Attempts, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func (e *TimeoutError) Timeout() bool { return true }

// StatusError is an unexpected HTTP status on a GET.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d %s", e.Code, http.StatusText(e.Code))
}

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests
}

func checkStatus(code int, ranged, verify bool) error {
	if code < 200 || code >= 300 {
		return &StatusError{Code: code}
	}
	if ranged && verify && code != http.StatusPartialContent {
		return fmt.Errorf("%w: status %d", ErrRangeIgnored, code)
	}
	return nil
}

// retryable reports whether err is a transport-level failure worth another
// attempt of the same chunk.
func retryable(err error) bool {
	if errors.Is(err, ErrOutputFile) || errors.Is(err, ErrRangeIgnored) || errors.Is(err, ErrLongBody) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}
