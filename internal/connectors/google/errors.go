package google

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"
)

// Common Google API errors.
var (
	// ErrUnauthorized indicates invalid or expired credentials.
	ErrUnauthorized = errors.New("google: unauthorised (invalid credentials)")

	// ErrForbidden indicates insufficient permissions.
	ErrForbidden = errors.New("google: forbidden (insufficient permissions)")

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("google: resource not found")

	// ErrConflict indicates the resource was modified concurrently.
	ErrConflict = errors.New("google: conflict")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("google: rate limit exceeded")

	// ErrSyncTokenExpired indicates the changes page token has expired (410 GONE).
	// The client should start again from a fresh cursor.
	ErrSyncTokenExpired = errors.New("google: sync token expired, full resync required")
)

// rateLimitReasons are 403 reasons Drive uses instead of 429.
var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

func apiError(err error) (*googleapi.Error, bool) {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr, true
	}
	return nil, false
}

// StatusCode returns the HTTP status of a Google API error, or 0.
func StatusCode(err error) int {
	if gerr, ok := apiError(err); ok {
		return gerr.Code
	}
	return 0
}

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || StatusCode(err) == http.StatusUnauthorized
}

// IsForbidden returns true if the error indicates insufficient permissions.
// Rate limiting reported as 403 is not a permission problem.
func IsForbidden(err error) bool {
	if errors.Is(err, ErrForbidden) {
		return true
	}
	return StatusCode(err) == http.StatusForbidden && !IsRateLimited(err)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || StatusCode(err) == http.StatusNotFound
}

// IsConflict returns true if the error indicates a conflicting update.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || StatusCode(err) == http.StatusConflict
}

// IsRateLimited returns true if the error indicates rate limiting.
// Drive reports per-user limits as 403 with a rate limit reason.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	gerr, ok := apiError(err)
	if !ok {
		return false
	}
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if gerr.Code == http.StatusForbidden {
		for _, item := range gerr.Errors {
			if rateLimitReasons[item.Reason] {
				return true
			}
		}
	}
	return false
}

// IsSyncTokenExpired returns true if the error indicates an expired page token (410 GONE).
func IsSyncTokenExpired(err error) bool {
	return errors.Is(err, ErrSyncTokenExpired) || StatusCode(err) == http.StatusGone
}

// IsServerError returns true for 5xx responses.
func IsServerError(err error) bool {
	code := StatusCode(err)
	return code >= 500 && code <= 599
}

// RetryAfter returns the delay requested by a Retry-After header, or 0.
func RetryAfter(err error) time.Duration {
	gerr, ok := apiError(err)
	if !ok || gerr.Header == nil {
		return 0
	}
	v := gerr.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// WrapError converts a Google API error to a more specific error type.
// The original error stays in the chain.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	gerr, ok := apiError(err)
	if !ok {
		return err
	}

	var sentinel error
	switch {
	case IsRateLimited(err):
		sentinel = ErrRateLimited
	case gerr.Code == http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case gerr.Code == http.StatusForbidden:
		sentinel = ErrForbidden
	case gerr.Code == http.StatusNotFound:
		sentinel = ErrNotFound
	case gerr.Code == http.StatusConflict:
		sentinel = ErrConflict
	case gerr.Code == http.StatusGone:
		sentinel = ErrSyncTokenExpired
	default:
		return err
	}
	return errors.Join(sentinel, err)
}
