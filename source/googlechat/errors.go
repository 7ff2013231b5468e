package googlechat

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Chat API errors.
var (
	// ErrUnauthorized indicates invalid or expired credentials.
	ErrUnauthorized = errors.New("google chat: unauthorised (invalid credentials)")

	// ErrForbidden indicates insufficient permissions.
	ErrForbidden = errors.New("google chat: forbidden (insufficient permissions)")

	// ErrNotFound indicates the space does not exist or is not visible.
	ErrNotFound = errors.New("google chat: space not found")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("google chat: rate limit exceeded")

	// ErrMissingToken indicates the token file holds neither an access nor a refresh token.
	ErrMissingToken = errors.New("google chat: token file has no access or refresh token")

	// ErrSpaceRequired is returned when no space name is given.
	ErrSpaceRequired = errors.New("google chat: space name required")
)

// wrapError converts a Google API error to one of the sentinel errors,
// keeping the original error in the chain.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	switch gerr.Code {
	case http.StatusUnauthorized:
		return errors.Join(ErrUnauthorized, err)
	case http.StatusForbidden:
		return errors.Join(ErrForbidden, err)
	case http.StatusNotFound:
		return errors.Join(ErrNotFound, err)
	case http.StatusTooManyRequests:
		return errors.Join(ErrRateLimited, err)
	default:
		return err
	}
}
