package kit

import (
	"errors"
	"fmt"
)

// Error kinds for Kit API outcomes. Classification happens once, here at the
// client boundary; callers use errors.Is / errors.As.
var (
	// ErrAuthExpired means the access token was rejected (HTTP 401).
	ErrAuthExpired = errors.New("kit: access token expired or invalid")

	// ErrRateLimited means Kit throttled the request (HTTP 429).
	ErrRateLimited = errors.New("kit: rate limit exceeded")
)

// RemoteError is any other non-2xx response from the Kit API.
type RemoteError struct {
	StatusCode int
	Endpoint   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("kit: %s returned HTTP %d", e.Endpoint, e.StatusCode)
}

// classifyStatus maps a non-2xx status to its error kind.
func classifyStatus(status int, endpoint string) error {
	switch status {
	case 401:
		return ErrAuthExpired
	case 429:
		return ErrRateLimited
	default:
		return &RemoteError{StatusCode: status, Endpoint: endpoint}
	}
}
