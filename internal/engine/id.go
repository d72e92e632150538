package engine

import "github.com/google/uuid"

// newRequestID returns a random ID for one request.
func newRequestID() string {
	return uuid.NewString()
}

// shortID trims an ID for log lines.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
