package handler

import "github.com/google/uuid"

// parseUUID parses a UUID from a request body field
func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
