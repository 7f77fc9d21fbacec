package guard

import (
	"github.com/google/uuid"
)

// User is the identity derived from resolving a valid session against the
// identity backend. It is read-only and never persisted on its own; its
// lifetime is bounded by the session's validity.
type User struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

// GetUUID parses the backend-issued id as a UUID
func (u *User) GetUUID() (uuid.UUID, error) {
	return uuid.Parse(u.ID)
}
