package guard_test

import (
	"testing"

	guard "github.com/goliatone/go-session-guard"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserGetUUID(t *testing.T) {
	id := uuid.New()

	u := &guard.User{ID: id.String(), Email: "u@example.com"}
	got, err := u.GetUUID()
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = (&guard.User{ID: "not-a-uuid"}).GetUUID()
	assert.Error(t, err)
}
