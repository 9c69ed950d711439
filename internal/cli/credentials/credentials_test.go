package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/unigest/unigest/internal/models"
)

func TestKeyringStore_SaveLoadClear(t *testing.T) {
	keyring.MockInit()

	store := NewKeyringStore("http://localhost:8080")

	rec, err := store.Load()
	require.NoError(t, err)
	assert.True(t, rec.Empty(), "nothing stored yet")

	saved, err := NewRecord("abc123", models.UserProfile{ID: "u1", Email: "sec@univ.test", Role: models.RoleSecretaire})
	require.NoError(t, err)
	require.NoError(t, store.Save(saved))

	rec, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc123", rec.AuthToken)
	user, err := rec.User()
	require.NoError(t, err)
	assert.Equal(t, models.RoleSecretaire, user.Role)

	require.NoError(t, store.Clear())
	rec, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, Record{}, rec, "token and user data are removed together")

	assert.NoError(t, store.Clear(), "clearing twice is fine")
}

func TestKeyringStore_ScopedPerServer(t *testing.T) {
	keyring.MockInit()

	a := NewKeyringStore("https://a.univ.test")
	b := NewKeyringStore("https://b.univ.test")
	require.NoError(t, a.Save(Record{AuthToken: "token-a"}))

	assert.Equal(t, "token-a", Token(a))
	assert.Equal(t, "", Token(b))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(Record{AuthToken: "expired-token"})
	assert.Equal(t, "expired-token", Token(store))

	require.NoError(t, store.Clear())
	assert.Equal(t, "", Token(store))

	user, err := Record{}.User()
	require.NoError(t, err)
	assert.Nil(t, user)
}
