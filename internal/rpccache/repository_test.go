package rpccache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearvault/treasury-api/internal/database"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return NewRepository(db.Conn())
}

func TestLookupReturnsMostRecentEntry(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.StoreResponse("h1", "https://a", []byte(`{"req":1}`), []byte(`{"v":1}`)))
	require.NoError(t, repo.StoreResponse("h1", "https://b", []byte(`{"req":1}`), []byte(`{"v":2}`)))

	body, err := repo.LookupResponse("h1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(body))
}

func TestLookupMissingHashReturnsNil(t *testing.T) {
	repo := newTestRepo(t)

	body, err := repo.LookupResponse("missing")
	require.NoError(t, err)
	assert.Nil(t, body)
}

func TestAbsenceIsMonotonic(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.RecordAbsent("alice.near", 500))

	for _, h := range []uint64{1, 499, 500} {
		absent, err := repo.AccountAbsentAtOrBefore("alice.near", h)
		require.NoError(t, err)
		assert.True(t, absent, "height %d", h)
	}

	absent, err := repo.AccountAbsentAtOrBefore("alice.near", 501)
	require.NoError(t, err)
	assert.False(t, absent)

	// Other accounts are unaffected.
	absent, err = repo.AccountAbsentAtOrBefore("bob.near", 100)
	require.NoError(t, err)
	assert.False(t, absent)
}

func TestPruneResponsesBefore(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.StoreResponse("h1", "https://a", []byte(`{}`), []byte(`{"v":1}`)))

	deleted, err := repo.PruneResponsesBefore(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = repo.PruneResponsesBefore(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	body, err := repo.LookupResponse("h1")
	require.NoError(t, err)
	assert.Nil(t, body)
}
