package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// every pooled connection would get its own :memory: database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

// implementations runs the same contract against every Repository.
func implementations(t *testing.T) map[string]func() Repository {
	return map[string]func() Repository{
		"sqlite": func() Repository { return NewSQLiteRepository(setupDB(t)) },
		"memory": func() Repository { return NewMemoryRepository() },
	}
}

func TestRepository_Contract(t *testing.T) {
	for name, newRepo := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("set then get", func(t *testing.T) {
				r := newRepo()
				require.NoError(t, r.Set(ctx, "k1", []byte{0x01, 0x02}))
				v, err := r.Get(ctx, "k1")
				require.NoError(t, err)
				require.Equal(t, []byte{0x01, 0x02}, v)
			})

			t.Run("missing key is nil nil", func(t *testing.T) {
				r := newRepo()
				v, err := r.Get(ctx, "absent")
				require.NoError(t, err)
				require.Nil(t, v)
			})

			t.Run("upsert overwrites", func(t *testing.T) {
				r := newRepo()
				require.NoError(t, r.Set(ctx, "k", []byte("old")))
				require.NoError(t, r.Set(ctx, "k", []byte("new")))
				v, err := r.Get(ctx, "k")
				require.NoError(t, err)
				require.Equal(t, []byte("new"), v)
			})

			t.Run("list returns all pairs", func(t *testing.T) {
				r := newRepo()
				require.NoError(t, r.Set(ctx, "a", []byte{0xAA}))
				require.NoError(t, r.Set(ctx, "b", []byte{0xBB, 0xCC}))
				m, err := r.List(ctx)
				require.NoError(t, err)
				assert.Len(t, m, 2)
				assert.Equal(t, []byte{0xAA}, m["a"])
				assert.Equal(t, []byte{0xBB, 0xCC}, m["b"])
			})

			t.Run("delete removes only named keys and is idempotent", func(t *testing.T) {
				r := newRepo()
				require.NoError(t, r.Set(ctx, "x", []byte{1}))
				require.NoError(t, r.Set(ctx, "y", []byte{2}))
				require.NoError(t, r.Set(ctx, "keep", []byte{3}))

				require.NoError(t, r.Delete(ctx, "x", "y", "never-existed"))
				require.NoError(t, r.Delete(ctx, "x"))
				require.NoError(t, r.Delete(ctx))

				m, err := r.List(ctx)
				require.NoError(t, err)
				assert.Equal(t, map[string][]byte{"keep": {3}}, m)
			})

			t.Run("clear removes everything", func(t *testing.T) {
				r := newRepo()
				require.NoError(t, r.Set(ctx, "a", []byte{1}))
				require.NoError(t, r.Set(ctx, "b", []byte{2}))
				require.NoError(t, r.Clear(ctx))
				m, err := r.List(ctx)
				require.NoError(t, err)
				assert.Empty(t, m)
			})
		})
	}
}

func TestSQLite_DBErrorsWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	require.ErrorContains(t, err, "failed to get metadata[k]")

	require.ErrorContains(t, r.Set(ctx, "k", []byte("v")), "failed to set metadata[k]")
	require.ErrorContains(t, r.Delete(ctx, "a", "b"), "failed to delete metadata[a,b]")
	require.ErrorContains(t, r.Clear(ctx), "failed to clear metadata")

	_, err = r.List(ctx)
	require.ErrorContains(t, err, "failed to list metadata")
}

func TestMemory_ReturnsCopies(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	in := []byte("abc")
	require.NoError(t, r.Set(ctx, "k", in))
	in[0] = 'x'

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), v)

	v[0] = 'y'
	again, _ := r.Get(ctx, "k")
	require.Equal(t, []byte("abc"), again)
}
