package artifact

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/zkparallel/internal/circuit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Fetch(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	locs := circuit.PathsFor("execution")
	for _, rel := range []string{locs.Program, locs.ProvingKey, locs.VerificationKey, locs.Input} {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(rel), 0o600))
	}
	store := NewFileStore(root)
	ctx := context.Background()

	// --- Act & Assert ---
	got, err := store.FetchInput(ctx, locs)
	require.NoError(t, err)
	assert.Equal(t, locs.Input, string(got))

	got, err = store.FetchProgram(ctx, locs)
	require.NoError(t, err)
	assert.Equal(t, locs.Program, string(got))

	got, err = store.FetchProvingKey(ctx, locs)
	require.NoError(t, err)
	assert.Equal(t, locs.ProvingKey, string(got))

	got, err = store.FetchVerificationKey(ctx, locs)
	require.NoError(t, err)
	assert.Equal(t, locs.VerificationKey, string(got))
}

func TestFileStore_MissingFile(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())

	_, err := store.FetchInput(context.Background(), circuit.PathsFor("ghost"))

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindInput, fetchErr.Kind)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "failed to fetch input 'inputs/ghost.json'")
}

func TestFileStore_EmptyLocation(t *testing.T) {
	t.Parallel()

	_, err := NewFileStore(".").FetchProgram(context.Background(), circuit.Locations{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no location configured")
}

func TestHTTPStore_Fetch(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/static/inputs/execution.json" {
			_, _ = w.Write([]byte(`{"public":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	store, err := NewHTTPStore(srv.URL+"/static", nil, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	// --- Act ---
	got, err := store.FetchInput(context.Background(), circuit.PathsFor("execution"))

	// --- Assert ---
	require.NoError(t, err)
	assert.JSONEq(t, `{"public":[]}`, string(got))

	_, err = store.FetchProgram(context.Background(), circuit.PathsFor("execution"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

type countingStore struct {
	Store
	programs atomic.Int32
	inputs   atomic.Int32
}

func (c *countingStore) FetchProgram(ctx context.Context, locs circuit.Locations) ([]byte, error) {
	c.programs.Add(1)
	return c.Store.FetchProgram(ctx, locs)
}

func (c *countingStore) FetchInput(ctx context.Context, locs circuit.Locations) ([]byte, error) {
	c.inputs.Add(1)
	return c.Store.FetchInput(ctx, locs)
}

func TestCached_ServesProgramFromMemory(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	locs := circuit.PathsFor("execution")
	for _, rel := range []string{locs.Program, locs.Input} {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("data"), 0o600))
	}
	inner := &countingStore{Store: NewFileStore(root)}
	cached, err := NewCached(context.Background(), inner, 16, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cached.Close() })
	ctx := context.Background()

	// --- Act ---
	for range 3 {
		got, err := cached.FetchProgram(ctx, locs)
		require.NoError(t, err)
		assert.Equal(t, "data", string(got))

		_, err = cached.FetchInput(ctx, locs)
		require.NoError(t, err)
	}

	// --- Assert ---
	assert.Equal(t, int32(1), inner.programs.Load())
	assert.Equal(t, int32(3), inner.inputs.Load())
	assert.Equal(t, 1, cached.Len())
}

func TestCached_DoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	inner := &countingStore{Store: NewFileStore(t.TempDir())}
	cached, err := NewCached(context.Background(), inner, 16, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cached.Close() })

	for range 2 {
		_, err := cached.FetchProgram(context.Background(), circuit.PathsFor("ghost"))
		require.Error(t, err)
	}

	assert.Equal(t, int32(2), inner.programs.Load())
	assert.Equal(t, 0, cached.Len())
}
