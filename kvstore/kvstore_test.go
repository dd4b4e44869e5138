package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ScubaLog/config"
	"ScubaLog/mirror"
)

// exerciseStore checks the behaviour every backend must share.
func exerciseStore(t *testing.T, s mirror.Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok, "absent key should report ok=false")

	require.NoError(t, s.Set(ctx, "dives", `[{"id":"a"}]`))
	v, ok, err := s.Get(ctx, "dives")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"a"}]`, v)

	require.NoError(t, s.Set(ctx, "dives", "[]"))
	v, _, err = s.Get(ctx, "dives")
	require.NoError(t, err)
	assert.Equal(t, "[]", v, "set should overwrite")

	require.NoError(t, s.Set(ctx, "empty", ""))
	v, ok, err = s.Get(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, ok, "empty value is still present")
	assert.Equal(t, "", v)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFile(t *testing.T) {
	s, err := NewFile(filepath.Join(t.TempDir(), "sub", "dives.json"))
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFile_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dives.json")
	ctx := context.Background()

	s1, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "k", "v"))

	s2, err := NewFile(path)
	require.NoError(t, err)
	v, ok, err := s2.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestFile_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dives.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := NewFile(path)
	require.NoError(t, err)
	_, _, err = s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, errCorrupt)
}

func TestFile_SetReplacesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dives.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"deepLogDives":"[{\"id\"`), 0o644))
	ctx := context.Background()

	s, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, mirror.StorageKey, "[]"))

	v, ok, err := s.Get(ctx, mirror.StorageKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", v)

	kept, err := os.ReadFile(path + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, `{"deepLogDives":"[{\"id\"`, string(kept), "corrupt contents are kept beside the store")

	require.NoError(t, s.Set(ctx, "k", "v"))
	v, _, err = s.Get(ctx, mirror.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", v, "later sets keep existing keys")
}

func TestNewFile_EmptyPath(t *testing.T) {
	_, err := NewFile("")
	assert.Error(t, err)
}

func TestBadger_InMemory(t *testing.T) {
	s, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestBadger_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenBadger(BadgerConfig{Dir: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, mirror.StorageKey, "[]"))
	require.NoError(t, s.Close())

	s, err = OpenBadger(BadgerConfig{Dir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v, ok, err := s.Get(ctx, mirror.StorageKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", v)
}

func TestOpenBadger_RequiresDir(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)
}

func TestMySQL(t *testing.T) {
	dsn := os.Getenv("SCUBA_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("SCUBA_TEST_MYSQL_DSN not set")
	}
	s, err := OpenMySQL(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := Open(ctx, config.Storage{Backend: config.BackendMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	assert.NoError(t, closeFn())

	s, closeFn, err = Open(ctx, config.Storage{Backend: config.BackendFile, Path: filepath.Join(t.TempDir(), "d.json")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)
	assert.NoError(t, closeFn())

	s, closeFn, err = Open(ctx, config.Storage{Backend: config.BackendBadger, BadgerDir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Badger{}, s)
	assert.NoError(t, closeFn())

	_, _, err = Open(ctx, config.Storage{Backend: "redis"}, nil)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
