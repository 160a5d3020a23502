package localstate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, KeyToken, "abc"))
	require.NoError(t, s.Put(ctx, KeyToken, "def"))
	v, ok, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "def", v)

	require.NoError(t, s.Delete(ctx, KeyToken))
	require.NoError(t, s.Delete(ctx, KeyToken))
	_, ok, err = s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, KeyUser, `{"name":"Anna"}`))
	require.NoError(t, s.Close())

	s2, err := Open(ctx, dir)
	require.NoError(t, err)
	defer s2.Close()
	v, ok, err := s2.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"name":"Anna"}`, v)
}

func TestStore_GetPropagatesDriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT Value FROM KV").WithArgs(KeyToken).WillReturnError(errors.New("disk I/O error"))

	_, _, err = NewStore(db).Get(context.Background(), KeyToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_PutAndDeleteErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO KV").WillReturnError(errors.New("readonly database"))
	mock.ExpectExec("DELETE FROM KV").WithArgs(KeyUser).WillReturnError(errors.New("locked"))

	s := NewStore(db)
	assert.ErrorContains(t, s.Put(context.Background(), KeyToken, "x"), "readonly database")
	assert.ErrorContains(t, s.Delete(context.Background(), KeyUser), "locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDataDir_Override(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv(envHome, tmp)

	dir, err := DataDir("")
	require.NoError(t, err)
	assert.Equal(t, tmp, dir)

	explicit := filepath.Join(tmp, "explicit")
	dir, err = DataDir(explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, dir)
	assert.DirExists(t, explicit)
}

func TestDBPath(t *testing.T) {
	tmp := t.TempDir()
	p, err := DBPath(tmp)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, dbFilename), p)
}
