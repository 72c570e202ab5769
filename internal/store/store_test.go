package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// stepClock advances by one second on every call so insert order is visible
// in created_at.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// createTestStore opens a fresh database in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	clock := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s, err := Open(context.Background(), Options{
		Path:    filepath.Join(t.TempDir(), "test.db"),
		NowFunc: clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	require.Error(t, err)

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "open", storageErr.Op)
}

func TestOpen_CreatesParentDirAndIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "calc.db")

	s1, err := Open(context.Background(), Options{Path: path})
	require.NoError(t, err)
	_, err = s1.Create(context.Background(), "1+1", 2)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(context.Background(), Options{Path: path})
	require.NoError(t, err)
	defer s2.Close()

	calcs, total, err := s2.List(context.Background(), 0, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, calcs, 1)
	assert.Equal(t, "1+1", calcs[0].Expression)
}

func TestPing(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestCreate_AssignsIDAndTimestamp(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, "2+2", 4)
	require.NoError(t, err)
	second, err := s.Create(ctx, "2+2", 4)
	require.NoError(t, err)

	assert.NotZero(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID, "duplicates still get their own row")
	assert.Equal(t, "2+2", first.Expression)
	assert.Equal(t, 4.0, first.Result)
	assert.False(t, first.CreatedAt.IsZero())
	assert.False(t, second.CreatedAt.Before(first.CreatedAt))
}

func TestList_NewestFirstWithPagination(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, expr := range []string{"1", "2", "3", "4", "5"} {
		_, err := s.Create(ctx, expr, 0)
		require.NoError(t, err)
	}

	calcs, total, err := s.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, calcs, 2)
	assert.Equal(t, "5", calcs[0].Expression)
	assert.Equal(t, "4", calcs[1].Expression)

	calcs, total, err = s.List(ctx, 3, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, calcs, 2)
	assert.Equal(t, "2", calcs[0].Expression)
	assert.Equal(t, "1", calcs[1].Expression)

	for i := 1; i < len(calcs); i++ {
		assert.False(t, calcs[i].CreatedAt.After(calcs[i-1].CreatedAt))
	}
}

func TestList_SameTimestampFallsBackToID(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s, err := Open(context.Background(), Options{
		Path:    filepath.Join(t.TempDir(), "test.db"),
		NowFunc: func() time.Time { return fixed },
	})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	a, err := s.Create(ctx, "a", 1)
	require.NoError(t, err)
	b, err := s.Create(ctx, "b", 2)
	require.NoError(t, err)

	calcs, _, err := s.List(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, calcs, 1)
	assert.Equal(t, b.ID, calcs[0].ID)
	assert.NotEqual(t, a.ID, calcs[0].ID)
}

func TestList_ZeroLimitAndPastEnd(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "1+1", 2)
	require.NoError(t, err)

	calcs, total, err := s.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, calcs)
	assert.Empty(t, calcs)
	assert.Equal(t, int64(1), total)

	calcs, total, err = s.List(ctx, 10, 5)
	require.NoError(t, err)
	assert.NotNil(t, calcs)
	assert.Empty(t, calcs)
	assert.Equal(t, int64(1), total)
}

func TestList_NegativePage(t *testing.T) {
	s := createTestStore(t)

	_, _, err := s.List(context.Background(), -1, 10)
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, _, err = s.List(context.Background(), 0, -1)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestClearAll(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, "1*1", 1)
		require.NoError(t, err)
	}

	deleted, err := s.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	calcs, total, err := s.List(ctx, 0, 50)
	require.NoError(t, err)
	assert.Empty(t, calcs)
	assert.Equal(t, int64(0), total)

	deleted, err = s.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestOperationsAfterCloseReturnStorageError(t *testing.T) {
	s, err := Open(context.Background(), Options{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ctx := context.Background()
	var storageErr *StorageError

	_, err = s.Create(ctx, "1+1", 2)
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "create", storageErr.Op)

	_, _, err = s.List(ctx, 0, 10)
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "list", storageErr.Op)

	_, err = s.ClearAll(ctx)
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "clear", storageErr.Op)
}

func TestCanceledContextFails(t *testing.T) {
	s := createTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Create(ctx, "1+1", 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStorageErrorUnwraps(t *testing.T) {
	inner := errors.New("disk full")
	err := error(&StorageError{Op: "create", Err: inner})

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "store create: disk full", err.Error())
}

func TestNewGormLogger(t *testing.T) {
	assert.Equal(t, gormlogger.Discard, newGormLogger(nil, "info"))
	assert.NotNil(t, newGormLogger(zap.NewNop(), "silent"))
	assert.NotNil(t, newGormLogger(zap.NewNop(), "bogus"))
}
