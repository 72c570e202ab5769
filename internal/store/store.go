// Package store persists calculation records in SQLite through gorm.
//
// Every exported operation runs in its own transaction bound to the caller's
// context, so a request acquires a connection for the duration of one call and
// releases it on commit or rollback. Records are append-only; the only removal
// path is ClearAll.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ErrInvalidPage is returned by List for a negative offset or limit.
var ErrInvalidPage = errors.New("offset and limit must be non-negative")

// Options configures Open.
type Options struct {
	Path            string
	LogLevel        string // silent, error, warn, info
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	JournalMode     string
	BusyTimeoutMs   int

	// Logger receives gorm's SQL logs. Nil disables them.
	Logger *zap.Logger
	// NowFunc stamps CreatedAt. Defaults to time.Now in UTC.
	NowFunc func() time.Time
}

// Store owns the calculations table.
type Store struct {
	db *gorm.DB
}

// Open creates or opens the database at opts.Path, applies pragmas and
// migrates the calculations table. Safe to call against an existing file.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, &StorageError{Op: "open", Err: errors.New("database path is empty")}
	}

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &StorageError{Op: "open", Err: fmt.Errorf("create db dir %s: %w", dir, err)}
		}
	}

	nowFunc := opts.NowFunc
	if nowFunc == nil {
		nowFunc = func() time.Time { return time.Now().UTC() }
	}

	cfg := &gorm.Config{
		Logger:                 newGormLogger(opts.Logger, opts.LogLevel),
		NowFunc:                nowFunc,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}

	db, err := gorm.Open(sqlite.Open(opts.Path), cfg)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("open sqlite %s: %w", opts.Path, err)}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("get sql.DB: %w", err)}
	}

	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(max(opts.MaxOpenConns, 1))
	sqlDB.SetMaxIdleConns(max(opts.MaxIdleConns, 1))
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	s := &Store{db: db}

	if err := s.applyPragmas(ctx, opts); err != nil {
		s.Close()
		return nil, err
	}

	if err := db.WithContext(ctx).AutoMigrate(&Calculation{}); err != nil {
		s.Close()
		return nil, &StorageError{Op: "migrate", Err: err}
	}

	return s, nil
}

func (s *Store) applyPragmas(ctx context.Context, opts Options) error {
	journal := opts.JournalMode
	if journal == "" {
		journal = "WAL"
	}
	busy := opts.BusyTimeoutMs
	if busy <= 0 {
		busy = 5000
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA journal_mode = %s", journal),
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy),
		"PRAGMA synchronous = NORMAL",
	}

	for _, p := range pragmas {
		if err := s.db.WithContext(ctx).Exec(p).Error; err != nil {
			return &StorageError{Op: "pragma", Err: fmt.Errorf("%q: %w", p, err)}
		}
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return &StorageError{Op: "ping", Err: err}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return &StorageError{Op: "ping", Err: err}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return &StorageError{Op: "close", Err: err}
	}
	if err := sqlDB.Close(); err != nil {
		return &StorageError{Op: "close", Err: err}
	}
	return nil
}

// Create inserts a new calculation. ID and CreatedAt are assigned here.
func (s *Store) Create(ctx context.Context, expression string, result float64) (Calculation, error) {
	calc := Calculation{
		Expression: expression,
		Result:     result,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&calc).Error
	})
	if err != nil {
		return Calculation{}, &StorageError{Op: "create", Err: err}
	}

	return calc, nil
}

// List returns up to limit calculations, newest first, after skipping offset
// rows, along with the total number of stored calculations.
//
// Returns an empty slice (not nil) when the page is empty.
func (s *Store) List(ctx context.Context, offset, limit int) ([]Calculation, int64, error) {
	if offset < 0 || limit < 0 {
		return nil, 0, ErrInvalidPage
	}

	calcs := []Calculation{}
	var total int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Calculation{}).Count(&total).Error; err != nil {
			return fmt.Errorf("count: %w", err)
		}

		if limit == 0 {
			return nil
		}

		return tx.
			Order("created_at DESC").
			Order("id DESC").
			Offset(offset).
			Limit(limit).
			Find(&calcs).Error
	})
	if err != nil {
		return nil, 0, &StorageError{Op: "list", Err: err}
	}

	return calcs, total, nil
}

// ClearAll deletes every calculation and reports how many rows were removed.
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	var deleted int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Calculation{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, &StorageError{Op: "clear", Err: err}
	}

	return deleted, nil
}
