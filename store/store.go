package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrPostNotFound      = errors.New("post not found")
	ErrNoUndisplayedPost = errors.New("no undisplayed post available")
	ErrHandleNotFound    = errors.New("handle not found")
	ErrHandleExists      = errors.New("handle already exists")
)

const DefaultTimeout = 15 * time.Second

// Store is the post record store. Every operation runs inside a Tx obtained
// from Transaction (read-write, committed when fn returns nil, rolled back
// otherwise) or View (read-only session). Both are bounded by the store
// timeout so a slow database cannot stall callers indefinitely.
type Store struct {
	db      *gorm.DB
	timeout time.Duration
}

func New(db *gorm.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{db: db, timeout: timeout}
}

// Tx is a store session scoped to a single caller. All methods operate on the
// same underlying transaction.
type Tx struct {
	db *gorm.DB
}

func (s *Store) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&Tx{db: db})
	})
}

func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(&Tx{db: s.db.WithContext(ctx)})
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
