// Package gormstore implements store.Store on MySQL through GORM.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql" // MySQL error numbers
	"gorm.io/gorm"                   // GORM ORM library

	"lucky_spin/internal/store"
)

// MySQL server error numbers worth a retry or a typed mapping
const (
	errLockWaitTimeout = 1205 // ER_LOCK_WAIT_TIMEOUT
	errDeadlock        = 1213 // ER_LOCK_DEADLOCK
	errDuplicateEntry  = 1062 // ER_DUP_ENTRY
)

// Store is the GORM-backed store.Store
type Store struct {
	db *gorm.DB
}

// New wraps an open GORM connection
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithinTx runs fn inside a database transaction
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(ctx, &Tx{db: gtx}) // Returning an error rolls back
	})
	return translate(err)
}

// translate maps driver errors onto the store sentinels, leaving others untouched
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errLockWaitTimeout, errDeadlock:
			return fmt.Errorf("%w: %v", store.ErrTransient, err) // Safe to re-run the whole transaction
		case errDuplicateEntry:
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		}
	}
	return err
}
