package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// errConcurrentTransition aborts a transaction when a compare-and-swap status
// update matched no row, leaving the audit entry rolled back with it.
var errConcurrentTransition = errors.New("status changed concurrently")

// runInTransaction executes fn inside a single database transaction so a
// status transition and its audit entry commit or roll back together. Without
// a database handle fn runs directly against the repos' own connections.
func runInTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}
