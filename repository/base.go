// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BaseRepository provides common repository functionality with transaction support
type BaseRepository[T any] struct {
	DB     *gorm.DB
	Schema *Schema
}

// NewBaseRepository creates a new base repository instance
func NewBaseRepository[T any](db *gorm.DB, schema *Schema) *BaseRepository[T] {
	return &BaseRepository[T]{
		DB:     db,
		Schema: schema,
	}
}

// getDB returns the appropriate database connection (with or without transaction)
func (r *BaseRepository[T]) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.DB.WithContext(ctx)
}

// getDBForWrite returns database connection with transaction for write operations
func (r *BaseRepository[T]) getDBForWrite(ctx context.Context) (*gorm.DB, bool, error) {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx, false, nil // Transaction already exists, don't commit
	}

	// Start new transaction for write operation
	tx := r.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	return tx, true, nil // New transaction, should commit
}

// column returns the quoted physical column for a logical column of a table
func column(t TableShape, logical string) clause.Column {
	return clause.Column{Name: t.Col(logical)}
}

// selectColumns selects physical columns aliased back to their logical names
// so rows scan into the default-shape models
func selectColumns(t TableShape, logical ...string) clause.Select {
	cols := make([]clause.Column, 0, len(logical))
	for _, name := range logical {
		c := clause.Column{Name: t.Col(name)}
		if c.Name != name {
			c.Alias = name
		}
		cols = append(cols, c)
	}
	return clause.Select{Columns: cols}
}

// WithTransaction executes a function within a database transaction
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(context.Context) error) (err error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", r)
		}
	}()

	ctx = context.WithValue(ctx, TxContextKey, tx)

	if err := fn(ctx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
