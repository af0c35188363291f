// Package repository gives the gorm stores a typed table handle so each
// store only spells out its own filters.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/consensusai/consensus/pkg/db"
	"github.com/consensusai/consensus/pkg/db/option"
	"gorm.io/gorm"
)

// ErrConflict wraps unique-index violations raised by Insert.
var ErrConflict = errors.New("unique_conflict")

// Table is a typed handle on the table backing model T. Struct filters
// follow gorm semantics: zero-valued fields are ignored.
type Table[T any] struct {
	db *gorm.DB
}

func New[T any](conn *gorm.DB) *Table[T] {
	return &Table[T]{db: conn}
}

// Tx returns a handle bound to an open transaction.
func (t *Table[T]) Tx(tx *gorm.DB) *Table[T] {
	return &Table[T]{db: tx}
}

func (t *Table[T]) Insert(ctx context.Context, row *T) error {
	err := t.db.WithContext(ctx).Create(row).Error
	if err != nil && db.IsDuplicateKeyErr(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func (t *Table[T]) Save(ctx context.Context, row *T) error {
	return t.db.WithContext(ctx).Save(row).Error
}

// First returns nil, nil when no row matches.
func (t *Table[T]) First(ctx context.Context, where *T, opts ...option.QueryOption) (*T, error) {
	var row T
	err := t.scope(ctx, where, opts).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &row, nil
}

func (t *Table[T]) List(ctx context.Context, where *T, opts ...option.QueryOption) ([]*T, error) {
	var rows []*T
	if err := t.scope(ctx, where, opts).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *Table[T]) Count(ctx context.Context, where *T, opts ...option.QueryOption) (int64, error) {
	var n int64
	err := t.scope(ctx, where, opts).Count(&n).Error
	return n, err
}

func (t *Table[T]) scope(ctx context.Context, where *T, opts []option.QueryOption) *gorm.DB {
	stmt := t.db.WithContext(ctx).Model(new(T))
	if where != nil {
		stmt = stmt.Where(where)
	}
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}
