// Package document provides a document-store repository bound to a
// transaction-scoped handle, mirroring the SQL repository for databases that
// store documents instead of rows.
package document

import (
	"context"
	"fmt"

	"github.com/struktos/unitofwork/pkg/driver"
)

// Executor is the document operation surface a document-store transaction
// handle exposes. The mongodb store handle implements it alongside
// driver.Handle.
type Executor interface {
	InsertOne(ctx context.Context, collection string, doc interface{}) error
	FindOne(ctx context.Context, collection string, filter map[string]interface{}, result interface{}) error
	UpdateOne(ctx context.Context, collection string, filter, update map[string]interface{}) (int64, error)
	DeleteOne(ctx context.Context, collection string, filter map[string]interface{}) (int64, error)
	Count(ctx context.Context, collection string, filter map[string]interface{}) (int64, error)
}

// ErrNotFound is returned when no document matches the given ID.
var ErrNotFound = fmt.Errorf("document not found")

// Repository is a document CRUD repository bound to one transaction-scoped
// handle. Like its SQL counterpart it is stateless and must be discarded when
// the transaction ends.
type Repository[T any, ID comparable] struct {
	exec       Executor
	collection string
	idField    string
}

// NewRepository binds a document repository to a transaction handle. The
// handle must come from a document-store adapter.
func NewRepository[T any, ID comparable](h driver.Handle, collection, idField string) (*Repository[T, ID], error) {
	exec, ok := h.(Executor)
	if !ok {
		return nil, fmt.Errorf("transaction handle %T does not execute document operations", h)
	}
	return &Repository[T, ID]{
		exec:       exec,
		collection: collection,
		idField:    idField,
	}, nil
}

// Create inserts a new document within the bound transaction.
func (r *Repository[T, ID]) Create(ctx context.Context, entity *T) error {
	if entity == nil {
		return fmt.Errorf("entity cannot be nil")
	}
	if err := r.exec.InsertOne(ctx, r.collection, entity); err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// FindByID retrieves a document by its ID field.
func (r *Repository[T, ID]) FindByID(ctx context.Context, id ID) (*T, error) {
	var entity T
	err := r.exec.FindOne(ctx, r.collection, map[string]interface{}{r.idField: id}, &entity)
	if err != nil {
		return nil, fmt.Errorf("failed to find document: %w", err)
	}
	return &entity, nil
}

// Update replaces the fields of the document with the given ID.
func (r *Repository[T, ID]) Update(ctx context.Context, id ID, entity *T) error {
	if entity == nil {
		return fmt.Errorf("entity cannot be nil")
	}
	matched, err := r.exec.UpdateOne(ctx, r.collection,
		map[string]interface{}{r.idField: id},
		map[string]interface{}{"$set": entity},
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if matched == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the document with the given ID.
func (r *Repository[T, ID]) Delete(ctx context.Context, id ID) error {
	deleted, err := r.exec.DeleteOne(ctx, r.collection, map[string]interface{}{r.idField: id})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of documents matching the filter.
func (r *Repository[T, ID]) Count(ctx context.Context, filter map[string]interface{}) (int64, error) {
	count, err := r.exec.Count(ctx, r.collection, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}
