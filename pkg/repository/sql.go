package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/struktos/unitofwork/pkg/driver"
)

// SQLExecutor is the query surface a SQL transaction handle exposes.
// The postgres and mysql store handles implement it alongside driver.Handle.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// EntityMapper defines how to map between entities and database rows
type EntityMapper[T any, ID comparable] interface {
	// ToRow converts an entity to column names and values for INSERT/UPDATE
	ToRow(entity *T) (columns []string, values []interface{}, err error)

	// FromRow scans a database row into an entity
	FromRow(rows *sql.Rows) (*T, error)

	// GetID extracts the ID from an entity
	GetID(entity *T) ID
}

// SQLRepository is a CRUD repository bound to one transaction-scoped handle.
// Every statement it issues runs inside that transaction; the repository
// itself is stateless and must be discarded when the transaction ends.
type SQLRepository[T any, ID comparable] struct {
	exec      SQLExecutor
	tableName string
	idColumn  string
	mapper    EntityMapper[T, ID]
}

// NewSQLRepository binds a repository to a transaction handle. The handle must
// come from a SQL adapter; a non-SQL handle is rejected.
func NewSQLRepository[T any, ID comparable](
	h driver.Handle,
	tableName string,
	idColumn string,
	mapper EntityMapper[T, ID],
) (*SQLRepository[T, ID], error) {
	exec, ok := h.(SQLExecutor)
	if !ok {
		return nil, fmt.Errorf("transaction handle %T does not execute SQL", h)
	}
	return &SQLRepository[T, ID]{
		exec:      exec,
		tableName: tableName,
		idColumn:  idColumn,
		mapper:    mapper,
	}, nil
}

// Create inserts a new entity within the bound transaction
func (r *SQLRepository[T, ID]) Create(ctx context.Context, entity *T) error {
	if entity == nil {
		return errors.New("entity cannot be nil")
	}

	columns, values, err := r.mapper.ToRow(entity)
	if err != nil {
		return fmt.Errorf("failed to map entity to row: %w", err)
	}

	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		r.tableName,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	if _, err := r.exec.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("failed to create entity: %w", err)
	}
	return nil
}

// FindByID retrieves an entity by its ID
func (r *SQLRepository[T, ID]) FindByID(ctx context.Context, id ID) (*T, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", r.tableName, r.idColumn)

	rows, err := r.exec.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query entity: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, sql.ErrNoRows
	}

	entity, err := r.mapper.FromRow(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan entity: %w", err)
	}
	return entity, nil
}

// FindMany retrieves entities matching the query options. Filters combine
// with AND logic; the generated WHERE clause orders fields alphabetically so
// query text is deterministic. Returns an empty slice when nothing matches.
func (r *SQLRepository[T, ID]) FindMany(ctx context.Context, opts QueryOptions) ([]T, error) {
	query := fmt.Sprintf("SELECT * FROM %s", r.tableName)
	where, args := buildWhere(opts.Filter, 1)
	query += where

	if opts.Sort.Field != "" {
		order := "ASC"
		if opts.Sort.Order == SortDesc {
			order = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", opts.Sort.Field, order)
	}

	if opts.Pagination.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, opts.Pagination.Limit(), opts.Pagination.Offset())
	}

	rows, err := r.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	entities := []T{}
	for rows.Next() {
		entity, err := r.mapper.FromRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, *entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return entities, nil
}

// Count returns the number of entities matching the filter
func (r *SQLRepository[T, ID]) Count(ctx context.Context, filter Filter) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", r.tableName)
	where, args := buildWhere(filter, 1)
	query += where

	var count int64
	if err := r.exec.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	return count, nil
}

// Update updates an existing entity. Entities implementing Versioned get an
// optimistic-lock version check; a mismatch returns OptimisticLockError.
// Returns sql.ErrNoRows when the entity does not exist.
func (r *SQLRepository[T, ID]) Update(ctx context.Context, entity *T) error {
	if entity == nil {
		return errors.New("entity cannot be nil")
	}

	id := r.mapper.GetID(entity)
	columns, values, err := r.mapper.ToRow(entity)
	if err != nil {
		return fmt.Errorf("failed to map entity to row: %w", err)
	}

	if versioned, ok := any(entity).(Versioned); ok {
		return r.updateVersioned(ctx, versioned, id, columns, values)
	}

	setClauses := make([]string, len(columns))
	for i, col := range columns {
		setClauses[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = $%d",
		r.tableName,
		strings.Join(setClauses, ", "),
		r.idColumn,
		len(values)+1,
	)
	values = append(values, id)

	result, err := r.exec.ExecContext(ctx, query, values...)
	if err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *SQLRepository[T, ID]) updateVersioned(
	ctx context.Context,
	versioned Versioned,
	id ID,
	columns []string,
	values []interface{},
) error {
	currentVersion := versioned.GetVersion()
	newVersion := currentVersion + 1

	setClauses := make([]string, len(columns))
	for i, col := range columns {
		setClauses[i] = fmt.Sprintf("%s = $%d", col, i+1)
		if col == "version" {
			values[i] = newVersion
		}
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = $%d AND version = $%d",
		r.tableName,
		strings.Join(setClauses, ", "),
		r.idColumn,
		len(values)+1,
		len(values)+2,
	)
	values = append(values, id, currentVersion)

	result, err := r.exec.ExecContext(ctx, query, values...)
	if err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var actualVersion int64
		checkQuery := fmt.Sprintf("SELECT version FROM %s WHERE %s = $1", r.tableName, r.idColumn)
		err := r.exec.QueryRowContext(ctx, checkQuery, id).Scan(&actualVersion)
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		if err != nil {
			return fmt.Errorf("failed to check entity version: %w", err)
		}
		return &OptimisticLockError{
			Table:    r.tableName,
			EntityID: fmt.Sprintf("%v", id),
			Expected: currentVersion,
			Actual:   actualVersion,
		}
	}

	versioned.SetVersion(newVersion)
	return nil
}

// Delete removes an entity by its ID
func (r *SQLRepository[T, ID]) Delete(ctx context.Context, id ID) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", r.tableName, r.idColumn)

	result, err := r.exec.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// buildWhere renders a deterministic WHERE clause for filter, numbering
// placeholders from start.
func buildWhere(filter Filter, start int) (string, []interface{}) {
	if len(filter) == 0 {
		return "", nil
	}
	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	clauses := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields))
	for i, field := range fields {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", field, start+i))
		args = append(args, filter[field])
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
