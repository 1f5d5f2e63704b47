package ddl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ErrColumnNotFound reports a column absent from the live table.
var ErrColumnNotFound = errors.New("column not found")

// Querier is the query slice of a pgx transaction, connection, or pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const columnTypeQuery = `SELECT column_name, data_type, udt_schema, udt_name, domain_schema, domain_name
	 FROM information_schema.columns
	 WHERE table_schema = $1 AND table_name = $2`

// ResolveColumn loads a column's declared type from the engine catalog so
// callers need not track it themselves.
func ResolveColumn(ctx context.Context, q Querier, table TableRef, name string) (Column, error) {
	row := q.QueryRow(ctx, columnTypeQuery+" AND column_name = $3", schemaOrPublic(table), table.Name, name)
	column, err := scanColumn(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Column{}, fmt.Errorf("resolve column %s.%s: %w", table, name, ErrColumnNotFound)
		}
		return Column{}, fmt.Errorf("resolve column %s.%s: %w", table, name, err)
	}
	return column, nil
}

// TableColumns lists a table's columns in ordinal order.
func TableColumns(ctx context.Context, q Querier, table TableRef) ([]Column, error) {
	rows, err := q.Query(ctx, columnTypeQuery+" ORDER BY ordinal_position", schemaOrPublic(table), table.Name)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	defer rows.Close()

	columns := make([]Column, 0)
	for rows.Next() {
		column, err := scanColumn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("list columns of %s: table has no columns or does not exist", table)
	}
	return columns, nil
}

func scanColumn(row pgx.Row) (Column, error) {
	var name, dataType string
	var udtSchema, udtName, domainSchema, domainName *string
	if err := row.Scan(&name, &dataType, &udtSchema, &udtName, &domainSchema, &domainName); err != nil {
		return Column{}, err
	}
	return Column{Name: name, Type: columnTypeName(dataType, udtSchema, udtName, domainSchema, domainName)}, nil
}

// columnTypeName reconstructs the catalog type name the way the engine
// reports it: domains and user-defined types are schema-qualified unless they
// live in pg_catalog.
func columnTypeName(dataType string, udtSchema, udtName, domainSchema, domainName *string) string {
	if domainName != nil && *domainName != "" {
		return qualifyTypeName(deref(domainSchema), *domainName)
	}
	if strings.EqualFold(dataType, "USER-DEFINED") && udtName != nil {
		return qualifyTypeName(deref(udtSchema), *udtName)
	}
	return strings.ToLower(strings.TrimSpace(dataType))
}

func qualifyTypeName(schema, name string) string {
	schema = strings.ToLower(strings.TrimSpace(schema))
	name = strings.ToLower(strings.TrimSpace(name))
	if schema == "" || schema == "pg_catalog" {
		return name
	}
	return schema + "." + name
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func schemaOrPublic(table TableRef) string {
	if table.Schema == "" {
		return "public"
	}
	return table.Schema
}
