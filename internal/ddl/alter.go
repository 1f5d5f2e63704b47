package ddl

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tablecraft/recast/internal/castmap"
	"github.com/tablecraft/recast/internal/catalog"
	"github.com/tablecraft/recast/internal/telemetry"
)

var tracer = telemetry.Tracer("recast.ddl")

// Execer is the statement-execution slice of a pgx transaction or pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AlterColumnType changes the declared type of one column and rewrites its
// stored data through the synthesized cast expression, as a single statement
// on the caller-supplied transaction. The executor never begins or commits:
// rolling back the enclosing transaction on error is what restores the prior
// column type and data.
func AlterColumnType(ctx context.Context, tx Execer, m *castmap.Map, table TableRef, column Column, targetType string, options *catalog.NumericOptions) error {
	ctx, span := telemetry.StartOperation(ctx, tracer, "alter_column_type",
		attribute.String("table", table.String()),
		attribute.String("column", column.Name),
		attribute.String("target_type", targetType),
	)
	defer span.End()

	stmt, err := BuildAlterStatement(m, table, column, targetType, options)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("alter column %s.%s: %w", table, column.Name, classifyEngineError(err))
	}
	return nil
}

// BuildAlterStatement renders the type-change statement without executing it.
func BuildAlterStatement(m *castmap.Map, table TableRef, column Column, targetType string, options *catalog.NumericOptions) (string, error) {
	expr, err := BuildCastExpression(m, column, targetType, options)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s",
		table.SQL(), quoteIdentIfNeeded(column.Name), expr.TypeSpec, expr.SQL), nil
}
