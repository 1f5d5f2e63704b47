package ddl

import (
	"context"
	"fmt"
	"strings"

	"github.com/tablecraft/recast/internal/castmap"
	"github.com/tablecraft/recast/internal/catalog"
)

// ColumnDefinition names one projected output column and its target type.
type ColumnDefinition struct {
	Name    string                  `yaml:"name" validate:"required"`
	Type    string                  `yaml:"type" validate:"required"`
	Options *catalog.NumericOptions `yaml:"options"`
}

// Record holds the projected values for one source row, keyed by the
// definition names.
type Record map[string]any

// BuildProjection renders a SELECT that applies each definition's cast
// expression over the table's live columns, matched positionally. The live
// columns are never altered.
func BuildProjection(m *castmap.Map, table TableRef, columns []Column, defs []ColumnDefinition) (string, error) {
	if len(defs) != len(columns) {
		return "", fmt.Errorf("project %s: %d column definitions for %d table columns", table, len(defs), len(columns))
	}
	exprs := make([]string, 0, len(defs))
	for i, def := range defs {
		expr, err := BuildCastExpression(m, columns[i], def.Type, def.Options)
		if err != nil {
			return "", err
		}
		exprs = append(exprs, expr.SQL+" AS "+quoteIdentIfNeeded(def.Name))
	}
	return "SELECT " + strings.Join(exprs, ", ") + " FROM " + table.SQL(), nil
}

// ProjectRecords computes, for every stored row, the value each definition
// would hold under the corresponding cast, preserving row order. Any row that
// cannot be cast fails the whole projection; no rows are silently dropped.
func ProjectRecords(ctx context.Context, q Querier, m *castmap.Map, table TableRef, defs []ColumnDefinition) ([]Record, error) {
	columns, err := TableColumns(ctx, q, table)
	if err != nil {
		return nil, err
	}
	stmt, err := BuildProjection(m, table, columns, defs)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", table, classifyEngineError(err))
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", table, classifyEngineError(err))
		}
		record := make(Record, len(defs))
		for i, def := range defs {
			record[def.Name] = values[i]
		}
		records = append(records, record)
	}
	// Cast failures on individual rows surface here, after iteration.
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("project %s: %w", table, classifyEngineError(err))
	}
	return records, nil
}
