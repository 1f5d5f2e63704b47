package ddl

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tablecraft/recast/internal/castmap"
	"github.com/tablecraft/recast/internal/catalog"
)

type fakeExecer struct {
	statements []string
	err        error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.statements = append(f.statements, sql)
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("ALTER TABLE"), nil
}

func TestBuildAlterStatement(t *testing.T) {
	two := 2
	stmt, err := BuildAlterStatement(castmap.Default(),
		TableRef{Schema: "public", Name: "testtable"},
		Column{Name: "testcol", Type: "varchar"},
		"numeric",
		&catalog.NumericOptions{Precision: 5, Scale: &two})
	if err != nil {
		t.Fatalf("build alter statement: %v", err)
	}
	want := `ALTER TABLE "public"."testtable" ALTER COLUMN testcol TYPE numeric(5, 2) USING CAST(recast_types.cast_to_numeric(testcol) AS numeric(5, 2))`
	if stmt != want {
		t.Fatalf("unexpected statement:\n  got  %s\n  want %s", stmt, want)
	}
}

func TestAlterColumnTypeExecutesSingleStatement(t *testing.T) {
	exec := &fakeExecer{}
	err := AlterColumnType(context.Background(), exec, castmap.Default(),
		TableRef{Name: "testtable"}, Column{Name: "testcol", Type: "varchar"}, "boolean", nil)
	if err != nil {
		t.Fatalf("alter column: %v", err)
	}
	if len(exec.statements) != 1 {
		t.Fatalf("expected one statement, got %d", len(exec.statements))
	}
	want := `ALTER TABLE "testtable" ALTER COLUMN testcol TYPE boolean USING recast_types.cast_to_boolean(testcol)`
	if exec.statements[0] != want {
		t.Fatalf("unexpected statement:\n  got  %s\n  want %s", exec.statements[0], want)
	}
}

func TestAlterColumnTypeUnsupportedTargetNeverReachesEngine(t *testing.T) {
	exec := &fakeExecer{}
	err := AlterColumnType(context.Background(), exec, castmap.Default(),
		TableRef{Name: "testtable"}, Column{Name: "testcol", Type: "date"}, "integer", nil)
	if !errors.Is(err, catalog.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if len(exec.statements) != 0 {
		t.Fatalf("expected no engine statements, got %d", len(exec.statements))
	}
}

func TestAlterColumnTypeClassifiesParameterError(t *testing.T) {
	exec := &fakeExecer{err: &pgconn.PgError{Code: "22023", Message: "scale must be between 0 and precision"}}
	err := AlterColumnType(context.Background(), exec, castmap.Default(),
		TableRef{Name: "testtable"}, Column{Name: "testcol", Type: "varchar"},
		"numeric", &catalog.NumericOptions{Precision: 2, Scale: intPtr(3)})
	if err == nil {
		t.Fatal("expected an error")
	}
	paramErr, ok := AsParameterError(err)
	if !ok {
		t.Fatalf("expected ParameterError, got %v", err)
	}
	if paramErr.Cause.Code != "22023" {
		t.Fatalf("expected cause preserved, got %q", paramErr.Cause.Code)
	}
	if _, ok := AsDataCastError(err); ok {
		t.Fatal("did not expect a DataCastError classification")
	}
}

func TestAlterColumnTypeClassifiesDataCastErrors(t *testing.T) {
	dataCastCodes := []string{"22P02", "22003", "23514", "P0001"}
	for _, code := range dataCastCodes {
		exec := &fakeExecer{err: &pgconn.PgError{Code: code, Message: "bad value"}}
		err := AlterColumnType(context.Background(), exec, castmap.Default(),
			TableRef{Name: "testtable"}, Column{Name: "testcol", Type: "varchar"}, "integer", nil)
		if err == nil {
			t.Fatalf("code %s: expected an error", code)
		}
		castErr, ok := AsDataCastError(err)
		if !ok {
			t.Fatalf("code %s: expected DataCastError, got %v", code, err)
		}
		if castErr.Cause.Code != code {
			t.Fatalf("code %s: expected cause preserved, got %q", code, castErr.Cause.Code)
		}
	}
}

func TestAlterColumnTypePropagatesUnrelatedEngineErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	exec := &fakeExecer{err: pgErr}
	err := AlterColumnType(context.Background(), exec, castmap.Default(),
		TableRef{Name: "missing"}, Column{Name: "testcol", Type: "varchar"}, "integer", nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := AsParameterError(err); ok {
		t.Fatal("did not expect a ParameterError classification")
	}
	if _, ok := AsDataCastError(err); ok {
		t.Fatal("did not expect a DataCastError classification")
	}
	var got *pgconn.PgError
	if !errors.As(err, &got) || got.Code != "42P01" {
		t.Fatalf("expected the engine error propagated verbatim, got %v", err)
	}
}

func TestClassifyEngineErrorPassesThroughNonEngineErrors(t *testing.T) {
	plain := errors.New("connection reset")
	if got := classifyEngineError(plain); got != plain {
		t.Fatalf("expected error unchanged, got %v", got)
	}
	if classifyEngineError(nil) != nil {
		t.Fatal("expected nil unchanged")
	}
}

func intPtr(v int) *int {
	return &v
}
