package ddl

import (
	"errors"
	"strings"
	"testing"

	"github.com/tablecraft/recast/internal/castmap"
	"github.com/tablecraft/recast/internal/catalog"
)

func TestBuildProjection(t *testing.T) {
	two := 2
	columns := []Column{
		{Name: "id", Type: "integer"},
		{Name: "amount", Type: "varchar"},
		{Name: "Created On", Type: "varchar"},
	}
	defs := []ColumnDefinition{
		{Name: "id", Type: "integer"},
		{Name: "amount", Type: "numeric", Options: &catalog.NumericOptions{Precision: 5, Scale: &two}},
		{Name: "created_on", Type: "date"},
	}
	stmt, err := BuildProjection(castmap.Default(), TableRef{Schema: "public", Name: "orders"}, columns, defs)
	if err != nil {
		t.Fatalf("build projection: %v", err)
	}
	want := `SELECT id AS id, ` +
		`CAST(recast_types.cast_to_numeric(amount) AS numeric(5, 2)) AS amount, ` +
		`recast_types.cast_to_date("Created On") AS created_on ` +
		`FROM "public"."orders"`
	if stmt != want {
		t.Fatalf("unexpected projection:\n  got  %s\n  want %s", stmt, want)
	}
}

func TestBuildProjectionCountMismatch(t *testing.T) {
	columns := []Column{{Name: "id", Type: "integer"}, {Name: "amount", Type: "varchar"}}
	defs := []ColumnDefinition{{Name: "id", Type: "integer"}}
	_, err := BuildProjection(castmap.Default(), TableRef{Name: "orders"}, columns, defs)
	if err == nil {
		t.Fatal("expected an error for mismatched column counts")
	}
	if !strings.Contains(err.Error(), "1 column definitions for 2 table columns") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestBuildProjectionUnsupportedPairFailsEarly(t *testing.T) {
	columns := []Column{{Name: "when", Type: "date"}}
	defs := []ColumnDefinition{{Name: "when", Type: "integer"}}
	_, err := BuildProjection(castmap.Default(), TableRef{Name: "orders"}, columns, defs)
	if !errors.Is(err, catalog.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestColumnTypeName(t *testing.T) {
	cases := []struct {
		name         string
		dataType     string
		udtSchema    *string
		udtName      *string
		domainSchema *string
		domainName   *string
		want         string
	}{
		{name: "builtin", dataType: "character varying", want: "character varying"},
		{name: "builtin upper", dataType: "NUMERIC", want: "numeric"},
		{
			name:         "domain outside pg_catalog",
			dataType:     "text",
			domainSchema: strPtr("recast_types"),
			domainName:   strPtr("email"),
			want:         "recast_types.email",
		},
		{
			name:      "user-defined type",
			dataType:  "USER-DEFINED",
			udtSchema: strPtr("app"),
			udtName:   strPtr("mood"),
			want:      "app.mood",
		},
		{
			name:      "user-defined type in pg_catalog stays bare",
			dataType:  "USER-DEFINED",
			udtSchema: strPtr("pg_catalog"),
			udtName:   strPtr("tsvector"),
			want:      "tsvector",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := columnTypeName(tc.dataType, tc.udtSchema, tc.udtName, tc.domainSchema, tc.domainName)
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func strPtr(v string) *string {
	return &v
}
