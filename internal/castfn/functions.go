// Package castfn provisions the fixed library of custom cast functions the
// cast map's function-strategy rules invoke. Installing it is a deployment
// step: the alteration engine assumes the functions already exist.
package castfn

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tablecraft/recast/internal/castmap"
)

// Execer is the statement-execution slice of a pgx transaction or pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Install provisions the cast function namespace, the email domain, and
// every custom cast function. Statements are idempotent.
func Install(ctx context.Context, tx Execer) error {
	for _, stmt := range Statements() {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("install cast functions: %w", err)
		}
	}
	return nil
}

// Statements returns the library DDL in dependency order.
func Statements() []string {
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS ` + castmap.FunctionSchema,
		emailDomain,
	}
	stmts = append(stmts, functionBodies...)
	return stmts
}

// emailDomain backs the custom email type: a text domain whose check
// constraint is the format validator. Malformed addresses violate the check;
// valid ones pass through unchanged.
const emailDomain = `DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1 FROM pg_type t JOIN pg_namespace n ON n.oid = t.typnamespace
    WHERE t.typname = 'email' AND n.nspname = '` + castmap.FunctionSchema + `'
  ) THEN
    CREATE DOMAIN ` + castmap.FunctionSchema + `.email AS text
      CHECK (value ~ '^[a-zA-Z0-9.!#$%&''*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$');
  END IF;
END $$`

var functionBodies = []string{
	// Boolean accepts only true/false/t/f, case-insensitive, and exact 0/1.
	`CREATE OR REPLACE FUNCTION ` + castmap.FuncToBoolean + `(value text) RETURNS boolean AS $$
DECLARE istrue boolean;
BEGIN
  SELECT lower(value) IN ('t', 'true') INTO istrue;
  IF istrue OR lower(value) IN ('f', 'false') THEN
    RETURN istrue;
  END IF;
  RAISE EXCEPTION '% is not a boolean', value;
END;
$$ LANGUAGE plpgsql RETURNS NULL ON NULL INPUT`,

	`CREATE OR REPLACE FUNCTION ` + castmap.FuncToBoolean + `(value numeric) RETURNS boolean AS $$
BEGIN
  IF value = 0 THEN
    RETURN false;
  ELSIF value = 1 THEN
    RETURN true;
  END IF;
  RAISE EXCEPTION '% is not a boolean', value;
END;
$$ LANGUAGE plpgsql RETURNS NULL ON NULL INPUT`,

	`CREATE OR REPLACE FUNCTION ` + castmap.FuncToBoolean + `(value double precision) RETURNS boolean AS $$
BEGIN
  RETURN ` + castmap.FuncToBoolean + `(value::numeric);
END;
$$ LANGUAGE plpgsql RETURNS NULL ON NULL INPUT`,

	integerFamilyFunction(castmap.FuncToSmallint, "smallint"),
	integerFamilyFunction(castmap.FuncToInteger, "integer"),
	integerFamilyFunction(castmap.FuncToBigint, "bigint"),
	integerFamilyDoubleFunction(castmap.FuncToSmallint, "smallint"),
	integerFamilyDoubleFunction(castmap.FuncToInteger, "integer"),
	integerFamilyDoubleFunction(castmap.FuncToBigint, "bigint"),
	integerFamilyTextFunction(castmap.FuncToSmallint, "smallint"),
	integerFamilyTextFunction(castmap.FuncToInteger, "integer"),
	integerFamilyTextFunction(castmap.FuncToBigint, "bigint"),
	integerFamilyBooleanFunction(castmap.FuncToSmallint, "smallint"),
	integerFamilyBooleanFunction(castmap.FuncToInteger, "integer"),
	integerFamilyBooleanFunction(castmap.FuncToBigint, "bigint"),

	`CREATE OR REPLACE FUNCTION ` + castmap.FuncToNumeric + `(value text) RETURNS numeric AS $$
BEGIN
  RETURN value::numeric;
END;
$$ LANGUAGE plpgsql RETURNS NULL ON NULL INPUT`,

	`CREATE OR REPLACE FUNCTION ` + castmap.FuncToNumeric + `(value boolean) RETURNS numeric AS $$
BEGIN
  RETURN CASE WHEN value THEN 1 ELSE 0 END;
END;
$$ LANGUAGE plpgsql RETURNS NULL ON NULL INPUT`,

	`CREATE OR REPLACE FUNCTION ` + castmap.FuncToReal + `(value boolean) RETURNS real AS $$
BEGIN
  RETURN CASE WHEN value THEN 1.0 ELSE 0.0 END;
END;
$$ LANGUAGE plpgsql RETURNS NULL ON NULL INPUT`,

	`CREATE OR REPLACE FUNCTION ` + castmap.FuncToDouble + `(value boolean) RETURNS double precision AS $$
BEGIN
  RETURN CASE WHEN value THEN 1.0 ELSE 0.0 END;
END;
$$ LANGUAGE plpgsql RETURNS NULL ON NULL INPUT`,

	// Free-form duration phrases and clock-style durations are intervals;
	// bare numbers are not.
	`CREATE OR REPLACE FUNCTION ` + castmap.FuncToInterval + `(value text) RETURNS interval AS $$
BEGIN
  PERFORM value::numeric;
  RAISE EXCEPTION '% is a numeric, not an interval', value;
EXCEPTION
  WHEN sqlstate '22P02' THEN
    RETURN value::interval;
END;
$$ LANGUAGE plpgsql RETURNS NULL ON NULL INPUT`,

	// Only unambiguous date forms are accepted: ISO, compact, US
	// month-first, and month-name. Day-first forms fail field validation
	// inside to_date.
	`CREATE OR REPLACE FUNCTION ` + castmap.FuncToDate + `(value text) RETURNS date AS $$
DECLARE cleaned text := trim(value);
BEGIN
  IF cleaned ~ '^\d{4}-\d{1,2}-\d{1,2}$' THEN
    RETURN to_date(cleaned, 'YYYY-MM-DD');
  ELSIF cleaned ~ '^\d{8}$' THEN
    RETURN to_date(cleaned, 'YYYYMMDD');
  ELSIF cleaned ~ '^\d{1,2}/\d{1,2}/\d{4}$' THEN
    RETURN to_date(cleaned, 'MM/DD/YYYY');
  ELSIF cleaned ~* '^[a-z]{3,9}[ -]\d{4}[ -]\d{1,2}$' THEN
    RETURN to_date(cleaned, 'Mon-YYYY-DD');
  END IF;
  RAISE EXCEPTION '% is not a date', value;
END;
$$ LANGUAGE plpgsql RETURNS NULL ON NULL INPUT`,

	`CREATE OR REPLACE FUNCTION ` + castmap.FuncToEmail + `(value text) RETURNS ` + castmap.FunctionSchema + `.email AS $$
BEGIN
  RETURN value::` + castmap.FunctionSchema + `.email;
END;
$$ LANGUAGE plpgsql RETURNS NULL ON NULL INPUT`,
}

// integerFamilyFunction rejects fractional values instead of rounding them
// the way a native numeric-to-integer cast would.
func integerFamilyFunction(ref, target string) string {
	return `CREATE OR REPLACE FUNCTION ` + ref + `(value numeric) RETURNS ` + target + ` AS $$
DECLARE result ` + target + `;
BEGIN
  SELECT value::` + target + ` INTO result;
  IF result = value THEN
    RETURN result;
  END IF;
  RAISE EXCEPTION '% is not a ` + target + `', value;
END;
$$ LANGUAGE plpgsql RETURNS NULL ON NULL INPUT`
}

func integerFamilyDoubleFunction(ref, target string) string {
	return `CREATE OR REPLACE FUNCTION ` + ref + `(value double precision) RETURNS ` + target + ` AS $$
DECLARE result ` + target + `;
BEGIN
  SELECT value::` + target + ` INTO result;
  IF result = value THEN
    RETURN result;
  END IF;
  RAISE EXCEPTION '% is not a ` + target + `', value;
END;
$$ LANGUAGE plpgsql RETURNS NULL ON NULL INPUT`
}

func integerFamilyTextFunction(ref, target string) string {
	return `CREATE OR REPLACE FUNCTION ` + ref + `(value text) RETURNS ` + target + ` AS $$
BEGIN
  RETURN value::` + target + `;
END;
$$ LANGUAGE plpgsql RETURNS NULL ON NULL INPUT`
}

func integerFamilyBooleanFunction(ref, target string) string {
	return `CREATE OR REPLACE FUNCTION ` + ref + `(value boolean) RETURNS ` + target + ` AS $$
BEGIN
  RETURN CASE WHEN value THEN 1 ELSE 0 END;
END;
$$ LANGUAGE plpgsql RETURNS NULL ON NULL INPUT`
}
