package castmap

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tablecraft/recast/internal/catalog"
)

// expectedTargets is the declared compatibility table, spelled out in full:
// the cast map must match it exactly, no more and no fewer.
var expectedTargets = map[string][]string{
	"smallint":         numericFamilyExpected(),
	"integer":          numericFamilyExpected(),
	"bigint":           numericFamilyExpected(),
	"decimal":          numericFamilyExpected(),
	"numeric":          numericFamilyExpected(),
	"real":             numericFamilyExpected(),
	"double precision": numericFamilyExpected(),
	"float":            numericFamilyExpected(),
	"boolean":          numericFamilyExpected(),
	"varchar": {
		"bigint", "boolean", "date", "decimal", "double precision", "email",
		"float", "integer", "interval", "numeric", "real", "smallint", "varchar",
	},
	"date":     {"date", "varchar"},
	"interval": {"interval", "varchar"},
	"email":    {"email", "varchar"},
}

func numericFamilyExpected() []string {
	return []string{
		"bigint", "boolean", "decimal", "double precision", "float",
		"integer", "numeric", "real", "smallint", "varchar",
	}
}

func TestFullCastMapCoverage(t *testing.T) {
	full := Default().Full()
	if len(full) != len(expectedTargets) {
		t.Fatalf("expected %d source types, got %d", len(expectedTargets), len(full))
	}
	for source, expected := range expectedTargets {
		actual, ok := full[source]
		if !ok {
			t.Fatalf("missing source type %q", source)
		}
		if !reflect.DeepEqual(actual, expected) {
			t.Fatalf("targets for %q:\n  got  %v\n  want %v", source, actual, expected)
		}
	}
}

func TestIdentityRuleForEveryType(t *testing.T) {
	m := Default()
	for _, typ := range m.Catalog().Types() {
		rule, err := m.RuleFor(typ.Name, typ.Name)
		if err != nil {
			t.Fatalf("identity rule for %q: %v", typ.Name, err)
		}
		if rule.Strategy.Kind != StrategyIdentity {
			t.Fatalf("expected identity strategy for %q, got %q", typ.Name, rule.Strategy.Kind)
		}
	}
}

func TestStrategySelection(t *testing.T) {
	cases := []struct {
		source   string
		target   string
		kind     StrategyKind
		function string
	}{
		{"varchar", "boolean", StrategyFunction, FuncToBoolean},
		{"numeric", "boolean", StrategyFunction, FuncToBoolean},
		{"varchar", "interval", StrategyFunction, FuncToInterval},
		{"varchar", "date", StrategyFunction, FuncToDate},
		{"varchar", "email", StrategyFunction, FuncToEmail},
		{"varchar", "numeric", StrategyFunction, FuncToNumeric},
		{"numeric", "integer", StrategyFunction, FuncToInteger},
		{"double precision", "smallint", StrategyFunction, FuncToSmallint},
		{"boolean", "bigint", StrategyFunction, FuncToBigint},
		{"boolean", "real", StrategyFunction, FuncToReal},
		{"boolean", "double precision", StrategyFunction, FuncToDouble},
		{"bigint", "varchar", StrategyNative, ""},
		{"interval", "varchar", StrategyNative, ""},
		{"smallint", "numeric", StrategyNative, ""},
		{"varchar", "real", StrategyNative, ""},
		{"integer", "double precision", StrategyNative, ""},
	}
	m := Default()
	for _, tc := range cases {
		rule, err := m.RuleFor(tc.source, tc.target)
		if err != nil {
			t.Fatalf("rule for %s -> %s: %v", tc.source, tc.target, err)
		}
		if rule.Strategy.Kind != tc.kind {
			t.Fatalf("%s -> %s: expected strategy %q, got %q", tc.source, tc.target, tc.kind, rule.Strategy.Kind)
		}
		if rule.Strategy.Function != tc.function {
			t.Fatalf("%s -> %s: expected function %q, got %q", tc.source, tc.target, tc.function, rule.Strategy.Function)
		}
	}
}

func TestUndeclaredPairIsUnsupported(t *testing.T) {
	cases := [][2]string{
		{"email", "date"},
		{"date", "integer"},
		{"interval", "numeric"},
		{"bigint", "email"},
		{"date", "interval"},
	}
	m := Default()
	for _, pair := range cases {
		_, err := m.RuleFor(pair[0], pair[1])
		if err == nil {
			t.Fatalf("expected %s -> %s to be unsupported", pair[0], pair[1])
		}
		if !errors.Is(err, catalog.ErrUnsupportedType) {
			t.Fatalf("%s -> %s: expected ErrUnsupportedType, got %v", pair[0], pair[1], err)
		}
	}
}

func TestUnknownTargetFailsBeforeRuleLookup(t *testing.T) {
	_, err := Default().RuleFor("varchar", "this_type_does_not_exist")
	if !errors.Is(err, catalog.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestTargetsForAcceptsFriendlyNames(t *testing.T) {
	m := Default()
	byAlias, err := m.TargetsFor("varchar")
	if err != nil {
		t.Fatalf("targets for varchar: %v", err)
	}
	byName, err := m.TargetsFor("character varying")
	if err != nil {
		t.Fatalf("targets for character varying: %v", err)
	}
	if !reflect.DeepEqual(byAlias, byName) {
		t.Fatal("expected identical targets for friendly and engine names")
	}
	if len(byAlias) != 13 {
		t.Fatalf("expected 13 targets for varchar, got %d", len(byAlias))
	}
}

func TestNewPanicsWhenDeclaredTargetMissingFromCatalog(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic when the catalog cannot satisfy the declared table")
		}
	}()
	// varchar declares interval as a target; a catalog without interval must
	// fail construction instead of silently shrinking the map.
	types := make([]catalog.TypeDescriptor, 0)
	for _, typ := range catalog.Default().Types() {
		if typ.Name != catalog.TypeInterval {
			types = append(types, typ)
		}
	}
	New(catalog.New(types))
}

func TestFunctionRefsCoverEveryFunctionRule(t *testing.T) {
	m := Default()
	refs := make(map[string]struct{})
	for _, ref := range m.FunctionRefs() {
		if !IsFunctionRef(ref) {
			t.Fatalf("function ref %q outside the %s namespace", ref, FunctionSchema)
		}
		refs[ref] = struct{}{}
	}
	for _, rule := range m.Rules() {
		if rule.Strategy.Kind != StrategyFunction {
			continue
		}
		if _, ok := refs[rule.Strategy.Function]; !ok {
			t.Fatalf("rule %s -> %s uses unlisted function %q", rule.Source.Name, rule.Target.Name, rule.Strategy.Function)
		}
	}
}
