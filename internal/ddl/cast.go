package ddl

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tablecraft/recast/internal/castmap"
	"github.com/tablecraft/recast/internal/catalog"
)

// Column identifies an existing column and its declared type.
type Column struct {
	Name string
	Type string
}

// TableRef identifies a table, optionally schema-qualified.
type TableRef struct {
	Schema string
	Name   string
}

// SQL renders the quoted, qualified table name.
func (t TableRef) SQL() string {
	if t.Schema != "" {
		return quoteIdent(t.Schema) + "." + quoteIdent(t.Name)
	}
	return quoteIdent(t.Name)
}

func (t TableRef) String() string {
	if t.Schema != "" {
		return t.Schema + "." + t.Name
	}
	return t.Name
}

// ParseTableRef splits an optionally schema-qualified table name.
func ParseTableRef(name string) TableRef {
	name = strings.TrimSpace(name)
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		return TableRef{Schema: name[:idx], Name: name[idx+1:]}
	}
	return TableRef{Name: name}
}

// CastExpression is a synthesized conversion over a column reference.
// Transient: built per call, rendered into one statement, then discarded.
type CastExpression struct {
	Strategy castmap.StrategyKind
	// SQL is the conversion expression over the (quoted) column reference.
	SQL string
	// TypeSpec is the rendered target type, including numeric options.
	TypeSpec string
}

// BuildCastExpression synthesizes the conversion expression for altering
// column to targetType. Fails before any engine interaction when the target
// is unknown or the (source, target) pair is undeclared.
func BuildCastExpression(m *castmap.Map, column Column, targetType string, options *catalog.NumericOptions) (CastExpression, error) {
	rule, err := m.RuleFor(column.Type, targetType)
	if err != nil {
		return CastExpression{}, err
	}

	ref := quoteIdentIfNeeded(column.Name)
	typeSpec := renderTypeSpec(rule.Target, options)

	switch rule.Strategy.Kind {
	case castmap.StrategyIdentity:
		if options == nil {
			return CastExpression{
				Strategy: castmap.StrategyIdentity,
				SQL:      ref,
				TypeSpec: typeSpec,
			}, nil
		}
		// Re-parameterizing the same type is a native cast.
		return CastExpression{
			Strategy: castmap.StrategyNative,
			SQL:      renderCast(ref, typeSpec),
			TypeSpec: typeSpec,
		}, nil
	case castmap.StrategyFunction:
		inner := rule.Strategy.Function + "(" + ref + ")"
		if options != nil && rule.Target.NumericOptions {
			inner = renderCast(inner, typeSpec)
		}
		return CastExpression{
			Strategy: castmap.StrategyFunction,
			SQL:      inner,
			TypeSpec: typeSpec,
		}, nil
	default:
		return CastExpression{
			Strategy: castmap.StrategyNative,
			SQL:      renderCast(ref, typeSpec),
			TypeSpec: typeSpec,
		}, nil
	}
}

func renderCast(inner, typeSpec string) string {
	return "CAST(" + inner + " AS " + typeSpec + ")"
}

func renderTypeSpec(target catalog.TypeDescriptor, options *catalog.NumericOptions) string {
	if options == nil || !target.NumericOptions {
		return target.Name
	}
	spec := target.Name + "(" + strconv.Itoa(options.Precision)
	if options.Scale != nil {
		spec += ", " + strconv.Itoa(*options.Scale)
	}
	return spec + ")"
}

var simpleIdentPattern = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)

// quoteIdentIfNeeded leaves simple lower-case identifiers bare so rendered
// expressions stay readable; anything else is quoted.
func quoteIdentIfNeeded(name string) string {
	if simpleIdentPattern.MatchString(name) {
		return name
	}
	return quoteIdent(name)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
