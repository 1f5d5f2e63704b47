package castmap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tablecraft/recast/internal/catalog"
)

// FunctionSchema is the namespace holding the custom cast function library.
// The functions must be installed before any function-strategy cast is issued.
const FunctionSchema = "recast_types"

// Schema-qualified references for every custom cast function.
const (
	FuncToBoolean  = FunctionSchema + ".cast_to_boolean"
	FuncToSmallint = FunctionSchema + ".cast_to_smallint"
	FuncToInteger  = FunctionSchema + ".cast_to_integer"
	FuncToBigint   = FunctionSchema + ".cast_to_bigint"
	FuncToNumeric  = FunctionSchema + ".cast_to_numeric"
	FuncToReal     = FunctionSchema + ".cast_to_real"
	FuncToDouble   = FunctionSchema + ".cast_to_double_precision"
	FuncToInterval = FunctionSchema + ".cast_to_interval"
	FuncToDate     = FunctionSchema + ".cast_to_date"
	FuncToEmail    = FunctionSchema + ".cast_to_email"
)

// StrategyKind enumerates the closed set of cast mechanisms.
type StrategyKind string

const (
	StrategyIdentity StrategyKind = "identity"
	StrategyNative   StrategyKind = "native"
	StrategyFunction StrategyKind = "function"
)

// Strategy tags how a declared cast pair converts values.
type Strategy struct {
	Kind StrategyKind
	// Function is the qualified custom cast function, set only for StrategyFunction.
	Function string
}

// Rule declares one legal (source, target) cast pair. A pair absent from the
// map is categorically unsupported.
type Rule struct {
	Source   catalog.TypeDescriptor
	Target   catalog.TypeDescriptor
	Strategy Strategy
}

type pairKey struct {
	source string
	target string
}

// Map is the precomputed cast compatibility table. Read-only after
// construction and safe to share across requests.
type Map struct {
	catalog *catalog.Catalog
	rules   map[pairKey]Rule
	targets map[string][]catalog.TypeDescriptor
}

// declaredTargets is the full compatibility table, keyed by engine-native
// source name. A pair appears here iff the alteration is supported.
var declaredTargets = map[string][]string{
	catalog.TypeSmallint: numericFamilyTargets(),
	catalog.TypeInteger:  numericFamilyTargets(),
	catalog.TypeBigint:   numericFamilyTargets(),
	catalog.TypeDecimal:  numericFamilyTargets(),
	catalog.TypeNumeric:  numericFamilyTargets(),
	catalog.TypeReal:     numericFamilyTargets(),
	catalog.TypeDouble:   numericFamilyTargets(),
	catalog.TypeFloat:    numericFamilyTargets(),
	catalog.TypeBoolean:  numericFamilyTargets(),
	catalog.TypeVarchar: {
		catalog.TypeBigint, catalog.TypeBoolean, catalog.TypeDecimal,
		catalog.TypeDouble, catalog.TypeEmail, catalog.TypeFloat,
		catalog.TypeInteger, catalog.TypeInterval, catalog.TypeNumeric,
		catalog.TypeReal, catalog.TypeSmallint, catalog.TypeDate,
		catalog.TypeVarchar,
	},
	catalog.TypeDate:     {catalog.TypeDate, catalog.TypeVarchar},
	catalog.TypeInterval: {catalog.TypeInterval, catalog.TypeVarchar},
	catalog.TypeEmail:    {catalog.TypeEmail, catalog.TypeVarchar},
}

func numericFamilyTargets() []string {
	return []string{
		catalog.TypeBigint, catalog.TypeBoolean, catalog.TypeDecimal,
		catalog.TypeDouble, catalog.TypeFloat, catalog.TypeInteger,
		catalog.TypeNumeric, catalog.TypeReal, catalog.TypeSmallint,
		catalog.TypeVarchar,
	}
}

var defaultMap = New(catalog.Default())

// Default returns the cast map over the default catalog.
func Default() *Map {
	return defaultMap
}

// New builds the cast map for a catalog from the declared compatibility table.
func New(c *catalog.Catalog) *Map {
	m := &Map{
		catalog: c,
		rules:   make(map[pairKey]Rule),
		targets: make(map[string][]catalog.TypeDescriptor),
	}
	for _, source := range c.Types() {
		names, ok := declaredTargets[source.Name]
		if !ok {
			// Every catalogued type can at least stay itself.
			names = []string{source.Name}
		}
		descriptors := make([]catalog.TypeDescriptor, 0, len(names))
		for _, name := range names {
			target, err := c.Lookup(name)
			if err != nil {
				// The declared table and the catalog must agree; a mismatch
				// is a programming error, not a runtime condition.
				panic(fmt.Sprintf("castmap: declared target %q for source %q missing from catalog", name, source.Name))
			}
			descriptors = append(descriptors, target)
			m.rules[pairKey{source.Name, target.Name}] = Rule{
				Source:   source,
				Target:   target,
				Strategy: strategyFor(source, target),
			}
		}
		m.targets[source.Name] = descriptors
	}
	return m
}

func strategyFor(source, target catalog.TypeDescriptor) Strategy {
	if source.Name == target.Name {
		return Strategy{Kind: StrategyIdentity}
	}
	switch target.Name {
	case catalog.TypeBoolean:
		// Native text/numeric coercions accept more literals than wanted.
		return functionStrategy(FuncToBoolean)
	case catalog.TypeSmallint:
		// Native numeric-to-int casts round fractions instead of failing.
		return functionStrategy(FuncToSmallint)
	case catalog.TypeInteger:
		return functionStrategy(FuncToInteger)
	case catalog.TypeBigint:
		return functionStrategy(FuncToBigint)
	case catalog.TypeNumeric, catalog.TypeDecimal:
		if source.Category == catalog.CategoryNumeric {
			return Strategy{Kind: StrategyNative}
		}
		return functionStrategy(FuncToNumeric)
	case catalog.TypeReal:
		if source.Category == catalog.CategoryBoolean {
			return functionStrategy(FuncToReal)
		}
		return Strategy{Kind: StrategyNative}
	case catalog.TypeDouble, catalog.TypeFloat:
		if source.Category == catalog.CategoryBoolean {
			return functionStrategy(FuncToDouble)
		}
		return Strategy{Kind: StrategyNative}
	case catalog.TypeInterval:
		return functionStrategy(FuncToInterval)
	case catalog.TypeDate:
		return functionStrategy(FuncToDate)
	case catalog.TypeEmail:
		return functionStrategy(FuncToEmail)
	default:
		return Strategy{Kind: StrategyNative}
	}
}

func functionStrategy(ref string) Strategy {
	return Strategy{Kind: StrategyFunction, Function: ref}
}

// Catalog returns the catalog the map was built over.
func (m *Map) Catalog() *catalog.Catalog {
	return m.catalog
}

// RuleFor resolves the declared rule for a (source, target) pair. Both names
// may be engine-native or friendly.
func (m *Map) RuleFor(source, target string) (Rule, error) {
	src, err := m.catalog.Lookup(source)
	if err != nil {
		return Rule{}, err
	}
	dst, err := m.catalog.Lookup(target)
	if err != nil {
		return Rule{}, err
	}
	rule, ok := m.rules[pairKey{src.Name, dst.Name}]
	if !ok {
		return Rule{}, &catalog.UnsupportedTypeError{
			Name:   dst.FriendlyName(),
			Source: src.FriendlyName(),
		}
	}
	return rule, nil
}

// TargetsFor lists the types a column of the given source type may become.
func (m *Map) TargetsFor(source string) ([]catalog.TypeDescriptor, error) {
	src, err := m.catalog.Lookup(source)
	if err != nil {
		return nil, err
	}
	targets := m.targets[src.Name]
	out := make([]catalog.TypeDescriptor, len(targets))
	copy(out, targets)
	return out, nil
}

// Full returns the whole compatibility table keyed by friendly names, with
// target lists sorted for stable presentation.
func (m *Map) Full() map[string][]string {
	out := make(map[string][]string, len(m.targets))
	for _, source := range m.catalog.Types() {
		targets := m.targets[source.Name]
		names := make([]string, 0, len(targets))
		for _, target := range targets {
			names = append(names, target.FriendlyName())
		}
		sort.Strings(names)
		out[source.FriendlyName()] = names
	}
	return out
}

// Rules lists every declared rule, ordered by source then target name.
func (m *Map) Rules() []Rule {
	out := make([]Rule, 0, len(m.rules))
	for _, rule := range m.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source.Name != out[j].Source.Name {
			return out[i].Source.Name < out[j].Source.Name
		}
		return out[i].Target.Name < out[j].Target.Name
	})
	return out
}

// FunctionRefs lists the distinct custom cast functions the map depends on.
func (m *Map) FunctionRefs() []string {
	seen := make(map[string]struct{})
	for _, rule := range m.rules {
		if rule.Strategy.Kind == StrategyFunction && rule.Strategy.Function != "" {
			seen[rule.Strategy.Function] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for ref := range seen {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

// IsFunctionRef reports whether ref lives in the cast function namespace.
func IsFunctionRef(ref string) bool {
	return strings.HasPrefix(ref, FunctionSchema+".")
}
