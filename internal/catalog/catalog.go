package catalog

import (
	"errors"
	"strings"
)

// Category classifies a column type for cast planning.
type Category string

const (
	CategoryNumeric  Category = "numeric"
	CategoryBoolean  Category = "boolean"
	CategoryText     Category = "text"
	CategoryDate     Category = "date"
	CategoryInterval Category = "interval"
	CategoryCustom   Category = "custom"
)

// Engine-native names for every alterable type.
const (
	TypeSmallint = "smallint"
	TypeInteger  = "integer"
	TypeBigint   = "bigint"
	TypeDecimal  = "decimal"
	TypeNumeric  = "numeric"
	TypeReal     = "real"
	TypeDouble   = "double precision"
	TypeFloat    = "float"
	TypeBoolean  = "boolean"
	TypeVarchar  = "character varying"
	TypeDate     = "date"
	TypeInterval = "interval"
	TypeEmail    = "recast_types.email"
)

// TypeDescriptor identifies one column type usable in an alteration.
type TypeDescriptor struct {
	// Name is the engine-native name, schema-qualified for custom types.
	Name string
	// Alias is a friendlier name accepted on input and shown to callers.
	// Empty when the engine name is already the friendly form.
	Alias string
	Category Category
	// NumericOptions reports whether the type accepts precision/scale.
	NumericOptions bool
}

// FriendlyName returns the caller-facing name for the type.
func (t TypeDescriptor) FriendlyName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// NumericOptions parameterizes a numeric target type.
type NumericOptions struct {
	Precision int
	// Scale is optional; the engine defaults it to zero when precision is set.
	Scale *int
}

// ErrUnsupportedType reports a type outside the catalog or a cast pair
// outside the cast map.
var ErrUnsupportedType = errors.New("unsupported column type")

// UnsupportedTypeError carries the offending type name, and the source type
// when a specific cast pair is undeclared.
type UnsupportedTypeError struct {
	Name   string
	Source string
}

func (e *UnsupportedTypeError) Error() string {
	if e == nil {
		return "unsupported column type"
	}
	if e.Source != "" {
		return "unsupported column type: no cast from " + e.Source + " to " + e.Name
	}
	return "unsupported column type: " + e.Name
}

func (e *UnsupportedTypeError) Unwrap() error {
	return ErrUnsupportedType
}

// Catalog resolves type names, native or friendly, to descriptors.
// Built once and read-only afterward.
type Catalog struct {
	byName  map[string]TypeDescriptor
	ordered []TypeDescriptor
}

var defaultCatalog = New(builtinTypes())

// Default returns the catalog of built-in types plus registered custom types.
func Default() *Catalog {
	return defaultCatalog
}

func builtinTypes() []TypeDescriptor {
	return []TypeDescriptor{
		{Name: TypeSmallint, Category: CategoryNumeric},
		{Name: TypeInteger, Category: CategoryNumeric},
		{Name: TypeBigint, Category: CategoryNumeric},
		{Name: TypeDecimal, Category: CategoryNumeric, NumericOptions: true},
		{Name: TypeNumeric, Category: CategoryNumeric, NumericOptions: true},
		{Name: TypeReal, Category: CategoryNumeric},
		{Name: TypeDouble, Category: CategoryNumeric},
		{Name: TypeFloat, Category: CategoryNumeric},
		{Name: TypeBoolean, Category: CategoryBoolean},
		{Name: TypeVarchar, Alias: "varchar", Category: CategoryText},
		{Name: TypeDate, Category: CategoryDate},
		{Name: TypeInterval, Category: CategoryInterval},
		{Name: TypeEmail, Alias: "email", Category: CategoryCustom},
	}
}

// New builds a catalog from the given descriptors, indexing both engine
// names and aliases.
func New(types []TypeDescriptor) *Catalog {
	c := &Catalog{
		byName:  make(map[string]TypeDescriptor, len(types)*2),
		ordered: types,
	}
	for _, t := range types {
		c.byName[normalizeTypeName(t.Name)] = t
		if t.Alias != "" {
			c.byName[normalizeTypeName(t.Alias)] = t
		}
	}
	return c
}

// Types lists every catalogued type in declaration order.
func (c *Catalog) Types() []TypeDescriptor {
	out := make([]TypeDescriptor, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Lookup resolves a type name to its descriptor. A parameter suffix such as
// "numeric(5, 2)" is ignored so names reported by the engine resolve too.
func (c *Catalog) Lookup(name string) (TypeDescriptor, error) {
	key, _ := splitTypeSuffix(name)
	if t, ok := c.byName[key]; ok {
		return t, nil
	}
	return TypeDescriptor{}, &UnsupportedTypeError{Name: strings.TrimSpace(name)}
}

// Has reports whether the catalog knows the given type name.
func (c *Catalog) Has(name string) bool {
	_, err := c.Lookup(name)
	return err == nil
}

func normalizeTypeName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parts := strings.Fields(strings.ToLower(value))
	return strings.Join(parts, " ")
}

func splitTypeSuffix(value string) (string, string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ""
	}
	idx := strings.IndexRune(value, '(')
	if idx <= 0 {
		return normalizeTypeName(value), ""
	}
	return normalizeTypeName(value[:idx]), value[idx:]
}
