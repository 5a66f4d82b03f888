// Package inflect supplies the naming rules the registration pass depends on:
// the canonical type name of a shape and pluralization for legacy identifiers.
package inflect

import (
	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"

	"github.com/zero-day-ai/nodeid/source"
)

// Inflector names things. Implementations must be deterministic.
type Inflector interface {
	// TableType returns the canonical type name for a shape, e.g. "users" -> "User".
	TableType(shape *source.Shape) string

	// Pluralize returns the plural of name, e.g. "user" -> "users".
	Pluralize(name string) string
}

// Default is the stock inflector: singular UpperCamelCase type names and
// English pluralization.
type Default struct{}

// TableType implements Inflector.
func (Default) TableType(shape *source.Shape) string {
	return strcase.ToCamel(inflection.Singular(shape.Name))
}

// Pluralize implements Inflector.
func (Default) Pluralize(name string) string {
	return inflection.Plural(name)
}
