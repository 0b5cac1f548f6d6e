// Package query builds the SELECT statements behind the document and
// violation listings. A ProjectionMap names the columns a listing exposes and
// a Builder adds filters, search, ordering and paging over it.
package query

import "strings"

// ProjectionMap maps view property names to alias-qualified columns. An
// empty schema leaves the table unqualified, which keeps queries portable
// across PostgreSQL and SQLite.
type ProjectionMap struct {
	schema  string
	table   string
	alias   string
	byView  map[string]string
	byName  map[string]string
	ordered []string
}

// NewProjectionMap creates an empty projection over schema.table aliased as alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema: schema,
		table:  table,
		alias:  alias,
		byView: make(map[string]string),
		byName: make(map[string]string),
	}
}

// Project exposes column under viewName. Columns are selected in the order
// they are projected.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.byView[viewName] = qualified
	p.byName[column] = qualified
	p.ordered = append(p.ordered, qualified)
	return p
}

// Alias returns the table alias.
func (p *ProjectionMap) Alias() string {
	return p.alias
}

// Table returns "schema.table alias", or "table alias" without a schema.
func (p *ProjectionMap) Table() string {
	if p.schema == "" {
		return p.table + " " + p.alias
	}
	return p.schema + "." + p.table + " " + p.alias
}

// Column returns the qualified column for viewName, or viewName itself when
// it is not projected. Use Lookup for names that come from a request.
func (p *ProjectionMap) Column(viewName string) string {
	if col, ok := p.byView[viewName]; ok {
		return col
	}
	return viewName
}

// Lookup resolves a view property name ("GeneratedAt") or a raw column name
// ("generated_at") to its qualified column. ok is false for anything the
// projection does not expose.
func (p *ProjectionMap) Lookup(name string) (string, bool) {
	if col, ok := p.byView[name]; ok {
		return col, true
	}
	col, ok := p.byName[name]
	return col, ok
}

// Columns returns the projected columns as a select list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.ordered, ", ")
}

// ColumnList returns the projected columns in select order.
func (p *ProjectionMap) ColumnList() []string {
	return p.ordered
}
