package query_test

import (
	"slices"
	"testing"

	"github.com/JaimeStill/foreman/pkg/query"
)

func projection() *query.ProjectionMap {
	return query.NewProjectionMap("", "documents", "d").
		Project("id", "ID").
		Project("template_id", "TemplateID").
		Project("total", "Total").
		Project("generated_at", "GeneratedAt")
}

func ptr[T any](v T) *T { return &v }

const columns = "SELECT d.id, d.template_id, d.total, d.generated_at FROM documents d"

func TestProjectionTable(t *testing.T) {
	tests := []struct {
		schema string
		want   string
	}{
		{"", "documents d"},
		{"public", "public.documents d"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			p := query.NewProjectionMap(tt.schema, "documents", "d")
			if got := p.Table(); got != tt.want {
				t.Errorf("Table() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProjectionColumns(t *testing.T) {
	p := projection()

	if got := p.Column("TemplateID"); got != "d.template_id" {
		t.Errorf("Column(TemplateID) = %q", got)
	}
	if got := p.Column("unmapped"); got != "unmapped" {
		t.Errorf("Column(unmapped) = %q, want passthrough", got)
	}
	for _, name := range []string{"GeneratedAt", "generated_at"} {
		if col, ok := p.Lookup(name); !ok || col != "d.generated_at" {
			t.Errorf("Lookup(%s) = %q, %v", name, col, ok)
		}
	}
	if _, ok := p.Lookup("unmapped"); ok {
		t.Error("Lookup(unmapped) should fail")
	}
	want := []string{"d.id", "d.template_id", "d.total", "d.generated_at"}
	if !slices.Equal(p.ColumnList(), want) {
		t.Errorf("ColumnList() = %v, want %v", p.ColumnList(), want)
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		input string
		want  []query.SortField
	}{
		{"", nil},
		{"TemplateID", []query.SortField{{Field: "TemplateID"}}},
		{"-GeneratedAt", []query.SortField{{Field: "GeneratedAt", Descending: true}}},
		{" TemplateID , -Total ,", []query.SortField{{Field: "TemplateID"}, {Field: "Total", Descending: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := query.ParseSortFields(tt.input); !slices.Equal(got, tt.want) {
				t.Errorf("ParseSortFields(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuilder(t *testing.T) {
	tests := []struct {
		name     string
		build    func() (string, []any)
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "plain select",
			build:   func() (string, []any) { return query.NewBuilder(projection()).Build() },
			wantSQL: columns,
		},
		{
			name:    "count",
			build:   func() (string, []any) { return query.NewBuilder(projection()).BuildCount() },
			wantSQL: "SELECT COUNT(*) FROM documents d",
		},
		{
			name: "page with default sort",
			build: func() (string, []any) {
				return query.NewBuilder(projection(), query.SortField{Field: "GeneratedAt", Descending: true}).BuildPage(3, 20)
			},
			wantSQL: columns + " ORDER BY d.generated_at DESC LIMIT 20 OFFSET 40",
		},
		{
			name:     "single",
			build:    func() (string, []any) { return query.NewBuilder(projection()).BuildSingle("ID", "abc") },
			wantSQL:  columns + " WHERE d.id = $1",
			wantArgs: []any{"abc"},
		},
		{
			name: "nil conditions skipped",
			build: func() (string, []any) {
				var s *string
				return query.NewBuilder(projection()).
					WhereEquals("TemplateID", s).
					WhereContains("TemplateID", ptr("")).
					WhereCompare("Total", ">=", nil).
					WhereIn("ID", nil).
					Build()
			},
			wantSQL: columns,
		},
		{
			name: "numbered conditions",
			build: func() (string, []any) {
				return query.NewBuilder(projection()).
					WhereEquals("TemplateID", "paver_patio").
					WhereContains("ID", ptr("AB")).
					WhereCompare("Total", ">=", "100").
					WhereIn("ID", []any{"a", "b"}).
					Build()
			},
			wantSQL:  columns + ` WHERE d.template_id = $1 AND LOWER(d.id) LIKE LOWER($2) ESCAPE '\' AND d.total >= $3 AND d.id IN ($4, $5)`,
			wantArgs: []any{"paver_patio", "%AB%", "100", "a", "b"},
		},
		{
			name: "search across fields",
			build: func() (string, []any) {
				return query.NewBuilder(projection()).WhereSearch(ptr("turf"), "TemplateID", "ID").Build()
			},
			wantSQL:  columns + ` WHERE (LOWER(d.template_id) LIKE LOWER($1) ESCAPE '\' OR LOWER(d.id) LIKE LOWER($2) ESCAPE '\')`,
			wantArgs: []any{"%turf%", "%turf%"},
		},
		{
			name: "search escapes wildcards",
			build: func() (string, []any) {
				return query.NewBuilder(projection()).WhereSearch(ptr("50%_off"), "TemplateID").Build()
			},
			wantSQL:  columns + ` WHERE (LOWER(d.template_id) LIKE LOWER($1) ESCAPE '\')`,
			wantArgs: []any{`%50\%\_off%`},
		},
		{
			name: "nullable",
			build: func() (string, []any) {
				return query.NewBuilder(projection()).WhereNullable("GeneratedAt", nil).BuildSingleOrNull()
			},
			wantSQL: columns + " WHERE d.generated_at IS NULL LIMIT 1",
		},
		{
			name: "explicit order overrides default",
			build: func() (string, []any) {
				return query.NewBuilder(projection(), query.SortField{Field: "ID"}).
					OrderByFields([]query.SortField{{Field: "Total", Descending: true}, {Field: "TemplateID"}}).
					Build()
			},
			wantSQL: columns + " ORDER BY d.total DESC, d.template_id ASC",
		},
		{
			name: "column names and unknown fields in sort",
			build: func() (string, []any) {
				return query.NewBuilder(projection()).
					OrderByFields(query.ParseSortFields("-generated_at,total;DROP TABLE documents,ID")).
					Build()
			},
			wantSQL: columns + " ORDER BY d.generated_at DESC, d.id ASC",
		},
		{
			name: "page zero starts at offset zero",
			build: func() (string, []any) {
				return query.NewBuilder(projection()).WhereEquals("TemplateID", "paver_patio").BuildPage(0, 10)
			},
			wantSQL:  columns + " WHERE d.template_id = $1 LIMIT 10 OFFSET 0",
			wantArgs: []any{"paver_patio"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.build()
			if sql != tt.wantSQL {
				t.Errorf("sql = %q\nwant  %q", sql, tt.wantSQL)
			}
			if len(args) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", args, tt.wantArgs)
			}
			for i := range args {
				if args[i] != tt.wantArgs[i] {
					t.Errorf("args[%d] = %v, want %v", i, args[i], tt.wantArgs[i])
				}
			}
		})
	}
}
