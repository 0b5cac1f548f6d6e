package routes

import (
	"iter"
	"net/http"
	"strings"
)

// Group organizes routes under a common prefix. Tags label the group in the
// OpenAPI document; children inherit them when they declare none.
type Group struct {
	Prefix   string
	Tags     []string
	Routes   []Route
	Children []Group
}

// Entry is a route resolved against its enclosing groups.
type Entry struct {
	Route
	Path string
	Tags []string
}

// MuxPattern returns the ServeMux pattern for the entry.
func (e Entry) MuxPattern() string {
	return e.Method + " " + e.Path
}

// Entries walks groups depth first and yields every route with its full path
// and effective tags. A group without tags is tagged by its own prefix unless
// it inherits tags from a parent.
func Entries(groups ...Group) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, g := range groups {
			if !walk(g, "", nil, yield) {
				return
			}
		}
	}
}

func walk(g Group, parent string, tags []string, yield func(Entry) bool) bool {
	prefix := parent + g.Prefix
	switch {
	case len(g.Tags) > 0:
		tags = g.Tags
	case tags == nil && g.Prefix != "":
		tags = []string{strings.TrimPrefix(g.Prefix, "/")}
	}

	for _, r := range g.Routes {
		if !yield(Entry{Route: r, Path: prefix + r.Pattern, Tags: tags}) {
			return false
		}
	}
	for _, child := range g.Children {
		if !walk(child, prefix, tags, yield) {
			return false
		}
	}
	return true
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for e := range Entries(groups...) {
		mux.HandleFunc(e.MuxPattern(), e.Handler)
	}
}
