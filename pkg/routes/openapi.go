package routes

import (
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/JaimeStill/foreman/pkg/openapi"
)

var pathParam = regexp.MustCompile(`\{(\w+)(\.\.\.)?\}`)

// Describe adds an operation for every route in groups to spec. Paths are
// relative to the spec's server URL. Routes without an explicit operation get
// a generated summary; every operation without parameters gets its path
// parameters and a default response.
func Describe(spec *openapi.Spec, groups ...Group) {
	for e := range Entries(groups...) {
		path := e.Path
		if path == "" {
			path = "/"
		}

		op := openapi.Operation{Summary: e.Method + " " + path}
		if e.OpenAPI != nil {
			op = *e.OpenAPI
		}
		if op.Tags == nil {
			op.Tags = e.Tags
		}
		if op.OperationID == "" {
			op.OperationID = operationID(e.Method, path)
		}
		if op.Parameters == nil {
			for _, m := range pathParam.FindAllStringSubmatch(path, -1) {
				op.Parameters = append(op.Parameters, openapi.PathParam(m[1], ""))
			}
		}
		if op.Responses == nil {
			op.Responses = map[int]*openapi.Response{http.StatusOK: {Description: "OK"}}
		}

		spec.AddOperation(e.Method, pathParam.ReplaceAllString(path, "{$1}"), &op)
	}
}

// operationID derives a camel-case identifier such as getDocumentsById from
// a method and route path.
func operationID(method, path string) string {
	title := cases.Title(language.Und, cases.NoLower)

	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for seg := range strings.SplitSeq(path, "/") {
		if m := pathParam.FindStringSubmatch(seg); m != nil {
			b.WriteString("By")
			seg = m[1]
		}
		for _, word := range strings.FieldsFunc(seg, func(r rune) bool { return r == '-' || r == '_' }) {
			b.WriteString(title.String(word))
		}
	}
	return b.String()
}
