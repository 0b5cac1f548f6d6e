package routes

import (
	"net/http"

	"github.com/JaimeStill/foreman/pkg/openapi"
)

// Route binds an HTTP method and pattern to a handler. OpenAPI optionally
// documents the route; Describe fills in anything it leaves empty.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	OpenAPI *openapi.Operation
}
