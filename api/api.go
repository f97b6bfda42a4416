// Package api carries the OpenAPI contract of the signalbox HTTP
// surface. The spec is embedded so the server can serve and validate
// it without touching the filesystem.
package api

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var rawSpec []byte

var (
	swaggerOnce sync.Once
	swagger     *openapi3.T
	swaggerErr  error
)

// Raw returns a copy of the embedded OpenAPI document.
func Raw() []byte {
	out := make([]byte, len(rawSpec))
	copy(out, rawSpec)
	return out
}

// GetSwagger parses the embedded spec once and returns the shared
// document. Callers must not mutate it.
func GetSwagger() (*openapi3.T, error) {
	swaggerOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(rawSpec)
		if err != nil {
			swaggerErr = fmt.Errorf("failed to parse embedded openapi spec: %w", err)
			return
		}
		swagger = doc
	})
	return swagger, swaggerErr
}
