package owm

import (
	"bytes"
	"embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func schemaFor(endpoint string) (*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		schemas, schemasErr = loadSchemas(map[string]string{
			endpointCurrent:  "schema/current.json",
			endpointForecast: "schema/forecast.json",
		})
	})
	if schemasErr != nil {
		return nil, schemasErr
	}
	s, ok := schemas[endpoint]
	if !ok {
		return nil, fmt.Errorf("no schema for endpoint %q", endpoint)
	}
	return s, nil
}

func loadSchemas(files map[string]string) (map[string]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	out := make(map[string]*jsonschema.Schema, len(files))
	for endpoint, path := range files {
		b, err := schemaFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", path, err)
		}
		if err := compiler.AddResource(path, bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("load schema %s: %w", path, err)
		}
		s, err := compiler.Compile(path)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", path, err)
		}
		out[endpoint] = s
	}
	return out, nil
}
