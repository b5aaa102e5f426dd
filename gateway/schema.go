package gateway

import (
	"bytes"
	"embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/*.json
var schemaFS embed.FS

const (
	analysisSchemaURL       = "https://physio-pain-assessment/schema/analysis.schema.json"
	generatedTestsSchemaURL = "https://physio-pain-assessment/schema/generated_tests.schema.json"
)

var (
	schemasOnce    sync.Once
	analysisSchema *jsonschema.Schema
	testsSchema    *jsonschema.Schema
	schemasErr     error
)

func compileSchema(url, file string) (*jsonschema.Schema, error) {
	data, err := schemaFS.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", file, err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", file, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", file, err)
	}
	return schema, nil
}

func loadSchemas() error {
	schemasOnce.Do(func() {
		analysisSchema, schemasErr = compileSchema(analysisSchemaURL, "schema/analysis.schema.json")
		if schemasErr != nil {
			return
		}
		testsSchema, schemasErr = compileSchema(generatedTestsSchemaURL, "schema/generated_tests.schema.json")
	})
	return schemasErr
}
