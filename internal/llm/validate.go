package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	pageListSchemaOnce sync.Once
	pageListSchema     *jsonschema.Schema
	pageListSchemaErr  error
)

// CompileSchema compiles a schema held as a generic map.
func CompileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidatePageList validates a decoded page list (the output of json.Unmarshal into any).
func ValidatePageList(v any) error {
	pageListSchemaOnce.Do(func() {
		pageListSchema, pageListSchemaErr = CompileSchema("pages.json", BuildPageListJSONSchema())
	})
	if pageListSchemaErr != nil {
		return pageListSchemaErr
	}
	if err := pageListSchema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
