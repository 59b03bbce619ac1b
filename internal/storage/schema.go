package storage

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const courseSchemaURL = "https://coursekeep.local/schemas/course.schema.json"

//go:embed schemas/course.schema.json
var courseSchema []byte

// Validation is the outcome of checking one stored record.
type Validation struct {
	Valid  bool
	Reason string
}

// RecordValidator checks decoded JSON records against the stored course schema.
type RecordValidator struct {
	schema *jsonschema.Schema
}

// NewRecordValidator compiles the embedded course schema.
func NewRecordValidator() (*RecordValidator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(courseSchemaURL, bytes.NewReader(courseSchema)); err != nil {
		return nil, fmt.Errorf("load course schema: %w", err)
	}

	schema, err := compiler.Compile(courseSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile course schema: %w", err)
	}

	return &RecordValidator{schema: schema}, nil
}

// Validate checks a value produced by json.Unmarshal into interface{}.
func (v *RecordValidator) Validate(doc interface{}) Validation {
	if err := v.schema.Validate(doc); err != nil {
		return Validation{Valid: false, Reason: err.Error()}
	}
	return Validation{Valid: true}
}
