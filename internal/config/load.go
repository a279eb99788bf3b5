package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every document that fails schema validation.
var ErrInvalid = errors.New("config: invalid tuning document")

const schemaURL = "tuning.schema.json"

var (
	compileOnce sync.Once
	compiled    *validator.Schema
	compileErr  error
)

// Reflect builds the JSON schema for Tuning from its struct tags.
func Reflect() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(new(Tuning))
	schema.Title = "Town Simulation Tuning"
	schema.Description = "Validates tuning.yaml overrides for the simulation core"
	return schema
}

// Schema returns the reflected schema as indented JSON.
func Schema() ([]byte, error) {
	data, err := json.MarshalIndent(Reflect(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("config: marshal schema: %w", err)
	}
	return data, nil
}

func compiledSchema() (*validator.Schema, error) {
	compileOnce.Do(func() {
		data, err := Schema()
		if err != nil {
			compileErr = err
			return
		}
		c := validator.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(data)); err != nil {
			compileErr = fmt.Errorf("config: add schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("config: compile schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// Load reads a YAML tuning file and overlays it on the defaults.
func Load(path string) (Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return Tuning{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse validates a YAML document against the schema and overlays it on
// Default. Keys that are absent keep their default values.
func Parse(data []byte) (Tuning, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Tuning{}, fmt.Errorf("config: parse yaml: %w", err)
	}
	if doc == nil {
		return Default(), nil
	}

	// yaml.v3 decodes into map[string]any, which encoding/json can marshal.
	raw, err := json.Marshal(doc)
	if err != nil {
		return Tuning{}, fmt.Errorf("config: convert yaml: %w", err)
	}

	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return Tuning{}, fmt.Errorf("config: decode document: %w", err)
	}

	schema, err := compiledSchema()
	if err != nil {
		return Tuning{}, err
	}
	if err := schema.Validate(generic); err != nil {
		return Tuning{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	t := Default()
	if err := json.Unmarshal(raw, &t); err != nil {
		return Tuning{}, fmt.Errorf("config: apply overrides: %w", err)
	}
	return t.Normalized(), nil
}
