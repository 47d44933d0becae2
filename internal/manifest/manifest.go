// Package manifest parses and validates batch translation manifests.
package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"paper.fit/scanlate/internal/language"
)

//go:embed manifest.schema.json
var manifestSchemaJSON string

// Manifest is a batch of texts to translate into one target language.
type Manifest struct {
	ManifestVersion string `json:"manifest_version"`
	TargetLang      string `json:"target_lang"`
	Provider        string `json:"provider,omitempty"`
	Items           []Item `json:"items"`
}

// Item is one batch entry.
type Item struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// Parse validates raw against the manifest schema and returns the decoded
// manifest. Semantic checks (language code validity, unique item ids) run
// after the schema pass.
func Parse(raw []byte) (*Manifest, error) {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode manifest JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize manifest JSON: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(normalized, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	if err := validateSemantics(&m); err != nil {
		return nil, err
	}

	return &m, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("manifest.schema.json", strings.NewReader(manifestSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("manifest.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("manifest is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("manifest contains trailing content")
	}

	return value, nil
}

func validateSemantics(m *Manifest) error {
	if m == nil {
		return fmt.Errorf("manifest is nil")
	}

	if language.NormalizeCode(m.TargetLang) == "" {
		return fmt.Errorf("target_lang %q is not a valid language code", m.TargetLang)
	}

	seen := make(map[string]struct{}, len(m.Items))
	for i, item := range m.Items {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return fmt.Errorf("items[%d].id must not be blank", i)
		}
		if _, exists := seen[id]; exists {
			return fmt.Errorf("items[%d].id %q is duplicated", i, id)
		}
		seen[id] = struct{}{}

		if strings.TrimSpace(item.Text) == "" {
			return fmt.Errorf("items[%d].text must not be blank", i)
		}
	}

	return nil
}
