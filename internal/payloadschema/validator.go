package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed article.schema.json
var articleSchemaJSON string

// ImportPayload is a batch of articles submitted for ingestion.
type ImportPayload struct {
	PayloadVersion string          `json:"payload_version"`
	Articles       []ImportArticle `json:"articles"`
}

// ImportArticle is one article in an import payload. Only the title is
// required; everything else is best-effort metadata from the feed.
type ImportArticle struct {
	Title       string  `json:"title"`
	Snippet     *string `json:"snippet,omitempty"`
	Publisher   *string `json:"publisher,omitempty"`
	Source      *string `json:"source,omitempty"`
	URL         *string `json:"url,omitempty"`
	Language    *string `json:"language,omitempty"`
	PublishedAt *string `json:"published_at,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateImportPayload checks the payload against the embedded JSON schema
// plus the semantic rules the schema cannot express, and returns the decoded
// batch. Nothing is persisted here.
func ValidateImportPayload(payload json.RawMessage) (*ImportPayload, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
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
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var batch ImportPayload
	if err := json.Unmarshal(normalized, &batch); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&batch); err != nil {
		return nil, err
	}

	return &batch, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("article_import.schema.json", strings.NewReader(articleSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("article_import.schema.json")
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
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(batch *ImportPayload) error {
	if batch == nil {
		return fmt.Errorf("payload is nil")
	}
	if strings.TrimSpace(batch.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}
	if len(batch.Articles) == 0 {
		return fmt.Errorf("articles must not be empty")
	}

	for i := range batch.Articles {
		article := &batch.Articles[i]
		if strings.TrimSpace(article.Title) == "" {
			return fmt.Errorf("articles[%d].title must not be empty", i)
		}
		if article.URL != nil {
			if err := validateURI(fmt.Sprintf("articles[%d].url", i), *article.URL); err != nil {
				return err
			}
		}
		if article.PublishedAt != nil {
			if _, err := time.Parse(time.RFC3339, strings.TrimSpace(*article.PublishedAt)); err != nil {
				return fmt.Errorf("articles[%d].published_at must be RFC3339: %w", i, err)
			}
		}
	}

	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	return nil
}
