package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/schemasync/internal/schema"
)

// marshalDocument converts a schema document to canonical JSON TEXT for
// storage, so equal documents are stored byte-identical.
func marshalDocument(doc *schema.Schema) (string, error) {
	data, err := schema.MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}

// unmarshalDocument parses a stored document.
func unmarshalDocument(data string) (*schema.Schema, error) {
	var doc schema.Schema
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &doc, nil
}

// marshalPayload converts a payload to canonical JSON TEXT for the change
// log.
func marshalPayload(p any) (string, error) {
	data, err := schema.MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}
