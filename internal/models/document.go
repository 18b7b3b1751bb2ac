package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Document is a free-form JSON object stored in a JSONB column
type Document map[string]any

// DocumentList is a free-form JSON array of objects stored in a JSONB column
type DocumentList []map[string]any

// Value encodes the document as JSON text. A string is returned rather than
// bytes so the driver does not send it as bytea.
func (d Document) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(d))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan decodes a JSONB value
func (d *Document) Scan(src any) error {
	b, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if b == nil {
		*d = nil
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	*d = m
	return nil
}

// Value encodes the list as JSON text
func (l DocumentList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]map[string]any(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan decodes a JSONB array
func (l *DocumentList) Scan(src any) error {
	b, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if b == nil {
		*l = nil
		return nil
	}
	var items []map[string]any
	if err := json.Unmarshal(b, &items); err != nil {
		return fmt.Errorf("decode document list: %w", err)
	}
	*l = items
	return nil
}

func jsonBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported JSON source type %T", src)
	}
}
