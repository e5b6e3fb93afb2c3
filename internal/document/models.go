package document

import (
	"encoding/json"
	"fmt"
	"time"
)

// ParsedDocument is the structured result of parsing an upload. It is stored
// serialized as JSON in the owner's document field and never cached.
type ParsedDocument struct {
	ID       string   `json:"doc_id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"extra_info"`
}

// Metadata describes the uploaded file.
type Metadata struct {
	FileName     string `json:"file_name"`
	FileType     string `json:"file_type"`
	FileSize     int64  `json:"file_size"`
	CreationDate string `json:"creation_date"`
	PageCount    int    `json:"page_count,omitempty"`
}

// NewMetadata fills the file attributes known before parsing.
func NewMetadata(name, contentType string, size int64, now time.Time) Metadata {
	return Metadata{
		FileName:     name,
		FileType:     contentType,
		FileSize:     size,
		CreationDate: now.UTC().Format("2006-01-02"),
	}
}

// Encode serializes d for storage.
func Encode(d *ParsedDocument) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a stored blob. Any malformed or structurally empty blob is an error.
func Decode(blob string) (*ParsedDocument, error) {
	var d ParsedDocument
	if err := json.Unmarshal([]byte(blob), &d); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if d.ID == "" {
		return nil, fmt.Errorf("decode document: missing doc_id")
	}
	return &d, nil
}
