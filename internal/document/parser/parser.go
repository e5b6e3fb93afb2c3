// Package parser turns an uploaded file into structured documents.
package parser

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/docchat/backend/internal/document"
)

// Parser extracts documents from the file at path. meta carries the upload
// attributes; implementations copy it into each result.
type Parser interface {
	Parse(ctx context.Context, path string, meta document.Metadata) ([]document.ParsedDocument, error)
}

// ByExtension routes files to a parser by lowercase extension (".pdf") and
// falls back to Default.
type ByExtension struct {
	Extractors map[string]Parser
	Default    Parser
}

func (b *ByExtension) Parse(ctx context.Context, path string, meta document.Metadata) ([]document.ParsedDocument, error) {
	ext := strings.ToLower(filepath.Ext(meta.FileName))
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(path))
	}
	if p, ok := b.Extractors[ext]; ok && p != nil {
		return p.Parse(ctx, path, meta)
	}
	return b.Default.Parse(ctx, path, meta)
}
