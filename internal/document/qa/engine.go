// Package qa answers questions over a single parsed document by building a
// throwaway vector index per call.
package qa

import (
	"context"
	"fmt"
	"strings"

	"github.com/docchat/backend/internal/document"
)

// EmptyResponse is returned when the document has no retrievable text.
const EmptyResponse = "Empty Response"

// Engine answers a question against one document.
type Engine interface {
	Answer(ctx context.Context, doc *document.ParsedDocument, question string) (string, error)
}

// Embedder turns texts into vectors of equal dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator writes an answer from the question and the retrieved passages.
type Generator interface {
	Generate(ctx context.Context, question string, passages []string) (string, error)
}

// IndexEngine chunks the document, embeds the chunks, retrieves the TopK
// closest to the question and either generates an answer or returns the
// passages verbatim when Generator is nil.
type IndexEngine struct {
	Embedder     Embedder
	Generator    Generator
	ChunkSize    int
	ChunkOverlap int
	TopK         int
}

func (e *IndexEngine) Answer(ctx context.Context, doc *document.ParsedDocument, question string) (string, error) {
	chunks := Chunk(doc.Text, e.ChunkSize, e.ChunkOverlap)
	if len(chunks) == 0 {
		return EmptyResponse, nil
	}

	vecs, err := e.Embedder.Embed(ctx, append(chunks, question))
	if err != nil {
		return "", fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != len(chunks)+1 {
		return "", fmt.Errorf("embed: got %d vectors for %d inputs", len(vecs), len(chunks)+1)
	}

	idx := NewIndex()
	for i, c := range chunks {
		idx.Add(c, vecs[i])
	}
	hits := idx.Search(vecs[len(chunks)], e.topK())
	passages := make([]string, 0, len(hits))
	for _, h := range hits {
		passages = append(passages, h.Text)
	}
	if len(passages) == 0 {
		return EmptyResponse, nil
	}

	if e.Generator == nil {
		return strings.Join(passages, "\n\n"), nil
	}
	answer, err := e.Generator.Generate(ctx, question, passages)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return EmptyResponse, nil
	}
	return answer, nil
}

func (e *IndexEngine) topK() int {
	if e.TopK <= 0 {
		return 2
	}
	return e.TopK
}

// Chunk splits text into windows of at most size words that overlap by
// overlap words. Non-positive sizes fall back to 1024/200.
func Chunk(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 {
		size = 1024
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	var chunks []string
	step := size - overlap
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
