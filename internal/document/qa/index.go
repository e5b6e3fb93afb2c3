package qa

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"
)

// Hit is a retrieved chunk with its cosine similarity to the query.
type Hit struct {
	Text  string
	Score float64
}

// Index is an in-memory cosine-similarity index. It is built per question and
// not safe for concurrent use.
type Index struct {
	texts []string
	vecs  [][]float32
}

func NewIndex() *Index { return &Index{} }

func (i *Index) Add(text string, vec []float32) {
	i.texts = append(i.texts, text)
	i.vecs = append(i.vecs, vec)
}

func (i *Index) Len() int { return len(i.texts) }

// Search returns up to k hits ordered by descending score. Ties keep insertion order.
func (i *Index) Search(q []float32, k int) []Hit {
	hits := make([]Hit, 0, len(i.texts))
	for n, v := range i.vecs {
		hits = append(hits, Hit{Text: i.texts[n], Score: cosine(q, v)})
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// HashEmbedder is a local bag-of-words embedder using feature hashing. It needs
// no network and gives lexical-overlap retrieval.
type HashEmbedder struct {
	Dim int
}

func (h HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	dim := h.Dim
	if dim <= 0 {
		dim = 512
	}
	out := make([][]float32, len(texts))
	for n, t := range texts {
		v := make([]float32, dim)
		for _, tok := range tokenize(t) {
			f := fnv.New32a()
			_, _ = f.Write([]byte(tok))
			v[f.Sum32()%uint32(dim)]++
		}
		out[n] = v
	}
	return out, nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
