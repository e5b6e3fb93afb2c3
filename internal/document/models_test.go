package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_PreservesContent(t *testing.T) {
	d := &ParsedDocument{
		ID:       "3f0c",
		Text:     "hello world",
		Metadata: NewMetadata("a.pdf", "application/pdf", 10, time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)),
	}
	blob, err := Encode(d)
	require.NoError(t, err)
	assert.Contains(t, blob, `"doc_id":"3f0c"`)
	assert.Contains(t, blob, `"extra_info"`)
	assert.Contains(t, blob, `"creation_date":"2024-05-01"`)
	assert.NotContains(t, blob, "page_count")

	got, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestDecode_RejectsCorruptBlobs(t *testing.T) {
	for _, blob := range []string{"", "not json", "[]", "{}", `{"text":"x"}`} {
		_, err := Decode(blob)
		assert.Error(t, err, blob)
	}
}
