package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docchat/backend/internal/document"
	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
)

const (
	typePDF  = "application/pdf"
	typeDOC  = "application/msword"
	typeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// minRun is the shortest printable run kept when scraping legacy .doc files.
const minRun = 4

// ErrUnsupportedFormat is returned for files Local cannot read.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Local extracts text in-process: PDF pages, DOCX paragraphs and printable
// runs from legacy DOC files.
type Local struct{}

func NewLocal() *Local { return &Local{} }

func (l *Local) Parse(ctx context.Context, path string, meta document.Metadata) ([]document.ParsedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		text  string
		pages int
		err   error
	)
	switch kind(path, meta) {
	case typePDF:
		text, pages, err = readPDF(path)
	case typeDOCX:
		text, err = readDOCX(path)
	case typeDOC:
		text, err = readDOC(path)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	meta.PageCount = pages
	return []document.ParsedDocument{{ID: uuid.NewString(), Text: text, Metadata: meta}}, nil
}

func kind(path string, meta document.Metadata) string {
	switch meta.FileType {
	case typePDF, typeDOC, typeDOCX:
		return meta.FileType
	}
	name := meta.FileName
	if name == "" {
		name = path
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return typePDF
	case ".docx":
		return typeDOCX
	case ".doc":
		return typeDOC
	}
	return ""
}

func readPDF(path string) (text string, pages int, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	rd, err := r.GetPlainText()
	if err != nil {
		return "", 0, fmt.Errorf("read pdf: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rd); err != nil {
		return "", 0, fmt.Errorf("read pdf: %w", err)
	}
	return strings.TrimSpace(buf.String()), r.NumPage(), nil
}

func readDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open docx body: %w", err)
		}
		defer rc.Close()
		return docxText(rc)
	}
	return "", fmt.Errorf("open docx: word/document.xml not found")
}

// docxText walks WordprocessingML and keeps text runs, tabs and breaks.
func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		sb     strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read docx body: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func readDOC(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read doc: %w", err)
	}
	return printableRuns(b), nil
}

// printableRuns keeps runs of printable text, accepting both 8-bit and
// UTF-16LE encodings as stored by Word 97-2003.
func printableRuns(b []byte) string {
	var (
		out []string
		cur []byte
	)
	flush := func() {
		if s := strings.TrimSpace(string(cur)); len(s) >= minRun {
			out = append(out, s)
		}
		cur = cur[:0]
	}
	for i := 0; i < len(b); i++ {
		c := b[i]
		if isPrintable(c) {
			cur = append(cur, c)
			// skip the high byte of a UTF-16LE code unit
			if i+1 < len(b) && b[i+1] == 0 {
				i++
			}
			continue
		}
		flush()
	}
	flush()
	return strings.Join(out, "\n")
}

func isPrintable(c byte) bool {
	return c == '\t' || (c >= 0x20 && c < 0x7f)
}
