package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docchat/backend/internal/document"
	"github.com/docchat/backend/pkg/logger"
	"github.com/google/uuid"
)

// LlamaParse talks to a LlamaParse-compatible service: upload the file, poll
// the job until it finishes, then fetch the markdown result.
type LlamaParse struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	Client       *http.Client
}

func NewLlamaParse(baseURL, apiKey string, poll time.Duration) *LlamaParse {
	if poll <= 0 {
		poll = time.Second
	}
	return &LlamaParse{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		APIKey:       apiKey,
		PollInterval: poll,
		Client:       &http.Client{Timeout: 60 * time.Second},
	}
}

type llamaJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error_message,omitempty"`
}

type llamaResult struct {
	Markdown    string `json:"markdown"`
	JobMetadata struct {
		JobPages int `json:"job_pages"`
	} `json:"job_metadata"`
}

func (l *LlamaParse) Parse(ctx context.Context, path string, meta document.Metadata) ([]document.ParsedDocument, error) {
	job, err := l.upload(ctx, path, meta)
	if err != nil {
		return nil, err
	}
	logger.Debugf("llamaparse: job %s submitted for %s", job.ID, meta.FileName)

	for job.Status != "SUCCESS" {
		switch job.Status {
		case "ERROR", "CANCELED":
			return nil, fmt.Errorf("llamaparse job %s failed: %s", job.ID, job.Error)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.PollInterval):
		}
		if err := l.getJSON(ctx, "/api/parsing/job/"+job.ID, job); err != nil {
			return nil, err
		}
	}

	var res llamaResult
	if err := l.getJSON(ctx, "/api/parsing/job/"+job.ID+"/result/markdown", &res); err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Markdown) == "" {
		return nil, nil
	}
	meta.PageCount = res.JobMetadata.JobPages
	return []document.ParsedDocument{{ID: uuid.NewString(), Text: res.Markdown, Metadata: meta}}, nil
}

func (l *LlamaParse) upload(ctx context.Context, path string, meta document.Metadata) (*llamaJob, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		name := meta.FileName
		if name == "" {
			name = filepath.Base(path)
		}
		part, err := mw.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.BaseURL+"/api/parsing/upload", pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var job llamaJob
	if err := l.do(req, &job); err != nil {
		_ = pr.Close()
		return nil, err
	}
	if job.ID == "" {
		return nil, fmt.Errorf("llamaparse upload returned no job id")
	}
	return &job, nil
}

func (l *LlamaParse) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return l.do(req, out)
}

func (l *LlamaParse) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.APIKey)
	resp, err := l.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("llamaparse %s returned %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
