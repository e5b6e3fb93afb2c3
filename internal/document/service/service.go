package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"strings"
	"time"

	"github.com/docchat/backend/internal/document"
	"github.com/docchat/backend/internal/document/parser"
	"github.com/docchat/backend/internal/document/qa"
	"github.com/docchat/backend/internal/models"
	"github.com/docchat/backend/internal/storage"
	"github.com/docchat/backend/internal/users"
	"github.com/docchat/backend/pkg/apperr"
	"github.com/docchat/backend/pkg/logger"
	"github.com/docchat/backend/pkg/metrics"
)

// Client-facing messages.
const (
	MsgStored        = "Document stored successfully"
	MsgDeleted       = "Document deleted successfully"
	MsgEmpty         = "Document is empty"
	MsgUserNotFound  = "User not found"
	MsgCorrupt       = "Failed to parse stored document"
	MsgUnsupported   = "Unsupported file type"
	MsgTooLarge      = "File too large"
	MsgParseFailed   = "Failed to parse document"
	MsgCleanupFailed = "Failed to clean up temporary file"
)

// AllowedContentTypes is the upload allow-list.
var AllowedContentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// Options configures a Service. Archive may be nil.
type Options struct {
	Users    *users.Service
	Parser   parser.Parser
	Engine   qa.Engine
	Archive  storage.Archive
	MaxBytes int64
	TempDir  string
}

// Service owns the per-user document lifecycle: upload, read, ask and delete.
type Service struct {
	users    *users.Service
	parser   parser.Parser
	engine   qa.Engine
	archive  storage.Archive
	maxBytes int64
	tempDir  string
	now      func() time.Time
	remove   func(string) error
}

func New(o Options) *Service {
	if o.Archive == nil {
		o.Archive = storage.Noop{}
	}
	return &Service{
		users:    o.Users,
		parser:   o.Parser,
		engine:   o.Engine,
		archive:  o.Archive,
		maxBytes: o.MaxBytes,
		tempDir:  o.TempDir,
		now:      time.Now,
		remove:   os.Remove,
	}
}

// UploadResult is returned by a successful upload.
type UploadResult struct {
	Filename string
	Message  string
}

// Upload validates, parses and stores file as the user's only document.
// The stored document is unchanged on any error.
func (s *Service) Upload(ctx context.Context, userID int64, file io.Reader, filename, contentType string) (res *UploadResult, err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = string(apperr.CodeOf(err))
		}
		metrics.Uploads.WithLabelValues(result).Inc()
	}()

	mediaType := contentType
	if mt, _, perr := mime.ParseMediaType(contentType); perr == nil {
		mediaType = mt
	}
	if !AllowedContentTypes[mediaType] {
		return nil, apperr.New(apperr.CodeUnsupportedMediaType, MsgUnsupported)
	}

	tmp, err := os.CreateTemp(s.tempDir, "upload-*")
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "could not create temporary file")
	}
	tmpPath := tmp.Name()
	cleaned := false
	cleanup := func() error {
		if cleaned {
			return nil
		}
		cleaned = true
		_ = tmp.Close()
		if rerr := s.remove(tmpPath); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			logger.Errorf("document: remove temp file %s: %v", tmpPath, rerr)
			return apperr.Wrap(rerr, apperr.CodeInternal, MsgCleanupFailed)
		}
		return nil
	}
	defer func() {
		if cerr := cleanup(); cerr != nil && err == nil {
			res, err = nil, cerr
		}
	}()

	n, err := io.Copy(tmp, io.LimitReader(file, s.maxBytes+1))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "could not read upload")
	}
	if n > s.maxBytes {
		return nil, apperr.New(apperr.CodePayloadTooLarge, MsgTooLarge)
	}
	if err := tmp.Sync(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "could not write upload")
	}

	meta := document.NewMetadata(filename, mediaType, n, s.now())
	docs, err := s.parser.Parse(ctx, tmpPath, meta)
	if err != nil {
		logger.Warnf("document: parse %q for user %d: %v", filename, userID, err)
		return nil, apperr.Wrap(err, apperr.CodeParseFailure, MsgParseFailed)
	}
	if len(docs) == 0 {
		return nil, apperr.New(apperr.CodeParseFailure, MsgParseFailed)
	}
	blob, err := document.Encode(&docs[0])
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "could not encode document")
	}

	// The temp file must be gone before the commit so a cleanup failure leaves
	// the stored document untouched.
	s.archiveOriginal(ctx, userID, tmp, n, mediaType)
	if err := cleanup(); err != nil {
		return nil, err
	}

	_, err = s.users.UpdateDocument(ctx, userID, func(*models.User) (*string, error) {
		return &blob, nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	logger.Infof("document: user %d stored %q (%d bytes)", userID, filename, n)
	return &UploadResult{Filename: filename, Message: MsgStored}, nil
}

func (s *Service) archiveOriginal(ctx context.Context, userID int64, f *os.File, size int64, contentType string) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		logger.Warnf("document: archive seek for user %d: %v", userID, err)
		return
	}
	if err := s.archive.Put(ctx, userID, f, size, contentType); err != nil {
		logger.Warnf("document: archive upload for user %d: %v", userID, err)
	}
}

// Current returns the user's parsed document, or nil when none is stored.
func (s *Service) Current(ctx context.Context, userID int64) (*document.ParsedDocument, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	if !u.HasDocument() {
		return nil, nil
	}
	d, err := document.Decode(*u.Document)
	if err != nil {
		logger.Errorf("document: user %d has corrupt stored document: %v", userID, err)
		return nil, apperr.Wrap(err, apperr.CodeCorruptDocument, MsgCorrupt)
	}
	return d, nil
}

// Raw returns the stored blob as is (nil when absent).
func (s *Service) Raw(ctx context.Context, userID int64) (*string, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	if !u.HasDocument() {
		return nil, nil
	}
	return u.Document, nil
}

// Replace overwrites the stored blob verbatim. An empty blob clears it.
func (s *Service) Replace(ctx context.Context, userID int64, blob string) (*models.User, error) {
	u, err := s.users.UpdateDocument(ctx, userID, func(*models.User) (*string, error) {
		if blob == "" {
			return nil, nil
		}
		return &blob, nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return u, nil
}

// Ask answers question against the user's current document.
func (s *Service) Ask(ctx context.Context, userID int64, question string) (answer string, err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = string(apperr.CodeOf(err))
		}
		metrics.Questions.WithLabelValues(result).Inc()
	}()

	if strings.TrimSpace(question) == "" {
		return "", apperr.New(apperr.CodeValidation, "question must not be empty")
	}
	d, err := s.Current(ctx, userID)
	if err != nil {
		return "", err
	}
	if d == nil {
		return "", apperr.New(apperr.CodeNotFound, MsgEmpty)
	}
	answer, err = s.engine.Answer(ctx, d, question)
	if err != nil {
		logger.Errorf("document: answer for user %d: %v", userID, err)
		return "", apperr.Wrap(err, apperr.CodeInternal, "could not answer question")
	}
	return answer, nil
}

// Delete clears the user's document. Deleting an absent document succeeds.
func (s *Service) Delete(ctx context.Context, userID int64) error {
	_, err := s.users.UpdateDocument(ctx, userID, func(*models.User) (*string, error) {
		return nil, nil
	})
	if err != nil {
		return storeError(err)
	}
	if err := s.archive.Remove(ctx, userID); err != nil {
		logger.Warnf("document: archive remove for user %d: %v", userID, err)
	}
	return nil
}

func storeError(err error) error {
	if errors.Is(err, users.ErrNotFound) {
		return apperr.Wrap(err, apperr.CodeNotFound, MsgUserNotFound)
	}
	var ae *apperr.AppError
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Wrap(fmt.Errorf("store: %w", err), apperr.CodeInternal, "could not access document store")
}
