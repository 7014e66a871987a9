package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"docchat/internal/metrics"
	"docchat/internal/model"
	"docchat/internal/pkg/pdfextract"
	"docchat/internal/platform/logger"
	"docchat/internal/repository"
	"docchat/internal/storage"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

type UploadResult struct {
	Document *model.Document `json:"document"`
	Chat     *model.Chat     `json:"chat"`
}

// DocumentService turns an uploaded file into a stored document and the
// chat that talks about it.
type DocumentService struct {
	documents  repository.DocumentStore
	chats      repository.ChatStore
	storage    storage.Storage
	maxBytes   int64
	presignTTL time.Duration
	metrics    *metrics.Metrics
	log        *logger.Logger
}

func NewDocumentService(
	documents repository.DocumentStore,
	chats repository.ChatStore,
	store storage.Storage,
	maxBytes int64,
	presignTTL time.Duration,
	m *metrics.Metrics,
	log *logger.Logger,
) *DocumentService {
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &DocumentService{
		documents:  documents,
		chats:      chats,
		storage:    store,
		maxBytes:   maxBytes,
		presignTTL: presignTTL,
		metrics:    m,
		log:        log.With("component", "document_service"),
	}
}

// Upload extracts the text of the file, stores the original bytes and
// creates the document and its chat. Files without text are rejected before
// anything is stored.
func (s *DocumentService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	res, err := s.upload(ctx, in)
	switch {
	case err == nil:
		s.metrics.Uploads.WithLabelValues(metrics.UploadStored).Inc()
	case isRejection(err):
		s.metrics.Uploads.WithLabelValues(metrics.UploadRejected).Inc()
	default:
		s.metrics.Uploads.WithLabelValues(metrics.UploadFailed).Inc()
	}
	return res, err
}

func (s *DocumentService) upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	name := strings.TrimSpace(in.Filename)
	if name == "" || in.Reader == nil {
		return nil, fmt.Errorf("%w: file is required", ErrInvalidRequest)
	}
	if s.maxBytes > 0 && in.Size > s.maxBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidRequest, s.maxBytes)
	}

	data, err := s.readLimited(in.Reader)
	if err != nil {
		return nil, err
	}

	text, err := extractText(name, data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	key := ObjectKey(uuid.NewString(), name)
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.storage.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
	}); err != nil {
		return nil, fmt.Errorf("%w: put object: %w", ErrStorage, err)
	}

	doc := &model.Document{
		ID:       uuid.NewString(),
		FilePath: key,
		Content:  text,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		s.removeObject(key)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	chat := &model.Chat{
		ID:         uuid.NewString(),
		Title:      name,
		DocumentID: doc.ID,
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		if delErr := s.documents.Delete(context.WithoutCancel(ctx), doc.ID); delErr != nil {
			s.log.Error("rollback document row failed", "document_id", doc.ID, "error", delErr)
		}
		s.removeObject(key)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.log.Info("document uploaded", "document_id", doc.ID, "chat_id", chat.ID, "bytes", len(data), "chars", len(text))
	return &UploadResult{Document: doc, Chat: chat}, nil
}

// DownloadURL returns a time-limited link to the original file.
func (s *DocumentService) DownloadURL(ctx context.Context, documentID string) (string, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return "", ErrInvalidRequest
	}
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if doc == nil {
		return "", ErrDocumentNotFound
	}
	url, err := s.storage.PresignGet(ctx, doc.FilePath, s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("%w: presign: %w", ErrStorage, err)
	}
	return url, nil
}

func (s *DocumentService) readLimited(r io.Reader) ([]byte, error) {
	if s.maxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: read upload: %w", ErrInvalidRequest, err)
		}
		return data, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read upload: %w", ErrInvalidRequest, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidRequest, s.maxBytes)
	}
	return data, nil
}

func (s *DocumentService) removeObject(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.storage.Delete(ctx, key); err != nil {
		s.log.Error("rollback stored object failed", "key", key, "error", err)
	}
}

// ObjectKey is the storage key of an upload: documents/<id>_<safe name>.
func ObjectKey(id, filename string) string {
	return "documents/" + id + "_" + unsafeNameChars.ReplaceAllString(filepath.Base(filename), "_")
}

func extractText(name string, data []byte) (string, error) {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		text, err := pdfextract.ExtractText(data)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return text, nil
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: file is neither a pdf nor utf-8 text", ErrInvalidRequest)
	}
	return string(data), nil
}

func isRejection(err error) bool {
	return errorsIsAny(err, ErrInvalidRequest, ErrEmptyDocument)
}
