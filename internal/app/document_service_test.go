package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docchat/internal/metrics"
	"docchat/internal/model"
	"docchat/internal/platform/logger"
	"docchat/internal/repository/mocks"
	"docchat/internal/storage"
	storagemocks "docchat/internal/storage/mocks"
)

type uploadFixture struct {
	docs    *mocks.MockDocumentStore
	chats   *mocks.MockChatStore
	store   *storagemocks.MockStorage
	metrics *metrics.Metrics
	svc     *DocumentService
}

func newUploadFixture(maxBytes int64) *uploadFixture {
	f := &uploadFixture{
		docs:    new(mocks.MockDocumentStore),
		chats:   new(mocks.MockChatStore),
		store:   new(storagemocks.MockStorage),
		metrics: metrics.NewNop(),
	}
	f.svc = NewDocumentService(f.docs, f.chats, f.store, maxBytes, time.Minute, f.metrics, logger.NewNop())
	return f
}

var documentKey = mock.MatchedBy(func(key string) bool { return strings.HasPrefix(key, "documents/") })

func TestDocumentService_UploadText(t *testing.T) {
	f := newUploadFixture(1 << 20)

	var putBody string
	f.store.On("Put", mock.Anything, documentKey, mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
		return opt.Size == int64(len("Invoice total: $42")) && opt.ContentType == "text/plain"
	})).Run(func(args mock.Arguments) {
		b, _ := io.ReadAll(args.Get(2).(io.Reader))
		putBody = string(b)
	}).Return(storage.ObjectInfo{}, nil)

	var createdDoc *model.Document
	f.docs.On("Create", mock.Anything, mock.AnythingOfType("*model.Document")).
		Run(func(args mock.Arguments) { createdDoc = args.Get(1).(*model.Document) }).
		Return(nil)
	f.chats.On("Create", mock.Anything, mock.AnythingOfType("*model.Chat")).Return(nil)

	res, err := f.svc.Upload(context.Background(), UploadInput{
		Filename:    "invoice march.txt",
		ContentType: "text/plain",
		Size:        int64(len("Invoice total: $42")),
		Reader:      strings.NewReader("Invoice total: $42"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Invoice total: $42", putBody)
	require.NotNil(t, createdDoc)
	assert.Equal(t, "Invoice total: $42", createdDoc.Content)
	assert.True(t, strings.HasSuffix(createdDoc.FilePath, "_invoice_march.txt"))
	assert.Equal(t, "invoice march.txt", res.Chat.Title)
	assert.Equal(t, createdDoc.ID, res.Chat.DocumentID)
	assert.NotEmpty(t, res.Chat.ID)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Uploads.WithLabelValues(metrics.UploadStored)))
	f.store.AssertExpectations(t)
	f.docs.AssertExpectations(t)
	f.chats.AssertExpectations(t)
}

func TestDocumentService_UploadRejections(t *testing.T) {
	tests := []struct {
		name    string
		input   UploadInput
		wantErr error
	}{
		{"no filename", UploadInput{Filename: " ", Reader: strings.NewReader("x")}, ErrInvalidRequest},
		{"declared too large", UploadInput{Filename: "a.txt", Size: 64, Reader: strings.NewReader("x")}, ErrInvalidRequest},
		{"read too large", UploadInput{Filename: "a.txt", Reader: strings.NewReader(strings.Repeat("x", 33))}, ErrInvalidRequest},
		{"blank text", UploadInput{Filename: "a.txt", Reader: strings.NewReader(" \n\t ")}, ErrEmptyDocument},
		{"binary text", UploadInput{Filename: "a.bin", Reader: strings.NewReader("\xff\xfe\xfd")}, ErrInvalidRequest},
		{"broken pdf", UploadInput{Filename: "a.PDF", Reader: strings.NewReader("not a pdf")}, ErrInvalidRequest},
		{"empty pdf", UploadInput{Filename: "a.pdf", Reader: strings.NewReader("")}, ErrEmptyDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUploadFixture(32)

			_, err := f.svc.Upload(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			f.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.chats.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Uploads.WithLabelValues(metrics.UploadRejected)))
		})
	}
}

func TestDocumentService_UploadPutFails(t *testing.T) {
	f := newUploadFixture(0)
	f.store.On("Put", mock.Anything, documentKey, mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, errors.New("bucket gone"))

	_, err := f.svc.Upload(context.Background(), UploadInput{Filename: "a.txt", Reader: strings.NewReader("text")})
	assert.ErrorIs(t, err, ErrStorage)
	f.docs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Uploads.WithLabelValues(metrics.UploadFailed)))
}

func TestDocumentService_UploadRollsBackObject(t *testing.T) {
	f := newUploadFixture(0)

	var key string
	f.store.On("Put", mock.Anything, documentKey, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { key = args.String(1) }).
		Return(storage.ObjectInfo{}, nil)
	f.docs.On("Create", mock.Anything, mock.Anything).Return(errors.New("duplicate key"))
	f.store.On("Delete", mock.Anything, documentKey).Return(nil)

	_, err := f.svc.Upload(context.Background(), UploadInput{Filename: "a.txt", Reader: strings.NewReader("text")})
	assert.ErrorIs(t, err, ErrStorage)
	f.store.AssertCalled(t, "Delete", mock.Anything, key)
	f.chats.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDocumentService_UploadRollsBackDocumentWhenChatFails(t *testing.T) {
	f := newUploadFixture(0)

	var docID string
	f.store.On("Put", mock.Anything, documentKey, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
	f.docs.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { docID = args.Get(1).(*model.Document).ID }).
		Return(nil)
	f.chats.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
	f.docs.On("Delete", mock.Anything, mock.Anything).Return(nil)
	f.store.On("Delete", mock.Anything, documentKey).Return(nil)

	_, err := f.svc.Upload(context.Background(), UploadInput{Filename: "a.txt", Reader: strings.NewReader("text")})
	assert.ErrorIs(t, err, ErrStorage)
	f.docs.AssertCalled(t, "Delete", mock.Anything, docID)
	f.store.AssertNumberOfCalls(t, "Delete", 1)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "documents/id-1_my_report__v2_.pdf", ObjectKey("id-1", "my report (v2).pdf"))
	assert.Equal(t, "documents/id-1_passwd", ObjectKey("id-1", "../../etc/passwd"))
	assert.Equal(t, "documents/id-1_r_sum_.txt", ObjectKey("id-1", "résumé.txt"))
}

func TestDocumentService_DownloadURL(t *testing.T) {
	f := newUploadFixture(0)
	f.docs.On("GetByID", mock.Anything, "doc-1").Return(&model.Document{ID: "doc-1", FilePath: "documents/x_a.pdf"}, nil)
	f.docs.On("GetByID", mock.Anything, "doc-2").Return(nil, nil)
	f.store.On("PresignGet", mock.Anything, "documents/x_a.pdf", time.Minute).Return("https://minio.local/documents/x_a.pdf?sig", nil)

	url, err := f.svc.DownloadURL(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "https://minio.local/documents/x_a.pdf?sig", url)

	_, err = f.svc.DownloadURL(context.Background(), "doc-2")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = f.svc.DownloadURL(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
