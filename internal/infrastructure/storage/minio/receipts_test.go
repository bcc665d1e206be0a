package minio

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	apperrors "github.com/opencivic/lobbyreg/pkg/errors"
)

type mockObjectAPI struct {
	buckets      map[string]bool
	objects      map[string]minio.ObjectInfo
	listErr      error
	putFunc      func(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	removed      []string
	madeBuckets  []string
	presignedGet []string
	presignedPut []string
}

func newMockObjectAPI() *mockObjectAPI {
	return &mockObjectAPI{
		buckets: map[string]bool{"lobbyreg-receipts": true},
		objects: make(map[string]minio.ObjectInfo),
	}
}

func (m *mockObjectAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	infos := make([]minio.BucketInfo, 0, len(m.buckets))
	for name := range m.buckets {
		infos = append(infos, minio.BucketInfo{Name: name})
	}
	return infos, nil
}

func (m *mockObjectAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return m.buckets[bucketName], nil
}

func (m *mockObjectAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	m.buckets[bucketName] = true
	m.madeBuckets = append(m.madeBuckets, bucketName)
	return nil
}

func (m *mockObjectAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if m.putFunc != nil {
		return m.putFunc(ctx, bucketName, objectName, reader, objectSize, opts)
	}
	m.objects[objectName] = minio.ObjectInfo{
		Key:          objectName,
		Size:         objectSize,
		ContentType:  opts.ContentType,
		ETag:         "etag-1",
		LastModified: time.Now().UTC(),
	}
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: objectSize, ETag: "etag-1"}, nil
}

func (m *mockObjectAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error) {
	return nil, minio.ErrorResponse{Code: "NoSuchKey"}
}

func (m *mockObjectAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	info, ok := m.objects[objectName]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	}
	return info, nil
}

func (m *mockObjectAPI) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	delete(m.objects, objectName)
	m.removed = append(m.removed, objectName)
	return nil
}

func (m *mockObjectAPI) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo)
	go func() {
		defer close(ch)
		for key, info := range m.objects {
			if strings.HasPrefix(key, opts.Prefix) {
				ch <- info
			}
		}
	}()
	return ch
}

func (m *mockObjectAPI) PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	m.presignedGet = append(m.presignedGet, objectName)
	return url.Parse("https://storage.example.gov/" + bucketName + "/" + objectName + "?sig=get")
}

func (m *mockObjectAPI) PresignedPutObject(ctx context.Context, bucketName, objectName string, expiry time.Duration) (*url.URL, error) {
	m.presignedPut = append(m.presignedPut, objectName)
	return url.Parse("https://storage.example.gov/" + bucketName + "/" + objectName + "?sig=put")
}

func newTestStore(api ObjectAPI) (*receiptStore, *Client) {
	cfg := ClientConfig{
		Endpoint:      "localhost:9000",
		Bucket:        "lobbyreg-receipts",
		PresignExpiry: time.Hour,
		MaxUploadSize: 1024,
	}
	client := &Client{api: api, config: cfg, logger: logging.NewNopLogger()}
	return &receiptStore{client: client, logger: logging.NewNopLogger()}, client
}

// pngHeader is a minimal valid PNG signature so content detection resolves
// to image/png.
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func TestReceiptKey(t *testing.T) {
	key := ReceiptKey("lob-1", "rep-1", "receipt.pdf")
	assert.Equal(t, "receipts/lob-1/rep-1/receipt.pdf", key)

	key = ReceiptKey("lob-1", "rep-1", "../../../etc/passwd")
	assert.Equal(t, "receipts/lob-1/rep-1/passwd", key, "path traversal is stripped")
}

func TestReceiptStore_Upload(t *testing.T) {
	api := newMockObjectAPI()
	store, _ := newTestStore(api)

	info, err := store.Upload(context.Background(), &ReceiptUpload{
		LobbyistID:  "lob-1",
		ReportID:    "rep-1",
		Filename:    "dinner.png",
		Data:        pngHeader,
		ContentType: "image/png",
	})
	require.NoError(t, err)

	assert.Equal(t, "receipts/lob-1/rep-1/dinner.png", info.Key)
	assert.Equal(t, "image/png", info.ContentType)

	stored, ok := api.objects[info.Key]
	require.True(t, ok)
	assert.Equal(t, int64(len(pngHeader)), stored.Size)
}

func TestReceiptStore_UploadDetectsContentType(t *testing.T) {
	api := newMockObjectAPI()
	store, _ := newTestStore(api)

	info, err := store.Upload(context.Background(), &ReceiptUpload{
		LobbyistID: "lob-1",
		ReportID:   "rep-1",
		Filename:   "dinner",
		Data:       pngHeader,
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)
}

func TestReceiptStore_UploadValidation(t *testing.T) {
	store, _ := newTestStore(newMockObjectAPI())
	ctx := context.Background()

	_, err := store.Upload(ctx, &ReceiptUpload{ReportID: "rep-1", Filename: "a.pdf", Data: pngHeader})
	assert.True(t, apperrors.IsValidation(err), "missing lobbyist id")

	_, err = store.Upload(ctx, &ReceiptUpload{LobbyistID: "lob-1", ReportID: "rep-1", Filename: "a.pdf"})
	assert.True(t, apperrors.IsValidation(err), "empty data")

	_, err = store.Upload(ctx, &ReceiptUpload{
		LobbyistID: "lob-1", ReportID: "rep-1", Filename: "a.bin",
		Data: []byte("plain text content"), ContentType: "text/plain",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeReceiptTypeInvalid))

	big := make([]byte, 2048)
	copy(big, pngHeader)
	_, err = store.Upload(ctx, &ReceiptUpload{
		LobbyistID: "lob-1", ReportID: "rep-1", Filename: "a.png",
		Data: big, ContentType: "image/png",
	})
	assert.True(t, apperrors.IsValidation(err), "oversized upload")
}

func TestReceiptStore_StatAndExists(t *testing.T) {
	api := newMockObjectAPI()
	store, _ := newTestStore(api)
	ctx := context.Background()

	_, err := store.Upload(ctx, &ReceiptUpload{
		LobbyistID: "lob-1", ReportID: "rep-1", Filename: "a.png",
		Data: pngHeader, ContentType: "image/png",
	})
	require.NoError(t, err)

	key := ReceiptKey("lob-1", "rep-1", "a.png")
	info, err := store.Stat(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, key, info.Key)

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "receipts/lob-1/rep-1/missing.png")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Stat(ctx, "receipts/lob-1/rep-1/missing.png")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeReceiptNotFound))
}

func TestReceiptStore_Delete(t *testing.T) {
	api := newMockObjectAPI()
	store, _ := newTestStore(api)
	ctx := context.Background()

	_, err := store.Upload(ctx, &ReceiptUpload{
		LobbyistID: "lob-1", ReportID: "rep-1", Filename: "a.png",
		Data: pngHeader, ContentType: "image/png",
	})
	require.NoError(t, err)

	key := ReceiptKey("lob-1", "rep-1", "a.png")
	require.NoError(t, store.Delete(ctx, key))
	assert.Contains(t, api.removed, key)

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReceiptStore_ListByReport(t *testing.T) {
	api := newMockObjectAPI()
	store, _ := newTestStore(api)
	ctx := context.Background()

	for _, name := range []string{"a.png", "b.png"} {
		_, err := store.Upload(ctx, &ReceiptUpload{
			LobbyistID: "lob-1", ReportID: "rep-1", Filename: name,
			Data: pngHeader, ContentType: "image/png",
		})
		require.NoError(t, err)
	}
	_, err := store.Upload(ctx, &ReceiptUpload{
		LobbyistID: "lob-1", ReportID: "rep-2", Filename: "c.png",
		Data: pngHeader, ContentType: "image/png",
	})
	require.NoError(t, err)

	receipts, err := store.ListByReport(ctx, "lob-1", "rep-1")
	require.NoError(t, err)
	assert.Len(t, receipts, 2, "only the requested report's receipts are listed")
}

func TestReceiptStore_PresignedURLs(t *testing.T) {
	api := newMockObjectAPI()
	store, _ := newTestStore(api)
	ctx := context.Background()

	key := ReceiptKey("lob-1", "rep-1", "a.png")
	getURL, err := store.PresignedDownloadURL(ctx, key, 0)
	require.NoError(t, err)
	assert.Contains(t, getURL, key)
	assert.Contains(t, getURL, "sig=get")

	putURL, err := store.PresignedUploadURL(ctx, key, 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, putURL, "sig=put")
}

func TestClient_EnsureBucketCreatesMissing(t *testing.T) {
	api := newMockObjectAPI()
	delete(api.buckets, "lobbyreg-receipts")
	_, client := newTestStore(api)

	require.NoError(t, client.ensureBucket(context.Background()))
	assert.Contains(t, api.madeBuckets, "lobbyreg-receipts")
}

func TestClient_HealthCheck(t *testing.T) {
	api := newMockObjectAPI()
	_, client := newTestStore(api)

	status := client.HealthCheck(context.Background())
	assert.True(t, status.Healthy)

	delete(api.buckets, "lobbyreg-receipts")
	status = client.HealthCheck(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, "receipt bucket missing", status.Error)
}

func TestApplyDefaults(t *testing.T) {
	cfg := ClientConfig{Endpoint: "localhost:9000"}
	applyDefaults(&cfg)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "lobbyreg-receipts", cfg.Bucket)
	assert.Equal(t, time.Hour, cfg.PresignExpiry)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadSize)
}
