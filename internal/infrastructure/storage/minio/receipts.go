package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

// Receipt content types accepted for upload. Scanned paper receipts come in
// as images or PDF.
var allowedReceiptTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
}

// ReceiptStore persists expense receipt attachments. Keys returned by Upload
// are stored on expense line items and resolved back through Download or
// presigned URLs.
type ReceiptStore interface {
	Upload(ctx context.Context, req *ReceiptUpload) (*ReceiptInfo, error)
	Download(ctx context.Context, key string) (*ReceiptContent, error)
	Stat(ctx context.Context, key string) (*ReceiptInfo, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	ListByReport(ctx context.Context, lobbyistID, reportID string) ([]*ReceiptInfo, error)
	PresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	PresignedUploadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ReceiptUpload carries one receipt file and the line item it documents.
type ReceiptUpload struct {
	LobbyistID  string
	ReportID    string
	Filename    string
	Data        []byte
	ContentType string
}

// ReceiptInfo describes a stored receipt object.
type ReceiptInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// ReceiptContent is a downloaded receipt with its payload.
type ReceiptContent struct {
	ReceiptInfo
	Data []byte
}

type receiptStore struct {
	client *Client
	logger logging.Logger
}

// NewReceiptStore creates a ReceiptStore backed by the given client's bucket.
func NewReceiptStore(client *Client, logger logging.Logger) ReceiptStore {
	return &receiptStore{client: client, logger: logger}
}

// ReceiptKey builds the object key for a receipt. Keys group receipts by
// lobbyist and report so a report's attachments can be listed by prefix.
func ReceiptKey(lobbyistID, reportID, filename string) string {
	return fmt.Sprintf("receipts/%s/%s/%s", lobbyistID, reportID, path.Base(filename))
}

func (s *receiptStore) Upload(ctx context.Context, req *ReceiptUpload) (*ReceiptInfo, error) {
	if req.LobbyistID == "" || req.ReportID == "" || req.Filename == "" {
		return nil, errors.New(errors.ErrCodeValidation, "lobbyist id, report id and filename are required")
	}
	if len(req.Data) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "receipt data is empty")
	}
	if max := s.client.config.MaxUploadSize; max > 0 && int64(len(req.Data)) > max {
		return nil, errors.New(errors.ErrCodeValidation, fmt.Sprintf("receipt exceeds maximum size of %d bytes", max))
	}

	contentType := req.ContentType
	if contentType == "" {
		n := len(req.Data)
		if n > 512 {
			n = 512
		}
		contentType = http.DetectContentType(req.Data[:n])
	}
	if !allowedReceiptTypes[contentType] {
		return nil, errors.New(errors.ErrCodeReceiptTypeInvalid, fmt.Sprintf("content type %s is not accepted", contentType))
	}

	key := ReceiptKey(req.LobbyistID, req.ReportID, req.Filename)
	info, err := s.client.api.PutObject(ctx, s.client.Bucket(), key,
		bytes.NewReader(req.Data), int64(len(req.Data)),
		minio.PutObjectOptions{
			ContentType: contentType,
			UserMetadata: map[string]string{
				"lobbyist-id": req.LobbyistID,
				"report-id":   req.ReportID,
			},
		})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "receipt upload failed")
	}

	s.logger.Info("Receipt uploaded",
		logging.String("key", key),
		logging.Int64("size", info.Size))

	return &ReceiptInfo{
		Key:          key,
		Size:         info.Size,
		ContentType:  contentType,
		ETag:         info.ETag,
		LastModified: time.Now().UTC(),
	}, nil
}

func (s *receiptStore) Download(ctx context.Context, key string) (*ReceiptContent, error) {
	obj, err := s.client.api.GetObject(ctx, s.client.Bucket(), key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "receipt download failed")
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		return nil, translateObjectError(err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "receipt read failed")
	}

	return &ReceiptContent{
		ReceiptInfo: ReceiptInfo{
			Key:          key,
			Size:         stat.Size,
			ContentType:  stat.ContentType,
			ETag:         stat.ETag,
			LastModified: stat.LastModified,
		},
		Data: data,
	}, nil
}

func (s *receiptStore) Stat(ctx context.Context, key string) (*ReceiptInfo, error) {
	stat, err := s.client.api.StatObject(ctx, s.client.Bucket(), key, minio.StatObjectOptions{})
	if err != nil {
		return nil, translateObjectError(err)
	}
	return &ReceiptInfo{
		Key:          key,
		Size:         stat.Size,
		ContentType:  stat.ContentType,
		ETag:         stat.ETag,
		LastModified: stat.LastModified,
	}, nil
}

func (s *receiptStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.api.StatObject(ctx, s.client.Bucket(), key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeInternal, "receipt stat failed")
	}
	return true, nil
}

func (s *receiptStore) Delete(ctx context.Context, key string) error {
	if err := s.client.api.RemoveObject(ctx, s.client.Bucket(), key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "receipt delete failed")
	}
	return nil
}

func (s *receiptStore) ListByReport(ctx context.Context, lobbyistID, reportID string) ([]*ReceiptInfo, error) {
	prefix := fmt.Sprintf("receipts/%s/%s/", lobbyistID, reportID)
	ch := s.client.api.ListObjects(ctx, s.client.Bucket(), minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var receipts []*ReceiptInfo
	for obj := range ch {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeInternal, "receipt listing failed")
		}
		receipts = append(receipts, &ReceiptInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}
	return receipts, nil
}

func (s *receiptStore) PresignedDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry == 0 {
		expiry = s.client.config.PresignExpiry
	}
	u, err := s.client.api.PresignedGetObject(ctx, s.client.Bucket(), key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to presign download")
	}
	return u.String(), nil
}

func (s *receiptStore) PresignedUploadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry == 0 {
		expiry = s.client.config.PresignExpiry
	}
	u, err := s.client.api.PresignedPutObject(ctx, s.client.Bucket(), key, expiry)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to presign upload")
	}
	return u.String(), nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func translateObjectError(err error) error {
	if isNoSuchKey(err) {
		return errors.New(errors.ErrCodeReceiptNotFound, "receipt not found")
	}
	return errors.Wrap(err, errors.ErrCodeInternal, "object storage error")
}
