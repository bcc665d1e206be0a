package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appreports "github.com/opencivic/lobbyreg/internal/application/reports"
	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	"github.com/opencivic/lobbyreg/internal/domain/reporting"
	"github.com/opencivic/lobbyreg/internal/infrastructure/storage/minio"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

type stubReportsService struct {
	appreports.Service

	fileReport    func(ctx context.Context, req appreports.FileReportRequest) (*reporting.ExpenseReport, error)
	attachReceipt func(ctx context.Context, req appreports.AttachReceiptRequest) (*minio.ReceiptInfo, error)
	receiptURL    func(ctx context.Context, key string, expiry time.Duration) (string, error)
}

func (s *stubReportsService) FileReport(ctx context.Context, req appreports.FileReportRequest) (*reporting.ExpenseReport, error) {
	return s.fileReport(ctx, req)
}

func (s *stubReportsService) AttachReceipt(ctx context.Context, req appreports.AttachReceiptRequest) (*minio.ReceiptInfo, error) {
	return s.attachReceipt(ctx, req)
}

func (s *stubReportsService) ReceiptDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return s.receiptURL(ctx, key, expiry)
}

func newReportsRouter(svc appreports.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewReportsHandler(svc).Register(r.Group("/api/v1"))
	return r
}

func TestFileReportCreated(t *testing.T) {
	var gotReq appreports.FileReportRequest
	svc := &stubReportsService{
		fileReport: func(_ context.Context, req appreports.FileReportRequest) (*reporting.ExpenseReport, error) {
			gotReq = req
			return &reporting.ExpenseReport{
				ID:         "rep-1",
				LobbyistID: req.LobbyistID,
				Quarter:    compliance.Q2,
				Year:       req.Year,
				Status:     compliance.ReportSubmitted,
			}, nil
		},
	}
	r := newReportsRouter(svc)

	body := jsonBody(t, gin.H{
		"lobbyist_id": "lob-1",
		"quarter":     "Q2",
		"year":        2026,
		"line_items": []gin.H{
			{
				"date":     "2026-05-12T00:00:00Z",
				"payee":    "Harborview Grill",
				"official": "Councilmember Ruiz",
				"amount":   "125.40",
			},
		},
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reports", body))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "lob-1", gotReq.LobbyistID)
	assert.Equal(t, "Q2", gotReq.Quarter)
	require.Len(t, gotReq.LineItems, 1)

	var got reporting.ExpenseReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "rep-1", got.ID)
	assert.Equal(t, compliance.ReportSubmitted, got.Status)
}

func TestFileReportMalformedBody(t *testing.T) {
	r := newReportsRouter(&stubReportsService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", bytes.NewReader([]byte("{not json")))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.CodeInvalidParam), decodeError(t, w).Code)
}

func TestAttachReceiptMultipart(t *testing.T) {
	var gotReq appreports.AttachReceiptRequest
	svc := &stubReportsService{
		attachReceipt: func(_ context.Context, req appreports.AttachReceiptRequest) (*minio.ReceiptInfo, error) {
			gotReq = req
			return &minio.ReceiptInfo{Key: "receipts/lob-1/rep-1/dinner.pdf", Size: int64(len(req.Data))}, nil
		},
	}
	r := newReportsRouter(svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("receipt", "dinner.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 receipt"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/rep-1/receipts?lobbyist_id=lob-1", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "rep-1", gotReq.ReportID)
	assert.Equal(t, "lob-1", gotReq.LobbyistID)
	assert.Equal(t, "dinner.pdf", gotReq.Filename)
	assert.Equal(t, []byte("%PDF-1.4 receipt"), gotReq.Data)
}

func TestAttachReceiptMissingFilePart(t *testing.T) {
	r := newReportsRouter(&stubReportsService{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/rep-1/receipts", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.CodeInvalidParam), decodeError(t, w).Code)
}

func TestReceiptURLDefaultExpiry(t *testing.T) {
	svc := &stubReportsService{
		receiptURL: func(_ context.Context, key string, expiry time.Duration) (string, error) {
			assert.Equal(t, "receipts/lob-1/rep-1/dinner.pdf", key)
			assert.Equal(t, 15*time.Minute, expiry)
			return "https://minio.local/presigned", nil
		},
	}
	r := newReportsRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/receipts/url?key=receipts%2Flob-1%2Frep-1%2Fdinner.pdf", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		URL              string `json:"url"`
		ExpiresInSeconds int    `json:"expires_in_seconds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "https://minio.local/presigned", got.URL)
	assert.Equal(t, 900, got.ExpiresInSeconds)
}

func TestReceiptURLRequiresKey(t *testing.T) {
	r := newReportsRouter(&stubReportsService{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/receipts/url", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.CodeInvalidParam), decodeError(t, w).Code)
}
