// Package reports is the application service for quarterly expense
// reporting: filing lobbyist and employer reports, resolving their status
// against the filing deadline, and managing receipt attachments.
package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	"github.com/opencivic/lobbyreg/internal/domain/registry"
	"github.com/opencivic/lobbyreg/internal/domain/reporting"
	"github.com/opencivic/lobbyreg/internal/infrastructure/messaging/kafka"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/prometheus"
	"github.com/opencivic/lobbyreg/internal/infrastructure/storage/minio"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

// EventPublisher is the messaging seam the service emits domain events
// through. *kafka.Producer satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, msg *kafka.ProducerMessage) error
}

// LineItemInput is one food/entertainment expense in a filing request.
type LineItemInput struct {
	Date        time.Time       `json:"date"`
	Payee       string          `json:"payee"`
	Official    string          `json:"official"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	ReceiptKey  string          `json:"receipt_key,omitempty"`
}

// FileReportRequest files or replaces a lobbyist's report for one period.
type FileReportRequest struct {
	LobbyistID  string          `json:"lobbyist_id"`
	Quarter     string          `json:"quarter"`
	Year        int             `json:"year"`
	Draft       bool            `json:"draft,omitempty"`
	SubmittedAt *time.Time      `json:"submitted_at,omitempty"`
	LineItems   []LineItemInput `json:"line_items"`
}

// FileEmployerReportRequest files or replaces an employer's quarterly spend
// report.
type FileEmployerReportRequest struct {
	EmployerID  string          `json:"employer_id"`
	Quarter     string          `json:"quarter"`
	Year        int             `json:"year"`
	Draft       bool            `json:"draft,omitempty"`
	TotalSpend  decimal.Decimal `json:"total_lobbying_spend"`
	SubmittedAt *time.Time      `json:"submitted_at,omitempty"`
}

// AttachReceiptRequest uploads a receipt file against an existing report.
type AttachReceiptRequest struct {
	LobbyistID  string `json:"lobbyist_id"`
	ReportID    string `json:"report_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"-"`
}

// Service is the expense-reporting application API.
type Service interface {
	FileReport(ctx context.Context, req FileReportRequest) (*reporting.ExpenseReport, error)
	GetReport(ctx context.Context, id string) (*reporting.ExpenseReport, error)
	GetReportByPeriod(ctx context.Context, lobbyistID string, p compliance.Period) (*reporting.ExpenseReport, error)
	ListReports(ctx context.Context, lobbyistID string, limit, offset int) ([]*reporting.ExpenseReport, int64, error)
	ListAllReports(ctx context.Context, limit, offset int) ([]*reporting.ExpenseReport, int64, error)

	FileEmployerReport(ctx context.Context, req FileEmployerReportRequest) (*reporting.EmployerReport, error)
	ListEmployerReports(ctx context.Context, employerID string, limit, offset int) ([]*reporting.EmployerReport, int64, error)

	AttachReceipt(ctx context.Context, req AttachReceiptRequest) (*minio.ReceiptInfo, error)
	ListReceipts(ctx context.Context, lobbyistID, reportID string) ([]*minio.ReceiptInfo, error)
	ReceiptDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type service struct {
	reports   reporting.Repository
	registry  registry.Repository
	receipts  minio.ReceiptStore
	publisher EventPublisher
	metrics   *prometheus.AppMetrics
	log       logging.Logger
}

// NewService wires the reporting service. receipts, publisher, and metrics
// may be nil; the corresponding operations fail or are skipped.
func NewService(
	reports reporting.Repository,
	reg registry.Repository,
	receipts minio.ReceiptStore,
	publisher EventPublisher,
	metrics *prometheus.AppMetrics,
	log logging.Logger,
) Service {
	return &service{
		reports:   reports,
		registry:  reg,
		receipts:  receipts,
		publisher: publisher,
		metrics:   metrics,
		log:       log.Named("reports"),
	}
}

// FileReport creates or replaces the lobbyist's report for the period. The
// report status is resolved against the period's due date at filing time;
// re-filing replaces the line items wholesale.
func (s *service) FileReport(ctx context.Context, req FileReportRequest) (*reporting.ExpenseReport, error) {
	if _, err := s.registry.GetLobbyist(ctx, req.LobbyistID); err != nil {
		return nil, err
	}
	period, err := compliance.NewPeriod(req.Quarter, req.Year)
	if err != nil {
		return nil, err
	}

	items := make([]reporting.LineItem, len(req.LineItems))
	for i, in := range req.LineItems {
		items[i] = reporting.LineItem{
			Date:        in.Date,
			Payee:       in.Payee,
			Official:    in.Official,
			Amount:      in.Amount,
			Description: in.Description,
			ReceiptKey:  in.ReceiptKey,
		}
	}

	report, err := reporting.NewExpenseReport(req.LobbyistID, period, req.Draft, req.SubmittedAt, items)
	if err != nil {
		return nil, err
	}
	if err := s.reports.UpsertExpenseReport(ctx, report); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ReportsSubmittedTotal.WithLabelValues(string(report.Status)).Inc()
	}
	if report.Status != compliance.ReportDraft {
		s.publish(ctx, kafka.TopicReportSubmitted, "report.submitted", kafka.ReportSubmittedPayload{
			ReportID:    report.ID,
			LobbyistID:  report.LobbyistID,
			Quarter:     report.Quarter.String(),
			Year:        report.Year,
			TotalAmount: report.Total,
			Status:      string(report.Status),
			SubmittedAt: *report.SubmittedAt,
		})
	}
	s.log.Info("expense report filed",
		logging.String("report_id", report.ID),
		logging.String("lobbyist_id", report.LobbyistID),
		logging.String("period", period.String()),
		logging.String("status", string(report.Status)),
		logging.String("total", report.Total.String()))
	return report, nil
}

func (s *service) GetReport(ctx context.Context, id string) (*reporting.ExpenseReport, error) {
	return s.reports.GetExpenseReport(ctx, id)
}

func (s *service) GetReportByPeriod(ctx context.Context, lobbyistID string, p compliance.Period) (*reporting.ExpenseReport, error) {
	if !p.Quarter.IsValid() {
		return nil, errors.New(errors.ErrCodeQuarterInvalid, errors.DefaultMessageForCode(errors.ErrCodeQuarterInvalid))
	}
	return s.reports.GetExpenseReportByPeriod(ctx, lobbyistID, p)
}

func (s *service) ListReports(ctx context.Context, lobbyistID string, limit, offset int) ([]*reporting.ExpenseReport, int64, error) {
	limit, offset = clampPage(limit, offset)
	return s.reports.ListExpenseReports(ctx, lobbyistID, limit, offset)
}

func (s *service) ListAllReports(ctx context.Context, limit, offset int) ([]*reporting.ExpenseReport, int64, error) {
	limit, offset = clampPage(limit, offset)
	return s.reports.ListAllExpenseReports(ctx, limit, offset)
}

// FileEmployerReport creates or replaces an employer's quarterly total
// spend report.
func (s *service) FileEmployerReport(ctx context.Context, req FileEmployerReportRequest) (*reporting.EmployerReport, error) {
	if _, err := s.registry.GetEmployer(ctx, req.EmployerID); err != nil {
		return nil, err
	}
	period, err := compliance.NewPeriod(req.Quarter, req.Year)
	if err != nil {
		return nil, err
	}
	report, err := reporting.NewEmployerReport(req.EmployerID, period, req.Draft, req.TotalSpend, req.SubmittedAt)
	if err != nil {
		return nil, err
	}
	if err := s.reports.UpsertEmployerReport(ctx, report); err != nil {
		return nil, err
	}
	s.log.Info("employer report filed",
		logging.String("report_id", report.ID),
		logging.String("employer_id", report.EmployerID),
		logging.String("period", period.String()),
		logging.String("status", string(report.Status)))
	return report, nil
}

func (s *service) ListEmployerReports(ctx context.Context, employerID string, limit, offset int) ([]*reporting.EmployerReport, int64, error) {
	limit, offset = clampPage(limit, offset)
	return s.reports.ListEmployerReports(ctx, employerID, limit, offset)
}

// AttachReceipt stores a receipt file for a report the lobbyist owns.
func (s *service) AttachReceipt(ctx context.Context, req AttachReceiptRequest) (*minio.ReceiptInfo, error) {
	if s.receipts == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "receipt storage is not configured")
	}
	report, err := s.reports.GetExpenseReport(ctx, req.ReportID)
	if err != nil {
		return nil, err
	}
	if report.LobbyistID != req.LobbyistID {
		return nil, errors.New(errors.ErrCodeReportNotFound, errors.DefaultMessageForCode(errors.ErrCodeReportNotFound)).
			WithDetail("report belongs to another lobbyist")
	}

	info, err := s.receipts.Upload(ctx, &minio.ReceiptUpload{
		LobbyistID:  req.LobbyistID,
		ReportID:    req.ReportID,
		Filename:    req.Filename,
		Data:        req.Data,
		ContentType: req.ContentType,
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ReceiptUploadsTotal.WithLabelValues(info.ContentType).Inc()
	}
	s.log.Info("receipt attached",
		logging.String("report_id", req.ReportID),
		logging.String("key", info.Key),
		logging.Int64("size", info.Size))
	return info, nil
}

func (s *service) ListReceipts(ctx context.Context, lobbyistID, reportID string) ([]*minio.ReceiptInfo, error) {
	if s.receipts == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "receipt storage is not configured")
	}
	return s.receipts.ListByReport(ctx, lobbyistID, reportID)
}

func (s *service) ReceiptDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if s.receipts == nil {
		return "", errors.New(errors.ErrCodeServiceUnavailable, "receipt storage is not configured")
	}
	return s.receipts.PresignedDownloadURL(ctx, key, expiry)
}

// publish sends a domain event. Delivery is best effort: a publish failure
// is logged and never fails the request that produced it.
func (s *service) publish(ctx context.Context, topic, eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	envelope, err := kafka.NewEventEnvelope(eventType, "lobbyreg", payload)
	if err != nil {
		s.log.Warn("failed to build event envelope", logging.String("topic", topic), logging.Err(err))
		return
	}
	msg, err := envelope.ToMessage(topic)
	if err != nil {
		s.log.Warn("failed to encode event", logging.String("topic", topic), logging.Err(err))
		return
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.log.Warn("failed to publish event", logging.String("topic", topic), logging.Err(err))
	}
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
