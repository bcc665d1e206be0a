// Package hours is the application service for lobbying hour logs. It
// accepts log entries, evaluates the quarterly registration threshold under
// a per-lobbyist lock, and serves quarterly summaries.
package hours

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opencivic/lobbyreg/internal/domain/compliance"
	domainhours "github.com/opencivic/lobbyreg/internal/domain/hours"
	"github.com/opencivic/lobbyreg/internal/domain/registry"
	"github.com/opencivic/lobbyreg/internal/infrastructure/database/redis"
	"github.com/opencivic/lobbyreg/internal/infrastructure/messaging/kafka"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/prometheus"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

const (
	summaryCacheTTL    = 30 * time.Second
	recentLogsInSummary = 5
)

// EventPublisher is the messaging seam the service emits domain events
// through. *kafka.Producer satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, msg *kafka.ProducerMessage) error
}

// LogHoursRequest carries one hour-log submission.
type LogHoursRequest struct {
	LobbyistID string          `json:"lobbyist_id"`
	Hours      decimal.Decimal `json:"hours"`
	Activity   string          `json:"activity"`
	Official   string          `json:"official,omitempty"`
	LoggedOn   time.Time       `json:"logged_on,omitempty"`
}

// LogHoursResult reports the accepted entry plus the threshold outcome of
// this append.
type LogHoursResult struct {
	Entry                *domainhours.HourLog `json:"entry"`
	QuarterTotal         decimal.Decimal      `json:"quarter_total"`
	ThresholdCrossed     bool                 `json:"threshold_crossed"`
	RegistrationDeadline *time.Time           `json:"registration_deadline,omitempty"`
}

// QuarterSummary is the lobbyist-facing view of one reporting period.
type QuarterSummary struct {
	LobbyistID           string                 `json:"lobbyist_id"`
	Quarter              compliance.Quarter     `json:"quarter"`
	Year                 int                    `json:"year"`
	TotalHours           decimal.Decimal        `json:"total_hours"`
	ThresholdHours       decimal.Decimal        `json:"threshold_hours"`
	ThresholdExceeded    bool                   `json:"threshold_exceeded"`
	HoursUntilThreshold  decimal.Decimal        `json:"hours_until_threshold"`
	RegistrationDeadline *time.Time             `json:"registration_deadline,omitempty"`
	ReportDueDate        time.Time              `json:"report_due_date"`
	DaysUntilDue         int                    `json:"days_until_due"`
	RecentLogs           []*domainhours.HourLog `json:"recent_logs"`
}

// CheckExemptionRequest carries declared circumstances for an exemption
// check. QuarterHours is taken as declared when set; otherwise LobbyistID
// must be set and the current quarter's logged hours are summed.
type CheckExemptionRequest struct {
	LobbyistID                string           `json:"lobbyist_id,omitempty"`
	QuarterHours              *decimal.Decimal `json:"quarter_hours,omitempty"`
	NewsMedia                 bool             `json:"news_media"`
	GovernmentOfficial        bool             `json:"government_official"`
	PublicTestimonyOnly       bool             `json:"public_testimony_only"`
	RespondingToCountyRequest bool             `json:"responding_to_county_request"`
	AdvisoryCommitteeMember   bool             `json:"advisory_committee_member"`
}

// ExemptionCheck is the API view of an exemption result.
type ExemptionCheck struct {
	Exempt               bool                     `json:"exempt"`
	Type                 compliance.ExemptionType `json:"exemption_type"`
	Reason               string                   `json:"reason"`
	MustRegister         bool                     `json:"must_register"`
	QuarterHours         decimal.Decimal          `json:"quarter_hours"`
	RegistrationDeadline *time.Time               `json:"registration_deadline,omitempty"`
}

// Service is the hour-logging application API.
type Service interface {
	LogHours(ctx context.Context, req LogHoursRequest) (*LogHoursResult, error)
	Summary(ctx context.Context, lobbyistID string, p compliance.Period) (*QuarterSummary, error)
	ListLogs(ctx context.Context, lobbyistID string, p compliance.Period, limit, offset int) ([]*domainhours.HourLog, int64, error)
	CheckExemption(ctx context.Context, req CheckExemptionRequest) (*ExemptionCheck, error)
}

type service struct {
	hourLogs  domainhours.Repository
	lobbyists registry.Repository
	policy    compliance.ThresholdPolicy
	locks     redis.LockFactory
	cache     redis.Cache
	publisher EventPublisher
	metrics   *prometheus.AppMetrics
	log       logging.Logger
	now       func() time.Time
}

// NewService wires the hour-logging service. cache, publisher, and metrics
// may be nil; the corresponding side effects are skipped.
func NewService(
	hourLogs domainhours.Repository,
	lobbyists registry.Repository,
	policy compliance.ThresholdPolicy,
	locks redis.LockFactory,
	cache redis.Cache,
	publisher EventPublisher,
	metrics *prometheus.AppMetrics,
	log logging.Logger,
) Service {
	return &service{
		hourLogs:  hourLogs,
		lobbyists: lobbyists,
		policy:    policy,
		locks:     locks,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		log:       log.Named("hours"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// LogHours appends an hour log and evaluates the registration threshold.
// The evaluation runs under a per-lobbyist-per-quarter lock so concurrent
// appends cannot both observe a below-threshold total and double-record the
// crossing.
func (s *service) LogHours(ctx context.Context, req LogHoursRequest) (*LogHoursResult, error) {
	lobbyist, err := s.lobbyists.GetLobbyist(ctx, req.LobbyistID)
	if err != nil {
		return nil, err
	}

	entry, err := domainhours.NewHourLog(req.LobbyistID, req.Hours, req.Activity, req.Official, req.LoggedOn)
	if err != nil {
		return nil, err
	}
	period := entry.Period()

	mutex := s.locks.NewMutex(thresholdLockKey(lobbyist.ID, period))
	if err := mutex.Lock(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConflict, "hour log is being processed, retry shortly")
	}
	defer func() {
		if err := mutex.Unlock(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("failed to release threshold lock",
				logging.String("lobbyist_id", lobbyist.ID), logging.Err(err))
		}
	}()

	previousTotal, err := s.hourLogs.QuarterTotal(ctx, lobbyist.ID, period)
	if err != nil {
		return nil, err
	}
	if err := s.hourLogs.Create(ctx, entry); err != nil {
		return nil, err
	}
	newTotal := previousTotal.Add(entry.Hours)

	result := &LogHoursResult{
		Entry:                entry,
		QuarterTotal:         newTotal,
		RegistrationDeadline: lobbyist.RegistrationDeadline,
	}

	outcome := s.policy.Evaluate(previousTotal, newTotal, lobbyist.ThresholdExceededAt != nil, s.now())
	if outcome.Crossed && lobbyist.RecordThresholdCrossing(outcome.ExceededAt, outcome.RegistrationDeadline) {
		if err := s.lobbyists.UpdateLobbyist(ctx, lobbyist); err != nil {
			return nil, err
		}
		result.ThresholdCrossed = true
		result.RegistrationDeadline = lobbyist.RegistrationDeadline
		if s.metrics != nil {
			prometheus.RecordThresholdCrossing(s.metrics, period.Quarter.String())
		}
		s.publish(ctx, kafka.TopicThresholdCrossed, "compliance.threshold_crossed", kafka.ThresholdCrossedPayload{
			LobbyistID:           lobbyist.ID,
			Quarter:              period.Quarter.String(),
			Year:                 period.Year,
			TotalHours:           newTotal,
			ExceededAt:           outcome.ExceededAt,
			RegistrationDeadline: outcome.RegistrationDeadline,
		})
		s.log.Info("registration threshold crossed",
			logging.String("lobbyist_id", lobbyist.ID),
			logging.String("period", period.String()),
			logging.String("total_hours", newTotal.String()),
			logging.String("registration_deadline", outcome.RegistrationDeadline.Format("2006-01-02")))
	}

	if s.metrics != nil {
		s.metrics.HoursLoggedTotal.WithLabelValues(period.Quarter.String()).Inc()
	}
	s.publish(ctx, kafka.TopicHoursLogged, "hours.logged", kafka.HoursLoggedPayload{
		HourLogID:  entry.ID,
		LobbyistID: entry.LobbyistID,
		Hours:      entry.Hours,
		Quarter:    entry.Quarter.String(),
		Year:       entry.Year,
		LoggedOn:   entry.LoggedOn,
	})
	s.invalidateSummary(ctx, lobbyist.ID, period)

	return result, nil
}

// Summary assembles the quarterly view. Results are cached briefly; any hour
// log append for the same period invalidates the cache.
func (s *service) Summary(ctx context.Context, lobbyistID string, p compliance.Period) (*QuarterSummary, error) {
	if !p.Quarter.IsValid() {
		return nil, errors.New(errors.ErrCodeQuarterInvalid, errors.DefaultMessageForCode(errors.ErrCodeQuarterInvalid))
	}
	if s.cache == nil {
		return s.buildSummary(ctx, lobbyistID, p)
	}

	var summary QuarterSummary
	key := summaryCacheKey(lobbyistID, p)
	err := s.cache.GetOrSet(ctx, key, &summary, summaryCacheTTL, func(ctx context.Context) (interface{}, error) {
		built, err := s.buildSummary(ctx, lobbyistID, p)
		if err != nil {
			return nil, err
		}
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *service) buildSummary(ctx context.Context, lobbyistID string, p compliance.Period) (*QuarterSummary, error) {
	lobbyist, err := s.lobbyists.GetLobbyist(ctx, lobbyistID)
	if err != nil {
		return nil, err
	}
	total, err := s.hourLogs.QuarterTotal(ctx, lobbyistID, p)
	if err != nil {
		return nil, err
	}
	recent, err := s.hourLogs.Recent(ctx, lobbyistID, p, recentLogsInSummary)
	if err != nil {
		return nil, err
	}
	return &QuarterSummary{
		LobbyistID:           lobbyist.ID,
		Quarter:              p.Quarter,
		Year:                 p.Year,
		TotalHours:           total,
		ThresholdHours:       s.policy.Hours,
		ThresholdExceeded:    s.policy.Exceeded(total),
		HoursUntilThreshold:  s.policy.HoursUntilThreshold(total),
		RegistrationDeadline: lobbyist.RegistrationDeadline,
		ReportDueDate:        compliance.DueDate(p),
		DaysUntilDue:         compliance.DaysUntilDue(p, s.now()),
		RecentLogs:           recent,
	}, nil
}

func (s *service) ListLogs(ctx context.Context, lobbyistID string, p compliance.Period, limit, offset int) ([]*domainhours.HourLog, int64, error) {
	if _, err := s.lobbyists.GetLobbyist(ctx, lobbyistID); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.hourLogs.ListByPeriod(ctx, lobbyistID, p, limit, offset)
}

// CheckExemption runs the ordinance exemption rules against declared
// circumstances, summing the current quarter's logged hours when no
// explicit figure is declared.
func (s *service) CheckExemption(ctx context.Context, req CheckExemptionRequest) (*ExemptionCheck, error) {
	var hours decimal.Decimal
	switch {
	case req.QuarterHours != nil:
		if req.QuarterHours.IsNegative() {
			return nil, errors.InvalidParam("quarter_hours must not be negative")
		}
		hours = *req.QuarterHours
	case req.LobbyistID != "":
		if _, err := s.lobbyists.GetLobbyist(ctx, req.LobbyistID); err != nil {
			return nil, err
		}
		total, err := s.hourLogs.QuarterTotal(ctx, req.LobbyistID, compliance.PeriodOf(s.now()))
		if err != nil {
			return nil, err
		}
		hours = total
	default:
		return nil, errors.InvalidParam("quarter_hours or lobbyist_id is required")
	}

	result := s.policy.CheckExemption(compliance.ExemptionFacts{
		QuarterHours:              hours,
		NewsMedia:                 req.NewsMedia,
		GovernmentOfficial:        req.GovernmentOfficial,
		PublicTestimonyOnly:       req.PublicTestimonyOnly,
		RespondingToCountyRequest: req.RespondingToCountyRequest,
		AdvisoryCommitteeMember:   req.AdvisoryCommitteeMember,
	}, s.now())

	return &ExemptionCheck{
		Exempt:               result.Exempt,
		Type:                 result.Type,
		Reason:               result.Reason,
		MustRegister:         result.MustRegister,
		QuarterHours:         hours,
		RegistrationDeadline: result.RegistrationDeadline,
	}, nil
}

// publish sends a domain event. Event delivery is best effort: a publish
// failure is logged and never fails the request that produced it.
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
	start := time.Now()
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.log.Warn("failed to publish event", logging.String("topic", topic), logging.Err(err))
	}
	if s.metrics != nil {
		s.metrics.EventPublishDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	}
}

func (s *service) invalidateSummary(ctx context.Context, lobbyistID string, p compliance.Period) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, summaryCacheKey(lobbyistID, p)); err != nil {
		s.log.Warn("failed to invalidate summary cache",
			logging.String("lobbyist_id", lobbyistID), logging.Err(err))
	}
}

func summaryCacheKey(lobbyistID string, p compliance.Period) string {
	return fmt.Sprintf("hours:summary:%s:%s", lobbyistID, p)
}

func thresholdLockKey(lobbyistID string, p compliance.Period) string {
	return fmt.Sprintf("hours:threshold:%s:%s", lobbyistID, p)
}
