package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opencivic/lobbyreg/internal/infrastructure/messaging/kafka"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/prometheus"
	"github.com/opencivic/lobbyreg/pkg/errors"
)

// AuditTopics lists the domain-event topics the auditor follows.
var AuditTopics = []string{
	kafka.TopicHoursLogged,
	kafka.TopicThresholdCrossed,
	kafka.TopicReportSubmitted,
	kafka.TopicViolationIssued,
	kafka.TopicAppealFiled,
	kafka.TopicAppealDecided,
	kafka.TopicRegistrationReviewed,
}

// Subscriber is the part of the kafka consumer the auditor needs.
type Subscriber interface {
	Subscribe(topic string, handler kafka.MessageHandler) error
	Start(ctx context.Context) error
}

// EventAuditor consumes every domain event and writes it to the
// structured log, giving operators a flat audit trail of compliance
// activity without querying the database.
type EventAuditor struct {
	metrics *prometheus.AppMetrics
	log     logging.Logger
	now     func() time.Time
}

func NewEventAuditor(metrics *prometheus.AppMetrics, log logging.Logger) *EventAuditor {
	return &EventAuditor{
		metrics: metrics,
		log:     log.Named("audit"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Attach registers the auditor on every audit topic.
func (a *EventAuditor) Attach(sub Subscriber) error {
	for _, topic := range AuditTopics {
		if err := sub.Subscribe(topic, a.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle records one consumed domain event. Malformed envelopes are
// rejected so the consumer's retry and dead-letter path applies.
func (a *EventAuditor) Handle(_ context.Context, msg *kafka.Message) error {
	start := a.now()

	var envelope kafka.EventEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "malformed event envelope")
	}

	a.log.Info("domain event",
		logging.String("topic", msg.Topic),
		logging.String("event_id", envelope.EventID),
		logging.String("event_type", envelope.EventType),
		logging.String("source", envelope.Source),
		logging.Any("payload", envelope.Payload))

	if a.metrics != nil {
		a.metrics.EventProcessDuration.WithLabelValues(msg.Topic).Observe(a.now().Sub(start).Seconds())
	}
	return nil
}
