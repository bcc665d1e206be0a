package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencivic/lobbyreg/internal/infrastructure/monitoring/logging"
	apperrors "github.com/opencivic/lobbyreg/pkg/errors"
)

type mockKafkaConn struct {
	created    []kafka.TopicConfig
	deleted    []string
	partitions []kafka.Partition
	createErr  error
	readErr    error
	closed     bool
}

func (m *mockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, topics...)
	return nil
}

func (m *mockKafkaConn) DeleteTopics(topics ...string) error {
	m.deleted = append(m.deleted, topics...)
	return nil
}

func (m *mockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.partitions, nil
}

func (m *mockKafkaConn) Close() error {
	m.closed = true
	return nil
}

func newTestTopicManager(conn ConnInterface) *TopicManager {
	return &TopicManager{conn: conn, logger: logging.NewNopLogger()}
}

func TestEventEnvelope_RoundTrip(t *testing.T) {
	payload := ThresholdCrossedPayload{
		LobbyistID:           "lob-1",
		Quarter:              "Q1",
		Year:                 2025,
		TotalHours:           decimal.RequireFromString("10.5"),
		ExceededAt:           time.Date(2025, 2, 14, 9, 30, 0, 0, time.UTC),
		RegistrationDeadline: time.Date(2025, 2, 19, 0, 0, 0, 0, time.UTC),
	}
	env, err := NewEventEnvelope(TopicThresholdCrossed, "compliance-monitor", payload)
	require.NoError(t, err)

	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, TopicThresholdCrossed, env.EventType)
	assert.Equal(t, "compliance-monitor", env.Source)
	assert.Equal(t, "v1", env.SchemaVersion)
	assert.False(t, env.Timestamp.IsZero())

	var decoded ThresholdCrossedPayload
	require.NoError(t, env.DecodePayload(&decoded))
	assert.Equal(t, "lob-1", decoded.LobbyistID)
	assert.Equal(t, "Q1", decoded.Quarter)
	assert.True(t, decoded.TotalHours.Equal(payload.TotalHours))
	assert.True(t, decoded.RegistrationDeadline.Equal(payload.RegistrationDeadline))
}

func TestEventEnvelope_ToMessage(t *testing.T) {
	env, err := NewEventEnvelope(TopicAppealDecided, "appeals-service", AppealDecidedPayload{
		AppealID:    "app-1",
		ViolationID: "vio-1",
		LobbyistID:  "lob-1",
		Outcome:     "UPHELD",
	})
	require.NoError(t, err)
	env.TraceID = "trace-42"

	msg, err := env.ToMessage(TopicAppealDecided)
	require.NoError(t, err)

	assert.Equal(t, TopicAppealDecided, msg.Topic)
	assert.Equal(t, TopicAppealDecided, msg.Headers["event_type"])
	assert.Equal(t, "appeals-service", msg.Headers["source_service"])
	assert.Equal(t, "v1", msg.Headers["schema_version"])
	assert.Equal(t, "trace-42", msg.Headers["trace_id"])
	assert.Equal(t, env.Timestamp, msg.Timestamp)

	parsed, err := MessageToEventEnvelope(&Message{Value: msg.Value})
	require.NoError(t, err)
	assert.Equal(t, env.EventID, parsed.EventID)

	var decoded AppealDecidedPayload
	require.NoError(t, parsed.DecodePayload(&decoded))
	assert.Equal(t, "UPHELD", decoded.Outcome)
}

func TestMessageToEventEnvelope_Invalid(t *testing.T) {
	_, err := MessageToEventEnvelope(&Message{})
	assert.True(t, apperrors.IsValidation(err), "empty value should fail validation")

	_, err = MessageToEventEnvelope(&Message{Value: []byte("not json")})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSerialization))
}

func TestTopicManager_CreateTopic(t *testing.T) {
	conn := &mockKafkaConn{}
	m := newTestTopicManager(conn)

	err := m.CreateTopic(context.Background(), TopicConfig{
		Name:              TopicViolationIssued,
		NumPartitions:     3,
		ReplicationFactor: 3,
		RetentionMs:       90 * 24 * 3600 * 1000,
		CleanupPolicy:     "delete",
		MaxMessageBytes:   1 << 20,
		Configs:           map[string]string{"min.insync.replicas": "2"},
	})
	require.NoError(t, err)

	require.Len(t, conn.created, 1)
	created := conn.created[0]
	assert.Equal(t, TopicViolationIssued, created.Topic)
	assert.Equal(t, 3, created.NumPartitions)

	entries := make(map[string]string, len(created.ConfigEntries))
	for _, e := range created.ConfigEntries {
		entries[e.ConfigName] = e.ConfigValue
	}
	assert.Equal(t, "7776000000", entries["retention.ms"])
	assert.Equal(t, "delete", entries["cleanup.policy"])
	assert.Equal(t, "1048576", entries["max.message.bytes"])
	assert.Equal(t, "2", entries["min.insync.replicas"])
}

func TestTopicManager_CreateTopicValidation(t *testing.T) {
	m := newTestTopicManager(&mockKafkaConn{})
	ctx := context.Background()

	err := m.CreateTopic(ctx, TopicConfig{NumPartitions: 1, ReplicationFactor: 1})
	assert.True(t, apperrors.IsValidation(err))

	err = m.CreateTopic(ctx, TopicConfig{Name: "t", ReplicationFactor: 1})
	assert.True(t, apperrors.IsValidation(err))

	err = m.CreateTopic(ctx, TopicConfig{Name: "t", NumPartitions: 1})
	assert.True(t, apperrors.IsValidation(err))
}

func TestTopicManager_CreateTopicAlreadyExists(t *testing.T) {
	conn := &mockKafkaConn{
		createErr:  errors.New("topic already exists"),
		partitions: []kafka.Partition{{Topic: TopicHoursLogged}},
	}
	m := newTestTopicManager(conn)

	err := m.CreateTopic(context.Background(), TopicConfig{
		Name:              TopicHoursLogged,
		NumPartitions:     6,
		ReplicationFactor: 3,
	})
	assert.NoError(t, err, "existing topic is not an error")
}

func TestTopicManager_CreateTopicFailure(t *testing.T) {
	conn := &mockKafkaConn{
		createErr: errors.New("not enough brokers"),
		readErr:   errors.New("unavailable"),
	}
	m := newTestTopicManager(conn)

	err := m.CreateTopic(context.Background(), TopicConfig{
		Name:              TopicHoursLogged,
		NumPartitions:     6,
		ReplicationFactor: 3,
	})
	assert.Error(t, err)
}

func TestTopicManager_ListTopicsDeduplicates(t *testing.T) {
	conn := &mockKafkaConn{
		partitions: []kafka.Partition{
			{Topic: TopicHoursLogged},
			{Topic: TopicHoursLogged},
			{Topic: TopicAppealFiled},
		},
	}
	m := newTestTopicManager(conn)

	topics, err := m.ListTopics(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{TopicHoursLogged, TopicAppealFiled}, topics)
}

func TestTopicManager_EnsureDefaultTopics(t *testing.T) {
	conn := &mockKafkaConn{}
	m := newTestTopicManager(conn)

	require.NoError(t, m.EnsureDefaultTopics(context.Background()))
	assert.Len(t, conn.created, len(DefaultTopics()))

	names := make([]string, 0, len(conn.created))
	for _, c := range conn.created {
		names = append(names, c.Topic)
	}
	assert.Contains(t, names, TopicThresholdCrossed)
	assert.Contains(t, names, TopicViolationIssued)
	assert.Contains(t, names, TopicDeadLetterDefault)
}

func TestTopicManager_Close(t *testing.T) {
	conn := &mockKafkaConn{}
	m := newTestTopicManager(conn)
	require.NoError(t, m.Close())
	assert.True(t, conn.closed)
}
