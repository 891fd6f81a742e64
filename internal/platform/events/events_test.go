package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/sony/sonyflake/v2"
)

func newTestSonyflake(t *testing.T) *sonyflake.Sonyflake {
	t.Helper()
	var st sonyflake.Settings
	sf, err := sonyflake.New(st)
	if err != nil {
		t.Skipf("sonyflake unavailable on this host: %v", err)
	}
	return sf
}

func TestKafkaPublisher_Publish(t *testing.T) {
	sf := newTestSonyflake(t)
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true

	producer := mocks.NewSyncProducer(t, config)
	var captured []byte
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		captured = val
		return nil
	})

	pub := newKafkaPublisher(producer, "keyword-hits", sf)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	payload := map[string]string{"keyword": "golang"}
	if err := pub.Publish(context.Background(), "keyword.hit", "-100", payload); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	var envelope struct {
		ID         int64             `json:"id"`
		Type       string            `json:"type"`
		OccurredAt time.Time         `json:"occurred_at"`
		Payload    map[string]string `json:"payload"`
	}
	if err := json.Unmarshal(captured, &envelope); err != nil {
		t.Fatalf("Invalid envelope: %v", err)
	}
	if envelope.ID == 0 || envelope.Type != "keyword.hit" || !envelope.OccurredAt.Equal(fixed) {
		t.Errorf("Unexpected envelope: %+v", envelope)
	}
	if envelope.Payload["keyword"] != "golang" {
		t.Errorf("Unexpected payload: %v", envelope.Payload)
	}

	if err := pub.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestKafkaPublisher_SendFailure(t *testing.T) {
	sf := newTestSonyflake(t)
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := newKafkaPublisher(producer, "keyword-hits", sf)
	defer pub.Close()

	if err := pub.Publish(context.Background(), "keyword.hit", "k", struct{}{}); err == nil {
		t.Error("Expected send failure to be returned")
	}
}
