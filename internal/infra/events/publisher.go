package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/segmentio/kafka-go"
)

type KafkaPublisher struct {
	w      *kafka.Writer
	logger echo.Logger
	now    func() time.Time
}

// keyはorder_numberなので同じ注文のイベントは同じpartitionに入る
func NewKafkaPublisher(brokers []string, topic string, logger echo.Logger) *KafkaPublisher {
	p := &KafkaPublisher{logger: logger, now: time.Now}
	p.w = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion:   p.completion,
	}
	return p
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, key string, payload any) error {
	env, err := NewEnvelope(eventType, key, payload, p.now())
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}

	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	})
}

// Asyncなので送信失敗はここでしか分からない
func (p *KafkaPublisher) completion(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		p.logger.Errorj(log.JSON{"msg": "kafka publish failed", "key": string(m.Key), "error": err.Error()})
	}
}

// 残りを送ってから閉じる
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// KAFKA_BROKERS未設定のとき
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, eventType string, key string, payload any) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
