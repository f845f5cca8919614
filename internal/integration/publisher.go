package integration

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Publisher 事件投递目标
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// KafkaPublisher 投递到 Kafka,以任务 ID 作为分区键
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaPublisher 创建 Kafka 投递器
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
	}
	return &KafkaPublisher{writer: writer, topic: topic}
}

// Publish 写入一条消息
func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.TaskID),
		Value: value,
		Time:  evt.Time,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	})
}

// Close 关闭 Kafka 连接
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher 未配置 Kafka 时把事件写入日志
type LogPublisher struct {
	logger *logrus.Logger
}

// NewLogPublisher 创建日志投递器
func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish 记录事件
func (p *LogPublisher) Publish(_ context.Context, evt Event) error {
	p.logger.WithFields(logrus.Fields{
		"event_id": evt.ID,
		"type":     evt.Type,
		"task_id":  evt.TaskID,
		"actor":    evt.Actor,
	}).Info("schedule event")
	return nil
}

// Close 无需关闭
func (p *LogPublisher) Close() error {
	return nil
}
