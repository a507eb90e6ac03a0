// Package notify 将 tier >= 2 的分诊结果推送给临床通知层
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"safemama-triage/common/mqtt"
	commonredis "safemama-triage/common/redis"
	"safemama-triage/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Publisher 临床告警发布器
type Publisher interface {
	PublishAlert(ctx context.Context, alert models.ClinicianAlert) error
}

// StreamPublisher 通过 Redis Streams 发布告警
type StreamPublisher struct {
	redisClient *redis.Client
	stream      string
	maxLen      int64
	logger      *zap.Logger
}

// NewStreamPublisher 创建 Redis Streams 发布器
func NewStreamPublisher(redisClient *redis.Client, stream string, maxLen int64, logger *zap.Logger) *StreamPublisher {
	return &StreamPublisher{
		redisClient: redisClient,
		stream:      stream,
		maxLen:      maxLen,
		logger:      logger,
	}
}

// PublishAlert 实现 Publisher
func (p *StreamPublisher) PublishAlert(ctx context.Context, alert models.ClinicianAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	id, err := commonredis.PublishToStream(ctx, p.redisClient, p.stream, p.maxLen, map[string]interface{}{
		"report_id":  alert.ReportID,
		"patient_id": alert.PatientID,
		"tier":       int(alert.Tier),
		"data":       payload,
		"timestamp":  alert.CreatedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish alert to stream %s: %w", p.stream, err)
	}

	p.logger.Debug("Clinician alert published",
		zap.String("stream", p.stream),
		zap.String("message_id", id),
		zap.String("report_id", alert.ReportID),
	)
	return nil
}

// MQTTPublisher 通过 MQTT 发布告警
type MQTTPublisher struct {
	client *mqtt.Client
	topic  string
	logger *zap.Logger
}

// NewMQTTPublisher 创建 MQTT 发布器
func NewMQTTPublisher(client *mqtt.Client, topic string, logger *zap.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		topic:  topic,
		logger: logger,
	}
}

// PublishAlert 实现 Publisher；主题按患者细分：<topic>/<patient_id>
func (p *MQTTPublisher) PublishAlert(_ context.Context, alert models.ClinicianAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	topic := p.topic + "/" + alert.PatientID
	if err := p.client.Publish(topic, false, payload); err != nil {
		return err
	}

	p.logger.Debug("Clinician alert published",
		zap.String("topic", topic),
		zap.String("report_id", alert.ReportID),
	)
	return nil
}

// Noop 不发布任何告警
type Noop struct{}

// PublishAlert 实现 Publisher
func (Noop) PublishAlert(context.Context, models.ClinicianAlert) error { return nil }
