// Package events publishes domain events for downstream consumers such as the
// live tracking dashboard and notification workers. Emission is fire and
// forget: a publish failure is logged, never surfaced to the request path.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/transitworks/bus-booking-backend/internal/config"
)

// Event names published on the reservation channel
const (
	BookingCreated     = "booking-created"
	BookingCancelled   = "booking-cancelled"
	BookingConfirmed   = "booking-confirmed"
	BusLocationChanged = "bus-location-changed"
	TripStatusChanged  = "trip-status-changed"
)

// Emitter publishes domain events
type Emitter interface {
	Emit(event string, payload interface{})
	Close() error
}

type envelope struct {
	Event      string      `json:"event"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// RedisEmitter publishes events as JSON on a Redis pub/sub channel
type RedisEmitter struct {
	client  *redis.Client
	channel string
	logger  *logrus.Logger
}

// NewRedisEmitter connects to Redis and verifies the connection
func NewRedisEmitter(cfg config.RedisConfig, logger *logrus.Logger) (*RedisEmitter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisEmitter{client: client, channel: cfg.Channel, logger: logger}, nil
}

// Emit publishes the event on the configured channel
func (e *RedisEmitter) Emit(event string, payload interface{}) {
	body, err := json.Marshal(envelope{Event: event, OccurredAt: time.Now(), Payload: payload})
	if err != nil {
		e.logger.WithError(err).WithField("event", event).Error("Failed to marshal event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.client.Publish(ctx, e.channel, body).Err(); err != nil {
		e.logger.WithError(err).WithField("event", event).Warn("Failed to publish event")
	}
}

// Close closes the underlying Redis client
func (e *RedisEmitter) Close() error {
	return e.client.Close()
}

// LogEmitter writes events to the structured log. Used when no Redis address
// is configured.
type LogEmitter struct {
	logger *logrus.Logger
}

// NewLogEmitter creates a log-only emitter
func NewLogEmitter(logger *logrus.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit logs the event
func (e *LogEmitter) Emit(event string, payload interface{}) {
	e.logger.WithFields(logrus.Fields{
		"event":   event,
		"payload": payload,
	}).Info("Domain event")
}

// Close is a no-op for the log emitter
func (e *LogEmitter) Close() error {
	return nil
}
