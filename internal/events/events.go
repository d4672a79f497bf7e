// Package events publishes spin engine events to downstream consumers.
package events

import (
	"context"

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Event topics, suffixed to the configured prefix
const (
	TopicSpinCompleted   = "spin.completed"
	TopicSpinCompensated = "spin.compensated"
	TopicWinnerDrawn     = "winner.drawn"
	TopicTicketClaimed   = "ticket.claimed"
)

// Publisher delivers events after the state change they describe has committed
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
	Close() error
}

// LogPublisher writes events to the log when no broker is configured
type LogPublisher struct {
	log logrus.FieldLogger
}

// NewLogPublisher creates a publisher backed by the given logger
func NewLogPublisher(log logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish logs the event
func (p *LogPublisher) Publish(_ context.Context, topic, key string, payload any) error {
	p.log.WithFields(logrus.Fields{
		"topic":   topic,   // Event topic
		"key":     key,     // Partition key
		"payload": payload, // Event body
	}).Info("Event published")
	return nil
}

// Close is a no-op
func (p *LogPublisher) Close() error { return nil }
