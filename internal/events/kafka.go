package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go" // Kafka client
	"github.com/sirupsen/logrus"    // Logrus for structured logging
)

const defaultWorkerNum = 4

// KafkaPublisher sends events to Kafka through a small worker pool
type KafkaPublisher struct {
	writer *kafka.Writer
	prefix string
	log    logrus.FieldLogger
	jobs   chan kafka.Message
	wg     sync.WaitGroup
	once   sync.Once
}

// KafkaConfig holds configuration for the Kafka publisher
type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
	WorkerNum   int
	Logger      logrus.FieldLogger
}

// NewKafkaPublisher creates a publisher and starts its workers
func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	workers := cfg.WorkerNum
	if workers <= 0 {
		workers = defaultWorkerNum
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	p := &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{}, // Same key, same partition
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  3,
			WriteTimeout: 10 * time.Second,
		},
		prefix: cfg.TopicPrefix,
		log:    cfg.Logger.WithField("component", "kafka-publisher"),
		jobs:   make(chan kafka.Message, 256),
	}
	for range workers {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *KafkaPublisher) worker() {
	defer p.wg.Done()
	for msg := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := p.writer.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			p.log.WithFields(logrus.Fields{
				"topic": msg.Topic,       // Target topic
				"key":   string(msg.Key), // Partition key
				"error": err.Error(),     // Error message
			}).Error("Failed to send event to Kafka")
		}
	}
}

// Topic returns the full topic name for an event
func (p *KafkaPublisher) Topic(topic string) string {
	if p.prefix == "" {
		return topic
	}
	return p.prefix + "." + topic
}

// Publish queues the event; it fails only if the payload cannot be encoded or ctx ends first
func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{Topic: p.Topic(topic), Key: []byte(key), Value: body, Time: time.Now()}
	select {
	case p.jobs <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains queued events and closes the writer
func (p *KafkaPublisher) Close() error {
	var err error
	p.once.Do(func() {
		close(p.jobs)
		p.wg.Wait()
		err = p.writer.Close()
	})
	return err
}
