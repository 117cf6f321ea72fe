package iot

import (
	"context"
	"log"
	"time"

	"parking_reserve/internal/config"

	"github.com/segmentio/kafka-go"
)

// ResStatusHandler processes one reservation-status feed message. Returning
// nil commits the offset.
type ResStatusHandler interface {
	HandleResStatusEvent(ctx context.Context, body []byte) error
}

// KafkaConsumer reads the reservation-status topic (occupancy feed B).
type KafkaConsumer struct {
	reader  *kafka.Reader
	handler ResStatusHandler
}

func NewKafkaConsumer(cfg *config.Config, handler ResStatusHandler) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		GroupID:        cfg.KafkaGroupID,
		Topic:          cfg.KafkaResStatusTopic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return &KafkaConsumer{reader: reader, handler: handler}
}

func (c *KafkaConsumer) Start(ctx context.Context) {
	log.Printf("Kafka Consumer: listening on topic: %s", c.reader.Config().Topic)
	defer c.reader.Close()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				log.Println("Kafka Consumer: context cancelled, stopping.")
				return
			default:
			}
			log.Printf("Kafka Consumer: error fetching message: %v", err)
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		if err := c.handler.HandleResStatusEvent(ctx, m.Value); err != nil {
			log.Printf("Kafka Consumer: error processing message at offset %d: %v", m.Offset, err)
			continue
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Printf("Kafka Consumer: error committing offset %d: %v", m.Offset, err)
		}
	}
}
