package iot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"parking_reserve/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
)

type slotCommandPayload struct {
	Command    string `json:"command"`
	FloorTitle string `json:"floor_title"`
	SlotIndex  int    `json:"slot_index"`
	Timestamp  string `json:"timestamp"`
}

// IndicatorPublisher pushes display commands to the physical slot
// indicators over AWS IoT. Publishing is best-effort: the indicators
// reconcile from sensor state anyway, so a failed publish is only logged.
type IndicatorPublisher struct {
	iotDataClient *iotdataplane.Client
	topicPrefix   string
}

func NewIndicatorPublisher(client *iotdataplane.Client, cfg *config.Config) *IndicatorPublisher {
	return &IndicatorPublisher{iotDataClient: client, topicPrefix: cfg.IoTTopicPrefix}
}

func (p *IndicatorPublisher) SignalReserved(ctx context.Context, establishmentName, floorTitle string, slotIndex int) {
	p.publish(ctx, establishmentName, floorTitle, slotIndex, "RESERVED")
}

func (p *IndicatorPublisher) SignalReleased(ctx context.Context, establishmentName, floorTitle string, slotIndex int) {
	p.publish(ctx, establishmentName, floorTitle, slotIndex, "VACANT")
}

func (p *IndicatorPublisher) publish(ctx context.Context, establishmentName, floorTitle string, slotIndex int, command string) {
	topic := fmt.Sprintf("%s/%s/slots/%s_%d/command", p.topicPrefix, establishmentName, floorTitle, slotIndex)
	payloadBytes, err := json.Marshal(slotCommandPayload{
		Command:    command,
		FloorTitle: floorTitle,
		SlotIndex:  slotIndex,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("IndicatorPublisher: error marshaling command payload: %v", err)
		return
	}

	_, err = p.iotDataClient.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(topic),
		Qos:     1,
		Payload: payloadBytes,
	})
	if err != nil {
		log.Printf("IndicatorPublisher: error publishing '%s' to topic %s: %v", command, topic, err)
		return
	}
	log.Printf("IndicatorPublisher: sent '%s' to topic %s", command, topic)
}
