package iot

import (
	"context"
	"log"
	"time"

	"parking_reserve/internal/config"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SensorEventHandler processes one sensor feed message. Returning nil lets
// the message be deleted; an error leaves it for redelivery after the
// visibility timeout.
type SensorEventHandler interface {
	HandleSensorEvent(ctx context.Context, body string) error
}

// SQSConsumer long-polls the sensor status queue (occupancy feed A).
type SQSConsumer struct {
	sqsClient *sqs.Client
	queueURL  string
	handler   SensorEventHandler
}

func NewSQSConsumer(client *sqs.Client, cfg *config.Config, handler SensorEventHandler) *SQSConsumer {
	return &SQSConsumer{
		sqsClient: client,
		queueURL:  cfg.SQSSensorQueueURL,
		handler:   handler,
	}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	log.Printf("SQS Consumer: listening on queue: %s", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			log.Println("SQS Consumer: context cancelled, stopping.")
			return
		default:
			receiveInput := &sqs.ReceiveMessageInput{
				QueueUrl:            &c.queueURL,
				MaxNumberOfMessages: 10,
				WaitTimeSeconds:     20,
				VisibilityTimeout:   60,
			}

			result, err := c.sqsClient.ReceiveMessage(ctx, receiveInput)
			if err != nil {
				log.Printf("SQS Consumer: error receiving messages: %v", err)
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					log.Println("SQS Consumer: context cancelled while waiting for retry.")
					return
				}
				continue
			}

			if len(result.Messages) == 0 {
				continue
			}

			for _, message := range result.Messages {
				if message.Body == nil {
					log.Println("SQS Consumer: received message with empty body, deleting.")
					c.deleteMessage(ctx, message.ReceiptHandle)
					continue
				}

				processingErr := c.handler.HandleSensorEvent(ctx, *message.Body)
				if processingErr == nil {
					c.deleteMessage(ctx, message.ReceiptHandle)
				} else {
					log.Printf("SQS Consumer: error processing message ID %s: %v. Message will be redelivered after visibility timeout.", *message.MessageId, processingErr)
				}
			}
		}
	}
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		log.Println("SQS Consumer: empty receipt handle, cannot delete message.")
		return
	}
	_, delErr := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if delErr != nil {
		log.Printf("SQS Consumer: error deleting message: %v", delErr)
	}
}
