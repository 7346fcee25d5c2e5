package servicebus

import (
	"context"
	"encoding/json"
	"errors"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// NewServiceBus connects with the default Azure credential chain.
func NewServiceBus(_ context.Context, namespace string) (*azservicebus.Client, error) {
	if namespace == "" {
		return nil, errors.New("service bus namespace is empty")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// JobEventSender sends terminal job events to a Service Bus queue.
type JobEventSender struct {
	sender messageSender
}

func NewJobEventSender(client *azservicebus.Client, queue string) (*JobEventSender, error) {
	sender, err := client.NewSender(queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making new sender service bus.")
		return nil, err
	}
	return &JobEventSender{sender: sender}, nil
}

func (s *JobEventSender) PublishJobEvent(ctx context.Context, evt *model.JobEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	contentType := "application/json"
	subject := evt.Type
	msg := &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		Subject:     &subject,
		MessageID:   messageID(evt),
		ApplicationProperties: map[string]any{
			"job_id": evt.JobID,
			"state":  string(evt.State),
		},
	}
	if err := s.sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}

// one message per job state lets duplicate detection drop redelivered events
func messageID(evt *model.JobEvent) *string {
	id := evt.JobID + ":" + string(evt.State)
	return &id
}

func (s *JobEventSender) Close(ctx context.Context) {
	if err := s.sender.Close(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while closing sender.")
	}
}
