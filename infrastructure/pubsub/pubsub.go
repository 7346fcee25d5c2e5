package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, errors.New("pubsub project id is empty")
	}
	return pubsub.NewClient(ctx, projectID)
}

// JobEventPublisher sends terminal job events to a Pub/Sub topic, creating the
// topic on first use.
type JobEventPublisher struct {
	client    *pubsub.Client
	topicName string

	once     sync.Once
	topic    *pubsub.Topic
	topicErr error
}

func NewJobEventPublisher(client *pubsub.Client, topicName string) *JobEventPublisher {
	return &JobEventPublisher{client: client, topicName: topicName}
}

func (p *JobEventPublisher) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	p.once.Do(func() {
		topic := p.client.Topic(p.topicName)
		exists, err := topic.Exists(ctx)
		if err != nil {
			p.topicErr = err
			return
		}
		if !exists {
			logger.GetLogger().WithField("topic", p.topicName).Info("Topic doesn't exist - creating it")
			if topic, err = p.client.CreateTopic(ctx, p.topicName); err != nil {
				p.topicErr = err
				return
			}
		}
		p.topic = topic
	})
	return p.topic, p.topicErr
}

func (p *JobEventPublisher) PublishJobEvent(ctx context.Context, evt *model.JobEvent) error {
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	serverID, err := topic.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"type":   evt.Type,
			"job_id": evt.JobID,
			"state":  string(evt.State),
		},
	}).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("server ID", serverID).WithField("job_id", evt.JobID).Info("Job event published")
	return nil
}

// Stop flushes pending messages.
func (p *JobEventPublisher) Stop() {
	if p.topic != nil {
		p.topic.Stop()
	}
}
