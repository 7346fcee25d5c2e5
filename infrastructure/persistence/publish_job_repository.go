package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const publishJobCollection = "publish_jobs"

// PublishJobRepository keeps publish jobs as documents; per-platform results and
// errors are embedded so a job is read and written as one unit.
type PublishJobRepository struct {
	collection *mongo.Collection
}

func NewPublishJobRepository(client *mongo.Client, database string) *PublishJobRepository {
	return &PublishJobRepository{collection: client.Database(database).Collection(publishJobCollection)}
}

// EnsurePublishJobIndexes creates the indexes the scheduler and API queries rely on.
func (r *PublishJobRepository) EnsurePublishJobIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "scheduled_at", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("ensure publish job indexes: %w", err)
	}
	return nil
}

func (r *PublishJobRepository) Create(ctx context.Context, job *model.PublishJob) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, job)
	return err
}

func (r *PublishJobRepository) GetByID(ctx context.Context, id string) (*model.PublishJob, error) {
	var job model.PublishJob
	err := r.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *PublishJobRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*model.PublishJob, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_at", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, dueFilter(now), opts)
	if err != nil {
		return nil, err
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}(cursor, ctx)

	var jobs []*model.PublishJob
	for cursor.Next(ctx) {
		var job model.PublishJob
		if err := cursor.Decode(&job); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while decoding publish job")
			continue
		}
		jobs = append(jobs, &job)
	}
	return jobs, cursor.Err()
}

func (r *PublishJobRepository) Claim(ctx context.Context, id string, from []model.JobState) (bool, error) {
	res, err := r.collection.UpdateOne(ctx, claimFilter(id, from), bson.D{{Key: "$set", Value: bson.D{
		{Key: "state", Value: model.JobStatePending},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *PublishJobRepository) Complete(ctx context.Context, job *model.PublishJob) error {
	job.UpdatedAt = time.Now().UTC()
	set := bson.D{
		{Key: "state", Value: job.State},
		{Key: "results", Value: job.Results},
		{Key: "errors", Value: job.Errors},
		{Key: "updated_at", Value: job.UpdatedAt},
	}
	if job.PublishedAt != nil {
		set = append(set, bson.E{Key: "published_at", Value: job.PublishedAt})
	}
	res, err := r.collection.UpdateOne(ctx, bson.D{{Key: "_id", Value: job.ID}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("publish job %s not found", job.ID)
	}
	return nil
}

func (r *PublishJobRepository) AppendMetadata(ctx context.Context, id string, tags []string, location *string) error {
	res, err := r.collection.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, metadataUpdate(tags, location, time.Now().UTC()))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("publish job %s not found", id)
	}
	return nil
}

func dueFilter(now time.Time) bson.D {
	return bson.D{
		{Key: "state", Value: model.JobStateScheduled},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "scheduled_at", Value: bson.D{{Key: "$lte", Value: now.UTC()}}}},
			bson.D{{Key: "scheduled_at", Value: bson.D{{Key: "$exists", Value: false}}}},
		}},
	}
}

func claimFilter(id string, from []model.JobState) bson.D {
	states := make(bson.A, 0, len(from))
	for _, s := range from {
		states = append(states, s)
	}
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "state", Value: bson.D{{Key: "$in", Value: states}}},
	}
}

// tags are merged as a set; location is only replaced when provided
func metadataUpdate(tags []string, location *string, now time.Time) bson.D {
	set := bson.D{{Key: "updated_at", Value: now}}
	if location != nil {
		set = append(set, bson.E{Key: "location", Value: *location})
	}
	update := bson.D{{Key: "$set", Value: set}}
	if len(tags) > 0 {
		update = append(update, bson.E{Key: "$addToSet", Value: bson.D{
			{Key: "tags", Value: bson.D{{Key: "$each", Value: tags}}},
		}})
	}
	return update
}
