package mongodb

import (
	"context"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Entries use the jti as the document id, so uniqueness comes for free.
type blacklistRepo struct {
	coll *mongo.Collection
	opts store.Options
}

func (r *blacklistRepo) BlacklistToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: tokenID}},
		bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: "expires", Value: expiresAt.UTC()}}}},
		options.UpdateOne().SetUpsert(true),
	)
	// Two upserts racing on the same _id: the other one already wrote it
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return store.Wrap("blacklist token", err)
}

func (r *blacklistRepo) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	deadline := r.opts.Now().Add(-domain.BlacklistGrace)

	if _, err := r.coll.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: tokenID},
		{Key: "expires", Value: bson.D{{Key: "$lt", Value: deadline}}},
	}); err != nil {
		return false, store.Wrap("purge blacklisted token", err)
	}

	n, err := r.coll.CountDocuments(ctx, bson.D{
		{Key: "_id", Value: tokenID},
		{Key: "expires", Value: bson.D{{Key: "$gte", Value: deadline}}},
	})
	if err != nil {
		return false, store.Wrap("is token blacklisted", err)
	}
	return n > 0, nil
}

func (r *blacklistRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{
		{Key: "expires", Value: bson.D{{Key: "$lt", Value: r.opts.Now().Add(-domain.BlacklistGrace)}}},
	})
	if err != nil {
		return 0, store.Wrap("purge blacklist", err)
	}
	return res.DeletedCount, nil
}
