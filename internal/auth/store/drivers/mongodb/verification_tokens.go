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

type verificationTokenDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	SubjectID string        `bson:"sub_id"`
	Method    string        `bson:"method"`
	Token     string        `bson:"token"`
	Status    string        `bson:"status"`
	Expires   *time.Time    `bson:"expires,omitempty"`
}

type verificationTokensRepo struct {
	coll *mongo.Collection
	opts store.Options
}

func keyFilter(id string, method domain.VerificationMethod, token string) bson.D {
	return bson.D{
		{Key: "sub_id", Value: id},
		{Key: "method", Value: string(method)},
		{Key: "token", Value: token},
	}
}

func (r *verificationTokensRepo) StoreVerificationToken(ctx context.Context, v domain.VerificationToken) error {
	status := v.Status
	if status == "" {
		status = domain.VerificationValid
	}

	set := bson.D{{Key: "status", Value: string(status)}}
	if v.ExpiresAt != nil {
		set = append(set, bson.E{Key: "expires", Value: v.ExpiresAt.UTC()})
	}
	update := bson.D{{Key: "$set", Value: set}}
	filter := keyFilter(v.SubjectID, v.Method, v.Token)

	_, err := r.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// Lost an upsert race on the unique index; the row exists now so a
		// plain update lands on it.
		_, err = r.coll.UpdateOne(ctx, filter, update)
	}
	return store.Wrap("store verification token", err)
}

func (r *verificationTokensRepo) FetchVerificationToken(
	ctx context.Context,
	id string,
	method domain.VerificationMethod,
	token string,
	status *domain.VerificationStatus,
) (domain.VerificationToken, error) {
	filter := keyFilter(id, method, token)
	if status != nil {
		filter = append(filter, bson.E{Key: "status", Value: string(*status)})
	}

	var doc verificationTokenDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return domain.VerificationToken{}, store.Wrap("fetch verification token", mapNotFound(err))
	}

	var expires *time.Time
	if doc.Expires != nil {
		t := doc.Expires.UTC()
		expires = &t
	}

	return domain.VerificationToken{
		SubjectID: doc.SubjectID,
		Method:    domain.VerificationMethod(doc.Method),
		Token:     doc.Token,
		Status:    domain.VerificationStatus(doc.Status),
		ExpiresAt: expires,
	}, nil
}

func (r *verificationTokensRepo) ConsumeVerificationToken(
	ctx context.Context,
	id string,
	method domain.VerificationMethod,
	token string,
) error {
	filter := append(keyFilter(id, method, token),
		bson.E{Key: "status", Value: string(domain.VerificationValid)},
		bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "expires", Value: nil}},
			bson.D{{Key: "expires", Value: bson.D{{Key: "$gte", Value: r.opts.Now()}}}},
		}},
	)

	res, err := r.coll.UpdateOne(ctx, filter,
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: string(domain.VerificationConsumed)}}}},
	)
	if err != nil {
		return store.Wrap("consume verification token", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *verificationTokensRepo) DeleteExpiredVerificationTokens(ctx context.Context) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.D{
		{Key: "expires", Value: bson.D{{Key: "$lt", Value: r.opts.Now()}}},
	})
	if err != nil {
		return 0, store.Wrap("delete expired verification tokens", err)
	}
	return res.DeletedCount, nil
}
