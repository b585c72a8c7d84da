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

// refreshTokenDoc keeps the member id under token_id, which is what existing
// collections written by earlier deployments use.
type refreshTokenDoc struct {
	ID       bson.ObjectID `bson:"_id,omitempty"`
	MemberID string        `bson:"token_id"`
	Token    string        `bson:"token"`
	Role     string        `bson:"role"`
	Status   string        `bson:"status"`
	IssuedAt time.Time     `bson:"issued_at"`
}

type refreshTokensRepo struct {
	coll *mongo.Collection
	opts store.Options
}

func (r *refreshTokensRepo) ExpireTime() time.Duration { return r.opts.RefreshTokenTTL }

func (r *refreshTokensRepo) FetchRefreshTokensByID(
	ctx context.Context,
	id string,
	includeExpired bool,
) ([]domain.RefreshToken, error) {
	out, err := r.fetch(ctx, "token_id", id, includeExpired)
	return out, store.Wrap("fetch refresh tokens by id", err)
}

func (r *refreshTokensRepo) FetchRefreshTokensByToken(
	ctx context.Context,
	token string,
	includeExpired bool,
) ([]domain.RefreshToken, error) {
	out, err := r.fetch(ctx, "token", token, includeExpired)
	return out, store.Wrap("fetch refresh tokens by token", err)
}

func (r *refreshTokensRepo) fetch(
	ctx context.Context,
	field, value string,
	includeExpired bool,
) ([]domain.RefreshToken, error) {
	now := r.opts.Now()

	filter := bson.D{
		{Key: field, Value: value},
		{Key: "status", Value: string(domain.RefreshTokenActive)},
	}
	if !includeExpired {
		filter = append(filter, bson.E{Key: "issued_at", Value: bson.D{{Key: "$gte", Value: r.cutoff(now)}}})
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "issued_at", Value: -1}}))
	if err != nil {
		return nil, err
	}

	var docs []refreshTokenDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]domain.RefreshToken, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.RefreshToken{
			ID:        d.MemberID,
			Token:     d.Token,
			Role:      d.Role,
			Status:    domain.RefreshTokenStatus(d.Status),
			IssuedAt:  d.IssuedAt.UTC(),
			IsExpired: d.IssuedAt.Add(r.opts.RefreshTokenTTL).Before(now),
		})
	}
	return out, nil
}

// cutoff is the oldest issued_at that still counts as live.
func (r *refreshTokensRepo) cutoff(now time.Time) time.Time {
	return now.Add(-r.opts.RefreshTokenTTL)
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, id, token, role string) error {
	_, err := r.coll.InsertOne(ctx, refreshTokenDoc{
		MemberID: id,
		Token:    token,
		Role:     role,
		Status:   string(domain.RefreshTokenActive),
		IssuedAt: r.opts.Now().UTC(),
	})
	return store.Wrap("create refresh token", mapDuplicate(err))
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, id string) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.D{
			{Key: "token_id", Value: id},
			{Key: "status", Value: string(domain.RefreshTokenActive)},
			{Key: "issued_at", Value: bson.D{{Key: "$lt", Value: r.cutoff(r.opts.Now())}}},
		},
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: string(domain.RefreshTokenDeletedExpired)}}}},
	)
	return store.Wrap("delete expired refresh tokens", err)
}

func (r *refreshTokensRepo) InvalidateActiveRefreshTokens(ctx context.Context, id string) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.D{{Key: "token_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: string(domain.RefreshTokenLoggedOut)}}}},
	)
	return store.Wrap("invalidate active refresh tokens", err)
}

func (r *refreshTokensRepo) UpdateRefreshTokenRole(ctx context.Context, id, role string) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.D{{Key: "token_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "role", Value: role}}}},
	)
	return store.Wrap("update refresh token role", err)
}
