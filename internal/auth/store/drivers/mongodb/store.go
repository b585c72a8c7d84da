package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/turnstile/internal/auth/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	collRefreshTokens      = "refresh_token"
	collBlacklist          = "blacklist_token"
	collVerificationTokens = "verification_token"
)

// Store is the document backend. Derived fields (is_expired) are computed in
// Go after retrieval since there is no query-time projection we rely on.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	opts   store.Options
}

// NewStore connects to uri and uses the named database.
func NewStore(ctx context.Context, uri, database string, opts ...store.Option) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: ping: %w", err)
	}

	return &Store{
		client: client,
		db:     client.Database(database),
		opts:   store.BuildOptions(opts...),
	}, nil
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// ApplyMigrations creates the indexes the contract leans on. CreateMany is
// idempotent for identical specs.
func (s *Store) ApplyMigrations(ctx context.Context) error {
	_, err := s.db.Collection(collRefreshTokens).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetName("uq_token").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "token_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_token_id_status"),
		},
		{
			// one ACTIVE record per member
			Keys: bson.D{{Key: "token_id", Value: 1}},
			Options: options.Index().
				SetName("uq_token_id_active").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "status", Value: "ACTIVE"}}),
		},
	})
	if err != nil {
		return store.Wrap("create refresh token indexes", err)
	}

	_, err = s.db.Collection(collBlacklist).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires", Value: 1}},
		Options: options.Index().SetName("idx_expires"),
	})
	if err != nil {
		return store.Wrap("create blacklist indexes", err)
	}

	_, err = s.db.Collection(collVerificationTokens).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "sub_id", Value: 1},
				{Key: "method", Value: 1},
				{Key: "token", Value: 1},
			},
			Options: options.Index().SetName("uq_sub_method_token").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires", Value: 1}},
			Options: options.Index().SetName("idx_expires"),
		},
	})
	return store.Wrap("create verification token indexes", err)
}

func (s *Store) RefreshTokens() store.RefreshTokens {
	return &refreshTokensRepo{coll: s.db.Collection(collRefreshTokens), opts: s.opts}
}

func (s *Store) Blacklist() store.Blacklist {
	return &blacklistRepo{coll: s.db.Collection(collBlacklist), opts: s.opts}
}

func (s *Store) VerificationTokens() store.VerificationTokens {
	return &verificationTokensRepo{coll: s.db.Collection(collVerificationTokens), opts: s.opts}
}

func mapNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func mapDuplicate(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	return err
}
