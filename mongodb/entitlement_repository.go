package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/notionify/auth-broker/domain"
	"github.com/notionify/auth-broker/entitlement"
)

// EntitlementRepository persists entitlement codes across the two store
// partitions. It generates the code itself: a UUIDv4 backed by the unique
// index, so issuance never depends on a database default.
type EntitlementRepository struct {
	legacy    *mongo.Collection
	universal *mongo.Collection
}

// NewEntitlementRepository wires the repository and ensures the unique code
// indexes exist on both collections.
func NewEntitlementRepository(ctx context.Context, db *mongo.Database) (*EntitlementRepository, error) {
	r := &EntitlementRepository{
		legacy:    db.Collection(LegacyCodesCollection),
		universal: db.Collection(UniversalCodesCollection),
	}
	for _, coll := range []*mongo.Collection{r.legacy, r.universal} {
		_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to ensure code index on %s: %w", coll.Name(), err)
		}
	}
	return r, nil
}

// Insert creates a new entitlement record in the partition and returns the
// generated code. Records are insert-only; revocation and consumption are
// external concerns.
func (r *EntitlementRepository) Insert(ctx context.Context, partition entitlement.Partition, record domain.EntitlementCode) (string, error) {
	record.Code = uuid.NewString()
	record.CreatedAt = time.Now().UTC()

	// expired_at is always present, null for permanent entitlements.
	doc := bson.M{
		"code":       record.Code,
		"created_at": record.CreatedAt,
		"expired_at": record.ExpiresAt,
	}

	coll := r.legacy
	if partition == entitlement.PartitionGeneric {
		coll = r.universal
		doc["platform"] = record.Platform
	}

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		var writeException mongo.WriteException
		if errors.As(err, &writeException) {
			for _, writeError := range writeException.WriteErrors {
				if writeError.Code == 11000 || writeError.Code == 11001 {
					return "", fmt.Errorf("entitlement code collision in %s: %w", coll.Name(), err)
				}
			}
		}
		log.Error().Err(err).Str("collection", coll.Name()).Msg("Error saving entitlement code")
		return "", fmt.Errorf("failed to save entitlement code: %w", err)
	}

	log.Debug().Str("collection", coll.Name()).Str("platform", record.Platform).Msg("Entitlement code saved")

	return record.Code, nil
}

var _ entitlement.Store = (*EntitlementRepository)(nil)
