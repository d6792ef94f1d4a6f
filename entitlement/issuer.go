// Package entitlement computes expiry policy for single-use access codes
// and routes their persistence.
package entitlement

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/notionify/auth-broker/domain"
	brokererrors "github.com/notionify/auth-broker/errors"
)

// Trial entitlements live for exactly seven calendar days from issuance.
const trialDays = 7

// Store persists entitlement records and generates their codes. Code
// generation lives store-side; uniqueness is the store's guarantee.
type Store interface {
	Insert(ctx context.Context, partition Partition, record domain.EntitlementCode) (string, error)
}

// Issuer mints entitlement codes. Each call creates a new record; there is
// no idempotency at this layer, callers must ensure at most one successful
// call per real-world payment event.
type Issuer struct {
	store Store
	now   func() time.Time
}

// NewIssuer creates an Issuer over the given store.
func NewIssuer(store Store) *Issuer {
	return &Issuer{store: store, now: time.Now}
}

// Issue persists a new entitlement for the platform and returns the
// store-generated code. Trials expire at now plus seven calendar days;
// permanent entitlements never expire.
func (i *Issuer) Issue(ctx context.Context, platform string, isTrial bool) (string, error) {
	record := domain.EntitlementCode{Platform: platform}
	if isTrial {
		expiresAt := i.now().UTC().AddDate(0, 0, trialDays)
		record.ExpiresAt = &expiresAt
	}

	partition := PartitionFor(platform)
	code, err := i.store.Insert(ctx, partition, record)
	if err != nil {
		log.Error().Err(err).
			Str("platform", platform).
			Str("partition", partition.String()).
			Msg("entitlement insert failed")
		return "", err
	}
	if code == "" {
		return "", brokererrors.NewIssuance("store returned no code")
	}

	log.Info().
		Str("platform", platform).
		Str("partition", partition.String()).
		Bool("trial", isTrial).
		Msg("entitlement issued")

	return code, nil
}
