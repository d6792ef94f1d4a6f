// Package payment validates Stripe Checkout sessions before entitlement
// issuance.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"
	stripe "github.com/stripe/stripe-go/v82"
	stripeclient "github.com/stripe/stripe-go/v82/client"

	"github.com/notionify/auth-broker/domain"
	brokererrors "github.com/notionify/auth-broker/errors"
)

// Checkout session ids share a provider-wide prefix; anything else is
// rejected before touching the network.
const sessionIDPrefix = "cs_"

// SessionRetriever fetches a checkout session by id from the payment
// provider.
type SessionRetriever interface {
	Retrieve(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
}

type stripeRetriever struct {
	api *stripeclient.API
}

// NewStripeRetriever builds a SessionRetriever over the official Stripe
// client.
func NewStripeRetriever(secretKey string) SessionRetriever {
	api := &stripeclient.API{}
	api.Init(secretKey, nil)
	return &stripeRetriever{api: api}
}

func (r *stripeRetriever) Retrieve(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	return r.api.CheckoutSessions.Get(sessionID, params)
}

// Verifier checks that a checkout session represents a settled payment.
// Settled sessions are cached briefly so success-page reloads do not re-hit
// the provider.
type Verifier struct {
	retriever SessionRetriever
	cache     *ttlcache.Cache[string, *domain.PaymentSession]
}

// NewVerifier creates a Verifier. cacheTTL bounds how long a settled
// session is served from memory.
func NewVerifier(retriever SessionRetriever, cacheTTL time.Duration) *Verifier {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.PaymentSession](cacheTTL),
		ttlcache.WithDisableTouchOnHit[string, *domain.PaymentSession](),
	)
	go cache.Start()

	return &Verifier{retriever: retriever, cache: cache}
}

// Verify retrieves the session and succeeds only when the payment was
// captured AND the session lifecycle finished. The two conditions are
// independent and both must hold. Failure reasons name the actual status
// observed so the caller can surface them verbatim.
func (v *Verifier) Verify(ctx context.Context, sessionID string) (*domain.PaymentSession, error) {
	if sessionID == "" {
		return nil, brokererrors.NewInvalidInput("missing session_id")
	}
	if !strings.HasPrefix(sessionID, sessionIDPrefix) {
		return nil, brokererrors.NewInvalidInput("invalid session_id format")
	}

	if item := v.cache.Get(sessionID); item != nil {
		return item.Value(), nil
	}

	upstream, err := v.retriever.Retrieve(ctx, sessionID)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeInvalidRequest {
			// A bad id is the caller's problem, not a provider outage.
			return nil, brokererrors.NewInvalidInput("invalid session_id")
		}
		log.Error().Err(err).Str("session_id", sessionID).Msg("checkout session retrieval failed")
		return nil, fmt.Errorf("payment verification failed: %w", err)
	}

	session := &domain.PaymentSession{
		ID:            upstream.ID,
		PaymentStatus: string(upstream.PaymentStatus),
		Status:        string(upstream.Status),
		AmountTotal:   upstream.AmountTotal,
		Currency:      string(upstream.Currency),
		CreatedAt:     time.Unix(upstream.Created, 0).UTC(),
	}
	if upstream.CustomerDetails != nil {
		session.CustomerEmail = upstream.CustomerDetails.Email
	}

	log.Debug().
		Str("session_id", session.ID).
		Str("payment_status", session.PaymentStatus).
		Str("status", session.Status).
		Int64("amount_total", session.AmountTotal).
		Str("currency", session.Currency).
		Msg("checkout session retrieved")

	if session.PaymentStatus != domain.PaymentStatusPaid {
		return nil, fmt.Errorf("payment not completed, status: %s", session.PaymentStatus)
	}
	if session.Status != domain.SessionStatusComplete {
		return nil, fmt.Errorf("session not complete, status: %s", session.Status)
	}

	v.cache.Set(sessionID, session, ttlcache.DefaultTTL)

	return session, nil
}

// Stop shuts down the cache's expiration loop.
func (v *Verifier) Stop() {
	v.cache.Stop()
}
