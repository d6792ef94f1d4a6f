package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/notionify/auth-broker/domain"
	brokererrors "github.com/notionify/auth-broker/errors"
)

// ErrSessionAlreadyUsed signals that an entitlement was already issued for
// this checkout session.
var ErrSessionAlreadyUsed = errors.New("entitlement already issued for this session")

// trialVersionTag is the version tag that selects the trial expiry policy;
// every other tag means permanent.
const trialVersionTag = "week"

// PaymentVerifier validates a checkout session.
type PaymentVerifier interface {
	Verify(ctx context.Context, sessionID string) (*domain.PaymentSession, error)
}

// EntitlementIssuer mints a new entitlement code.
type EntitlementIssuer interface {
	Issue(ctx context.Context, platform string, isTrial bool) (string, error)
}

// SessionGuard ties a checkout session to at most one issuance. The guard
// is best-effort: when its backend is unreachable the flow proceeds rather
// than blocking paid customers.
type SessionGuard interface {
	Claim(ctx context.Context, sessionID string) (bool, error)
	Release(ctx context.Context, sessionID string) error
}

// PurchaseService drives the post-payment sequence: verify the session,
// claim it, issue the entitlement.
type PurchaseService struct {
	verifier PaymentVerifier
	issuer   EntitlementIssuer
	guard    SessionGuard
}

// NewPurchaseService wires the purchase flow. guard may be nil, which
// disables the idempotency check.
func NewPurchaseService(verifier PaymentVerifier, issuer EntitlementIssuer, guard SessionGuard) *PurchaseService {
	return &PurchaseService{verifier: verifier, issuer: issuer, guard: guard}
}

// VerifySession validates the checkout session without issuing anything.
func (s *PurchaseService) VerifySession(ctx context.Context, sessionID string) (*domain.PaymentSession, error) {
	return s.verifier.Verify(ctx, sessionID)
}

// IssueEntitlement claims the session (when a guard is configured and a
// session id is known) and mints a new code. A failed issuance releases the
// claim so the paid session is not stranded.
func (s *PurchaseService) IssueEntitlement(ctx context.Context, platform string, isTrial bool, sessionID string) (string, error) {
	if platform == "" {
		return "", brokererrors.NewMissingParameters("platform")
	}

	claimed := false
	if s.guard != nil && sessionID != "" {
		ok, err := s.guard.Claim(ctx, sessionID)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("session_id", sessionID).Msg("session guard unavailable, proceeding without idempotency check")
		case !ok:
			return "", ErrSessionAlreadyUsed
		default:
			claimed = true
		}
	}

	code, err := s.issuer.Issue(ctx, platform, isTrial)
	if err != nil {
		if claimed {
			if releaseErr := s.guard.Release(ctx, sessionID); releaseErr != nil {
				log.Error().Err(releaseErr).Str("session_id", sessionID).Msg("failed to release session claim after issuance failure")
			}
		}
		return "", err
	}

	return code, nil
}

// Confirm runs the full purchase sequence, short-circuiting on the first
// failure. Verification failure reasons are surfaced verbatim and nothing
// is issued.
func (s *PurchaseService) Confirm(ctx context.Context, sessionID, platform, versionTag string) (string, error) {
	var missing []string
	if sessionID == "" {
		missing = append(missing, "session_id")
	}
	if platform == "" {
		missing = append(missing, "platform")
	}
	if versionTag == "" {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		return "", brokererrors.NewMissingParameters(missing...)
	}

	if _, err := s.verifier.Verify(ctx, sessionID); err != nil {
		return "", err
	}

	return s.IssueEntitlement(ctx, platform, versionTag == trialVersionTag, sessionID)
}
