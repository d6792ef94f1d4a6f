// Package services holds the request-level orchestration flows: the OAuth
// callback flow and the purchase confirmation flow.
package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/notionify/auth-broker/domain"
)

// Failure reasons for redirects that never reach the provider.
const (
	ReasonMissingProjectKey = "missing_project_key"
	ReasonMissingCode       = "missing_code"
)

// ProjectResolver resolves a project key to its configuration.
type ProjectResolver interface {
	Get(key string) (domain.ProjectConfig, error)
}

// TokenExchanger trades an authorization code for an access token.
type TokenExchanger interface {
	Exchange(ctx context.Context, code string, cfg domain.ProjectConfig) (*domain.TokenResult, error)
}

// CallbackService drives one inbound OAuth redirect to a terminal result.
// Every failure becomes a Failure result; nothing escapes as an error, so
// the HTTP layer can always answer with exactly one redirect.
type CallbackService struct {
	registry  ProjectResolver
	exchanger TokenExchanger
}

// NewCallbackService wires the callback flow.
func NewCallbackService(registry ProjectResolver, exchanger TokenExchanger) *CallbackService {
	return &CallbackService{registry: registry, exchanger: exchanger}
}

// Handle consumes one authorization request.
func (s *CallbackService) Handle(ctx context.Context, req domain.AuthorizationRequest) CallbackResult {
	if req.ProjectKey == "" {
		log.Error().Msg("callback received without a project key")
		return Failure(ReasonMissingProjectKey, "")
	}

	if req.ProviderError != "" {
		// The provider declined authorization; pass its error through
		// unexchanged.
		log.Error().Str("project", req.ProjectKey).Str("error", req.ProviderError).Msg("provider returned an OAuth error")
		return Failure(req.ProviderError, req.ProjectKey)
	}

	if req.Code == "" {
		log.Error().Str("project", req.ProjectKey).Msg("callback received without an authorization code")
		return Failure(ReasonMissingCode, req.ProjectKey)
	}

	cfg, err := s.registry.Get(req.ProjectKey)
	if err != nil {
		log.Error().Err(err).Str("project", req.ProjectKey).Msg("project resolution failed")
		return Failure(err.Error(), req.ProjectKey)
	}

	token, err := s.exchanger.Exchange(ctx, req.Code, cfg)
	if err != nil {
		log.Error().Err(err).Str("project", req.ProjectKey).Msg("token exchange failed")
		return Failure(err.Error(), req.ProjectKey)
	}

	return Success(token)
}
