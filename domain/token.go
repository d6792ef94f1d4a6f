package domain

import "encoding/json"

// AuthorizationRequest is the ephemeral value derived from one inbound OAuth
// redirect. It is consumed exactly once by the callback flow.
type AuthorizationRequest struct {
	ProjectKey string
	Code       string
	State      string
	// ProviderError carries the `error` query parameter when the provider
	// rejected the authorization instead of issuing a code.
	ProviderError string
}

// TokenResult is the outcome of a successful code-for-token exchange.
// It is never persisted server-side; ownership transfers to the caller as
// soon as it is returned.
type TokenResult struct {
	AccessToken          string          `json:"access_token"`
	TokenType            string          `json:"token_type"`
	BotID                string          `json:"bot_id,omitempty"`
	WorkspaceName        string          `json:"workspace_name,omitempty"`
	WorkspaceIcon        string          `json:"workspace_icon,omitempty"`
	WorkspaceID          string          `json:"workspace_id,omitempty"`
	DuplicatedTemplateID string          `json:"duplicated_template_id,omitempty"`
	OwnerType            string          `json:"owner_type,omitempty"`
	OwnerUser            json.RawMessage `json:"owner_user,omitempty"`
	ProjectKey           string          `json:"project_key"`
	ProjectName          string          `json:"project_name"`
}
