// Package notion talks to Notion's OAuth endpoints on behalf of configured
// projects.
package notion

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/notionify/auth-broker/domain"
	brokererrors "github.com/notionify/auth-broker/errors"
)

var (
	// TokenEndpoint is overridable in tests.
	TokenEndpoint     = "https://api.notion.com/v1/oauth/token"
	AuthorizeEndpoint = "https://api.notion.com/v1/oauth/authorize"
)

// NotionVersion is the provider API version pinned for the token endpoint.
// Protocol constant, not configuration.
const NotionVersion = "2022-06-28"

// Client performs the authorization-code exchange against Notion.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a Client. Passing nil uses a client with a fixed 15s
// timeout; the exchange must not hang indefinitely and is never retried.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{httpClient: httpClient}
}

// tokenResponse mirrors Notion's token endpoint reply, including the
// non-RFC fields the success view needs.
type tokenResponse struct {
	AccessToken          string `json:"access_token"`
	TokenType            string `json:"token_type"`
	BotID                string `json:"bot_id"`
	WorkspaceName        string `json:"workspace_name"`
	WorkspaceIcon        string `json:"workspace_icon"`
	WorkspaceID          string `json:"workspace_id"`
	DuplicatedTemplateID string `json:"duplicated_template_id"`
	Owner                struct {
		Type string          `json:"type"`
		User json.RawMessage `json:"user"`
	} `json:"owner"`
}

// Exchange trades an authorization code for an access token using the
// project's credentials. Authorization codes are single-use by provider
// contract, so a failed exchange is never retried; the caller must restart
// the authorization flow.
func (c *Client) Exchange(ctx context.Context, code string, cfg domain.ProjectConfig) (*domain.TokenResult, error) {
	if !cfg.Complete() {
		return nil, brokererrors.NewIncompleteConfig(cfg.Key, cfg.MissingFields())
	}

	body, err := json.Marshal(map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": cfg.RedirectURL,
	})
	if err != nil {
		return nil, fmt.Errorf("notion: failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, TokenEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("notion: failed to build token request: %w", err)
	}

	// The token endpoint authenticates with Basic auth over the client
	// credential pair. This credential must never reach logs or errors.
	credentials := base64.StdEncoding.EncodeToString([]byte(cfg.ClientID + ":" + cfg.ClientSecret))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", NotionVersion)

	log.Debug().
		Str("project", cfg.Key).
		Str("url", TokenEndpoint).
		Msg("requesting token from Notion")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion: token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		log.Error().
			Int("status", resp.StatusCode).
			Str("project", cfg.Key).
			Str("body", string(respBody)).
			Msg("Notion rejected the token exchange")
		return nil, brokererrors.NewTokenExchange(resp.StatusCode)
	}

	var wire tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("notion: failed to decode token response: %w", err)
	}

	log.Info().
		Str("project", cfg.Key).
		Bool("token_acquired", wire.AccessToken != "").
		Str("workspace_id", wire.WorkspaceID).
		Str("workspace_name", wire.WorkspaceName).
		Msg("token exchange completed")

	return &domain.TokenResult{
		AccessToken:          wire.AccessToken,
		TokenType:            wire.TokenType,
		BotID:                wire.BotID,
		WorkspaceName:        wire.WorkspaceName,
		WorkspaceIcon:        wire.WorkspaceIcon,
		WorkspaceID:          wire.WorkspaceID,
		DuplicatedTemplateID: wire.DuplicatedTemplateID,
		OwnerType:            wire.Owner.Type,
		OwnerUser:            wire.Owner.User,
		ProjectKey:           cfg.Key,
		ProjectName:          cfg.DisplayName,
	}, nil
}

// AuthorizeURL builds the browser redirect that starts the authorization
// flow for a project.
func AuthorizeURL(cfg domain.ProjectConfig) string {
	query := url.Values{}
	query.Set("client_id", cfg.ClientID)
	query.Set("response_type", "code")
	query.Set("owner", "user")
	query.Set("redirect_uri", cfg.RedirectURL)
	return AuthorizeEndpoint + "?" + query.Encode()
}
