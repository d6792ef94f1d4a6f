package services

import (
	"net/url"

	"github.com/notionify/auth-broker/domain"
)

// CallbackResult is the union outcome of the callback flow: either a token
// to hand to the browser or a failure reason tagged with the project key.
type CallbackResult struct {
	Token      *domain.TokenResult
	Reason     string
	ProjectKey string
}

// Success wraps a completed exchange.
func Success(token *domain.TokenResult) CallbackResult {
	return CallbackResult{Token: token, ProjectKey: token.ProjectKey}
}

// Failure wraps a terminal failure reason. projectKey may be empty when the
// request never identified a project.
func Failure(reason, projectKey string) CallbackResult {
	return CallbackResult{Reason: reason, ProjectKey: projectKey}
}

// Succeeded reports whether the flow produced a token.
func (r CallbackResult) Succeeded() bool {
	return r.Token != nil
}

// RedirectURL serializes the result into the success-view URL. This is the
// error channel of the callback flow: failures travel as query parameters,
// so the browser always lands on the view rather than a bare error page.
func (r CallbackResult) RedirectURL(successPath string) string {
	params := url.Values{}

	if !r.Succeeded() {
		params.Set("error", r.Reason)
		if r.ProjectKey != "" {
			params.Set("project", r.ProjectKey)
		}
		return successPath + "?" + params.Encode()
	}

	token := r.Token
	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}

	// owner_user travels as JSON text when present, empty string when not.
	ownerUser := ""
	if len(token.OwnerUser) > 0 && string(token.OwnerUser) != "null" {
		ownerUser = string(token.OwnerUser)
	}

	params.Set("access_token", token.AccessToken)
	params.Set("token_type", tokenType)
	params.Set("bot_id", token.BotID)
	params.Set("workspace_name", token.WorkspaceName)
	params.Set("workspace_icon", token.WorkspaceIcon)
	params.Set("workspace_id", token.WorkspaceID)
	params.Set("duplicated_template_id", token.DuplicatedTemplateID)
	params.Set("owner_type", token.OwnerType)
	params.Set("owner_user", ownerUser)
	params.Set("project_key", token.ProjectKey)
	params.Set("project_name", token.ProjectName)

	return successPath + "?" + params.Encode()
}
