// Package echo exposes the broker's HTTP surface.
package echo

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/notionify/auth-broker/domain"
	brokererrors "github.com/notionify/auth-broker/errors"
	"github.com/notionify/auth-broker/notion"
	"github.com/notionify/auth-broker/services"
)

// CallbackFlow drives one inbound OAuth redirect.
type CallbackFlow interface {
	Handle(ctx context.Context, req domain.AuthorizationRequest) services.CallbackResult
}

// PurchaseFlow drives the post-payment sequence.
type PurchaseFlow interface {
	VerifySession(ctx context.Context, sessionID string) (*domain.PaymentSession, error)
	IssueEntitlement(ctx context.Context, platform string, isTrial bool, sessionID string) (string, error)
	Confirm(ctx context.Context, sessionID, platform, versionTag string) (string, error)
}

// ProjectLister enumerates the available projects in registration order.
type ProjectLister interface {
	Available() []domain.ProjectConfig
}

// BrokerAPI holds the handler dependencies.
type BrokerAPI struct {
	callbacks   CallbackFlow
	purchases   PurchaseFlow
	registry    ProjectLister
	successPath string
	ping        func(ctx context.Context) error
}

// NewBrokerAPI initializes the HTTP API. ping may be nil to skip the store
// check in the health endpoint.
func NewBrokerAPI(callbacks CallbackFlow, purchases PurchaseFlow, registry ProjectLister, successPath string, ping func(ctx context.Context) error) *BrokerAPI {
	if successPath == "" {
		successPath = "/success"
	}
	return &BrokerAPI{
		callbacks:   callbacks,
		purchases:   purchases,
		registry:    registry,
		successPath: successPath,
		ping:        ping,
	}
}

// RegisterRoutes registers the broker routes. Echo answers 405 for any
// other method on these paths.
func (a *BrokerAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/auth/callback/:projectKey", a.CallbackHandler)
	e.POST("/payment/verify", a.VerifyPaymentHandler)
	e.POST("/entitlement/issue", a.IssueEntitlementHandler)
	e.POST("/purchase/confirm", a.ConfirmPurchaseHandler)
	e.GET("/projects", a.ProjectsHandler)
	e.GET("/healthz", a.HealthzHandler)
}

type verifyPaymentRequest struct {
	SessionID string `json:"session_id"`
}

type verifyPaymentResponse struct {
	Success bool                   `json:"success"`
	Session *domain.PaymentSession `json:"session,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

type issueEntitlementRequest struct {
	Platform  string `json:"platform"`
	IsTrial   bool   `json:"is_trial"`
	SessionID string `json:"session_id,omitempty"`
}

type confirmPurchaseRequest struct {
	SessionID string `json:"session_id"`
	Platform  string `json:"platform"`
	Time      string `json:"time"`
}

type entitlementResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

type projectView struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Icon         string `json:"icon,omitempty"`
	AuthorizeURL string `json:"authorize_url"`
}

// CallbackHandler terminates one OAuth redirect. It always answers with
// exactly one 302: failures travel to the success view as query parameters.
func (a *BrokerAPI) CallbackHandler(c echo.Context) error {
	req := domain.AuthorizationRequest{
		ProjectKey:    c.Param("projectKey"),
		Code:          c.QueryParam("code"),
		State:         c.QueryParam("state"),
		ProviderError: c.QueryParam("error"),
	}

	result := a.callbacks.Handle(c.Request().Context(), req)

	return c.Redirect(http.StatusFound, result.RedirectURL(a.successPath))
}

// VerifyPaymentHandler validates a checkout session without issuing
// anything.
func (a *BrokerAPI) VerifyPaymentHandler(c echo.Context) error {
	var req verifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, verifyPaymentResponse{Success: false, Error: "invalid request body"})
	}

	session, err := a.purchases.VerifySession(c.Request().Context(), req.SessionID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, verifyPaymentResponse{Success: false, Error: err.Error()})
	}

	return c.JSON(http.StatusOK, verifyPaymentResponse{Success: true, Session: session})
}

// IssueEntitlementHandler mints a new entitlement code.
func (a *BrokerAPI) IssueEntitlementHandler(c echo.Context) error {
	var req issueEntitlementRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, entitlementResponse{Success: false, Error: "invalid request body"})
	}

	code, err := a.purchases.IssueEntitlement(c.Request().Context(), req.Platform, req.IsTrial, req.SessionID)
	if err != nil {
		return c.JSON(entitlementStatus(err), entitlementResponse{Success: false, Error: err.Error()})
	}

	return c.JSON(http.StatusOK, entitlementResponse{Success: true, Code: code})
}

// ConfirmPurchaseHandler runs the full purchase sequence in one call.
func (a *BrokerAPI) ConfirmPurchaseHandler(c echo.Context) error {
	var req confirmPurchaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, entitlementResponse{Success: false, Error: "invalid request body"})
	}

	code, err := a.purchases.Confirm(c.Request().Context(), req.SessionID, req.Platform, req.Time)
	if err != nil {
		return c.JSON(entitlementStatus(err), entitlementResponse{Success: false, Error: err.Error()})
	}

	return c.JSON(http.StatusOK, entitlementResponse{Success: true, Code: code})
}

// entitlementStatus maps purchase-flow failures onto HTTP statuses.
func entitlementStatus(err error) int {
	var issuance *brokererrors.IssuanceError
	switch {
	case errors.Is(err, services.ErrSessionAlreadyUsed):
		return http.StatusConflict
	case errors.As(err, &issuance):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// ProjectsHandler lists the available projects in registration order,
// each with its ready-to-use authorize URL.
func (a *BrokerAPI) ProjectsHandler(c echo.Context) error {
	available := a.registry.Available()
	views := make([]projectView, 0, len(available))
	for _, cfg := range available {
		views = append(views, projectView{
			Key:          cfg.Key,
			Name:         cfg.DisplayName,
			Description:  cfg.Description,
			Icon:         cfg.Icon,
			AuthorizeURL: notion.AuthorizeURL(cfg),
		})
	}
	return c.JSON(http.StatusOK, views)
}

// HealthzHandler reports liveness and store reachability.
func (a *BrokerAPI) HealthzHandler(c echo.Context) error {
	if a.ping != nil {
		if err := a.ping(c.Request().Context()); err != nil {
			log.Error().Err(err).Msg("health check failed to reach the store")
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
