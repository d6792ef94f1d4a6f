package echo_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	brokerapi "github.com/notionify/auth-broker/api/echo"
	"github.com/notionify/auth-broker/domain"
	brokererrors "github.com/notionify/auth-broker/errors"
	"github.com/notionify/auth-broker/services"
)

type fakeCallbackFlow struct {
	got    domain.AuthorizationRequest
	result services.CallbackResult
}

func (f *fakeCallbackFlow) Handle(_ context.Context, req domain.AuthorizationRequest) services.CallbackResult {
	f.got = req
	return f.result
}

type fakePurchaseFlow struct {
	session    *domain.PaymentSession
	verifyErr  error
	code       string
	issueErr   error
	confirmErr error
}

func (f *fakePurchaseFlow) VerifySession(_ context.Context, _ string) (*domain.PaymentSession, error) {
	return f.session, f.verifyErr
}

func (f *fakePurchaseFlow) IssueEntitlement(_ context.Context, _ string, _ bool, _ string) (string, error) {
	return f.code, f.issueErr
}

func (f *fakePurchaseFlow) Confirm(_ context.Context, _, _, _ string) (string, error) {
	if f.confirmErr != nil {
		return "", f.confirmErr
	}
	return f.code, nil
}

type fakeLister struct {
	projects []domain.ProjectConfig
}

func (f *fakeLister) Available() []domain.ProjectConfig {
	return f.projects
}

func newServer(callbacks *fakeCallbackFlow, purchases *fakePurchaseFlow, lister *fakeLister, ping func(context.Context) error) *echo.Echo {
	e := echo.New()
	api := brokerapi.NewBrokerAPI(callbacks, purchases, lister, "/success", ping)
	api.RegisterRoutes(e)
	return e
}

func TestCallbackHandler_Success(t *testing.T) {
	flow := &fakeCallbackFlow{
		result: services.Success(&domain.TokenResult{
			AccessToken: "token-value",
			TokenType:   "bearer",
			ProjectKey:  "rednote",
			ProjectName: "小红书",
		}),
	}
	e := newServer(flow, &fakePurchaseFlow{}, &fakeLister{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback/rednote?code=auth-code&state=xyz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)

	assert.Equal(t, "rednote", flow.got.ProjectKey)
	assert.Equal(t, "auth-code", flow.got.Code)
	assert.Equal(t, "xyz", flow.got.State)
	assert.Empty(t, flow.got.ProviderError)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/success", location.Path)
	assert.Equal(t, "rednote", location.Query().Get("project_key"))
	assert.NotEmpty(t, location.Query().Get("access_token"))
}

func TestCallbackHandler_ProviderError(t *testing.T) {
	flow := &fakeCallbackFlow{result: services.Failure("access_denied", "rednote")}
	e := newServer(flow, &fakePurchaseFlow{}, &fakeLister{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback/rednote?error=access_denied", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "access_denied", flow.got.ProviderError)

	location, _ := url.Parse(rec.Header().Get("Location"))
	assert.Equal(t, "access_denied", location.Query().Get("error"))
	assert.Equal(t, "rednote", location.Query().Get("project"))
}

func TestCallbackHandler_OnlyGETAllowed(t *testing.T) {
	e := newServer(&fakeCallbackFlow{}, &fakePurchaseFlow{}, &fakeLister{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/callback/rednote", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestVerifyPaymentHandler(t *testing.T) {
	t.Run("settled session", func(t *testing.T) {
		purchases := &fakePurchaseFlow{session: &domain.PaymentSession{
			ID:            "cs_test_1",
			PaymentStatus: domain.PaymentStatusPaid,
			Status:        domain.SessionStatusComplete,
		}}
		e := newServer(&fakeCallbackFlow{}, purchases, &fakeLister{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/payment/verify", strings.NewReader(`{"session_id":"cs_test_1"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Success bool                   `json:"success"`
			Session *domain.PaymentSession `json:"session"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Session)
		assert.Equal(t, "cs_test_1", resp.Session.ID)
	})

	t.Run("verification failure", func(t *testing.T) {
		purchases := &fakePurchaseFlow{verifyErr: brokererrors.NewInvalidInput("invalid session_id format")}
		e := newServer(&fakeCallbackFlow{}, purchases, &fakeLister{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/payment/verify", strings.NewReader(`{"session_id":"bogus"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "invalid session_id format", resp.Error)
	})
}

func TestConfirmPurchaseHandler(t *testing.T) {
	t.Run("issues a code", func(t *testing.T) {
		purchases := &fakePurchaseFlow{code: "generated-code"}
		e := newServer(&fakeCallbackFlow{}, purchases, &fakeLister{}, nil)

		body := `{"session_id":"cs_test_1","platform":"weread","time":"permanent"}`
		req := httptest.NewRequest(http.MethodPost, "/purchase/confirm", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Success bool   `json:"success"`
			Code    string `json:"code"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Code)
	})

	t.Run("replayed session conflicts", func(t *testing.T) {
		purchases := &fakePurchaseFlow{confirmErr: services.ErrSessionAlreadyUsed}
		e := newServer(&fakeCallbackFlow{}, purchases, &fakeLister{}, nil)

		body := `{"session_id":"cs_test_1","platform":"weread","time":"permanent"}`
		req := httptest.NewRequest(http.MethodPost, "/purchase/confirm", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("store failure is a server error", func(t *testing.T) {
		purchases := &fakePurchaseFlow{confirmErr: brokererrors.NewIssuance("store returned no code")}
		e := newServer(&fakeCallbackFlow{}, purchases, &fakeLister{}, nil)

		body := `{"session_id":"cs_test_1","platform":"weread","time":"permanent"}`
		req := httptest.NewRequest(http.MethodPost, "/purchase/confirm", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestIssueEntitlementHandler_MissingPlatform(t *testing.T) {
	purchases := &fakePurchaseFlow{issueErr: brokererrors.NewMissingParameters("platform")}
	e := newServer(&fakeCallbackFlow{}, purchases, &fakeLister{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/entitlement/issue", strings.NewReader(`{"is_trial":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProjectsHandler_PreservesOrder(t *testing.T) {
	lister := &fakeLister{projects: []domain.ProjectConfig{
		{Key: "rednote", DisplayName: "小红书", ClientID: "id-1", ClientSecret: "s", RedirectURL: "https://auth.example.com/auth/callback/rednote"},
		{Key: "weread", DisplayName: "微信读书", ClientID: "id-2", ClientSecret: "s", RedirectURL: "https://auth.example.com/auth/callback/weread"},
	}}
	e := newServer(&fakeCallbackFlow{}, &fakePurchaseFlow{}, lister, nil)

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var views []struct {
		Key          string `json:"key"`
		AuthorizeURL string `json:"authorize_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "rednote", views[0].Key)
	assert.Equal(t, "weread", views[1].Key)
	assert.Contains(t, views[0].AuthorizeURL, "client_id=id-1")
	assert.Contains(t, views[0].AuthorizeURL, "owner=user")
}

func TestHealthzHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		e := newServer(&fakeCallbackFlow{}, &fakePurchaseFlow{}, &fakeLister{}, func(context.Context) error { return nil })
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("store unreachable", func(t *testing.T) {
		e := newServer(&fakeCallbackFlow{}, &fakePurchaseFlow{}, &fakeLister{}, func(context.Context) error { return context.DeadlineExceeded })
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
