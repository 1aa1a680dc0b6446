package api

import (
	"errors"
	"net/http"

	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/captcha"
	"github.com/wardenhq/warden/pkg/httputil"
	"github.com/wardenhq/warden/pkg/observability"
)

// AuthHandlers exposes the login, logout and refresh flows over HTTP.
type AuthHandlers struct {
	service *auth.Service
	metrics *observability.Metrics
}

// NewAuthHandlers creates the auth handler set.
func NewAuthHandlers(service *auth.Service, metrics *observability.Metrics) *AuthHandlers {
	return &AuthHandlers{service: service, metrics: metrics}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// issueCaptcha handles GET /auth/captcha
func (h *AuthHandlers) issueCaptcha(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.service.IssueCaptcha(r.Context())
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("captcha issuance failed")
		httputil.WriteInternalError(w)
		return
	}

	if h.metrics != nil {
		h.metrics.CaptchaIssuedTotal.Inc()
	}
	httputil.WriteSuccess(w, challenge)
}

// login handles POST /auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") ||
		!httputil.RequireNonEmpty(w, req.Password, "password") ||
		!httputil.RequireNonEmpty(w, req.CaptchaKey, "captchaKey") ||
		!httputil.RequireNonEmpty(w, req.CaptchaCode, "captchaCode") {
		return
	}

	pair, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	h.observeLogin("success")
	h.observeCaptcha("success")
	httputil.WriteSuccess(w, pair)
}

func (h *AuthHandlers) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, captcha.ErrChallengeExpired):
		h.observeLogin("captcha_expired")
		h.observeCaptcha("expired")
		httputil.WriteBadRequest(w, auth.CodeCaptchaExpired, "captcha expired, request a new one")
	case errors.Is(err, captcha.ErrCodeMismatch):
		h.observeLogin("captcha_incorrect")
		h.observeCaptcha("mismatch")
		httputil.WriteBadRequest(w, auth.CodeCaptchaIncorrect, "captcha code incorrect")
	case errors.Is(err, auth.ErrBadCredentials):
		h.observeLogin("bad_credentials")
		httputil.WriteUnauthorized(w, auth.CodeUserPasswordError, "incorrect username or password")
	default:
		h.observeLogin("error")
		observability.FromContext(r.Context()).WithError(err).Error("login failed")
		httputil.WriteInternalError(w)
	}
}

// logout handles POST /auth/logout. It runs behind the authenticator, so the
// bearer token is known valid; the body may carry the refresh token to
// revoke alongside. An empty body is fine.
func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	accessToken, ok := httputil.BearerToken(r)
	if !ok {
		httputil.WriteUnauthorized(w, auth.CodeAccessTokenInvalid, "invalid or expired access token")
		return
	}

	var req logoutRequest
	if r.Body != nil && r.ContentLength != 0 {
		if !httputil.ParseJSONOrError(w, r, &req) {
			return
		}
	}

	if err := h.service.Logout(r.Context(), accessToken, req.RefreshToken); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("logout failed")
		httputil.WriteInternalError(w)
		return
	}

	if h.metrics != nil {
		h.metrics.TokensRevokedTotal.Inc()
	}
	httputil.WriteNoContent(w)
}

// refresh handles POST /auth/refresh
func (h *AuthHandlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.RefreshToken, "refreshToken") {
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrRefreshTokenInvalid) {
			h.observeRefresh("rejected")
			httputil.WriteUnauthorized(w, auth.CodeRefreshTokenInvalid, "invalid or expired refresh token")
			return
		}
		h.observeRefresh("error")
		observability.FromContext(r.Context()).WithError(err).Error("token refresh failed")
		httputil.WriteInternalError(w)
		return
	}

	h.observeRefresh("success")
	httputil.WriteSuccess(w, pair)
}

func (h *AuthHandlers) observeLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *AuthHandlers) observeCaptcha(outcome string) {
	if h.metrics != nil {
		h.metrics.CaptchaVerificationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *AuthHandlers) observeRefresh(outcome string) {
	if h.metrics != nil {
		h.metrics.TokenRefreshesTotal.WithLabelValues(outcome).Inc()
	}
}
