package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pepcraft/storefront/internal/api/metrics"
	"github.com/pepcraft/storefront/internal/core/domain"
)

// OAuthCompleter finishes a federated login from the provider callback.
type OAuthCompleter interface {
	CompleteOAuth(ctx context.Context, state, code string) (redirectTo string, err error)
}

// AuthHandler exposes the caller's session store.
type AuthHandler struct {
	oauth   OAuthCompleter
	siteURL string
	log     zerolog.Logger
}

func NewAuthHandler(oauth OAuthCompleter, siteURL string, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{oauth: oauth, siteURL: siteURL, log: log}
}

// Login signs the client in with email and password.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-Client-ID  header    string        false  "Client id"
// @Param        body         body      loginRequest  true   "Login credentials"
// @Success      200          {object}  sessionResponse
// @Failure      401          {object}  errorResponse
// @Failure      422          {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if !ws.Session().Login(c.Request().Context(), req.Email, req.Password) {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid email or password"})
	}
	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	return c.JSON(http.StatusOK, toSessionResponse(ws.Session().State()))
}

// Signup creates an account and signs the client in.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-Client-ID  header    string         false  "Client id"
// @Param        body         body      signupRequest  true   "Account details"
// @Success      201          {object}  sessionResponse
// @Failure      400          {object}  errorResponse
// @Failure      422          {object}  errorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if !ws.Session().Signup(c.Request().Context(), req.Name, req.Email, req.Password) {
		metrics.AuthAttemptsTotal.WithLabelValues("signup", "failure").Inc()
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "could not create account"})
	}
	metrics.AuthAttemptsTotal.WithLabelValues("signup", "success").Inc()
	return c.JSON(http.StatusCreated, toSessionResponse(ws.Session().State()))
}

// Logout signs the client out. It always succeeds.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Param        X-Client-ID  header    string  false  "Client id"
// @Success      200          {object}  sessionResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	ws.Session().Logout(c.Request().Context())
	metrics.AuthAttemptsTotal.WithLabelValues("logout", "success").Inc()
	return c.JSON(http.StatusOK, toSessionResponse(ws.Session().State()))
}

// Google starts the Google redirect flow and returns the consent URL.
//
// @Summary      Start Google sign-in
// @Tags         auth
// @Produce      json
// @Param        X-Client-ID  header    string  false  "Client id"
// @Param        redirect_to  query     string  false  "Where to land after sign-in"
// @Success      200          {object}  oauthURLResponse
// @Failure      503          {object}  errorResponse
// @Router       /auth/google [get]
func (h *AuthHandler) Google(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	redirectTo := h.safeRedirect(c.QueryParam("redirect_to"))

	u := ws.Session().LoginWithGoogle(c.Request().Context(), redirectTo)
	if u == "" {
		metrics.AuthAttemptsTotal.WithLabelValues("google", "failure").Inc()
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "google sign-in is unavailable"})
	}
	metrics.AuthAttemptsTotal.WithLabelValues("google", "success").Inc()
	return c.JSON(http.StatusOK, oauthURLResponse{URL: u})
}

// Callback completes the Google redirect flow and sends the browser back to
// the storefront. The session reaches the originating client as an event.
// Failures land on the same page with auth_error set to oauth_cancelled,
// oauth_failed, account_exists or email_not_verified.
//
// @Summary      OAuth callback
// @Tags         auth
// @Param        state  query  string  true  "OAuth state"
// @Param        code   query  string  true  "Authorization code"
// @Success      302
// @Router       /auth/callback [get]
func (h *AuthHandler) Callback(c echo.Context) error {
	state, code := c.QueryParam("state"), c.QueryParam("code")
	if state == "" || code == "" || c.QueryParam("error") != "" {
		metrics.OAuthCallbacksTotal.WithLabelValues("failure").Inc()
		return c.Redirect(http.StatusFound, withQuery(h.siteURL, "auth_error", "oauth_cancelled"))
	}

	redirectTo, err := h.oauth.CompleteOAuth(c.Request().Context(), state, code)
	redirectTo = h.safeRedirect(redirectTo)
	if err != nil {
		metrics.OAuthCallbacksTotal.WithLabelValues("failure").Inc()
		h.log.Warn().Err(err).Msg("oauth callback failed")
		return c.Redirect(http.StatusFound, withQuery(redirectTo, "auth_error", callbackErrorCode(err)))
	}
	metrics.OAuthCallbacksTotal.WithLabelValues("success").Inc()
	return c.Redirect(http.StatusFound, redirectTo)
}

// Session returns the current session, noticing an expired one.
//
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Param        X-Client-ID  header    string  false  "Client id"
// @Success      200          {object}  sessionResponse
// @Router       /auth/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	ws.Session().Refresh(c.Request().Context())
	return c.JSON(http.StatusOK, toSessionResponse(ws.Session().State()))
}

// SetModal shows or hides the auth modal and selects its form.
//
// @Summary      Toggle auth modal
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-Client-ID  header    string            false  "Client id"
// @Param        body         body      authModalRequest  true   "Modal state"
// @Success      200          {object}  sessionResponse
// @Failure      422          {object}  errorResponse
// @Router       /auth/modal [put]
func (h *AuthHandler) SetModal(c echo.Context) error {
	ws, err := ctxWorkspace(c)
	if err != nil {
		return err
	}
	var req authModalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ws.Session().SetAuthModal(req.Open, domain.AuthMode(req.Mode))
	return c.JSON(http.StatusOK, toSessionResponse(ws.Session().State()))
}

func callbackErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrAccountExists):
		return "account_exists"
	case errors.Is(err, domain.ErrEmailNotVerified):
		return "email_not_verified"
	default:
		return "oauth_failed"
	}
}

// safeRedirect keeps raw only when it points back at the site: a path like
// "/cart" or an absolute URL with the site's scheme and host. Anything else,
// including "//host" and "/\host" forms, falls back to the site root.
func (h *AuthHandler) safeRedirect(raw string) string {
	if raw == "" {
		return h.siteURL
	}
	site, err := url.Parse(h.siteURL)
	if err != nil {
		return h.siteURL
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") && !strings.HasPrefix(raw, "/\\") {
		ref, err := url.Parse(raw)
		if err != nil || ref.Host != "" || ref.Scheme != "" {
			return h.siteURL
		}
		return site.ResolveReference(ref).String()
	}
	u, err := url.Parse(raw)
	if err != nil || u.User != nil || !strings.EqualFold(u.Scheme, site.Scheme) || !strings.EqualFold(u.Host, site.Host) {
		return h.siteURL
	}
	return u.String()
}

func withQuery(raw, key, value string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
