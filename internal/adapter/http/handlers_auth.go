// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"travelstory/internal/app"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCConfig holds the single sign-on provider. The zero value disables SSO.
type OIDCConfig struct {
	Enabled      bool
	OAuth2Config *oauth2.Config
	Provider     *oidc.Provider
}

// NewOIDCConfig discovers issuer and builds an authorization code flow config.
func NewOIDCConfig(ctx context.Context, issuer, clientID, clientSecret, redirectURL string) (OIDCConfig, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return OIDCConfig{}, fmt.Errorf("oidc discovery: %w", err)
	}
	return OIDCConfig{
		Enabled:  true,
		Provider: provider,
		OAuth2Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseStrictJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.auth.Register(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{
		"user":        sess.User,
		"accesstoken": sess.Token,
		"message":     "Registration successful",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseStrictJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"user":        sess.User,
		"accesstoken": sess.Token,
		"message":     "Login successful",
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.GetUser(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"user": user, "message": "User fetched successfully"})
}

func (s *Server) handleAuthConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ssoEnabled": s.oidc.Enabled,
	})
}

func (s *Server) handleSSOLogin(w http.ResponseWriter, r *http.Request) {
	if !s.oidc.Enabled {
		writeError(w, http.StatusNotFound, "sso disabled")
		return
	}
	state := generateState()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode, // Lax required for cross-site redirect returns
		MaxAge:   300,
	})
	http.Redirect(w, r, s.oidc.OAuth2Config.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	if !s.oidc.Enabled {
		writeError(w, http.StatusNotFound, "sso disabled")
		return
	}

	state, err := r.Cookie("oauth_state")
	if err != nil || r.URL.Query().Get("state") != state.Value {
		writeError(w, http.StatusBadRequest, "invalid state")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "oauth_state", MaxAge: -1, Path: "/"})

	token, err := s.oidc.OAuth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: exchange code: %w", app.ErrUpstream, err))
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: no id_token in token response", app.ErrUpstream))
		return
	}

	idToken, err := s.oidc.Provider.Verifier(&oidc.Config{ClientID: s.oidc.OAuth2Config.ClientID}).Verify(r.Context(), rawIDToken)
	if err != nil {
		s.log.WarnContext(r.Context(), "sso rejected", "reason", "id token verification failed", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid id token")
		return
	}

	var claims idTokenClaims
	if err = idToken.Claims(&claims); err != nil {
		s.log.WarnContext(r.Context(), "sso rejected", "reason", "malformed id token claims", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid id token")
		return
	}

	sess, err := s.auth.LoginWithSSO(r.Context(), claims.identity())
	if err != nil {
		if errors.Is(err, app.ErrUnverifiedEmail) {
			s.log.WarnContext(r.Context(), "sso rejected", "reason", "email not verified")
		}
		s.fail(w, r, err)
		return
	}

	// The fragment never reaches server logs or Referer headers.
	http.Redirect(w, r, "/#token="+url.QueryEscape(sess.Token), http.StatusFound)
}

// idTokenClaims are the standard OIDC claims the callback relies on.
type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (c idTokenClaims) identity() app.SSOIdentity {
	return app.SSOIdentity{Email: c.Email, FullName: c.Name, EmailVerified: c.EmailVerified}
}

func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
