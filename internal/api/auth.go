package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nerrad567/skybridge/internal/auth"
	"github.com/nerrad567/skybridge/internal/session"
	"github.com/nerrad567/skybridge/internal/vivint"
)

// tokenResponse is the body of every successful auth exchange.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid request body")
		return false
	}
	return true
}

// handleLogin authenticates against the upstream cloud and issues a
// local token pair. A refresh token stored from an earlier login is
// tried first so repeat logins skip the password round trip (and any
// MFA challenge that would come with it).
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	// Login accepts both JSON and the form encoding OAuth password
	// clients send.
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			writeBadRequest(w, "invalid request body")
			return
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	} else if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}
	ctx := r.Context()

	if stored, err := s.store.VivintRefreshToken(ctx, req.Username); err == nil {
		account := s.upstream.Resume(req.Username, stored)
		if _, err := account.Connect(ctx, false, false); err == nil {
			defer account.Disconnect()
			s.issueSession(ctx, w, req.Username, account.RefreshToken())
			return
		}
		s.logger.Debug("stored refresh token rejected, falling back to password login", "user", req.Username)
	}

	client := s.upstream.Login(req.Username, req.Password)
	account := vivint.NewAccount(client, nil, s.logger)
	_, err := account.Connect(ctx, false, false)

	var authErr *vivint.AuthError
	switch {
	case err == nil:
		defer account.Disconnect()
		s.issueSession(ctx, w, req.Username, account.RefreshToken())

	case errors.Is(err, vivint.ErrMfaRequired):
		id, err := s.store.CreateMfaSession(ctx, session.MfaSession{
			Username:     req.Username,
			Password:     req.Password,
			Cookies:      client.AuthCookies(),
			CodeVerifier: client.Verifier(),
			MfaType:      client.MfaType(),
		})
		if err != nil {
			s.logger.Error("parking mfa session failed", "error", err)
			writeInternalError(w, "could not start mfa challenge")
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message":        "MFA_REQUIRED",
			"mfa_type":       client.MfaType(),
			"mfa_session_id": id,
		})

	case errors.As(err, &authErr):
		writeUnauthorized(w, "invalid credentials")

	default:
		writeUpstreamError(w, err)
	}
}

// handleVerifyMfa completes a login parked behind a multi-factor
// challenge. The parked session is deleted whatever the outcome; a
// failed code means starting over from login.
func (s *Server) handleVerifyMfa(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MfaSessionID string `json:"mfa_session_id"`
		MfaCode      string `json:"mfa_code"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MfaSessionID == "" || req.MfaCode == "" {
		writeBadRequest(w, "mfa_session_id and mfa_code are required")
		return
	}
	ctx := r.Context()

	mfa, err := s.store.MfaSession(ctx, req.MfaSessionID)
	if errors.Is(err, session.ErrNotFound) {
		writeUnauthorized(w, "mfa session expired, log in again")
		return
	}
	if err != nil {
		s.logger.Error("loading mfa session failed", "error", err)
		writeInternalError(w, "could not load mfa session")
		return
	}
	defer func() {
		if err := s.store.DeleteMfaSession(ctx, req.MfaSessionID); err != nil {
			s.logger.Warn("deleting mfa session failed", "error", err)
		}
	}()

	client := s.upstream.ResumeMfa(mfa)
	if err := client.VerifyMfa(ctx, req.MfaCode); err != nil {
		var authErr *vivint.AuthError
		if errors.As(err, &authErr) || errors.Is(err, vivint.ErrMfaRequired) {
			writeUnauthorized(w, "invalid verification code")
			return
		}
		writeUpstreamError(w, err)
		return
	}
	defer client.Disconnect()

	tokens := client.Tokens()
	if tokens == nil {
		writeInternalError(w, "mfa verification yielded no session")
		return
	}
	s.issueSession(ctx, w, mfa.Username, tokens.RefreshToken)
}

// handleRefresh exchanges a valid refresh token for a new token pair.
// Presenting a token that is not the stored current one revokes the
// whole session.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	ctx := r.Context()

	claims, err := auth.ParseRefreshToken(req.RefreshToken, s.secret)
	if err != nil {
		writeUnauthorized(w, "invalid or expired refresh token")
		return
	}

	if err := s.store.ValidateRefreshToken(ctx, claims.Username(), req.RefreshToken); err != nil {
		switch {
		case errors.Is(err, session.ErrTokenReuse):
			writeUnauthorized(w, "refresh token already used, log in again")
		case errors.Is(err, session.ErrNotFound):
			writeUnauthorized(w, "session expired, log in again")
		default:
			s.logger.Error("refresh validation failed", "error", err)
			writeInternalError(w, "could not validate refresh token")
		}
		return
	}

	vivintRefresh, err := s.store.VivintRefreshToken(ctx, claims.Username())
	if err != nil {
		writeUnauthorized(w, "session expired, log in again")
		return
	}

	s.issueSession(ctx, w, claims.Username(), vivintRefresh)
}

// handleLogout ends the caller's session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	if err := s.store.DeleteSession(r.Context(), claims.Username()); err != nil {
		s.logger.Error("deleting session failed", "error", err)
		writeInternalError(w, "could not end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// issueSession stores the upstream refresh token, mints a local token
// pair and writes it out.
func (s *Server) issueSession(ctx context.Context, w http.ResponseWriter, username, vivintRefresh string) {
	if vivintRefresh == "" {
		writeInternalError(w, "upstream session missing refresh token")
		return
	}
	if err := s.store.SaveVivintRefreshToken(ctx, username, vivintRefresh); err != nil {
		s.logger.Error("saving upstream refresh token failed", "error", err)
		writeInternalError(w, "could not persist session")
		return
	}

	access, err := auth.GenerateAccessToken(username, vivintRefresh, s.secret, s.accessTTL)
	if err != nil {
		s.logger.Error("generating access token failed", "error", err)
		writeInternalError(w, "could not issue tokens")
		return
	}
	refresh, err := auth.GenerateRefreshToken(username, s.secret, s.refreshTTL)
	if err != nil {
		s.logger.Error("generating refresh token failed", "error", err)
		writeInternalError(w, "could not issue tokens")
		return
	}
	if err := s.store.SaveAPIRefreshToken(ctx, username, refresh, s.refreshTTL); err != nil {
		s.logger.Error("saving refresh token failed", "error", err)
		writeInternalError(w, "could not persist session")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
	})
}
