// Package handler exposes the HTTP surface: authentication flows and
// member management.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/membership/core/auth"
	"github.com/kochabx/membership/core/auth/fingerprint"
	"github.com/kochabx/membership/errors"
	"github.com/kochabx/membership/log"
	middleware "github.com/kochabx/membership/middleware/http"
	transporthttp "github.com/kochabx/membership/transport/http"
	"github.com/kochabx/membership/transport/http/metrics"
)

// AuthHandler handles login, refresh, logout and session management.
type AuthHandler struct {
	auth *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{auth: svc}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Login authenticates credentials and issues a token pair. The session
// is keyed by the caller's device fingerprint and source address, so a
// repeat login from the same place reuses the session row.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		transporthttp.GinErrorE(c, http.StatusBadRequest, "email and password are required")
		return
	}

	meta := fingerprint.FromRequest(c.Request)
	pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, meta)
	if err != nil {
		metrics.Prom.Logins.WithLabelValues("failure").Inc()
		transporthttp.GinError(c, err)
		return
	}

	metrics.Prom.Logins.WithLabelValues("success").Inc()
	transporthttp.GinJSON(c, pair)
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated. A concurrent refresh of the same session
// loses with 409 and must retry against the fresh state.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		transporthttp.GinErrorE(c, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.IsConflict(err):
			metrics.Prom.Refreshes.WithLabelValues("conflict").Inc()
		default:
			metrics.Prom.Refreshes.WithLabelValues("denied").Inc()
		}
		transporthttp.GinError(c, err)
		return
	}

	metrics.Prom.Refreshes.WithLabelValues("success").Inc()
	transporthttp.GinJSON(c, pair)
}

// Logout revokes the session behind the refresh token and blacklists
// both the presented access token and the session's stored one. An
// unknown refresh token still succeeds, logout is idempotent.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		transporthttp.GinErrorE(c, http.StatusBadRequest, "refresh_token is required")
		return
	}

	accessToken := middleware.BearerToken(c)
	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken, accessToken); err != nil {
		transporthttp.GinError(c, err)
		return
	}

	transporthttp.GinJSON(c, gin.H{"logged_out": true})
}

// LogoutAll revokes every active session of the authenticated member.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		transporthttp.GinErrorE(c, http.StatusUnauthorized, "invalid or expired credentials, please log in again")
		return
	}

	revoked, err := h.auth.LogoutAll(c.Request.Context(), principal.ID)
	if err != nil {
		transporthttp.GinError(c, err)
		return
	}

	transporthttp.GinJSON(c, gin.H{"revoked": revoked})
}

// Sessions lists the caller's active sessions, oldest first.
func (h *AuthHandler) Sessions(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		transporthttp.GinErrorE(c, http.StatusUnauthorized, "invalid or expired credentials, please log in again")
		return
	}

	sessions, err := h.auth.Sessions(c.Request.Context(), principal.ID)
	if err != nil {
		transporthttp.GinError(c, err)
		return
	}

	type sessionView struct {
		ID                string `json:"id"`
		DeviceFingerprint string `json:"device_fingerprint"`
		SourceAddress     string `json:"source_address"`
		IssuedAt          int64  `json:"issued_at"`
		LastUsedAt        int64  `json:"last_used_at"`
		ExpiresAt         int64  `json:"expires_at"`
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:                s.ID,
			DeviceFingerprint: s.DeviceFingerprint,
			SourceAddress:     s.SourceAddress,
			IssuedAt:          s.IssuedAt.Unix(),
			LastUsedAt:        s.LastUsedAt.Unix(),
			ExpiresAt:         s.ExpiresAt.Unix(),
		})
	}

	transporthttp.GinJSON(c, views)
}

// RevokeSession revokes one of the caller's sessions by id. A session
// belonging to someone else is indistinguishable from an unknown one.
func (h *AuthHandler) RevokeSession(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		transporthttp.GinErrorE(c, http.StatusUnauthorized, "invalid or expired credentials, please log in again")
		return
	}

	sessionID := c.Param("id")
	if err := h.auth.RevokeSession(c.Request.Context(), principal.ID, sessionID); err != nil {
		transporthttp.GinError(c, err)
		return
	}

	log.Info().Str("subject", principal.ID).Str("session_id", sessionID).Msg("session revoked")
	transporthttp.GinJSON(c, gin.H{"revoked": true})
}
