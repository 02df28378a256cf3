package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/membership/core/auth"
	"github.com/kochabx/membership/member"
	middleware "github.com/kochabx/membership/middleware/http"
	transporthttp "github.com/kochabx/membership/transport/http"
)

// MemberHandler handles member registration and management. Password
// changes revoke every other session of the member afterwards.
type MemberHandler struct {
	members *member.Service
	auth    *auth.Service
}

func NewMemberHandler(members *member.Service, authSvc *auth.Service) *MemberHandler {
	return &MemberHandler{members: members, auth: authSvc}
}

// Register creates a member. Open endpoint.
func (h *MemberHandler) Register(c *gin.Context) {
	var in member.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		transporthttp.GinErrorE(c, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.members.Register(c.Request.Context(), &in)
	if err != nil {
		transporthttp.GinError(c, err)
		return
	}

	transporthttp.GinCreated(c, m)
}

// Get returns one member. Members read themselves, admins read anyone.
func (h *MemberHandler) Get(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		transporthttp.GinErrorE(c, http.StatusUnauthorized, "invalid or expired credentials, please log in again")
		return
	}

	id := c.Param("id")
	if id != principal.ID && !hasAuthority(principal, member.RoleAdmin) {
		transporthttp.GinErrorE(c, http.StatusForbidden, "insufficient authority")
		return
	}

	m, err := h.members.Get(c.Request.Context(), id)
	if err != nil {
		transporthttp.GinError(c, err)
		return
	}

	transporthttp.GinJSON(c, m)
}

// List returns all members ordered by name. Admin only, enforced by the
// route middleware.
func (h *MemberHandler) List(c *gin.Context) {
	members, err := h.members.List(c.Request.Context())
	if err != nil {
		transporthttp.GinError(c, err)
		return
	}

	transporthttp.GinJSON(c, members)
}

// Update modifies a member's profile fields. Members update themselves,
// admins update anyone.
func (h *MemberHandler) Update(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		transporthttp.GinErrorE(c, http.StatusUnauthorized, "invalid or expired credentials, please log in again")
		return
	}

	id := c.Param("id")
	if id != principal.ID && !hasAuthority(principal, member.RoleAdmin) {
		transporthttp.GinErrorE(c, http.StatusForbidden, "insufficient authority")
		return
	}

	var in member.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		transporthttp.GinErrorE(c, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.members.Update(c.Request.Context(), id, &in)
	if err != nil {
		transporthttp.GinError(c, err)
		return
	}

	transporthttp.GinJSON(c, m)
}

// Delete removes a member and revokes all their sessions. Admin only,
// enforced by the route middleware.
func (h *MemberHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.members.Delete(c.Request.Context(), id); err != nil {
		transporthttp.GinError(c, err)
		return
	}

	// A deleted member must not keep working sessions around.
	if _, err := h.auth.LogoutAll(c.Request.Context(), id); err != nil {
		transporthttp.GinError(c, err)
		return
	}

	transporthttp.GinJSON(c, gin.H{"deleted": true})
}

type statusRequest struct {
	Enabled bool `json:"enabled"`
	Locked  bool `json:"locked"`
}

// SetStatus enables/disables or locks/unlocks an account. Admin only,
// enforced by the route middleware. A disabled or locked member is also
// logged out everywhere so the flags take effect immediately.
func (h *MemberHandler) SetStatus(c *gin.Context) {
	var in statusRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		transporthttp.GinErrorE(c, http.StatusBadRequest, "invalid request body")
		return
	}

	id := c.Param("id")
	m, err := h.members.SetStatus(c.Request.Context(), id, in.Enabled, in.Locked)
	if err != nil {
		transporthttp.GinError(c, err)
		return
	}

	if !in.Enabled || in.Locked {
		if _, err := h.auth.LogoutAll(c.Request.Context(), id); err != nil {
			transporthttp.GinError(c, err)
			return
		}
	}

	transporthttp.GinJSON(c, m)
}

// ChangePassword verifies the current password, stores the new hash and
// then revokes every session of the member. All devices have to log in
// again with the new password.
func (h *MemberHandler) ChangePassword(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		transporthttp.GinErrorE(c, http.StatusUnauthorized, "invalid or expired credentials, please log in again")
		return
	}

	id := c.Param("id")
	if id != principal.ID {
		transporthttp.GinErrorE(c, http.StatusForbidden, "insufficient authority")
		return
	}

	var in member.ChangePasswordInput
	if err := c.ShouldBindJSON(&in); err != nil {
		transporthttp.GinErrorE(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.members.ChangePassword(c.Request.Context(), id, &in); err != nil {
		transporthttp.GinError(c, err)
		return
	}

	revoked, err := h.auth.LogoutAll(c.Request.Context(), id)
	if err != nil {
		transporthttp.GinError(c, err)
		return
	}

	transporthttp.GinJSON(c, gin.H{"changed": true, "revoked_sessions": revoked})
}

func hasAuthority(principal *auth.Principal, authority string) bool {
	for _, a := range principal.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}
