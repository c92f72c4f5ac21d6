package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"signaware-client/internal/gateway"
	"signaware-client/internal/session"
	"signaware-client/internal/shared/server/respond"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "email and password are required", nil)
		return
	}

	s, err := h.deps.Sessions.Login(c.Request.Context(), gateway.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		authError(c, err)
		return
	}
	respond.OK(c, s)
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "email and password are required", nil)
		return
	}
	data := session.SignupData{Name: req.Name, Email: req.Email, Password: req.Password}
	if strings.TrimSpace(req.Role) != "" {
		role, err := session.ParseRole(req.Role)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
		data.Role = role
	}

	s, err := h.deps.Sessions.Signup(c.Request.Context(), data)
	if err != nil {
		authError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, s)
}

func (h *Handler) google(c *gin.Context) {
	s, err := h.deps.Sessions.SignInWithGoogle(c.Request.Context())
	if err != nil {
		authError(c, err)
		return
	}
	respond.OK(c, s)
}

func (h *Handler) logout(c *gin.Context) {
	h.deps.Sessions.Logout(c.Request.Context())
	h.Close()
	respond.NoContent(c)
}

func (h *Handler) me(c *gin.Context) {
	p, err := h.deps.Sessions.GetCurrentUser(c.Request.Context())
	if err != nil {
		authError(c, err)
		return
	}
	respond.OK(c, gin.H{"user": p})
}

func (h *Handler) updateRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	role, err := session.ParseRole(req.Role)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	p, err := h.deps.Sessions.UpdateRole(c.Request.Context(), role)
	if err != nil {
		authError(c, err)
		return
	}
	respond.OK(c, gin.H{"user": p})
}
