package handlers

import (
	"net/http"

	"github.com/docchat/backend/internal/auth"
	"github.com/docchat/backend/pkg/apperr"
	"github.com/docchat/backend/pkg/logger"
	"github.com/docchat/backend/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// Credentials is the signup and login body.
type Credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	auth *auth.Service
}

func NewAuthHandler(a *auth.Service) *AuthHandler {
	return &AuthHandler{auth: a}
}

// Register routes under /auth. requireUser guards logout.
func (h *AuthHandler) Register(rg *gin.RouterGroup, requireUser gin.HandlerFunc) {
	a := rg.Group("/auth")
	a.POST("/signup", h.Signup)
	a.POST("/login", h.Login)
	a.POST("/logout", requireUser, h.Logout)
}

func bindCredentials(c *gin.Context) (*Credentials, bool) {
	var req Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Debugf("auth: bad credentials body: %v", err)
		middleware.RespondError(c, apperr.Wrap(err, apperr.CodeValidation, "email and password are required"))
		return nil, false
	}
	return &req, true
}

// Signup creates an account and returns its public fields.
func (h *AuthHandler) Signup(c *gin.Context) {
	req, ok := bindCredentials(c)
	if !ok {
		return
	}
	u, err := h.auth.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": u.ID, "email": u.Email})
}

// Login exchanges email/password for a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	req, ok := bindCredentials(c)
	if !ok {
		return
	}
	u, err := h.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if u == nil {
		middleware.RespondError(c, apperr.New(apperr.CodeUnauthorized, "Invalid email or password"))
		return
	}
	token, err := h.auth.IssueToken(u)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "token_type": "bearer"})
}

// Logout revokes the bearer token used for this request.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Revoke(c.Request.Context(), middleware.CurrentToken(c)); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
