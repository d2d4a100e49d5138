package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/keygate/keygate/internal/auth"
	"github.com/keygate/keygate/internal/domain/user"
	"github.com/keygate/keygate/internal/obs"
)

type AuthHandler struct {
	engine *auth.Engine
	log    *zap.Logger
}

func NewAuthHandler(engine *auth.Engine, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{engine: engine, log: log}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authPayload struct {
	User         *user.User `json:"user,omitempty"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "email and password are required")
		return
	}

	ctx := c.Request.Context()
	u, pair, err := h.engine.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		respondEngineErr(c, err)
		return
	}

	obs.WithTrace(ctx, h.log).Info("signup", zap.Int64("user_id", u.ID))
	respondOK(c, http.StatusCreated, "user created successfully", authPayload{
		User:         u,
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, "email and password are required")
		return
	}

	ctx := c.Request.Context()
	u, pair, err := h.engine.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		respondEngineErr(c, err)
		return
	}

	obs.WithTrace(ctx, h.log).Info("login", zap.Int64("user_id", u.ID))
	respondOK(c, http.StatusOK, "login successful", authPayload{
		User:         u,
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	// An empty body is a validation error, same as an empty token; let the
	// engine produce the canonical message.
	_ = c.ShouldBindJSON(&req)

	pair, err := h.engine.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondEngineErr(c, err)
		return
	}

	respondOK(c, http.StatusOK, "token refreshed successfully", authPayload{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	raw := extractBearer(c.GetHeader("Authorization"))
	if raw == "" {
		respondErr(c, http.StatusUnauthorized, "access token required")
		return
	}
	if err := h.engine.Logout(c.Request.Context(), raw, req.RefreshToken); err != nil {
		respondEngineErr(c, err)
		return
	}

	respondOK(c, http.StatusOK, "logout successful", nil)
}

func (h *AuthHandler) Profile(c *gin.Context) {
	u := currentUser(c)
	if u == nil {
		respondErr(c, http.StatusUnauthorized, "access token required")
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"user": u})
}
