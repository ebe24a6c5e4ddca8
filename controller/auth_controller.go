package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hemantmeena2005/chat/entity"
	"github.com/hemantmeena2005/chat/service"
	"github.com/hemantmeena2005/chat/utils"
)

type AuthController struct {
	svc    service.UserService
	secret []byte
	ttl    time.Duration
	log    *zap.Logger
}

func NewAuthController(svc service.UserService, secret []byte, ttl time.Duration, log *zap.Logger) *AuthController {
	return &AuthController{svc: svc, secret: secret, ttl: ttl, log: log}
}

func (a *AuthController) SignUp(c *gin.Context) {
	var req entity.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := a.svc.CreateUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, a.log, err)
		return
	}
	a.issue(c, http.StatusCreated, u.Username)
}

func (a *AuthController) Login(c *gin.Context) {
	var req entity.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := a.svc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, a.log, err)
		return
	}
	a.issue(c, http.StatusOK, u.Username)
}

func (a *AuthController) issue(c *gin.Context, status int, username string) {
	token, err := utils.GenerateToken(a.secret, username, a.ttl)
	if err != nil {
		a.log.Error("sign token", zap.String("user", username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(status, gin.H{"username": username, "token": token})
}
