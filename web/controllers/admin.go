package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"go-agentcommerce/web/middleware"
)

const adminTokenTTL = 12 * time.Hour

type Admin struct {
	passwordHash string
	secret       string
}

func NewAdmin(passwordHash, secret string) *Admin {
	return &Admin{passwordHash: passwordHash, secret: secret}
}

func (h *Admin) Login(c *gin.Context) {
	if h.passwordHash == "" || h.secret == "" {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "admin login is not configured"})
		return
	}
	var body struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.passwordHash), []byte(body.Password)); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	token, err := middleware.IssueAdminToken(h.secret, adminTokenTTL)
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expiresIn": int(adminTokenTTL / time.Second)})
}
