package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/genart-works/genart-backend/internal/users"
)

// Handler serves signup and login.
type Handler struct {
	repo   users.UserRepository
	issuer *TokenIssuer
}

func Register(r gin.IRoutes, repo users.UserRepository, issuer *TokenIssuer) {
	h := &Handler{repo: repo, issuer: issuer}

	r.POST("/signup", h.signup)
	r.POST("/login", h.login)
}

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) signup(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	if err := users.ValidateNewUser(req.Username, req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taken, err := h.repo.Exists(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if taken {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is already taken"})
		return
	}

	passhash, err := users.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.repo.Insert(c.Request.Context(), users.User{Username: req.Username, Passhash: passhash}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusOK)
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	u, err := h.repo.GetByUsername(c.Request.Context(), req.Username)
	if err != nil || !users.VerifyPassword(req.Password, u.Passhash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.issuer.Issue(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
