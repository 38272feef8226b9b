package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/pongarena/backend/internal/auth"
	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/store"
)

type credentials struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register creates an account and returns a token.
func Register(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentials
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password (8+ chars) required"})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
			return
		}

		user, err := store.CreateUser(db, req.Username, hash)
		if err != nil {
			if errors.Is(err, store.ErrUsernameTaken) {
				c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
				return
			}
			log.Printf("[API] Register failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
			return
		}

		token, err := auth.IssueToken(cfg.JWTSecret, user.ID, time.Duration(cfg.TokenExpiryHours)*time.Hour)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
			return
		}

		log.Printf("[API] Registered user %s (id %d)", user.Username, user.ID)
		c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
	}
}

// Login verifies credentials and returns a token.
func Login(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentials
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
			return
		}

		user, err := store.GetUserByUsername(db, req.Username)
		if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		token, err := auth.IssueToken(cfg.JWTSecret, user.ID, time.Duration(cfg.TokenExpiryHours)*time.Hour)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}

// AuthRequired validates the Authorization header and stores user_id in the
// gin context.
func AuthRequired(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		userID, err := auth.ParseToken(cfg.JWTSecret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

// UserID reads the authenticated user from the gin context.
func UserID(c *gin.Context) int {
	return c.GetInt("user_id")
}
