package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/pongarena/backend/internal/store"
)

var validThemes = map[string]bool{"fire": true, "water": true}
var validDifficulties = map[string]bool{"easy": true, "medium": true, "hard": true}

// GetProfile returns the caller's profile.
func GetProfile(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := store.GetProfile(db, UserID(c))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

// UpdatePreferences sets the caller's theme and difficulty.
func UpdatePreferences(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Theme      string `json:"theme" binding:"required"`
			Difficulty string `json:"difficulty" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "theme and difficulty required"})
			return
		}
		if !validThemes[req.Theme] || !validDifficulties[req.Difficulty] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown theme or difficulty"})
			return
		}
		if err := store.UpdatePreferences(db, UserID(c), req.Theme, req.Difficulty); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save preferences"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "saved"})
	}
}
