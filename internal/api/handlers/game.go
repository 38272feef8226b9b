package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/pongarena/backend/internal/store"
)

// GetGame returns a game record with its matches. Participants only.
func GetGame(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		g, err := store.GetGame(db, c.Param("game_id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load game"})
			return
		}

		userID := UserID(c)
		if userID != g.Player1ID && userID != g.Player2ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
			return
		}

		matches, err := store.ListMatches(db, g.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load matches"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"game": g, "matches": matches})
	}
}

// ListNotifications returns the caller's recent notifications.
func ListNotifications(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		notifications, err := store.ListNotifications(db, UserID(c), 50)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load notifications"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": notifications})
	}
}

// MarkNotificationsRead flags everything as read.
func MarkNotificationsRead(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.MarkNotificationsRead(db, UserID(c)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update notifications"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
