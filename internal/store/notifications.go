package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pongarena/backend/internal/models"
)

const notificationColumns = `id, user_id, kind, message, data, is_read, created_at`

// InsertNotification persists the durable side of a realtime notification.
func InsertNotification(db *sqlx.DB, userID int, kind, message string, data []byte) (*models.Notification, error) {
	if len(data) == 0 {
		data = []byte(`{}`)
	}
	var n models.Notification
	err := db.Get(&n, `INSERT INTO notifications (user_id, kind, message, data)
		VALUES ($1, $2, $3, $4::jsonb) RETURNING `+notificationColumns,
		userID, kind, message, data)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &n, nil
}

// ListNotifications returns the user's most recent notifications.
func ListNotifications(db *sqlx.DB, userID, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	notifications := []models.Notification{}
	err := db.Select(&notifications, `SELECT `+notificationColumns+` FROM notifications
		WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	return notifications, err
}

// MarkNotificationsRead flags all of a user's notifications as read.
func MarkNotificationsRead(db *sqlx.DB, userID int) error {
	_, err := db.Exec(`UPDATE notifications SET is_read=TRUE WHERE user_id=$1 AND NOT is_read`, userID)
	return err
}
