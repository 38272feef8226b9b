package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/pongarena/backend/internal/bus"
	"github.com/pongarena/backend/internal/game"
	"github.com/pongarena/backend/internal/store"
)

// Notification kinds emitted by the realtime core.
const (
	KindGameInvite         = "game_invite"
	KindGameInviteAccepted = "game_invite_accepted"
	KindGameInviteDeclined = "game_invite_declined"
	KindCancelRequest      = "cancel_request"
	KindGameCompleted      = "game_completed"
)

// Notifier persists notifications and pushes them to the recipient's
// personal group. Delivery failures are logged, never propagated: a
// notification must not break the operation that produced it.
type Notifier struct {
	db  *sqlx.DB
	bus bus.Bus
}

func New(db *sqlx.DB, b bus.Bus) *Notifier {
	return &Notifier{db: db, bus: b}
}

func (n *Notifier) Notify(ctx context.Context, userID int, kind, message string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("[NOTIFY] Failed to encode %s payload for user %d: %v", kind, userID, err)
		payload = []byte(`{}`)
	}

	record, err := store.InsertNotification(n.db, userID, kind, message, payload)
	if err != nil {
		log.Printf("[NOTIFY] Failed to persist %s for user %d: %v", kind, userID, err)
		return
	}

	err = n.bus.GroupSend(ctx, game.UserGroup(userID), map[string]interface{}{
		"type":            "notification",
		"notification_id": record.ID,
		"kind":            kind,
		"message":         message,
		"data":            json.RawMessage(payload),
		"created_at":      record.CreatedAt,
	})
	if err != nil {
		log.Printf("[NOTIFY] Failed to push %s to user %d: %v", kind, userID, err)
	}
}
