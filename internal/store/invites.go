package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pongarena/backend/internal/models"
)

var ErrInviteSettled = errors.New("invitation already settled")

const inviteColumns = `id, code, sender_id, recipient_id, difficulty, status, created_at, responded_at, game_id`

// CreateInvite inserts a pending invitation with a caller-generated code.
func CreateInvite(db *sqlx.DB, code string, senderID, recipientID int, difficulty string) (*models.Invitation, error) {
	var inv models.Invitation
	err := db.Get(&inv, `INSERT INTO game_invites (code, sender_id, recipient_id, difficulty)
		VALUES ($1, $2, $3, $4) RETURNING `+inviteColumns,
		code, senderID, recipientID, difficulty)
	if err != nil {
		return nil, fmt.Errorf("insert invite: %w", err)
	}
	return &inv, nil
}

func GetInvite(db *sqlx.DB, id int) (*models.Invitation, error) {
	var inv models.Invitation
	err := db.Get(&inv, `SELECT `+inviteColumns+` FROM game_invites WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// HasPendingBetween reports whether a pending invitation already links the
// two players in either direction.
func HasPendingBetween(db *sqlx.DB, userA, userB int) (bool, error) {
	var count int
	err := db.Get(&count, `SELECT COUNT(*) FROM game_invites
		WHERE status=$1 AND ((sender_id=$2 AND recipient_id=$3) OR (sender_id=$3 AND recipient_id=$2))`,
		models.InvitePending, userA, userB)
	return count > 0, err
}

// PendingInvitesBy lists pending invitations the user has sent.
func PendingInvitesBy(db *sqlx.DB, senderID int) ([]models.Invitation, error) {
	invites := []models.Invitation{}
	err := db.Select(&invites, `SELECT `+inviteColumns+` FROM game_invites
		WHERE sender_id=$1 AND status=$2 ORDER BY created_at`, senderID, models.InvitePending)
	return invites, err
}

// PendingInvitesFor lists invitations still awaiting the user's answer.
func PendingInvitesFor(db *sqlx.DB, recipientID int) ([]models.Invitation, error) {
	invites := []models.Invitation{}
	err := db.Select(&invites, `SELECT `+inviteColumns+` FROM game_invites
		WHERE recipient_id=$1 AND status=$2 ORDER BY created_at`, recipientID, models.InvitePending)
	return invites, err
}

// SettleInvite transitions a pending invitation to its final status,
// optionally binding the game it produced. Returns ErrInviteSettled if the
// invitation was already answered. Accepts a db or a tx so acceptance can
// settle and create the game atomically.
func SettleInvite(q sqlx.Ext, id int, status, gameID string) error {
	g := sql.NullString{}
	if gameID != "" {
		g = sql.NullString{String: gameID, Valid: true}
	}
	res, err := q.Exec(`UPDATE game_invites SET status=$1, responded_at=NOW(), game_id=$2
		WHERE id=$3 AND status=$4`, status, g, id, models.InvitePending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInviteSettled
	}
	return nil
}

// ExpireStale marks pending invitations older than the cutoff as expired and
// returns them so both parties can be notified.
func ExpireStale(db *sqlx.DB, olderThan time.Time) ([]models.Invitation, error) {
	expired := []models.Invitation{}
	err := db.Select(&expired, `UPDATE game_invites SET status=$1, responded_at=NOW()
		WHERE status=$2 AND created_at < $3
		RETURNING `+inviteColumns, models.InviteExpired, models.InvitePending, olderThan)
	return expired, err
}
