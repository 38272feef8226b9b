package invite

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pongarena/backend/internal/bus"
	"github.com/pongarena/backend/internal/game"
	"github.com/pongarena/backend/internal/models"
	"github.com/pongarena/backend/internal/notify"
	"github.com/pongarena/backend/internal/store"
)

var (
	ErrSelfInvite       = errors.New("cannot invite yourself")
	ErrRecipientInGame  = errors.New("recipient is in an active game")
	ErrRecipientQueued  = errors.New("recipient is in the matchmaking queue")
	ErrDuplicatePending = errors.New("a pending invitation already exists between these players")
	ErrNotParty         = errors.New("not a party to this invitation")
	ErrNotPending       = errors.New("invitation is no longer pending")
)

// Service owns the invitation state machine. Every transition notifies the
// affected players through their personal bus groups.
type Service struct {
	db       *sqlx.DB
	bus      bus.Bus
	notifier *notify.Notifier
	expiry   time.Duration
}

func NewService(db *sqlx.DB, b bus.Bus, notifier *notify.Notifier, expiry time.Duration) *Service {
	return &Service{db: db, bus: b, notifier: notifier, expiry: expiry}
}

// Send creates a pending invitation from sender to recipient. An empty
// difficulty falls back to the sender's profile preference.
func (s *Service) Send(ctx context.Context, senderID, recipientID int, difficulty string) (*models.Invitation, error) {
	if senderID == recipientID {
		return nil, ErrSelfInvite
	}
	if _, err := store.GetUserByID(s.db, recipientID); err != nil {
		return nil, err
	}

	inGame, err := store.UserHasActiveGame(s.db, recipientID)
	if err != nil {
		return nil, err
	}
	if inGame {
		return nil, ErrRecipientInGame
	}
	queued, err := store.UserInQueue(s.db, recipientID)
	if err != nil {
		return nil, err
	}
	if queued {
		return nil, ErrRecipientQueued
	}
	duplicate, err := store.HasPendingBetween(s.db, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, ErrDuplicatePending
	}

	if difficulty == "" {
		profile, err := store.GetProfile(s.db, senderID)
		if err != nil {
			return nil, err
		}
		difficulty = profile.Difficulty
	}

	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}
	inv, err := store.CreateInvite(s.db, code, senderID, recipientID, difficulty)
	if err != nil {
		return nil, err
	}
	log.Printf("[INVITE] User %d invited user %d (invite %d, %s)", senderID, recipientID, inv.ID, difficulty)

	sender, _ := store.GetUserByID(s.db, senderID)
	senderName := ""
	if sender != nil {
		senderName = sender.Username
	}
	s.notifier.Notify(ctx, recipientID, notify.KindGameInvite,
		fmt.Sprintf("%s challenged you to a game", senderName),
		map[string]interface{}{"invitation_id": inv.ID, "code": inv.Code, "difficulty": inv.Difficulty})

	s.bus.GroupSend(ctx, game.UserGroup(recipientID), inviteFrame("invitation_received", inv))
	s.bus.GroupSend(ctx, game.UserGroup(senderID), inviteFrame("invitation_sent", inv))
	return inv, nil
}

// Accept transitions a pending invitation to accepted and creates the game,
// sender as player 1. Accepting an already-accepted invitation returns the
// existing game with already=true; declined or expired ones fail.
func (s *Service) Accept(ctx context.Context, recipientID, inviteID int) (gameID string, already bool, err error) {
	inv, err := store.GetInvite(s.db, inviteID)
	if err != nil {
		return "", false, err
	}
	if inv.RecipientID != recipientID {
		return "", false, ErrNotParty
	}
	switch inv.Status {
	case models.InviteAccepted:
		return inv.GameID.String, true, nil
	case models.InviteDeclined, models.InviteExpired:
		return "", false, ErrNotPending
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return "", false, err
	}
	defer tx.Rollback()

	g, err := store.CreateGame(tx, inv.SenderID, inv.RecipientID, inv.Difficulty)
	if err != nil {
		return "", false, err
	}
	if err := store.SettleInvite(tx, inv.ID, models.InviteAccepted, g.ID); err != nil {
		if errors.Is(err, store.ErrInviteSettled) {
			// Lost a race with another accept; surface its outcome.
			tx.Rollback()
			settled, gerr := store.GetInvite(s.db, inviteID)
			if gerr != nil {
				return "", false, gerr
			}
			if settled.Status == models.InviteAccepted {
				return settled.GameID.String, true, nil
			}
			return "", false, ErrNotPending
		}
		return "", false, err
	}
	if err := tx.Commit(); err != nil {
		return "", false, err
	}
	log.Printf("[INVITE] Invite %d accepted, game %s created", inv.ID, g.ID)

	recipient, _ := store.GetUserByID(s.db, recipientID)
	recipientName := ""
	if recipient != nil {
		recipientName = recipient.Username
	}
	s.notifier.Notify(ctx, inv.SenderID, notify.KindGameInviteAccepted,
		fmt.Sprintf("%s accepted your challenge", recipientName),
		map[string]interface{}{"invitation_id": inv.ID, "game_id": g.ID})

	frame := map[string]interface{}{
		"type":          "invitation_accepted",
		"invitation_id": inv.ID,
		"code":          inv.Code,
		"game_id":       g.ID,
		"game_url":      "/game/" + g.ID,
	}
	s.bus.GroupSend(ctx, game.UserGroup(inv.SenderID), frame)
	s.bus.GroupSend(ctx, game.UserGroup(inv.RecipientID), frame)
	return g.ID, false, nil
}

// Decline rejects a pending invitation. Recipient only.
func (s *Service) Decline(ctx context.Context, recipientID, inviteID int) error {
	inv, err := store.GetInvite(s.db, inviteID)
	if err != nil {
		return err
	}
	if inv.RecipientID != recipientID {
		return ErrNotParty
	}
	if err := store.SettleInvite(s.db, inv.ID, models.InviteDeclined, ""); err != nil {
		if errors.Is(err, store.ErrInviteSettled) {
			return ErrNotPending
		}
		return err
	}

	s.notifier.Notify(ctx, inv.SenderID, notify.KindGameInviteDeclined,
		"Your challenge was declined",
		map[string]interface{}{"invitation_id": inv.ID})
	frame := inviteFrame("invitation_declined", inv)
	s.bus.GroupSend(ctx, game.UserGroup(inv.SenderID), frame)
	s.bus.GroupSend(ctx, game.UserGroup(inv.RecipientID), frame)
	return nil
}

// Cancel withdraws a pending invitation. Sender only; the invitation is
// marked expired.
func (s *Service) Cancel(ctx context.Context, senderID, inviteID int) error {
	inv, err := store.GetInvite(s.db, inviteID)
	if err != nil {
		return err
	}
	if inv.SenderID != senderID {
		return ErrNotParty
	}
	if err := store.SettleInvite(s.db, inv.ID, models.InviteExpired, ""); err != nil {
		if errors.Is(err, store.ErrInviteSettled) {
			return ErrNotPending
		}
		return err
	}

	s.notifier.Notify(ctx, inv.RecipientID, notify.KindCancelRequest,
		"The challenge was withdrawn",
		map[string]interface{}{"invitation_id": inv.ID})
	frame := inviteFrame("invitation_cancelled", inv)
	s.bus.GroupSend(ctx, game.UserGroup(inv.SenderID), frame)
	s.bus.GroupSend(ctx, game.UserGroup(inv.RecipientID), frame)
	return nil
}

// Active gathers the user's outstanding invitations, both directions.
func (s *Service) Active(userID int) (sent, received []models.Invitation, err error) {
	sent, err = store.PendingInvitesBy(s.db, userID)
	if err != nil {
		return nil, nil, err
	}
	received, err = store.PendingInvitesFor(s.db, userID)
	if err != nil {
		return nil, nil, err
	}
	return sent, received, nil
}

// RunExpiry sweeps pending invitations past their lifetime, notifying both
// parties. It blocks until ctx is cancelled.
func (s *Service) RunExpiry(ctx context.Context, every time.Duration) {
	log.Printf("[INVITE] Expiry worker started, sweeping every %s", every)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[INVITE] Expiry worker stopped")
			return
		case <-ticker.C:
			expired, err := store.ExpireStale(s.db, time.Now().Add(-s.expiry))
			if err != nil {
				log.Printf("[INVITE] Expiry sweep failed: %v", err)
				continue
			}
			for i := range expired {
				inv := &expired[i]
				log.Printf("[INVITE] Invite %d expired", inv.ID)
				frame := inviteFrame("invitation_expired", inv)
				s.bus.GroupSend(ctx, game.UserGroup(inv.SenderID), frame)
				s.bus.GroupSend(ctx, game.UserGroup(inv.RecipientID), frame)
			}
		}
	}
}

func inviteFrame(frameType string, inv *models.Invitation) map[string]interface{} {
	return map[string]interface{}{
		"type":          frameType,
		"invitation_id": inv.ID,
		"code":          inv.Code,
		"sender_id":     inv.SenderID,
		"recipient_id":  inv.RecipientID,
		"difficulty":    inv.Difficulty,
	}
}
