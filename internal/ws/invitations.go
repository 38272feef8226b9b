package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/pongarena/backend/internal/game"
	"github.com/pongarena/backend/internal/invite"
	"github.com/pongarena/backend/internal/models"
	"github.com/pongarena/backend/internal/store"
)

// InviteService is the slice of the invitation layer this endpoint drives;
// *invite.Service is the production implementation.
type InviteService interface {
	Send(ctx context.Context, senderID, recipientID int, difficulty string) (*models.Invitation, error)
	Accept(ctx context.Context, recipientID, inviteID int) (gameID string, already bool, err error)
	Decline(ctx context.Context, recipientID, inviteID int) error
	Cancel(ctx context.Context, senderID, inviteID int) error
	Active(userID int) (sent, received []models.Invitation, err error)
}

// ServeInvitations handles /ws/invitations. The connection doubles as the
// user's presence anchor: online on connect, offline when the last thing
// they had open goes away.
func ServeInvitations(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, userID, ok := authenticate(c, deps.Cfg.JWTSecret)
		if !ok {
			return
		}

		client := newClient(conn, deps.Bus, userID, "inv", deps.Cfg.WSMessagesPerSecond, deps.Cfg.WSMessageBurst)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		deps.Bus.GroupAdd(game.UserGroup(userID), client.channel)
		if err := store.SetUserStatus(deps.DB, userID, models.StatusOnline); err != nil {
			log.Printf("[WS] Failed to set user %d online: %v", userID, err)
		}
		log.Printf("[WS] User %d connected to invitations", userID)

		go client.writePump()

		sendActiveInvitations(ctx, deps, client, userID)
		runInvitationReadLoop(ctx, deps, client, userID)

		if err := store.SetUserStatus(deps.DB, userID, models.StatusOffline); err != nil {
			log.Printf("[WS] Failed to set user %d offline: %v", userID, err)
		}
		deps.Bus.GroupDiscard(game.UserGroup(userID), client.channel)
		client.cleanup()
		log.Printf("[WS] User %d disconnected from invitations", userID)
	}
}

func sendActiveInvitations(ctx context.Context, deps *Deps, client *Client, userID int) {
	sent, received, err := deps.Invites.Active(userID)
	if err != nil {
		log.Printf("[WS] Failed to load invitations for user %d: %v", userID, err)
		client.sendError(ctx, "could not load invitations")
		return
	}
	client.Send(ctx, map[string]interface{}{
		"type":     "active_invitations",
		"sent":     sent,
		"received": received,
	})
}

func runInvitationReadLoop(ctx context.Context, deps *Deps, client *Client, userID int) {
	client.configureRead()

	for {
		raw, err := client.readMessage()
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			client.sendError(ctx, "invalid message")
			continue
		}
		handleInvitationMessage(ctx, deps, client, userID, msg)
	}
}

func handleInvitationMessage(ctx context.Context, deps *Deps, client *Client, userID int, msg inbound) {
	switch msg.Type {
	case "send_invitation":
		if msg.RecipientID == 0 {
			client.sendError(ctx, "recipient_id required")
			return
		}
		if _, err := deps.Invites.Send(ctx, userID, msg.RecipientID, msg.Difficulty); err != nil {
			client.sendError(ctx, inviteErrorMessage(err))
		}

	case "accept_invitation":
		gameID, already, err := deps.Invites.Accept(ctx, userID, msg.InvitationID)
		if err != nil {
			client.sendError(ctx, inviteErrorMessage(err))
			return
		}
		if already {
			client.Send(ctx, map[string]interface{}{
				"type":          "invitation_accepted",
				"invitation_id": msg.InvitationID,
				"game_id":       gameID,
				"message":       "already accepted",
			})
		}

	case "decline_invitation":
		if err := deps.Invites.Decline(ctx, userID, msg.InvitationID); err != nil {
			client.sendError(ctx, inviteErrorMessage(err))
		}

	case "cancel_invitation":
		if err := deps.Invites.Cancel(ctx, userID, msg.InvitationID); err != nil {
			client.sendError(ctx, inviteErrorMessage(err))
		}

	case "get_active_invitations":
		sendActiveInvitations(ctx, deps, client, userID)

	case "ping":
		client.Send(ctx, map[string]interface{}{"type": "pong"})

	default:
		client.sendError(ctx, "unknown message type")
	}
}

// inviteErrorMessage maps service errors to client-facing text without
// leaking internals.
func inviteErrorMessage(err error) string {
	switch {
	case errors.Is(err, invite.ErrSelfInvite):
		return "you cannot invite yourself"
	case errors.Is(err, invite.ErrRecipientInGame):
		return "that player is already in a game"
	case errors.Is(err, invite.ErrRecipientQueued):
		return "that player is waiting in matchmaking"
	case errors.Is(err, invite.ErrDuplicatePending):
		return "an invitation between you is already pending"
	case errors.Is(err, invite.ErrNotParty):
		return "this invitation is not yours to answer"
	case errors.Is(err, invite.ErrNotPending):
		return "this invitation has already been resolved"
	case errors.Is(err, store.ErrNotFound):
		return "invitation or player not found"
	default:
		log.Printf("[WS] Invitation operation failed: %v", err)
		return "invitation operation failed"
	}
}
