package ws

import (
	"context"
	"testing"

	"github.com/pongarena/backend/internal/bus"
	"github.com/pongarena/backend/internal/models"
)

type fakeInvites struct {
	sent, received []models.Invitation
	acceptGame     string
	acceptAlready  bool
}

func (f *fakeInvites) Send(ctx context.Context, senderID, recipientID int, difficulty string) (*models.Invitation, error) {
	return &models.Invitation{SenderID: senderID, RecipientID: recipientID, Difficulty: difficulty}, nil
}

func (f *fakeInvites) Accept(ctx context.Context, recipientID, inviteID int) (string, bool, error) {
	return f.acceptGame, f.acceptAlready, nil
}

func (f *fakeInvites) Decline(ctx context.Context, recipientID, inviteID int) error { return nil }
func (f *fakeInvites) Cancel(ctx context.Context, senderID, inviteID int) error { return nil }

func (f *fakeInvites) Active(userID int) ([]models.Invitation, []models.Invitation, error) {
	return f.sent, f.received, nil
}

func TestActiveInvitationsOnDemand(t *testing.T) {
	b := bus.NewLocalBus()
	deps := &Deps{Bus: b, Invites: &fakeInvites{
		received: []models.Invitation{{ID: 3, Code: "ABCD2345", SenderID: 9, RecipientID: 7}},
	}}
	client := newClient(nil, b, 7, "inv", 30, 30)
	defer client.cleanup()

	handleInvitationMessage(context.Background(), deps, client, 7, inbound{Type: "get_active_invitations"})

	frame := readFrame(t, client.recv)
	if frame["type"] != "active_invitations" {
		t.Fatalf("frame type = %v, want active_invitations", frame["type"])
	}
	received, ok := frame["received"].([]interface{})
	if !ok || len(received) != 1 {
		t.Fatalf("received = %v, want the one pending invitation", frame["received"])
	}
}

func TestAcceptedInvitationReplaysGameID(t *testing.T) {
	b := bus.NewLocalBus()
	deps := &Deps{Bus: b, Invites: &fakeInvites{acceptGame: "g9", acceptAlready: true}}
	client := newClient(nil, b, 7, "inv", 30, 30)
	defer client.cleanup()

	handleInvitationMessage(context.Background(), deps, client, 7, inbound{Type: "accept_invitation", InvitationID: 3})

	frame := readFrame(t, client.recv)
	if frame["type"] != "invitation_accepted" {
		t.Fatalf("frame type = %v, want invitation_accepted", frame["type"])
	}
	if frame["game_id"] != "g9" || frame["message"] != "already accepted" {
		t.Fatalf("frame = %v, want the existing game replayed", frame)
	}
}
