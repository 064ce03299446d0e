// Package chat is the single write path for party chat: every message, whether
// it arrives over the REST endpoint or a live connection, is validated,
// persisted and only then broadcast to the party's channel.
package chat

import (
	"errors"
	"strings"
	"time"

	"partyplanner/backend/internal/hub"
	"partyplanner/backend/internal/models"
	"partyplanner/backend/internal/party"

	"gorm.io/gorm"
)

// ErrEmptyMessage rejects blank or whitespace-only chat content.
var ErrEmptyMessage = errors.New("chat message is empty")

// EventChatMessage is the hub event type carrying a persisted chat message.
const EventChatMessage = "chat_message"

// MessagePayload is the wire shape of a chat message event and of history
// entries.
type MessagePayload struct {
	ID         uint      `json:"id"`
	PartyID    uint      `json:"party_id"`
	MemberID   *uint     `json:"member_id,omitempty"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewMessagePayload converts a persisted message to its wire shape.
func NewMessagePayload(msg *models.ChatMessage) MessagePayload {
	return MessagePayload{
		ID:         msg.ID,
		PartyID:    msg.PartyID,
		MemberID:   msg.MemberID,
		AuthorName: msg.AuthorName,
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt,
	}
}

// Authorize checks that the user may read and post on a party's chat. Hosts
// and admins always may; everyone else needs a membership record for the party
// that is not rejected. The member record is returned when one exists (it may
// be nil for hosts and admins).
func Authorize(db *gorm.DB, p *models.Party, user *models.User) (*models.PartyMember, error) {
	if user == nil {
		return nil, party.ErrPermissionDenied
	}

	var member models.PartyMember
	err := db.Where("party_id = ? AND user_id = ?", p.ID, user.ID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if party.CanManage(user, p) {
			return nil, nil
		}
		return nil, party.ErrPermissionDenied
	}
	if err != nil {
		return nil, err
	}

	if member.State == models.StateRejected && !party.CanManage(user, p) {
		return nil, party.ErrPermissionDenied
	}
	return &member, nil
}

// PostMessage validates, persists and broadcasts one chat message. The author
// name defaults to the member's applicant name when none is given. A message
// is never broadcast before it is durably stored, and never stored without an
// attempted broadcast.
func PostMessage(db *gorm.DB, h *hub.Hub, p *models.Party, member *models.PartyMember, content, authorName string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	if authorName == "" && member != nil {
		authorName = member.ApplicantName
	}

	msg := &models.ChatMessage{
		PartyID:    p.ID,
		AuthorName: authorName,
		Content:    content,
	}
	if member != nil {
		msg.MemberID = &member.ID
	}

	if err := db.Create(msg).Error; err != nil {
		return nil, err
	}

	h.Broadcast(p.ID, hub.Event{Type: EventChatMessage, Payload: NewMessagePayload(msg)})
	return msg, nil
}

// History returns up to limit messages of a party, oldest first. A non-nil
// beforeID restricts the result to messages older than that message, which is
// how clients page backwards through the log.
func History(db *gorm.DB, partyID uint, limit int, beforeID *uint) ([]MessagePayload, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := db.Where("party_id = ?", partyID)
	if beforeID != nil {
		query = query.Where("id < ?", *beforeID)
	}

	var messages []models.ChatMessage
	if err := query.Order("id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	payloads := make([]MessagePayload, len(messages))
	for i := range messages {
		payloads[len(messages)-1-i] = NewMessagePayload(&messages[i])
	}
	return payloads, nil
}
