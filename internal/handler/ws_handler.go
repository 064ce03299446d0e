package handler

import (
	"net/http"
	"time"

	"partyplanner/backend/internal/chat"
	"partyplanner/backend/internal/database"
	"partyplanner/backend/internal/hub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict origins once the frontend domain is fixed
		return true
	},
}

// PartyWebSocket godoc
// @Summary      Open a live chat connection for a party
// @Description  Upgrades to a WebSocket subscribed to the party's channel. Inbound frames are chat messages; the socket receives every message posted to the party. Requires a valid token (header or ?token=) belonging to a non-rejected member, the host or an admin.
// @Tags         chat
// @Security     BearerAuth
// @Param        id    path  int    true  "Party ID"
// @Param        token query string false "JWT, for clients that cannot set headers"
// @Success      101 {string} string "Switching Protocols"
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Party not found"
// @Router       /parties/{id}/ws [get]
func PartyWebSocket(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	p, ok := loadParty(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	// The connection goes active only for validated party members; anyone
	// else is refused with a policy-violation close.
	member, err := chat.Authorize(database.DB, p, user)
	if err != nil {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "not a member of this party")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
		return
	}

	var memberID *uint
	if member != nil {
		memberID = &member.ID
	}

	client := hub.NewClient(hub.GlobalHub, conn, p.ID, memberID)
	hub.GlobalHub.Subscribe(p.ID, client)

	go client.WritePump()
	go client.ReadPump(func(_ *hub.Client, msg *hub.InboundMessage) error {
		// Membership can be revoked while the connection is open; every post
		// re-checks it instead of trusting the record captured at connect time.
		member, err := chat.Authorize(database.DB, p, user)
		if err != nil {
			return err
		}

		authorName := msg.AuthorName
		if authorName == "" && member == nil {
			authorName = user.Nickname
		}
		_, err = chat.PostMessage(database.DB, hub.GlobalHub, p, member, msg.Content, authorName)
		return err
	})
}
