package handler

import (
	"net/http"
	"strconv"

	"partyplanner/backend/internal/chat"
	"partyplanner/backend/internal/database"
	"partyplanner/backend/internal/hub"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// ChatMessageInput defines the structure for posting a chat message over HTTP.
type ChatMessageInput struct {
	Content    string `json:"content" binding:"required"`
	AuthorName string `json:"author_name"`
}

// endregion

// GetChatHistory godoc
// @Summary      Get a party's chat history
// @Description  Returns up to limit messages in chronological order. Pass before_id to page backwards.
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        id        path  int true  "Party ID"
// @Param        limit     query int false "Max messages" default(50)
// @Param        before_id query int false "Only messages older than this ID"
// @Success      200 {array} chat.MessagePayload
// @Failure      403 {object} ErrorResponse "Not a member of this party"
// @Failure      404 {object} ErrorResponse "Party not found"
// @Router       /parties/{id}/messages [get]
func GetChatHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	p, ok := loadParty(c)
	if !ok {
		return
	}

	if _, err := chat.Authorize(database.DB, p, user); err != nil {
		respondError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	var beforeID *uint
	if raw := c.Query("before_id"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid before_id"})
			return
		}
		id := uint(parsed)
		beforeID = &id
	}

	messages, err := chat.History(database.DB, p.ID, limit, beforeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// PostChatMessage godoc
// @Summary      Post a chat message
// @Description  Persists the message and broadcasts it to every live connection on the party's channel.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int              true "Party ID"
// @Param        input body ChatMessageInput true "Message"
// @Success      201 {object} chat.MessagePayload
// @Failure      400 {object} ErrorResponse "Empty message"
// @Failure      403 {object} ErrorResponse "Not a member of this party"
// @Failure      404 {object} ErrorResponse "Party not found"
// @Router       /parties/{id}/messages [post]
func PostChatMessage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	p, ok := loadParty(c)
	if !ok {
		return
	}

	member, err := chat.Authorize(database.DB, p, user)
	if err != nil {
		respondError(c, err)
		return
	}

	var input ChatMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	authorName := input.AuthorName
	if authorName == "" && member == nil {
		// Hosts and admins without a member record post under their nickname.
		authorName = user.Nickname
	}

	msg, err := chat.PostMessage(database.DB, hub.GlobalHub, p, member, input.Content, authorName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, chat.NewMessagePayload(msg))
}
