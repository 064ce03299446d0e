package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"partyplanner/backend/internal/auth"
	"partyplanner/backend/internal/chat"
	"partyplanner/backend/internal/database"
	"partyplanner/backend/internal/models"
	"partyplanner/backend/internal/party"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// currentUser loads the authenticated user set by the auth middleware. The
// second return is false when the request is anonymous.
func currentUser(c *gin.Context) (*models.User, bool) {
	userID, exists := c.Get(auth.UserIDKey)
	if !exists {
		return nil, false
	}

	var user models.User
	if err := database.DB.First(&user, userID.(uint)).Error; err != nil {
		return nil, false
	}
	return &user, true
}

// loadParty resolves the :id path parameter to a party, or writes a 404.
func loadParty(c *gin.Context) (*models.Party, bool) {
	partyID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Party not found"})
		return nil, false
	}

	var p models.Party
	if err := database.DB.First(&p, partyID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Party not found"})
		return nil, false
	}
	return &p, true
}

// respondError maps core errors to stable HTTP statuses. Capacity and
// permission rejections are expected outcomes and are not logged; only
// unexpected persistence failures are.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, party.ErrPartyNotFound),
		errors.Is(err, party.ErrSlotNotFound),
		errors.Is(err, party.ErrMemberNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, party.ErrPermissionDenied),
		errors.Is(err, party.ErrInvalidInviteCode):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, party.ErrCapacityExceeded),
		errors.Is(err, party.ErrSlotCapacityExceeded),
		errors.Is(err, party.ErrInvalidStateForMove),
		errors.Is(err, party.ErrPartyClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
