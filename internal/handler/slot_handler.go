package handler

import (
	"net/http"

	"partyplanner/backend/internal/database"
	"partyplanner/backend/internal/models"
	"partyplanner/backend/internal/party"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// region --- DTOs ---

// SlotInput defines the structure for creating a slot.
type SlotInput struct {
	Role     string `json:"role" binding:"required" example:"tank"`
	IPTarget *int   `json:"ip_target" binding:"omitempty,min=0"`
}

// SlotResponse defines the public structure of a slot.
type SlotResponse struct {
	ID       uint   `json:"id"`
	PartyID  uint   `json:"party_id"`
	Role     string `json:"role"`
	IPTarget *int   `json:"ip_target,omitempty"`
}

func newSlotResponse(slot models.PartySlot) SlotResponse {
	return SlotResponse{
		ID:       slot.ID,
		PartyID:  slot.PartyID,
		Role:     slot.Role,
		IPTarget: slot.IPTarget,
	}
}

// endregion

// CreateSlot godoc
// @Summary      Create a slot (Host only)
// @Description  Adds a role slot to an open party and refreshes the party's open slot count.
// @Tags         slots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int       true "Party ID"
// @Param        input body SlotInput true "Slot Info"
// @Success      201  {object}  SlotResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Party not found"
// @Failure      409  {object}  ErrorResponse "Party is closed"
// @Router       /parties/{id}/slots [post]
func CreateSlot(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	p, ok := loadParty(c)
	if !ok {
		return
	}
	if !party.CanManage(user, p) {
		respondError(c, party.ErrPermissionDenied)
		return
	}
	if p.Status != models.PartyOpen {
		respondError(c, party.ErrPartyClosed)
		return
	}

	var input SlotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slot := models.PartySlot{
		PartyID:  p.ID,
		Role:     input.Role,
		IPTarget: input.IPTarget,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&slot).Error; err != nil {
			return err
		}
		return party.RefreshOpenSlotCount(tx, p)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newSlotResponse(slot))
}

// ListSlots godoc
// @Summary      List a party's slots
// @Tags         slots
// @Produce      json
// @Param        id path int true "Party ID"
// @Success      200 {array} SlotResponse
// @Failure      404 {object} ErrorResponse "Party not found"
// @Router       /parties/{id}/slots [get]
func ListSlots(c *gin.Context) {
	p, ok := loadParty(c)
	if !ok {
		return
	}

	var slots []models.PartySlot
	if err := database.DB.Where("party_id = ?", p.ID).Order("id").Find(&slots).Error; err != nil {
		respondError(c, err)
		return
	}

	responses := make([]SlotResponse, len(slots))
	for i, slot := range slots {
		responses[i] = newSlotResponse(slot)
	}
	c.JSON(http.StatusOK, responses)
}
