package handler

import (
	"net/http"
	"strconv"
	"time"

	"partyplanner/backend/internal/auth"
	"partyplanner/backend/internal/database"
	"partyplanner/backend/internal/models"
	"partyplanner/backend/internal/party"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// region --- DTOs ---

// ApplyInput defines the structure for applying to a party.
type ApplyInput struct {
	ApplicantName string  `json:"applicant_name" binding:"required" example:"Lancelot"`
	SlotID        *uint   `json:"slot_id"`
	InviteCode    *string `json:"invite_code"`
}

// JoinByCodeInput joins a private party knowing only its invite code.
type JoinByCodeInput struct {
	InviteCode    string `json:"invite_code" binding:"required"`
	ApplicantName string `json:"applicant_name" binding:"required"`
}

// MemberStateInput defines the structure for a host-driven state transition.
type MemberStateInput struct {
	State  string `json:"state" binding:"required" example:"accepted"`
	SlotID *uint  `json:"slot_id"`
}

// MemberResponse defines the public structure of a party member.
type MemberResponse struct {
	ID              uint      `json:"id"`
	PartyID         uint      `json:"party_id"`
	SlotID          *uint     `json:"slot_id,omitempty"`
	RequestedSlotID *uint     `json:"requested_slot_id,omitempty"`
	UserID          *uint     `json:"user_id,omitempty"`
	ApplicantName   string    `json:"applicant_name"`
	State           string    `json:"state"`
	CreatedAt       time.Time `json:"created_at"`
}

func newMemberResponse(m models.PartyMember) MemberResponse {
	return MemberResponse{
		ID:              m.ID,
		PartyID:         m.PartyID,
		SlotID:          m.SlotID,
		RequestedSlotID: m.RequestedSlotID,
		UserID:          m.UserID,
		ApplicantName:   m.ApplicantName,
		State:           string(m.State),
		CreatedAt:       m.CreatedAt,
	}
}

// JoinResponse is returned by the join-by-code flow.
type JoinResponse struct {
	Party  PartyResponse  `json:"party"`
	Member MemberResponse `json:"member"`
}

// endregion

// memberParam resolves the :memberID path parameter, or writes a 404. The
// record itself is fetched inside the mutating transaction, not here.
func memberParam(c *gin.Context) (uint, bool) {
	memberID, err := strconv.Atoi(c.Param("memberID"))
	if err != nil || memberID < 1 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found in this party"})
		return 0, false
	}
	return uint(memberID), true
}

// createApplication persists a new membership record in the applied state.
func createApplication(p *models.Party, applicantName string, slotID *uint, userID *uint) (*models.PartyMember, error) {
	member := &models.PartyMember{
		PartyID:         p.ID,
		SlotID:          slotID,
		RequestedSlotID: slotID,
		UserID:          userID,
		ApplicantName:   applicantName,
		State:           models.StateApplied,
	}
	if err := database.DB.Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

func callerUserID(c *gin.Context) *uint {
	if userID, exists := c.Get(auth.UserIDKey); exists {
		id := userID.(uint)
		return &id
	}
	return nil
}

// ApplyToParty godoc
// @Summary      Apply to a party
// @Description  Creates a membership application. Private parties require the correct invite code. Guests may apply without an account.
// @Tags         members
// @Accept       json
// @Produce      json
// @Param        id    path int        true "Party ID"
// @Param        input body ApplyInput true "Application Info"
// @Success      201  {object}  MemberResponse
// @Failure      403  {object}  ErrorResponse "Invalid invite code"
// @Failure      404  {object}  ErrorResponse "Party or slot not found"
// @Router       /parties/{id}/apply [post]
func ApplyToParty(c *gin.Context) {
	p, ok := loadParty(c)
	if !ok {
		return
	}

	var input ApplyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if p.Visibility == models.VisibilityPrivate {
		if p.InviteCode == nil || input.InviteCode == nil || *input.InviteCode != *p.InviteCode {
			respondError(c, party.ErrInvalidInviteCode)
			return
		}
	}

	if input.SlotID != nil {
		var slot models.PartySlot
		if err := database.DB.Where("id = ? AND party_id = ?", *input.SlotID, p.ID).First(&slot).Error; err != nil {
			respondError(c, party.ErrSlotNotFound)
			return
		}
	}

	member, err := createApplication(p, input.ApplicantName, input.SlotID, callerUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newMemberResponse(*member))
}

// JoinByCode godoc
// @Summary      Join a private party by invite code
// @Description  Looks up the private party holding the code and creates a membership application against it.
// @Tags         members
// @Accept       json
// @Produce      json
// @Param        input body JoinByCodeInput true "Join Info"
// @Success      201  {object}  JoinResponse
// @Failure      404  {object}  ErrorResponse "No party with that code"
// @Router       /parties/join [post]
func JoinByCode(c *gin.Context) {
	var input JoinByCodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var p models.Party
	err := database.DB.
		Where("invite_code = ? AND visibility = ?", input.InviteCode, models.VisibilityPrivate).
		First(&p).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No party with that invite code"})
		return
	}

	member, err := createApplication(&p, input.ApplicantName, nil, callerUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	viewer, _ := currentUser(c)
	c.JSON(http.StatusCreated, JoinResponse{
		Party:  newPartyResponse(p, viewer),
		Member: newMemberResponse(*member),
	})
}

// ListMembers godoc
// @Summary      List a party's members
// @Tags         members
// @Produce      json
// @Param        id path int true "Party ID"
// @Success      200 {array} MemberResponse
// @Failure      404 {object} ErrorResponse "Party not found"
// @Router       /parties/{id}/members [get]
func ListMembers(c *gin.Context) {
	p, ok := loadParty(c)
	if !ok {
		return
	}

	var members []models.PartyMember
	if err := database.DB.Where("party_id = ?", p.ID).Order("id").Find(&members).Error; err != nil {
		respondError(c, err)
		return
	}

	responses := make([]MemberResponse, len(members))
	for i, m := range members {
		responses[i] = newMemberResponse(m)
	}
	c.JSON(http.StatusOK, responses)
}

// UpdateMemberState godoc
// @Summary      Transition a member's state (Host only)
// @Description  Applies a membership state transition, optionally reassigning the member to another slot first. The whole change is atomic.
// @Tags         members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path int              true "Party ID"
// @Param        memberID path int              true "Member ID"
// @Param        input    body MemberStateInput true "Target state"
// @Success      200  {object}  MemberResponse
// @Failure      400  {object}  ErrorResponse "Unknown state"
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "Capacity exceeded or member frozen"
// @Router       /parties/{id}/members/{memberID}/state [post]
func UpdateMemberState(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	p, ok := loadParty(c)
	if !ok {
		return
	}
	memberID, ok := memberParam(c)
	if !ok {
		return
	}

	var input MemberStateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target, valid := models.ParseMemberState(input.State)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown member state"})
		return
	}

	// Party and member are re-read inside the transaction so the capacity
	// checks act on locked, current rows.
	var updated models.PartyMember
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		lockedParty, member, err := party.FetchForUpdate(tx, p.ID, memberID)
		if err != nil {
			return err
		}
		if err := party.Transition(tx, user, lockedParty, member, target, input.SlotID); err != nil {
			return err
		}
		updated = *member
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newMemberResponse(updated))
}

// KickMember godoc
// @Summary      Kick a member from a party (Host only)
// @Description  Marks the member kicked and frees their slot. Allowed from any state; the record remains as a tombstone.
// @Tags         members
// @Produce      json
// @Security     BearerAuth
// @Param        id       path int true "Party ID"
// @Param        memberID path int true "Member ID"
// @Success      200 {object} MemberResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /parties/{id}/members/{memberID} [delete]
func KickMember(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	p, ok := loadParty(c)
	if !ok {
		return
	}
	memberID, ok := memberParam(c)
	if !ok {
		return
	}

	var kicked models.PartyMember
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		lockedParty, member, err := party.FetchForUpdate(tx, p.ID, memberID)
		if err != nil {
			return err
		}
		if err := party.Remove(tx, user, lockedParty, member); err != nil {
			return err
		}
		kicked = *member
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newMemberResponse(kicked))
}
