package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"partyplanner/backend/internal/database"
	"partyplanner/backend/internal/models"
	"partyplanner/backend/internal/party"
	"partyplanner/backend/pkg/invite"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// PartyInput defines the structure for creating a party.
type PartyInput struct {
	Title            string  `json:"title" binding:"required" example:"Avalon roads fame farm"`
	Description      string  `json:"description"`
	Schedule         string  `json:"schedule" example:"2026-09-01T20:00Z"`
	VoiceChannelLink string  `json:"voice_channel_link"`
	Visibility       string  `json:"visibility" example:"public"`
	Capacity         *int    `json:"capacity" binding:"omitempty,min=1"`
	InviteCode       *string `json:"invite_code"`
}

// PartyUpdateInput defines the updatable fields of a party.
type PartyUpdateInput struct {
	Title            string `json:"title" binding:"required"`
	Description      string `json:"description"`
	Schedule         string `json:"schedule"`
	VoiceChannelLink string `json:"voice_channel_link"`
	Capacity         *int   `json:"capacity" binding:"omitempty,min=1"`
	Status           string `json:"status" example:"open"`
}

// PartyResponse defines the public structure of a party.
type PartyResponse struct {
	ID               uint      `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Schedule         string    `json:"schedule,omitempty"`
	VoiceChannelLink string    `json:"voice_channel_link,omitempty"`
	Visibility       string    `json:"visibility"`
	Capacity         *int      `json:"capacity,omitempty"`
	OpenSlotCount    *int      `json:"open_slot_count,omitempty"`
	HostID           uint      `json:"host_id"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	// InviteCode is only populated for the host and admins.
	InviteCode *string `json:"invite_code,omitempty"`
}

// PartyDetailResponse is a party with its slots and members.
type PartyDetailResponse struct {
	PartyResponse
	Slots   []SlotResponse   `json:"slots"`
	Members []MemberResponse `json:"members"`
}

func newPartyResponse(p models.Party, viewer *models.User) PartyResponse {
	resp := PartyResponse{
		ID:               p.ID,
		Title:            p.Title,
		Description:      p.Description,
		Schedule:         p.Schedule,
		VoiceChannelLink: p.VoiceChannelLink,
		Visibility:       string(p.Visibility),
		Capacity:         p.Capacity,
		OpenSlotCount:    p.OpenSlotCount,
		HostID:           p.HostID,
		Status:           string(p.Status),
		CreatedAt:        p.CreatedAt,
	}
	if viewer != nil && party.CanManage(viewer, &p) {
		resp.InviteCode = p.InviteCode
	}
	return resp
}

func newPartyDetailResponse(p models.Party, viewer *models.User) PartyDetailResponse {
	slots := make([]SlotResponse, len(p.Slots))
	for i, slot := range p.Slots {
		slots[i] = newSlotResponse(slot)
	}
	members := make([]MemberResponse, len(p.Members))
	for i, member := range p.Members {
		members[i] = newMemberResponse(member)
	}
	return PartyDetailResponse{
		PartyResponse: newPartyResponse(p, viewer),
		Slots:         slots,
		Members:       members,
	}
}

// endregion

// CreateParty godoc
// @Summary      Create a new party
// @Description  Creates a party with the caller as host. A private party without an invite code gets one generated.
// @Tags         parties
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body PartyInput true "Party Info"
// @Success      201  {object}  PartyResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /parties [post]
func CreateParty(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input PartyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	visibility := models.VisibilityPublic
	if input.Visibility != "" {
		parsed, ok := models.ParsePartyVisibility(input.Visibility)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid visibility"})
			return
		}
		visibility = parsed
	}

	// A private party must carry an invite code before its first join.
	inviteCode := input.InviteCode
	if visibility == models.VisibilityPrivate && (inviteCode == nil || *inviteCode == "") {
		code := invite.Generate()
		inviteCode = &code
	}
	if visibility == models.VisibilityPublic {
		inviteCode = nil
	}

	p := models.Party{
		Title:            input.Title,
		Description:      input.Description,
		Schedule:         input.Schedule,
		VoiceChannelLink: input.VoiceChannelLink,
		Visibility:       visibility,
		InviteCode:       inviteCode,
		Capacity:         input.Capacity,
		HostID:           user.ID,
		Status:           models.PartyOpen,
	}

	if err := database.DB.Create(&p).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create party"})
		return
	}

	if err := party.RefreshOpenSlotCount(database.DB, &p); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newPartyResponse(p, user))
}

// SearchParties godoc
// @Summary      Search for parties
// @Description  Gets a paginated list of parties, optionally filtered by visibility, slot role or title.
// @Tags         parties
// @Produce      json
// @Param        visibility query string false "public or private"
// @Param        role       query string false "Filter by slot role"
// @Param        q          query string false "Title search term"
// @Param        page       query int    false "Page number" default(1)
// @Param        limit      query int    false "Items per page" default(10)
// @Success      200 {object} PaginatedResponse[PartyResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /parties [get]
func SearchParties(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := database.DB.Model(&models.Party{})

	if visibility := c.Query("visibility"); visibility != "" {
		parsed, ok := models.ParsePartyVisibility(visibility)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid visibility"})
			return
		}
		query = query.Where("visibility = ?", parsed)
	}
	if q := c.Query("q"); q != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("id IN (?)", database.DB.Model(&models.PartySlot{}).
			Select("party_id").
			Where("LOWER(role) LIKE ?", "%"+strings.ToLower(role)+"%"))
	}

	result, err := Paginate[models.Party](query, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	viewer, _ := currentUser(c)
	responses := make([]PartyResponse, len(result.Data))
	for i, p := range result.Data {
		responses[i] = newPartyResponse(p, viewer)
	}

	c.JSON(http.StatusOK, NewPaginatedResponse(responses, result.Meta.TotalItems, page, limit))
}

// GetPartyByID godoc
// @Summary      Get a party by ID
// @Description  Gets full details for a single party, including slots and members.
// @Tags         parties
// @Produce      json
// @Param        id path int true "Party ID"
// @Success      200 {object} PartyDetailResponse
// @Failure      404 {object} ErrorResponse "Party not found"
// @Router       /parties/{id} [get]
func GetPartyByID(c *gin.Context) {
	partyID, _ := strconv.Atoi(c.Param("id"))

	var p models.Party
	if err := database.DB.Preload("Slots").Preload("Members").First(&p, partyID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Party not found"})
		return
	}

	viewer, _ := currentUser(c)
	c.JSON(http.StatusOK, newPartyDetailResponse(p, viewer))
}

// UpdateParty godoc
// @Summary      Update a party (Host only)
// @Tags         parties
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int              true "Party ID"
// @Param        input body PartyUpdateInput true "New Party Info"
// @Success      200   {object}  PartyResponse
// @Failure      403   {object}  ErrorResponse "Only the host can update the party"
// @Failure      404   {object}  ErrorResponse "Party not found"
// @Router       /parties/{id} [put]
func UpdateParty(c *gin.Context) {
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

	var input PartyUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Status != "" {
		status, ok := models.ParsePartyStatus(input.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		p.Status = status
	}

	p.Title = input.Title
	p.Description = input.Description
	p.Schedule = input.Schedule
	p.VoiceChannelLink = input.VoiceChannelLink
	p.Capacity = input.Capacity

	if err := database.DB.Save(p).Error; err != nil {
		respondError(c, err)
		return
	}
	if err := party.RefreshOpenSlotCount(database.DB, p); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPartyResponse(*p, user))
}

// RegenerateInviteCode godoc
// @Summary      Regenerate a private party's invite code (Host only)
// @Tags         parties
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Party ID"
// @Success      200 {object} map[string]string "{"invite_code": "..."}"
// @Failure      400 {object} ErrorResponse "Public parties have no invite code"
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /parties/{id}/invite-code [post]
func RegenerateInviteCode(c *gin.Context) {
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
	if p.Visibility != models.VisibilityPrivate {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Public parties have no invite code"})
		return
	}

	code := invite.Generate()
	if err := database.DB.Model(p).Update("invite_code", code).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invite_code": code})
}

// DeleteParty godoc
// @Summary      Delete a party (Admin only)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Party ID"
// @Success      200 {object} map[string]string "{"message": "Party deleted"}"
// @Failure      403 {object} ErrorResponse "Admin access required"
// @Failure      404 {object} ErrorResponse "Party not found"
// @Router       /admin/parties/{id} [delete]
func DeleteParty(c *gin.Context) {
	p, ok := loadParty(c)
	if !ok {
		return
	}

	if err := database.DB.Delete(p).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Party deleted"})
}
