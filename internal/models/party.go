package models

import "gorm.io/gorm"

// PartyVisibility controls who can discover and join a party.
type PartyVisibility string

const (
	VisibilityPublic  PartyVisibility = "public"
	VisibilityPrivate PartyVisibility = "private"
)

// ParsePartyVisibility validates a visibility string at the deserialization boundary.
func ParsePartyVisibility(s string) (PartyVisibility, bool) {
	switch PartyVisibility(s) {
	case VisibilityPublic, VisibilityPrivate:
		return PartyVisibility(s), true
	}
	return "", false
}

// PartyStatus is the lifecycle state of a party.
type PartyStatus string

const (
	PartyOpen   PartyStatus = "open"
	PartyClosed PartyStatus = "closed"
)

// ParsePartyStatus validates a status string at the deserialization boundary.
func ParsePartyStatus(s string) (PartyStatus, bool) {
	switch PartyStatus(s) {
	case PartyOpen, PartyClosed:
		return PartyStatus(s), true
	}
	return "", false
}

// Party represents a game session grouping with a host, optional capacity and
// visibility. A private party carries an invite code before its first join.
type Party struct {
	gorm.Model
	Title            string          `gorm:"size:255;not null"`
	Description      string
	Schedule         string          `gorm:"size:255"`
	VoiceChannelLink string          `gorm:"size:512"`
	Visibility       PartyVisibility `gorm:"size:20;not null;default:'public';index"`
	InviteCode       *string         `gorm:"size:64;index"`
	Capacity         *int
	// OpenSlotCount caches max(Capacity - slot count, 0); refreshed after every
	// slot creation or deletion. Nil when Capacity is unbounded.
	OpenSlotCount *int
	HostID        uint        `gorm:"not null;index"`
	Status        PartyStatus `gorm:"size:20;not null;default:'open'"`

	Host    User          `gorm:"foreignKey:HostID"`
	Slots   []PartySlot   `gorm:"foreignKey:PartyID"`
	Members []PartyMember `gorm:"foreignKey:PartyID"`
}
