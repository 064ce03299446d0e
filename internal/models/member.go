package models

import "gorm.io/gorm"

// MemberState is the position of a membership record in the allocation state
// machine.
type MemberState string

const (
	StateWaiting  MemberState = "waiting"
	StateApplied  MemberState = "applied"
	StateAccepted MemberState = "accepted"
	StateLocked   MemberState = "locked"
	StateRejected MemberState = "rejected"
	StateKicked   MemberState = "kicked"
)

// ParseMemberState validates a state string at the deserialization boundary.
func ParseMemberState(s string) (MemberState, bool) {
	switch MemberState(s) {
	case StateWaiting, StateApplied, StateAccepted, StateLocked, StateRejected, StateKicked:
		return MemberState(s), true
	}
	return "", false
}

// Confirmed reports whether the state counts against party and slot capacity.
func (s MemberState) Confirmed() bool {
	return s == StateAccepted || s == StateLocked
}

// Frozen reports whether the member may no longer be moved between slots.
func (s MemberState) Frozen() bool {
	return s == StateLocked || s == StateRejected
}

// PartyMember is a player's application against a party. Records are never
// physically deleted; kicking leaves a tombstone in StateKicked with the slot
// cleared.
type PartyMember struct {
	gorm.Model
	PartyID uint  `gorm:"not null;index"`
	SlotID  *uint `gorm:"index"`
	// RequestedSlotID is the slot the applicant asked for when applying; the
	// host may assign a different one.
	RequestedSlotID *uint
	// UserID links the member to an account. Nil for guest applications.
	UserID        *uint       `gorm:"index"`
	ApplicantName string      `gorm:"size:255;not null"`
	State         MemberState `gorm:"size:20;not null;default:'applied';index"`

	Party Party      `gorm:"foreignKey:PartyID"`
	Slot  *PartySlot `gorm:"foreignKey:SlotID"`
	User  *User      `gorm:"foreignKey:UserID"`
}
