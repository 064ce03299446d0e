package models

import "gorm.io/gorm"

// PartySlot is a role-labeled seat within a party. A slot always belongs to
// exactly one party.
type PartySlot struct {
	gorm.Model
	PartyID uint   `gorm:"not null;index"`
	Role    string `gorm:"size:255;not null"`
	// IPTarget doubles as the per-slot confirmed-member cap. When nil the
	// party's capacity applies instead.
	IPTarget *int

	Party Party `gorm:"foreignKey:PartyID"`
}
