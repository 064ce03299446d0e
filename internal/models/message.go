package models

import "gorm.io/gorm"

// ChatMessage is one entry in a party's append-only chat log. Messages are
// never mutated or deleted after creation.
type ChatMessage struct {
	gorm.Model
	PartyID    uint   `gorm:"not null;index"`
	MemberID   *uint  `gorm:"index"`
	AuthorName string `gorm:"size:255;not null"`
	Content    string `gorm:"not null"`

	Party  Party        `gorm:"foreignKey:PartyID"`
	Member *PartyMember `gorm:"foreignKey:MemberID"`
}
