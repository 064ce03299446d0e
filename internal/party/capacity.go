package party

import (
	"partyplanner/backend/internal/models"

	"gorm.io/gorm"
)

// OpenSlots computes how many more slots a party can hold. It returns nil when
// the party has no capacity limit.
func OpenSlots(tx *gorm.DB, p *models.Party) (*int, error) {
	if p.Capacity == nil {
		return nil, nil
	}

	var slotCount int64
	if err := tx.Model(&models.PartySlot{}).Where("party_id = ?", p.ID).Count(&slotCount).Error; err != nil {
		return nil, err
	}

	open := *p.Capacity - int(slotCount)
	if open < 0 {
		open = 0
	}
	return &open, nil
}

// RefreshOpenSlotCount recomputes the party's cached open slot count and
// persists it. Called after every slot creation or deletion.
func RefreshOpenSlotCount(tx *gorm.DB, p *models.Party) error {
	open, err := OpenSlots(tx, p)
	if err != nil {
		return err
	}

	p.OpenSlotCount = open
	return tx.Model(p).Update("open_slot_count", open).Error
}
