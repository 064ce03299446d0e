package party

import (
	"errors"

	"partyplanner/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CanManage reports whether the actor may perform host-only actions on the
// party.
func CanManage(actor *models.User, p *models.Party) bool {
	if actor == nil {
		return false
	}
	return actor.Role == models.RoleAdmin || actor.ID == p.HostID
}

// FetchForUpdate re-reads a party and one of its members inside tx. On
// Postgres both rows are taken with FOR UPDATE locks, serializing concurrent
// transitions of the same party so two of them cannot both pass a stale
// capacity count. sqlite has no FOR UPDATE and serializes writers on its own.
func FetchForUpdate(tx *gorm.DB, partyID, memberID uint) (*models.Party, *models.PartyMember, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var p models.Party
	if err := q.First(&p, partyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPartyNotFound
		}
		return nil, nil, err
	}

	var m models.PartyMember
	if err := q.Where("id = ? AND party_id = ?", memberID, partyID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrMemberNotFound
		}
		return nil, nil, err
	}
	return &p, &m, nil
}

// Transition validates and applies a membership state change, optionally
// reassigning the member to a different slot first. All reads, capacity checks
// and writes run inside the caller's transaction, so a failure at any step
// leaves no partial writes behind.
//
// Capacity rules: a target state of accepted or locked that differs from the
// current state must pass the party-wide confirmed-member check. The slot check
// applies whenever the member would occupy a slot in a confirmed state, either
// because the state is changing or because the slot just changed. A
// self-transition without a slot change is a no-op and skips both checks.
func Transition(tx *gorm.DB, actor *models.User, p *models.Party, m *models.PartyMember, target models.MemberState, targetSlotID *uint) error {
	if !CanManage(actor, p) {
		return ErrPermissionDenied
	}

	moved := false
	if targetSlotID != nil && (m.SlotID == nil || *m.SlotID != *targetSlotID) {
		if err := assignSlot(tx, p, m, *targetSlotID); err != nil {
			return err
		}
		moved = true
	}

	stateChanged := target != m.State
	if target.Confirmed() && (stateChanged || moved) {
		if stateChanged {
			if err := checkPartyCapacity(tx, p, m.ID); err != nil {
				return err
			}
		}
		if m.SlotID != nil {
			if err := checkSlotCapacity(tx, p, *m.SlotID, m.ID); err != nil {
				return err
			}
		}
	}

	m.State = target
	return tx.Save(m).Error
}

// MoveToSlot reassigns a member to another slot of the same party without a
// state change. The member struct is mutated in place; committing is the
// caller's responsibility, which lets the move nest inside a larger transition.
func MoveToSlot(tx *gorm.DB, p *models.Party, m *models.PartyMember, slotID uint) error {
	if m.SlotID != nil && *m.SlotID == slotID {
		return nil
	}

	if err := assignSlot(tx, p, m, slotID); err != nil {
		return err
	}

	if m.State.Confirmed() {
		return checkSlotCapacity(tx, p, slotID, m.ID)
	}
	return nil
}

// Remove kicks a member out of the party. Unlike Transition it is allowed from
// any current state; the slot is cleared so its capacity is freed, and the
// record remains as a tombstone.
func Remove(tx *gorm.DB, actor *models.User, p *models.Party, m *models.PartyMember) error {
	if !CanManage(actor, p) {
		return ErrPermissionDenied
	}

	m.State = models.StateKicked
	m.SlotID = nil
	return tx.Model(m).Select("state", "slot_id").Updates(map[string]interface{}{
		"state":   models.StateKicked,
		"slot_id": nil,
	}).Error
}

// assignSlot validates the target slot and sets it on the member without
// persisting.
func assignSlot(tx *gorm.DB, p *models.Party, m *models.PartyMember, slotID uint) error {
	var slot models.PartySlot
	if err := tx.Where("id = ? AND party_id = ?", slotID, p.ID).First(&slot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSlotNotFound
		}
		return err
	}

	if m.State.Frozen() {
		return ErrInvalidStateForMove
	}

	m.SlotID = &slot.ID
	return nil
}

// checkPartyCapacity fails when confirming one more member would exceed the
// party's capacity. Members already confirmed do not fail their own
// re-confirmation because the count excludes the member in question.
func checkPartyCapacity(tx *gorm.DB, p *models.Party, excludeMemberID uint) error {
	if p.Capacity == nil {
		return nil
	}

	confirmed, err := countConfirmed(tx, "party_id = ?", p.ID, excludeMemberID)
	if err != nil {
		return err
	}
	if confirmed >= int64(*p.Capacity) {
		return ErrCapacityExceeded
	}
	return nil
}

// checkSlotCapacity enforces the per-slot confirmed-member cap. The slot's
// IPTarget applies when set, otherwise the party capacity is the limit; with
// neither set the slot is unbounded.
func checkSlotCapacity(tx *gorm.DB, p *models.Party, slotID, excludeMemberID uint) error {
	var slot models.PartySlot
	if err := tx.First(&slot, slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSlotNotFound
		}
		return err
	}

	limit := slot.IPTarget
	if limit == nil {
		limit = p.Capacity
	}
	if limit == nil {
		return nil
	}

	confirmed, err := countConfirmed(tx, "slot_id = ?", slotID, excludeMemberID)
	if err != nil {
		return err
	}
	if confirmed >= int64(*limit) {
		return ErrSlotCapacityExceeded
	}
	return nil
}

func countConfirmed(tx *gorm.DB, scopeQuery string, scopeID uint, excludeMemberID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.PartyMember{}).
		Where(scopeQuery, scopeID).
		Where("state IN ?", []models.MemberState{models.StateAccepted, models.StateLocked}).
		Where("id <> ?", excludeMemberID).
		Count(&n).Error
	return n, err
}
