package party_test

import (
	"errors"
	"testing"

	"partyplanner/backend/internal/models"
	"partyplanner/backend/internal/party"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	// An in-memory sqlite database exists per connection; pin the pool to one
	// so transactions and the test's own reads share the same database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.User{}, &models.Party{}, &models.PartySlot{}, &models.PartyMember{}, &models.ChatMessage{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func intPtr(n int) *int { return &n }

func createUser(t *testing.T, db *gorm.DB, nickname string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{Nickname: nickname, Email: nickname + "@example.com", PasswordHash: "x", Role: role}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func createParty(t *testing.T, db *gorm.DB, host *models.User, capacity *int) *models.Party {
	t.Helper()
	p := &models.Party{
		Title:      "test party",
		Visibility: models.VisibilityPublic,
		Capacity:   capacity,
		HostID:     host.ID,
		Status:     models.PartyOpen,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create party: %v", err)
	}
	return p
}

func createSlot(t *testing.T, db *gorm.DB, p *models.Party, role string, ipTarget *int) *models.PartySlot {
	t.Helper()
	slot := &models.PartySlot{PartyID: p.ID, Role: role, IPTarget: ipTarget}
	if err := db.Create(slot).Error; err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return slot
}

func createMember(t *testing.T, db *gorm.DB, p *models.Party, name string, state models.MemberState, slotID *uint) *models.PartyMember {
	t.Helper()
	m := &models.PartyMember{PartyID: p.ID, ApplicantName: name, State: state, SlotID: slotID}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("create member: %v", err)
	}
	return m
}

func reloadMember(t *testing.T, db *gorm.DB, id uint) *models.PartyMember {
	t.Helper()
	var m models.PartyMember
	if err := db.First(&m, id).Error; err != nil {
		t.Fatalf("reload member %d: %v", id, err)
	}
	return &m
}

func TestOpenSlots(t *testing.T) {
	db := setupDB(t)
	host := createUser(t, db, "host", models.RoleUser)

	t.Run("unbounded party", func(t *testing.T) {
		p := createParty(t, db, host, nil)
		open, err := party.OpenSlots(db, p)
		if err != nil {
			t.Fatalf("OpenSlots: %v", err)
		}
		if open != nil {
			t.Fatalf("expected nil for unbounded party, got %d", *open)
		}
	})

	t.Run("capacity minus slot count", func(t *testing.T) {
		p := createParty(t, db, host, intPtr(5))
		createSlot(t, db, p, "tank", nil)
		createSlot(t, db, p, "healer", nil)

		open, err := party.OpenSlots(db, p)
		if err != nil {
			t.Fatalf("OpenSlots: %v", err)
		}
		if open == nil || *open != 3 {
			t.Fatalf("expected 3 open slots, got %v", open)
		}
	})

	t.Run("never negative", func(t *testing.T) {
		p := createParty(t, db, host, intPtr(1))
		createSlot(t, db, p, "tank", nil)
		createSlot(t, db, p, "healer", nil)
		createSlot(t, db, p, "dps", nil)

		open, err := party.OpenSlots(db, p)
		if err != nil {
			t.Fatalf("OpenSlots: %v", err)
		}
		if open == nil || *open != 0 {
			t.Fatalf("expected 0 open slots, got %v", open)
		}
	})
}

func TestRefreshOpenSlotCount(t *testing.T) {
	db := setupDB(t)
	host := createUser(t, db, "host", models.RoleUser)
	p := createParty(t, db, host, intPtr(3))
	createSlot(t, db, p, "tank", nil)

	if err := party.RefreshOpenSlotCount(db, p); err != nil {
		t.Fatalf("RefreshOpenSlotCount: %v", err)
	}

	var stored models.Party
	if err := db.First(&stored, p.ID).Error; err != nil {
		t.Fatalf("reload party: %v", err)
	}
	if stored.OpenSlotCount == nil || *stored.OpenSlotCount != 2 {
		t.Fatalf("expected persisted open_slot_count 2, got %v", stored.OpenSlotCount)
	}
}

func TestTransitionPermission(t *testing.T) {
	db := setupDB(t)
	host := createUser(t, db, "host", models.RoleUser)
	stranger := createUser(t, db, "stranger", models.RoleUser)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	p := createParty(t, db, host, nil)
	m := createMember(t, db, p, "applicant", models.StateApplied, nil)

	err := party.Transition(db, stranger, p, m, models.StateAccepted, nil)
	if !errors.Is(err, party.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for stranger, got %v", err)
	}
	if reloadMember(t, db, m.ID).State != models.StateApplied {
		t.Fatal("member state changed despite permission failure")
	}

	if err := party.Transition(db, host, p, m, models.StateAccepted, nil); err != nil {
		t.Fatalf("host transition: %v", err)
	}
	if err := party.Transition(db, admin, p, m, models.StateLocked, nil); err != nil {
		t.Fatalf("admin transition: %v", err)
	}
	if reloadMember(t, db, m.ID).State != models.StateLocked {
		t.Fatal("expected member to be locked")
	}
}

func TestTransitionPartyCapacity(t *testing.T) {
	db := setupDB(t)
	host := createUser(t, db, "host", models.RoleUser)
	p := createParty(t, db, host, intPtr(2))

	a := createMember(t, db, p, "a", models.StateApplied, nil)
	b := createMember(t, db, p, "b", models.StateApplied, nil)
	c := createMember(t, db, p, "c", models.StateApplied, nil)

	if err := party.Transition(db, host, p, a, models.StateAccepted, nil); err != nil {
		t.Fatalf("accept a: %v", err)
	}
	if err := party.Transition(db, host, p, b, models.StateAccepted, nil); err != nil {
		t.Fatalf("accept b: %v", err)
	}

	err := party.Transition(db, host, p, c, models.StateAccepted, nil)
	if !errors.Is(err, party.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if got := reloadMember(t, db, c.ID).State; got != models.StateApplied {
		t.Fatalf("expected c to remain applied, got %s", got)
	}
}

func TestTransitionCapacityProperty(t *testing.T) {
	// No transition sequence may push the confirmed count past capacity.
	db := setupDB(t)
	host := createUser(t, db, "host", models.RoleUser)
	capacity := 3
	p := createParty(t, db, host, &capacity)

	var members []*models.PartyMember
	for i := 0; i < 6; i++ {
		members = append(members, createMember(t, db, p, "m", models.StateApplied, nil))
	}

	states := []models.MemberState{
		models.StateAccepted, models.StateLocked, models.StateRejected,
		models.StateAccepted, models.StateWaiting, models.StateLocked,
		models.StateAccepted, models.StateAccepted, models.StateKicked,
	}
	for i, target := range states {
		m := members[i%len(members)]
		_ = party.Transition(db, host, p, reloadMember(t, db, m.ID), target, nil)

		var confirmed int64
		db.Model(&models.PartyMember{}).
			Where("party_id = ? AND state IN ?", p.ID, []models.MemberState{models.StateAccepted, models.StateLocked}).
			Count(&confirmed)
		if confirmed > int64(capacity) {
			t.Fatalf("confirmed count %d exceeds capacity %d after step %d", confirmed, capacity, i)
		}
	}
}

func TestTransitionSelfIsNoop(t *testing.T) {
	db := setupDB(t)
	host := createUser(t, db, "host", models.RoleUser)
	p := createParty(t, db, host, intPtr(1))

	a := createMember(t, db, p, "a", models.StateAccepted, nil)
	// Party is full, but re-confirming the same state skips the capacity check.
	if err := party.Transition(db, host, p, a, models.StateAccepted, nil); err != nil {
		t.Fatalf("self-transition: %v", err)
	}
}

func TestTransitionSlotCapacity(t *testing.T) {
	db := setupDB(t)
	host := createUser(t, db, "host", models.RoleUser)
	p := createParty(t, db, host, intPtr(10))
	slot := createSlot(t, db, p, "tank", intPtr(1))

	createMember(t, db, p, "a", models.StateAccepted, &slot.ID)
	b := createMember(t, db, p, "b", models.StateApplied, nil)

	err := party.Transition(db, host, p, b, models.StateAccepted, &slot.ID)
	if !errors.Is(err, party.ErrSlotCapacityExceeded) {
		t.Fatalf("expected ErrSlotCapacityExceeded, got %v", err)
	}

	stored := reloadMember(t, db, b.ID)
	if stored.State != models.StateApplied || stored.SlotID != nil {
		t.Fatalf("expected b unchanged, got state=%s slot=%v", stored.State, stored.SlotID)
	}
}

func TestSlotCapacityFallsBackToPartyCapacity(t *testing.T) {
	db := setupDB(t)
	host := createUser(t, db, "host", models.RoleUser)
	p := createParty(t, db, host, intPtr(1))
	slot := createSlot(t, db, p, "tank", nil) // no ip_target, party capacity is the cap

	createMember(t, db, p, "a", models.StateAccepted, &slot.ID)
	b := createMember(t, db, p, "b", models.StateAccepted, nil)

	err := party.MoveToSlot(db, p, b, slot.ID)
	if !errors.Is(err, party.ErrSlotCapacityExceeded) {
		t.Fatalf("expected ErrSlotCapacityExceeded via capacity fallback, got %v", err)
	}
}

func TestMoveToSlot(t *testing.T) {
	db := setupDB(t)
	host := createUser(t, db, "host", models.RoleUser)
	p := createParty(t, db, host, nil)
	tank := createSlot(t, db, p, "tank", nil)
	healer := createSlot(t, db, p, "healer", nil)

	t.Run("moves between slots", func(t *testing.T) {
		m := createMember(t, db, p, "a", models.StateApplied, &tank.ID)
		if err := party.MoveToSlot(db, p, m, healer.ID); err != nil {
			t.Fatalf("MoveToSlot: %v", err)
		}
		if m.SlotID == nil || *m.SlotID != healer.ID {
			t.Fatalf("expected member in healer slot, got %v", m.SlotID)
		}
	})

	t.Run("same slot is a no-op", func(t *testing.T) {
		m := createMember(t, db, p, "b", models.StateLocked, &tank.ID)
		// Locked members are frozen, but staying put is not a move.
		if err := party.MoveToSlot(db, p, m, tank.ID); err != nil {
			t.Fatalf("no-op move: %v", err)
		}
	})

	t.Run("unknown slot", func(t *testing.T) {
		m := createMember(t, db, p, "c", models.StateApplied, nil)
		if err := party.MoveToSlot(db, p, m, 9999); !errors.Is(err, party.ErrSlotNotFound) {
			t.Fatalf("expected ErrSlotNotFound, got %v", err)
		}
	})

	t.Run("slot of another party", func(t *testing.T) {
		other := createParty(t, db, host, nil)
		foreign := createSlot(t, db, other, "tank", nil)
		m := createMember(t, db, p, "d", models.StateApplied, nil)
		if err := party.MoveToSlot(db, p, m, foreign.ID); !errors.Is(err, party.ErrSlotNotFound) {
			t.Fatalf("expected ErrSlotNotFound for cross-party slot, got %v", err)
		}
	})
}

func TestMoveFrozenMembers(t *testing.T) {
	db := setupDB(t)
	host := createUser(t, db, "host", models.RoleUser)
	p := createParty(t, db, host, nil)
	tank := createSlot(t, db, p, "tank", nil)
	healer := createSlot(t, db, p, "healer", intPtr(100))

	for _, state := range []models.MemberState{models.StateLocked, models.StateRejected} {
		m := createMember(t, db, p, "m", state, &tank.ID)
		err := party.MoveToSlot(db, p, m, healer.ID)
		if !errors.Is(err, party.ErrInvalidStateForMove) {
			t.Fatalf("state %s: expected ErrInvalidStateForMove, got %v", state, err)
		}
	}
}

func TestMoveConfirmedMemberIntoFullSlot(t *testing.T) {
	db := setupDB(t)
	host := createUser(t, db, "host", models.RoleUser)
	p := createParty(t, db, host, nil)
	full := createSlot(t, db, p, "tank", intPtr(1))
	spare := createSlot(t, db, p, "healer", nil)

	createMember(t, db, p, "a", models.StateAccepted, &full.ID)
	b := createMember(t, db, p, "b", models.StateAccepted, &spare.ID)

	err := party.MoveToSlot(db, p, b, full.ID)
	if !errors.Is(err, party.ErrSlotCapacityExceeded) {
		t.Fatalf("expected ErrSlotCapacityExceeded, got %v", err)
	}
}

func TestRemoveClearsSlot(t *testing.T) {
	db := setupDB(t)
	host := createUser(t, db, "host", models.RoleUser)
	p := createParty(t, db, host, nil)
	slot := createSlot(t, db, p, "tank", intPtr(1))

	a := createMember(t, db, p, "a", models.StateLocked, &slot.ID)
	if err := party.Remove(db, host, p, a); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	stored := reloadMember(t, db, a.ID)
	if stored.State != models.StateKicked {
		t.Fatalf("expected kicked, got %s", stored.State)
	}
	if stored.SlotID != nil {
		t.Fatal("expected slot cleared on kick")
	}

	// The freed slot can take a new confirmed member.
	b := createMember(t, db, p, "b", models.StateApplied, nil)
	if err := party.Transition(db, host, p, b, models.StateAccepted, &slot.ID); err != nil {
		t.Fatalf("accept into freed slot: %v", err)
	}
}

func TestRemovePermission(t *testing.T) {
	db := setupDB(t)
	host := createUser(t, db, "host", models.RoleUser)
	stranger := createUser(t, db, "stranger", models.RoleUser)
	p := createParty(t, db, host, nil)
	m := createMember(t, db, p, "a", models.StateAccepted, nil)

	if err := party.Remove(db, stranger, p, m); !errors.Is(err, party.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestFetchForUpdate(t *testing.T) {
	db := setupDB(t)
	host := createUser(t, db, "host", models.RoleUser)
	p := createParty(t, db, host, nil)
	m := createMember(t, db, p, "a", models.StateApplied, nil)

	t.Run("re-reads current rows inside the transaction", func(t *testing.T) {
		// A copy fetched before the transaction goes stale; the transition
		// path must not trust it.
		if err := db.Model(&models.PartyMember{}).Where("id = ?", m.ID).
			Update("state", models.StateAccepted).Error; err != nil {
			t.Fatalf("update member: %v", err)
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			fetchedParty, fetchedMember, err := party.FetchForUpdate(tx, p.ID, m.ID)
			if err != nil {
				return err
			}
			if fetchedParty.ID != p.ID {
				t.Fatalf("expected party %d, got %d", p.ID, fetchedParty.ID)
			}
			if fetchedMember.State != models.StateAccepted {
				t.Fatalf("expected the current state accepted, got %s", fetchedMember.State)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("transaction: %v", err)
		}
	})

	t.Run("unknown party", func(t *testing.T) {
		_, _, err := party.FetchForUpdate(db, 9999, m.ID)
		if !errors.Is(err, party.ErrPartyNotFound) {
			t.Fatalf("expected ErrPartyNotFound, got %v", err)
		}
	})

	t.Run("member of another party", func(t *testing.T) {
		other := createParty(t, db, host, nil)
		_, _, err := party.FetchForUpdate(db, other.ID, m.ID)
		if !errors.Is(err, party.ErrMemberNotFound) {
			t.Fatalf("expected ErrMemberNotFound, got %v", err)
		}
	})
}

func TestTransitionWithMoveIsAtomic(t *testing.T) {
	db := setupDB(t)
	host := createUser(t, db, "host", models.RoleUser)
	p := createParty(t, db, host, intPtr(10))
	full := createSlot(t, db, p, "tank", intPtr(1))

	createMember(t, db, p, "a", models.StateAccepted, &full.ID)
	b := createMember(t, db, p, "b", models.StateApplied, nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		var m models.PartyMember
		if err := tx.First(&m, b.ID).Error; err != nil {
			return err
		}
		return party.Transition(tx, host, p, &m, models.StateAccepted, &full.ID)
	})
	if !errors.Is(err, party.ErrSlotCapacityExceeded) {
		t.Fatalf("expected ErrSlotCapacityExceeded, got %v", err)
	}

	stored := reloadMember(t, db, b.ID)
	if stored.State != models.StateApplied || stored.SlotID != nil {
		t.Fatalf("transition not atomic: state=%s slot=%v", stored.State, stored.SlotID)
	}
}
