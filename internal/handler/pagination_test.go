package handler

import (
	"testing"

	"partyplanner/backend/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestPaginate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}, &models.Party{}, &models.PartySlot{}, &models.PartyMember{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for i := 0; i < 5; i++ {
		p := models.Party{Title: "party", Visibility: models.VisibilityPublic, HostID: 1, Status: models.PartyOpen}
		if err := db.Create(&p).Error; err != nil {
			t.Fatalf("create party: %v", err)
		}
	}

	result, err := Paginate[models.Party](db.Model(&models.Party{}), 2, 2)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if len(result.Data) != 2 {
		t.Fatalf("expected 2 items on page 2, got %d", len(result.Data))
	}
	meta := result.Meta
	if meta.TotalItems != 5 || meta.TotalPages != 3 || meta.CurrentPage != 2 || meta.PageSize != 2 {
		t.Fatalf("unexpected meta: %+v", meta)
	}

	last, err := Paginate[models.Party](db.Model(&models.Party{}), 3, 2)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if len(last.Data) != 1 {
		t.Fatalf("expected 1 item on the last page, got %d", len(last.Data))
	}
}

func TestNewPaginatedResponseGuardsLimit(t *testing.T) {
	resp := NewPaginatedResponse([]int{1, 2, 3}, 3, 1, 0)
	if resp.Meta.PageSize != 1 || resp.Meta.TotalPages != 3 {
		t.Fatalf("unexpected meta for zero limit: %+v", resp.Meta)
	}
}
