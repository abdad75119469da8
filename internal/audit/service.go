package audit

import (
	"encoding/json"
	"fmt"

	"relief-backend/internal/models"

	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type Entry struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Record writes one audit trail row. Before/After snapshots are stored
// as JSON; nil snapshots become JSON null so the jsonb column accepts them.
func (s *Service) Record(e Entry) error {
	beforeStr := "null"
	afterStr := "null"

	if e.Before != nil {
		if b, err := json.Marshal(e.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if e.After != nil {
		if b, err := json.Marshal(e.After); err == nil {
			afterStr = string(b)
		}
	}

	row := models.AuditLog{
		UserID:      e.UserID,
		UserName:    e.UserName,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Action:      e.Action,
		Description: e.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("could not write audit log: %w", err)
	}
	return nil
}
