package models

import "time"

type Organization struct {
	ID                 uint   `gorm:"primaryKey"`
	Name               string `gorm:"size:100;not null"`
	RegistrationNumber string `gorm:"size:50;not null;uniqueIndex"`
	ContactEmail       string `gorm:"size:100"`
	ContactPhone       string `gorm:"size:50"`
	Address            string `gorm:"size:255"`
	Active             bool   `gorm:"not null;default:true"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Records []InventoryRecord `gorm:"foreignKey:OrganizationID"`
	Users   []User
}
