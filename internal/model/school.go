package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SchoolStatus represents the connectivity status of a school's device.
type SchoolStatus string

const (
	SchoolStatusOnline      SchoolStatus = "online"
	SchoolStatusOffline     SchoolStatus = "offline"
	SchoolStatusMaintenance SchoolStatus = "maintenance"
)

// Valid reports whether s is a known status.
func (s SchoolStatus) Valid() bool {
	switch s {
	case SchoolStatusOnline, SchoolStatusOffline, SchoolStatusMaintenance:
		return true
	}
	return false
}

// Contact holds how to reach a school.
type Contact struct {
	Email      string `json:"email" gorm:"size:255"`
	Phone      string `json:"phone" gorm:"size:50"`
	Headmaster string `json:"headmaster" gorm:"size:255"`
}

// LoomaInfo describes the Looma device installed at a school.
type LoomaInfo struct {
	ID           string     `json:"id" gorm:"size:100"`
	SerialNumber string     `json:"serialNumber" gorm:"size:100"`
	Version      string     `json:"version" gorm:"size:50"`
	LastUpdate   *time.Time `json:"lastUpdate"`
}

// School is a registered school and its device.
type School struct {
	ID         uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Name       string          `json:"name" gorm:"size:255;not null;index"`
	Latitude   decimal.Decimal `json:"latitude" gorm:"type:decimal(9,6);not null"`
	Longitude  decimal.Decimal `json:"longitude" gorm:"type:decimal(9,6);not null"`
	Contact    Contact         `json:"contact" gorm:"embedded;embeddedPrefix:contact_"`
	Province   string          `json:"province" gorm:"size:100;index"`
	District   string          `json:"district" gorm:"size:100"`
	Palika     string          `json:"palika" gorm:"size:100"`
	Status     SchoolStatus    `json:"status" gorm:"type:varchar(20);not null;default:'offline';index"`
	LastSeen   *time.Time      `json:"lastSeen"`
	LoomaID    string          `json:"loomaId" gorm:"size:100"`
	LoomaCount int             `json:"loomaCount" gorm:"default:0"`
	Looma      LoomaInfo       `json:"looma" gorm:"embedded;embeddedPrefix:device_"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (s *School) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SchoolStats summarizes schools by status.
type SchoolStats struct {
	Total       int64 `json:"total"`
	Online      int64 `json:"online"`
	Offline     int64 `json:"offline"`
	Maintenance int64 `json:"maintenance"`
}
