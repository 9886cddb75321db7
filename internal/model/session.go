package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session binds an opaque token to a user until ExpiresAt.
type Session struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Token     string    `json:"-" gorm:"uniqueIndex;size:64;not null"`
	UserID    uuid.UUID `json:"userId" gorm:"type:char(36);index;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime:false"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"index;not null"`
}

// ExpiredAt reports whether the session is no longer valid at now.
// A session is valid only while now is strictly before ExpiresAt.
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// BeforeCreate sets UUID before creating the record.
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
