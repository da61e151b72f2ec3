package model

import "time"

// User is a registered account. EmbeddingVector is the rolling preference
// vector nudged toward every article the user reads.
type User struct {
	ID             int64  `json:"id" gorm:"primaryKey"`
	Email          string `json:"email" gorm:"type:varchar(254);uniqueIndex;not null"`
	Password       string `json:"-" gorm:"type:varchar(100);not null"`
	ValidationCode string `json:"-" gorm:"type:varchar(6);not null;default:'000000'"`
	Points         int64  `json:"points" gorm:"not null;default:100"`
	IsValidated    bool   `json:"is_validated" gorm:"not null;default:false"`

	SchoolID int64  `json:"school_id" gorm:"index;not null"`
	School   School `json:"-" gorm:"foreignKey:SchoolID"`

	EmbeddingVector Vector    `json:"-" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }
