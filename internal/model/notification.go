package model

import "time"

// Notification groups.
const (
	NotificationGroupComment = "comment"
	NotificationGroupLike    = "like"
)

// Notification source kinds. The (SourceType, SourceID) pair is a tagged
// reference resolved explicitly when rendering content, instead of a
// reflection-based polymorphic key.
const (
	NotificationSourceArticle = "article"
	NotificationSourceComment = "comment"
)

// Notification is created for every like/comment that targets another
// user's content. Emailed flags rows already included in a batch email.
type Notification struct {
	ID     int64  `json:"id" gorm:"primaryKey"`
	UserID int64  `json:"user" gorm:"index;not null"`
	Group  string `json:"group" gorm:"type:varchar(16);not null"`

	SourceType string `json:"source_type" gorm:"type:varchar(16);not null"`
	SourceID   int64  `json:"source_id" gorm:"not null"`

	Read    bool `json:"read" gorm:"column:is_read;not null;default:false"`
	Emailed bool `json:"emailed" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (Notification) TableName() string { return "notifications" }
