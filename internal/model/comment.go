package model

import "time"

// Comment hangs under an article, optionally under one top-level parent.
// Nesting depth is capped at one: a reply's parent must itself have a nil
// ParentCommentID.
type Comment struct {
	ID     int64  `json:"id" gorm:"primaryKey"`
	Body   string `json:"body" gorm:"type:text;not null"`
	UserID int64  `json:"user" gorm:"index;not null"`

	Deleted bool `json:"deleted" gorm:"not null;default:false"`
	Edited  bool `json:"edited" gorm:"not null;default:false"`

	ParentCommentID *int64 `json:"parent_comment" gorm:"index"`
	ArticleID       int64  `json:"article" gorm:"index;not null"`

	CreatedAt     time.Time `json:"created_at" gorm:"index"`
	CommentsCount int64     `json:"comments_count" gorm:"not null;default:0"`
	LikesCount    int64     `json:"likes_count" gorm:"not null;default:0"`
}

func (Comment) TableName() string { return "comments" }

// CommentLike is a (user, comment) like edge.
type CommentLike struct {
	ID        int64 `gorm:"primaryKey"`
	CommentID int64 `gorm:"index:idx_comment_like,unique;not null"`
	UserID    int64 `gorm:"index:idx_comment_like,unique;not null"`
	CreatedAt time.Time
}

func (CommentLike) TableName() string { return "comment_likes" }
