package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/uniconhq/unicon-backend/internal/model"
)

// CommentPayload is the user-independent serialized view of a comment, the
// unit stored inside a comment-thread cache entry.
type CommentPayload struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user"`
	Body          string    `json:"body"`
	Deleted       bool      `json:"deleted"`
	Edited        bool      `json:"edited"`
	ParentComment *int64    `json:"parent_comment"`
	ArticleID     int64     `json:"article"`
	CreatedAt     time.Time `json:"created_at"`
	CommentsCount int64     `json:"comments_count"`
	LikesCount    int64     `json:"likes_count"`

	UserSchool       string `json:"user_school"`
	UserTempName     string `json:"user_temp_name"`
	UserStaticPoints int64  `json:"user_static_points"`

	LikeStatus bool `json:"like_status" gorm:"-"`
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id int64) (*model.Comment, error)

	// CountByScope counts comments under (article, parent). A nil parent
	// selects top-level comments.
	CountByScope(ctx context.Context, articleID int64, parentID *int64) (int64, error)

	// AnnotatedPage fetches one window of the scope ordered newest first.
	AnnotatedPage(ctx context.Context, articleID int64, parentID *int64, offset, limit int) ([]CommentPayload, error)

	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error

	CreateLike(ctx context.Context, userID, commentID int64) (bool, error)
	DeleteLike(ctx context.Context, userID, commentID int64) (bool, error)
	LikedCommentIDs(ctx context.Context, userID int64) ([]int64, error)
}

type commentRepository struct{ db *gorm.DB }

func NewCommentRepository(db *gorm.DB) CommentRepository { return &commentRepository{db: db} }

func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) GetByID(ctx context.Context, id int64) (*model.Comment, error) {
	var comment model.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) scope(ctx context.Context, articleID int64, parentID *int64) *gorm.DB {
	q := r.db.WithContext(ctx).
		Model(&model.Comment{}).
		Where("comments.article_id = ?", articleID)
	if parentID != nil {
		return q.Where("comments.parent_comment_id = ?", *parentID)
	}
	return q.Where("comments.parent_comment_id IS NULL")
}

func (r *commentRepository) CountByScope(ctx context.Context, articleID int64, parentID *int64) (int64, error) {
	var count int64
	err := r.scope(ctx, articleID, parentID).Count(&count).Error
	return count, err
}

func (r *commentRepository) AnnotatedPage(ctx context.Context, articleID int64, parentID *int64, offset, limit int) ([]CommentPayload, error) {
	var payloads []CommentPayload
	err := r.scope(ctx, articleID, parentID).
		Select(
			"comments.id", "comments.user_id", "comments.body", "comments.deleted",
			"comments.edited", "comments.parent_comment_id AS parent_comment",
			"comments.article_id", "comments.created_at",
			"comments.comments_count", "comments.likes_count",
			"schools.initial AS user_school",
			"article_users.user_temp_name",
			"article_users.user_static_points",
		).
		Joins("JOIN users ON users.id = comments.user_id").
		Joins("JOIN schools ON schools.id = users.school_id").
		Joins("LEFT JOIN article_users ON article_users.article_id = comments.article_id AND article_users.user_id = comments.user_id").
		Order("comments.created_at DESC").
		Order("comments.id DESC").
		Offset(offset).
		Limit(limit).
		Scan(&payloads).Error
	return payloads, err
}

func (r *commentRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Comment{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *commentRepository) CreateLike(ctx context.Context, userID, commentID int64) (bool, error) {
	like := &model.CommentLike{CommentID: commentID, UserID: userID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(like)
	return res.RowsAffected > 0, res.Error
}

func (r *commentRepository) DeleteLike(ctx context.Context, userID, commentID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Delete(&model.CommentLike{})
	return res.RowsAffected > 0, res.Error
}

func (r *commentRepository) LikedCommentIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.CommentLike{}).
		Where("user_id = ?", userID).
		Pluck("comment_id", &ids).Error
	return ids, err
}
