package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/uniconhq/unicon-backend/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	MarkValidated(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	UpdateEmbedding(ctx context.Context, id int64, vector model.Vector) error

	// SchoolByEmail resolves the school whose email identifier matches the
	// domain part of the address, or nil when no school claims it.
	SchoolByEmail(ctx context.Context, email string) (*model.School, error)
	GetSchool(ctx context.Context, id int64) (*model.School, error)

	// CurrentPoints aggregates the engagement the user's content earned:
	// views on authored articles, plus 3 per comment and 2 per like on
	// authored articles and on comments left under other users' articles.
	CurrentPoints(ctx context.Context, userID int64) (int64, error)
}

type userRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) MarkValidated(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("is_validated", true).Error
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("password", hash).Error
}

func (r *userRepository) UpdateEmbedding(ctx context.Context, id int64, vector model.Vector) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("embedding_vector", vector).Error
}

func (r *userRepository) SchoolByEmail(ctx context.Context, email string) (*model.School, error) {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return nil, nil
	}
	domain := email[at+1:]

	var schools []model.School
	if err := r.db.WithContext(ctx).Find(&schools).Error; err != nil {
		return nil, err
	}
	for i := range schools {
		if strings.Contains(domain, schools[i].EmailIdentifier) {
			return &schools[i], nil
		}
	}
	return nil, nil
}

func (r *userRepository) GetSchool(ctx context.Context, id int64) (*model.School, error) {
	var school model.School
	if err := r.db.WithContext(ctx).First(&school, id).Error; err != nil {
		return nil, err
	}
	return &school, nil
}

func (r *userRepository) CurrentPoints(ctx context.Context, userID int64) (int64, error) {
	var articlePoints struct {
		Total int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Article{}).
		Select("COALESCE(SUM(views_count + comments_count * 3 + likes_count * 2), 0) AS total").
		Where("user_id = ?", userID).
		Scan(&articlePoints).Error
	if err != nil {
		return 0, err
	}

	// Comments the user left under other users' articles.
	var commentPoints struct {
		Total int64
	}
	err = r.db.WithContext(ctx).
		Model(&model.Comment{}).
		Select("COALESCE(SUM(comments.comments_count * 3 + comments.likes_count * 2), 0) AS total").
		Joins("JOIN articles ON articles.id = comments.article_id").
		Where("comments.user_id = ? AND articles.user_id <> ?", userID, userID).
		Scan(&commentPoints).Error
	if err != nil {
		return 0, err
	}

	return articlePoints.Total + commentPoints.Total, nil
}
