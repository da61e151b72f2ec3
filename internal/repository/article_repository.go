package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/uniconhq/unicon-backend/internal/model"
)

// ArticlePayload is the user-independent serialized view of an article: the
// row plus the denormalized author school, per-article pseudonym, snapshot
// points and course codes. This is the unit the payload cache stores.
// LikeStatus, ViewStatus and SaveStatus are overlaid per request and never
// cached.
type ArticlePayload struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Unicon        bool      `json:"unicon"`
	Deleted       bool      `json:"deleted"`
	Edited        bool      `json:"edited"`
	CreatedAt     time.Time `json:"created_at"`
	ViewsCount    int64     `json:"views_count"`
	CommentsCount int64     `json:"comments_count"`
	LikesCount    int64     `json:"likes_count"`

	UserSchool       string `json:"user_school"`
	UserTempName     string `json:"user_temp_name"`
	UserStaticPoints int64  `json:"user_static_points"`
	CourseCode       string `json:"course_code"`

	LikeStatus bool `json:"like_status" gorm:"-"`
	ViewStatus bool `json:"view_status" gorm:"-"`
	SaveStatus bool `json:"save_status" gorm:"-"`
}

// IDVector pairs an article id with its stored embedding, for index rebuilds.
type IDVector struct {
	ID     int64
	Vector model.Vector
}

type ArticleRepository interface {
	Create(ctx context.Context, article *model.Article) error
	GetByID(ctx context.Context, id int64) (*model.Article, error)

	// Listing id queries over the visible scope (author's school or unicon).
	RecentIDs(ctx context.Context, schoolID int64) ([]int64, error)
	HotIDs(ctx context.Context, schoolID int64) ([]int64, error)
	VisibleIDs(ctx context.Context, schoolID int64) ([]int64, error)
	PostedIDs(ctx context.Context, schoolID, userID int64) ([]int64, error)
	CommentedIDs(ctx context.Context, schoolID, userID int64) ([]int64, error)
	SavedIDs(ctx context.Context, schoolID, userID int64) ([]int64, error)
	LikedIDs(ctx context.Context, schoolID, userID int64) ([]int64, error)

	// AnnotatedByIDs bulk-loads payloads for the given ids in one round
	// trip. Result order is unspecified; callers reorder.
	AnnotatedByIDs(ctx context.Context, ids []int64) ([]ArticlePayload, error)

	// UpdateFields applies authoritative column updates (gorm.Expr values
	// allowed for atomic counter math) and recomputes the engagement score.
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error

	CreateLike(ctx context.Context, userID, articleID int64) (bool, error)
	DeleteLike(ctx context.Context, userID, articleID int64) (bool, error)
	CreateView(ctx context.Context, userID, articleID int64) (bool, error)
	CreateSave(ctx context.Context, userID, articleID int64) (bool, error)
	DeleteSave(ctx context.Context, userID, articleID int64) (bool, error)

	LikedArticleIDs(ctx context.Context, userID int64) ([]int64, error)
	ViewedArticleIDs(ctx context.Context, userID int64) ([]int64, error)
	SavedArticleIDs(ctx context.Context, userID int64) ([]int64, error)

	GetArticleUser(ctx context.Context, articleID, userID int64) (*model.ArticleUser, error)
	CreateArticleUser(ctx context.Context, au *model.ArticleUser) error

	// EnsureCourses get-or-creates normalized course codes for the school
	// and links them to the article.
	EnsureCourses(ctx context.Context, articleID, schoolID int64, codes []string) error

	AllEmbeddings(ctx context.Context) ([]IDVector, error)
}

type articleRepository struct{ db *gorm.DB }

func NewArticleRepository(db *gorm.DB) ArticleRepository { return &articleRepository{db: db} }

func (r *articleRepository) Create(ctx context.Context, article *model.Article) error {
	return r.db.WithContext(ctx).Create(article).Error
}

func (r *articleRepository) GetByID(ctx context.Context, id int64) (*model.Article, error) {
	var article model.Article
	if err := r.db.WithContext(ctx).First(&article, id).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

// visibleScope restricts articles to the reader's school plus unicon posts.
func (r *articleRepository) visibleScope(ctx context.Context, schoolID int64) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Article{}).
		Joins("JOIN users ON users.id = articles.user_id").
		Where("users.school_id = ? OR articles.unicon = ?", schoolID, true)
}

func (r *articleRepository) RecentIDs(ctx context.Context, schoolID int64) ([]int64, error) {
	var ids []int64
	err := r.visibleScope(ctx, schoolID).
		Order("articles.created_at DESC").
		Pluck("articles.id", &ids).Error
	return ids, err
}

func (r *articleRepository) HotIDs(ctx context.Context, schoolID int64) ([]int64, error) {
	var ids []int64
	err := r.visibleScope(ctx, schoolID).
		Order("articles.engagement_score DESC").
		Order("articles.created_at DESC").
		Pluck("articles.id", &ids).Error
	return ids, err
}

func (r *articleRepository) VisibleIDs(ctx context.Context, schoolID int64) ([]int64, error) {
	var ids []int64
	err := r.visibleScope(ctx, schoolID).Pluck("articles.id", &ids).Error
	return ids, err
}

func (r *articleRepository) PostedIDs(ctx context.Context, schoolID, userID int64) ([]int64, error) {
	var ids []int64
	err := r.visibleScope(ctx, schoolID).
		Where("articles.user_id = ?", userID).
		Order("articles.created_at DESC").
		Pluck("articles.id", &ids).Error
	return ids, err
}

func (r *articleRepository) CommentedIDs(ctx context.Context, schoolID, userID int64) ([]int64, error) {
	var ids []int64
	err := r.visibleScope(ctx, schoolID).
		Joins("JOIN comments ON comments.article_id = articles.id").
		Where("comments.user_id = ?", userID).
		Order("articles.created_at DESC").
		Distinct().
		Pluck("articles.id", &ids).Error
	return ids, err
}

func (r *articleRepository) SavedIDs(ctx context.Context, schoolID, userID int64) ([]int64, error) {
	var ids []int64
	err := r.visibleScope(ctx, schoolID).
		Joins("JOIN article_saves ON article_saves.article_id = articles.id").
		Where("article_saves.user_id = ?", userID).
		Order("article_saves.created_at DESC").
		Pluck("articles.id", &ids).Error
	return ids, err
}

func (r *articleRepository) LikedIDs(ctx context.Context, schoolID, userID int64) ([]int64, error) {
	var ids []int64
	err := r.visibleScope(ctx, schoolID).
		Joins("JOIN article_likes ON article_likes.article_id = articles.id").
		Where("article_likes.user_id = ?", userID).
		Order("article_likes.created_at DESC").
		Pluck("articles.id", &ids).Error
	return ids, err
}

// courseAgg picks the string-concatenation aggregate for the active dialect.
func (r *articleRepository) courseAgg() string {
	if r.db.Dialector.Name() == "postgres" {
		return "STRING_AGG(courses.code, ',')"
	}
	return "GROUP_CONCAT(courses.code)"
}

func (r *articleRepository) AnnotatedByIDs(ctx context.Context, ids []int64) ([]ArticlePayload, error) {
	if len(ids) == 0 {
		return []ArticlePayload{}, nil
	}
	var payloads []ArticlePayload
	err := r.db.WithContext(ctx).
		Model(&model.Article{}).
		Select(
			"articles.id", "articles.user_id", "articles.title", "articles.body",
			"articles.unicon", "articles.deleted", "articles.edited", "articles.created_at",
			"articles.views_count", "articles.comments_count", "articles.likes_count",
			"schools.initial AS user_school",
			"article_users.user_temp_name",
			"article_users.user_static_points",
			"COALESCE(("+
				"SELECT "+r.courseAgg()+" FROM article_courses "+
				"JOIN courses ON courses.id = article_courses.course_id "+
				"WHERE article_courses.article_id = articles.id"+
				"), '') AS course_code",
		).
		Joins("JOIN users ON users.id = articles.user_id").
		Joins("JOIN schools ON schools.id = users.school_id").
		Joins("LEFT JOIN article_users ON article_users.article_id = articles.id AND article_users.user_id = articles.user_id").
		Where("articles.id IN ?", ids).
		Scan(&payloads).Error
	return payloads, err
}

func (r *articleRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Article{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return err
		}
		// Derived score stays in lockstep with the counters.
		return tx.Model(&model.Article{}).Where("id = ?", id).
			Update("engagement_score", gorm.Expr("views_count * 1 + likes_count * 2 + comments_count * 3")).Error
	})
}

func (r *articleRepository) CreateLike(ctx context.Context, userID, articleID int64) (bool, error) {
	like := &model.ArticleLike{ArticleID: articleID, UserID: userID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(like)
	return res.RowsAffected > 0, res.Error
}

func (r *articleRepository) DeleteLike(ctx context.Context, userID, articleID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND article_id = ?", userID, articleID).
		Delete(&model.ArticleLike{})
	return res.RowsAffected > 0, res.Error
}

func (r *articleRepository) CreateView(ctx context.Context, userID, articleID int64) (bool, error) {
	view := &model.ArticleView{ArticleID: articleID, UserID: userID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(view)
	return res.RowsAffected > 0, res.Error
}

func (r *articleRepository) CreateSave(ctx context.Context, userID, articleID int64) (bool, error) {
	save := &model.ArticleSave{ArticleID: articleID, UserID: userID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(save)
	return res.RowsAffected > 0, res.Error
}

func (r *articleRepository) DeleteSave(ctx context.Context, userID, articleID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND article_id = ?", userID, articleID).
		Delete(&model.ArticleSave{})
	return res.RowsAffected > 0, res.Error
}

func (r *articleRepository) LikedArticleIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.ArticleLike{}).
		Where("user_id = ?", userID).
		Pluck("article_id", &ids).Error
	return ids, err
}

func (r *articleRepository) ViewedArticleIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.ArticleView{}).
		Where("user_id = ?", userID).
		Pluck("article_id", &ids).Error
	return ids, err
}

func (r *articleRepository) SavedArticleIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.ArticleSave{}).
		Where("user_id = ?", userID).
		Pluck("article_id", &ids).Error
	return ids, err
}

func (r *articleRepository) GetArticleUser(ctx context.Context, articleID, userID int64) (*model.ArticleUser, error) {
	var au model.ArticleUser
	err := r.db.WithContext(ctx).
		Where("article_id = ? AND user_id = ?", articleID, userID).
		First(&au).Error
	if err != nil {
		return nil, err
	}
	return &au, nil
}

func (r *articleRepository) CreateArticleUser(ctx context.Context, au *model.ArticleUser) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(au).Error
}

func (r *articleRepository) EnsureCourses(ctx context.Context, articleID, schoolID int64, codes []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, code := range codes {
			code = strings.ToUpper(strings.TrimSpace(code))
			if code == "" {
				continue
			}
			course := model.Course{Code: code, SchoolID: schoolID}
			if err := tx.Where("code = ? AND school_id = ?", code, schoolID).
				FirstOrCreate(&course).Error; err != nil {
				return err
			}
			link := model.ArticleCourse{ArticleID: articleID, CourseID: course.ID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *articleRepository) AllEmbeddings(ctx context.Context) ([]IDVector, error) {
	var rows []model.Article
	if err := r.db.WithContext(ctx).
		Select("id", "embedding_vector").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]IDVector, 0, len(rows))
	for _, row := range rows {
		out = append(out, IDVector{ID: row.ID, Vector: row.EmbeddingVector})
	}
	return out, nil
}
