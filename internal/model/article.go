package model

import "time"

// Sentinel values written over a soft-deleted article.
const (
	DeletedTitle = "[DELETED ARTICLE]"
	DeletedBody  = "[DELETED CONTENT]"
)

// Article is the forum post row. Counter columns are only ever mutated with
// atomic field-expression updates; EngagementScore is derived from them.
type Article struct {
	ID     int64  `json:"id" gorm:"primaryKey"`
	Title  string `json:"title" gorm:"type:varchar(100);not null"`
	Body   string `json:"body" gorm:"type:text;not null"`
	UserID int64  `json:"user" gorm:"index;not null"`

	// Unicon articles are visible to every school, not just the author's.
	// No column default: gorm drops zero-valued fields that carry one on
	// Create, which would store every school-scoped post as unicon.
	Unicon  bool `json:"unicon" gorm:"not null"`
	Deleted bool `json:"deleted" gorm:"not null;default:false"`
	Edited  bool `json:"edited" gorm:"not null;default:false"`

	CreatedAt     time.Time `json:"created_at" gorm:"index"`
	ViewsCount    int64     `json:"views_count" gorm:"not null;default:0"`
	CommentsCount int64     `json:"comments_count" gorm:"not null;default:0"`
	LikesCount    int64     `json:"likes_count" gorm:"not null;default:0"`

	EmbeddingVector Vector  `json:"-" gorm:"type:text"`
	EngagementScore float64 `json:"engagement_score" gorm:"index;not null;default:0"`
}

func (Article) TableName() string { return "articles" }

// ArticleUser pins the per-article pseudonym and the author's point total at
// first interaction. Immutable once created.
type ArticleUser struct {
	ID               int64  `gorm:"primaryKey"`
	UserTempName     string `gorm:"type:varchar(100);not null"`
	// No column default so a legitimate zero-point snapshot survives Create.
	UserStaticPoints int64 `gorm:"not null"`
	ArticleID        int64 `gorm:"index:idx_article_user,unique;not null"`
	UserID           int64 `gorm:"index:idx_article_user,unique;not null"`
}

func (ArticleUser) TableName() string { return "article_users" }

// ArticleLike is a (user, article) like edge; existence implies like_status.
type ArticleLike struct {
	ID        int64 `gorm:"primaryKey"`
	ArticleID int64 `gorm:"index:idx_article_like,unique;not null"`
	UserID    int64 `gorm:"index:idx_article_like,unique;not null"`
	CreatedAt time.Time
}

func (ArticleLike) TableName() string { return "article_likes" }

// ArticleView deduplicates reads per (user, article).
type ArticleView struct {
	ID        int64 `gorm:"primaryKey"`
	ArticleID int64 `gorm:"index:idx_article_view,unique;not null"`
	UserID    int64 `gorm:"index:idx_article_view,unique;not null"`
	CreatedAt time.Time
}

func (ArticleView) TableName() string { return "article_views" }

// ArticleSave is a bookmark edge.
type ArticleSave struct {
	ID        int64 `gorm:"primaryKey"`
	ArticleID int64 `gorm:"index:idx_article_save,unique;not null"`
	UserID    int64 `gorm:"index:idx_article_save,unique;not null"`
	CreatedAt time.Time
}

func (ArticleSave) TableName() string { return "article_saves" }

// Course is a per-school course code an article can be tagged with.
type Course struct {
	ID       int64  `gorm:"primaryKey"`
	Code     string `gorm:"type:varchar(100);index:idx_course_school,unique;not null"`
	SchoolID int64  `gorm:"index:idx_course_school,unique;not null"`
}

func (Course) TableName() string { return "courses" }

// ArticleCourse links an article to one of its course tags.
type ArticleCourse struct {
	ID        int64 `gorm:"primaryKey"`
	ArticleID int64 `gorm:"index:idx_article_course,unique;not null"`
	CourseID  int64 `gorm:"index:idx_article_course,unique;not null"`
}

func (ArticleCourse) TableName() string { return "article_courses" }
