package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/uniconhq/unicon-backend/internal/cache"
	"github.com/uniconhq/unicon-backend/internal/model"
	"github.com/uniconhq/unicon-backend/internal/repository"
	"github.com/uniconhq/unicon-backend/internal/search"
	"github.com/uniconhq/unicon-backend/pkg/logger"
)

// Listing view names; each one is its own cache scope per school.
const (
	ViewList       = "article-list"
	ViewHot        = "article-hot"
	ViewPreference = "article-preference"
	ViewSearch     = "article-search"
	ViewPosted     = "article-posted"
	ViewCommented  = "article-commented"
	ViewSaved      = "article-saved"
	ViewLiked      = "article-liked"
)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

// preferenceAlpha is the EMA weight a viewed article contributes to the
// reader's preference vector.
const preferenceAlpha = 0.1

// CreateArticleInput is the validated create request.
type CreateArticleInput struct {
	Title       string
	Body        string
	Unicon      bool
	CourseCodes []string
}

// ArticleDetail is the retrieve response: the article payload plus the
// first requested page of its top-level comments.
type ArticleDetail struct {
	Article  *repository.ArticlePayload
	Comments *cache.CommentPage
}

// ArticleService orchestrates article reads and writes across the
// repositories, the cache layer and the similarity index.
type ArticleService struct {
	articles      repository.ArticleRepository
	users         repository.UserRepository
	articleCache  *cache.ArticleCache
	userIndex     *cache.UserIndexCache
	threads       *cache.CommentThreadCache
	notifications *cache.NotificationCache
	embedder      search.EmbeddingClient
	index         *search.Index
}

func NewArticleService(
	articles repository.ArticleRepository,
	users repository.UserRepository,
	articleCache *cache.ArticleCache,
	userIndex *cache.UserIndexCache,
	threads *cache.CommentThreadCache,
	notifications *cache.NotificationCache,
	embedder search.EmbeddingClient,
	index *search.Index,
) *ArticleService {
	return &ArticleService{
		articles:      articles,
		users:         users,
		articleCache:  articleCache,
		userIndex:     userIndex,
		threads:       threads,
		notifications: notifications,
		embedder:      embedder,
		index:         index,
	}
}

// Create posts an article: embed, persist, index, link courses, prepend to
// the school's listing scope and pin the author's pseudonym.
func (s *ArticleService) Create(ctx context.Context, user *model.User, input CreateArticleInput) (*repository.ArticlePayload, error) {
	title := strings.TrimSpace(input.Title)
	body := strings.TrimSpace(input.Body)
	if title == "" || body == "" {
		return nil, ErrEmptyContent
	}
	if input.Unicon && len(input.CourseCodes) > 0 {
		return nil, ErrUniconCourse
	}

	vector, err := s.embedder.Embed(ctx, title+body)
	if err != nil {
		return nil, err
	}

	article := &model.Article{
		Title:           title,
		Body:            body,
		UserID:          user.ID,
		Unicon:          input.Unicon,
		EmbeddingVector: vector,
	}
	if err := s.articles.Create(ctx, article); err != nil {
		return nil, err
	}

	// The index self-heals on rebuild, so a failed add only warns.
	if err := s.index.Add(article.ID, vector); err != nil {
		logger.Warn("index add failed", zap.Int64("article", article.ID), zap.Error(err))
	}

	if len(input.CourseCodes) > 0 {
		if err := s.articles.EnsureCourses(ctx, article.ID, user.SchoolID, input.CourseCodes); err != nil {
			return nil, err
		}
	}

	if _, _, err := s.ensureArticleUser(ctx, article.ID, user); err != nil {
		return nil, err
	}

	s.articleCache.PrependID(ctx, cache.ArticleListKey(user.SchoolID, ViewList), article.ID)

	return s.articleCache.GetOne(ctx, user.ID, article.ID)
}

// List serves the school's recent-articles listing.
func (s *ArticleService) List(ctx context.Context, user *model.User, page int, seenCount int64) (*cache.ArticlePage, error) {
	return s.articleCache.GetPage(ctx, user.ID,
		cache.ArticleListKey(user.SchoolID, ViewList),
		func(ctx context.Context) ([]int64, error) {
			return s.articles.RecentIDs(ctx, user.SchoolID)
		},
		page, seenCount)
}

// Hot serves the engagement-ranked listing.
func (s *ArticleService) Hot(ctx context.Context, user *model.User, page int, seenCount int64) (*cache.ArticlePage, error) {
	return s.articleCache.GetPage(ctx, user.ID,
		cache.ArticleListKey(user.SchoolID, ViewHot),
		func(ctx context.Context) ([]int64, error) {
			return s.articles.HotIDs(ctx, user.SchoolID)
		},
		page, seenCount)
}

// Preference ranks the visible scope by similarity to the reader's
// preference vector.
func (s *ArticleService) Preference(ctx context.Context, user *model.User, page int, seenCount int64) (*cache.ArticlePage, error) {
	return s.articleCache.GetPage(ctx, user.ID,
		cache.ArticleListKeyFor(user.SchoolID, ViewPreference, itoa(user.ID)),
		func(ctx context.Context) ([]int64, error) {
			return s.rankedVisibleIDs(ctx, user, user.EmbeddingVector)
		},
		page, seenCount)
}

// Search embeds the query and ranks the visible scope by similarity.
func (s *ArticleService) Search(ctx context.Context, user *model.User, query string, page int, seenCount int64) (*cache.ArticlePage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyContent
	}
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.articleCache.GetPage(ctx, user.ID,
		cache.ArticleListKeyFor(user.SchoolID, ViewSearch, query),
		func(ctx context.Context) ([]int64, error) {
			return s.rankedVisibleIDs(ctx, user, vector)
		},
		page, seenCount)
}

// Posted, Commented, Saved and Liked are the per-user article listings.

func (s *ArticleService) Posted(ctx context.Context, user *model.User, page int, seenCount int64) (*cache.ArticlePage, error) {
	return s.articleCache.GetPage(ctx, user.ID,
		cache.ArticleListKeyFor(user.SchoolID, ViewPosted, itoa(user.ID)),
		func(ctx context.Context) ([]int64, error) {
			return s.articles.PostedIDs(ctx, user.SchoolID, user.ID)
		},
		page, seenCount)
}

func (s *ArticleService) Commented(ctx context.Context, user *model.User, page int, seenCount int64) (*cache.ArticlePage, error) {
	return s.articleCache.GetPage(ctx, user.ID,
		cache.ArticleListKeyFor(user.SchoolID, ViewCommented, itoa(user.ID)),
		func(ctx context.Context) ([]int64, error) {
			return s.articles.CommentedIDs(ctx, user.SchoolID, user.ID)
		},
		page, seenCount)
}

func (s *ArticleService) Saved(ctx context.Context, user *model.User, page int, seenCount int64) (*cache.ArticlePage, error) {
	return s.articleCache.GetPage(ctx, user.ID,
		cache.ArticleListKeyFor(user.SchoolID, ViewSaved, itoa(user.ID)),
		func(ctx context.Context) ([]int64, error) {
			return s.articles.SavedIDs(ctx, user.SchoolID, user.ID)
		},
		page, seenCount)
}

func (s *ArticleService) Liked(ctx context.Context, user *model.User, page int, seenCount int64) (*cache.ArticlePage, error) {
	return s.articleCache.GetPage(ctx, user.ID,
		cache.ArticleListKeyFor(user.SchoolID, ViewLiked, itoa(user.ID)),
		func(ctx context.Context) ([]int64, error) {
			return s.articles.LikedIDs(ctx, user.SchoolID, user.ID)
		},
		page, seenCount)
}

// Retrieve serves one article with its first comment page. Side effects:
// the view edge, the views counter, the engagement score and the reader's
// preference vector all advance.
func (s *ArticleService) Retrieve(ctx context.Context, user *model.User, articleID int64, commentPage int) (*ArticleDetail, error) {
	article, authorSchoolID, err := s.load(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeArticle(user, article, authorSchoolID, ActionRetrieve); err != nil {
		return nil, err
	}

	blended := search.BlendPreference(user.EmbeddingVector, article.EmbeddingVector, preferenceAlpha)
	if err := s.users.UpdateEmbedding(ctx, user.ID, blended); err != nil {
		return nil, err
	}
	user.EmbeddingVector = blended

	if _, err := s.articles.CreateView(ctx, user.ID, articleID); err != nil {
		return nil, err
	}
	if err := s.articleCache.Patch(ctx, articleID, map[string]interface{}{
		"views_count": gorm.Expr("views_count + 1"),
	}); err != nil {
		return nil, err
	}
	if err := s.userIndex.SetFlag(ctx, user.ID, cache.KindViewedArticles, articleID, true); err != nil {
		return nil, err
	}

	payload, err := s.articleCache.GetOne(ctx, user.ID, articleID)
	if err != nil {
		return nil, err
	}
	comments, err := s.threads.GetPage(ctx, user.ID, articleID, nil, commentPage)
	if err != nil {
		return nil, err
	}
	return &ArticleDetail{Article: payload, Comments: comments}, nil
}

// Patch edits title and body. Author only; deleted articles are frozen.
func (s *ArticleService) Patch(ctx context.Context, user *model.User, articleID int64, title, body string) error {
	article, authorSchoolID, err := s.load(ctx, articleID)
	if err != nil {
		return err
	}
	if err := AuthorizeArticle(user, article, authorSchoolID, ActionModify); err != nil {
		return err
	}
	if article.Deleted {
		return ErrDeleted
	}
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" || body == "" {
		return ErrEmptyContent
	}
	return s.articleCache.Patch(ctx, articleID, map[string]interface{}{
		"title":  title,
		"body":   body,
		"edited": true,
	})
}

// Delete soft-deletes: sentinel title and body, deleted flag, row kept.
func (s *ArticleService) Delete(ctx context.Context, user *model.User, articleID int64) error {
	article, authorSchoolID, err := s.load(ctx, articleID)
	if err != nil {
		return err
	}
	if err := AuthorizeArticle(user, article, authorSchoolID, ActionModify); err != nil {
		return err
	}
	if article.Deleted {
		return ErrDeleted
	}
	return s.articleCache.Patch(ctx, articleID, map[string]interface{}{
		"title":   model.DeletedTitle,
		"body":    model.DeletedBody,
		"deleted": true,
	})
}

// Like creates the like edge, bumps the counter and notifies the author.
// A second like is a no-op reported as ErrNotModified.
func (s *ArticleService) Like(ctx context.Context, user *model.User, articleID int64) error {
	article, authorSchoolID, err := s.load(ctx, articleID)
	if err != nil {
		return err
	}
	if err := AuthorizeArticle(user, article, authorSchoolID, ActionLike); err != nil {
		return err
	}

	created, err := s.articles.CreateLike(ctx, user.ID, articleID)
	if err != nil {
		return err
	}
	if !created {
		return ErrNotModified
	}

	if err := s.articleCache.Patch(ctx, articleID, map[string]interface{}{
		"likes_count": gorm.Expr("likes_count + 1"),
	}); err != nil {
		return err
	}
	if err := s.userIndex.SetFlag(ctx, user.ID, cache.KindLikedArticles, articleID, true); err != nil {
		return err
	}

	if article.UserID != user.ID {
		author, err := s.users.GetByID(ctx, article.UserID)
		if err != nil {
			return err
		}
		if err := s.notifications.Add(ctx, model.NotificationGroupLike, author,
			model.NotificationSourceArticle, articleID); err != nil {
			return err
		}
	}
	return nil
}

// Unlike removes the edge and restores the counter; unliking twice is a
// no-op reported as ErrNotModified.
func (s *ArticleService) Unlike(ctx context.Context, user *model.User, articleID int64) error {
	article, authorSchoolID, err := s.load(ctx, articleID)
	if err != nil {
		return err
	}
	if err := AuthorizeArticle(user, article, authorSchoolID, ActionLike); err != nil {
		return err
	}

	deleted, err := s.articles.DeleteLike(ctx, user.ID, articleID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotModified
	}

	if err := s.articleCache.Patch(ctx, articleID, map[string]interface{}{
		"likes_count": gorm.Expr("likes_count - 1"),
	}); err != nil {
		return err
	}
	return s.userIndex.SetFlag(ctx, user.ID, cache.KindLikedArticles, articleID, false)
}

// Save bookmarks the article; presence-only, no counter.
func (s *ArticleService) Save(ctx context.Context, user *model.User, articleID int64) error {
	if _, _, err := s.load(ctx, articleID); err != nil {
		return err
	}
	created, err := s.articles.CreateSave(ctx, user.ID, articleID)
	if err != nil {
		return err
	}
	if !created {
		return ErrNotModified
	}
	return s.userIndex.SetFlag(ctx, user.ID, cache.KindSavedArticles, articleID, true)
}

func (s *ArticleService) Unsave(ctx context.Context, user *model.User, articleID int64) error {
	if _, _, err := s.load(ctx, articleID); err != nil {
		return err
	}
	deleted, err := s.articles.DeleteSave(ctx, user.ID, articleID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotModified
	}
	return s.userIndex.SetFlag(ctx, user.ID, cache.KindSavedArticles, articleID, false)
}

// RebuildIndex repopulates the similarity index from the articles table.
func (s *ArticleService) RebuildIndex(ctx context.Context) error {
	rows, err := s.articles.AllEmbeddings(ctx)
	if err != nil {
		return err
	}
	ids := make([]int64, len(rows))
	vectors := make([]model.Vector, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		vectors[i] = row.Vector
	}
	return s.index.Replace(ids, vectors)
}

// rankedVisibleIDs runs a similarity search over the whole index and keeps
// only ids the user may see, preserving rank order.
func (s *ArticleService) rankedVisibleIDs(ctx context.Context, user *model.User, vector model.Vector) ([]int64, error) {
	visible, err := s.articles.VisibleIDs(ctx, user.SchoolID)
	if err != nil {
		return nil, err
	}
	allowed := make(map[int64]bool, len(visible))
	for _, id := range visible {
		allowed[id] = true
	}

	ranked := s.index.Search(vector, s.index.Len())
	out := make([]int64, 0, len(visible))
	for _, id := range ranked {
		if allowed[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// ensureArticleUser lazily pins the per-article pseudonym and the point
// snapshot on first interaction. Immutable afterward.
func (s *ArticleService) ensureArticleUser(ctx context.Context, articleID int64, user *model.User) (string, int64, error) {
	return ensureArticleUser(ctx, s.articles, s.users, articleID, user)
}

func ensureArticleUser(ctx context.Context, articles repository.ArticleRepository, users repository.UserRepository, articleID int64, user *model.User) (string, int64, error) {
	au, err := articles.GetArticleUser(ctx, articleID, user.ID)
	if err == nil {
		return au.UserTempName, au.UserStaticPoints, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", 0, err
	}

	points, err := users.CurrentPoints(ctx, user.ID)
	if err != nil {
		return "", 0, err
	}
	created := &model.ArticleUser{
		ArticleID:        articleID,
		UserID:           user.ID,
		UserTempName:     RandomPseudonym(),
		UserStaticPoints: points,
	}
	if err := articles.CreateArticleUser(ctx, created); err != nil {
		return "", 0, err
	}
	return created.UserTempName, created.UserStaticPoints, nil
}

// load fetches the article and its author's school id.
func (s *ArticleService) load(ctx context.Context, articleID int64) (*model.Article, int64, error) {
	article, err := s.articles.GetByID(ctx, articleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	author, err := s.users.GetByID(ctx, article.UserID)
	if err != nil {
		return nil, 0, err
	}
	return article, author.SchoolID, nil
}
