package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/uniconhq/unicon-backend/internal/cache"
	"github.com/uniconhq/unicon-backend/internal/model"
	"github.com/uniconhq/unicon-backend/internal/repository"
)

// CommentService handles the comment tree under articles: one nesting
// level, soft deletion and per-thread like edges.
type CommentService struct {
	comments      repository.CommentRepository
	articles      repository.ArticleRepository
	users         repository.UserRepository
	articleCache  *cache.ArticleCache
	userIndex     *cache.UserIndexCache
	threads       *cache.CommentThreadCache
	notifications *cache.NotificationCache
}

func NewCommentService(
	comments repository.CommentRepository,
	articles repository.ArticleRepository,
	users repository.UserRepository,
	articleCache *cache.ArticleCache,
	userIndex *cache.UserIndexCache,
	threads *cache.CommentThreadCache,
	notifications *cache.NotificationCache,
) *CommentService {
	return &CommentService{
		comments:      comments,
		articles:      articles,
		users:         users,
		articleCache:  articleCache,
		userIndex:     userIndex,
		threads:       threads,
		notifications: notifications,
	}
}

// Create posts a comment or a reply. Replies to replies are rejected so
// threads stay one level deep.
func (s *CommentService) Create(ctx context.Context, user *model.User, articleID int64, body string, parentID *int64) (*repository.CommentPayload, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyContent
	}

	article, err := s.loadArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	author, err := s.users.GetByID(ctx, article.UserID)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeArticle(user, article, author.SchoolID, ActionComment); err != nil {
		return nil, err
	}
	if article.Deleted {
		return nil, ErrDeleted
	}

	var parent *model.Comment
	if parentID != nil {
		parent, err = s.loadComment(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.ArticleID != articleID {
			return nil, ErrNotFound
		}
		if parent.ParentCommentID != nil {
			return nil, ErrCommentDepth
		}
	}

	tempName, staticPoints, err := ensureArticleUser(ctx, s.articles, s.users, articleID, user)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		Body:            body,
		UserID:          user.ID,
		ArticleID:       articleID,
		ParentCommentID: parentID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	if err := s.articleCache.Patch(ctx, articleID, map[string]interface{}{
		"comments_count": gorm.Expr("comments_count + 1"),
	}); err != nil {
		return nil, err
	}
	if parent != nil {
		if err := s.threads.Patch(ctx, payloadOf(parent), map[string]interface{}{
			"comments_count": gorm.Expr("comments_count + 1"),
		}); err != nil {
			return nil, err
		}
	}

	school, err := s.users.GetSchool(ctx, user.SchoolID)
	if err != nil {
		return nil, err
	}
	payload := repository.CommentPayload{
		ID:               comment.ID,
		UserID:           user.ID,
		Body:             comment.Body,
		ParentComment:    parentID,
		ArticleID:        articleID,
		CreatedAt:        comment.CreatedAt,
		UserSchool:       school.Initial,
		UserTempName:     tempName,
		UserStaticPoints: staticPoints,
	}
	s.threads.Add(ctx, payload)

	// The commenter's commented-articles listing is stale now; recompute
	// on next read rather than guessing its position.
	s.articleCache.Invalidate(ctx, cache.ArticleListKeyFor(user.SchoolID, ViewCommented, itoa(user.ID)))

	if article.UserID != user.ID {
		if err := s.notifications.Add(ctx, model.NotificationGroupComment, author,
			model.NotificationSourceArticle, articleID); err != nil {
			return nil, err
		}
	}
	if parent != nil && parent.UserID != user.ID && parent.UserID != article.UserID {
		parentAuthor, err := s.users.GetByID(ctx, parent.UserID)
		if err != nil {
			return nil, err
		}
		if err := s.notifications.Add(ctx, model.NotificationGroupComment, parentAuthor,
			model.NotificationSourceComment, parent.ID); err != nil {
			return nil, err
		}
	}
	return &payload, nil
}

// Replies serves one page of the reply thread under a top-level comment.
func (s *CommentService) Replies(ctx context.Context, user *model.User, commentID int64, page int) (*cache.CommentPage, error) {
	comment, err := s.loadComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	article, err := s.loadArticle(ctx, comment.ArticleID)
	if err != nil {
		return nil, err
	}
	author, err := s.users.GetByID(ctx, article.UserID)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeArticle(user, article, author.SchoolID, ActionRetrieve); err != nil {
		return nil, err
	}
	return s.threads.GetPage(ctx, user.ID, comment.ArticleID, &commentID, page)
}

// Patch edits the body. Author only; deleted comments are frozen.
func (s *CommentService) Patch(ctx context.Context, user *model.User, commentID int64, body string) error {
	comment, err := s.loadComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != user.ID {
		return ErrForbidden
	}
	if comment.Deleted {
		return ErrDeleted
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return ErrEmptyContent
	}
	return s.threads.Patch(ctx, payloadOf(comment), map[string]interface{}{
		"body":   body,
		"edited": true,
	})
}

// Delete soft-deletes: sentinel body, deleted flag, counters untouched so
// the thread shape survives.
func (s *CommentService) Delete(ctx context.Context, user *model.User, commentID int64) error {
	comment, err := s.loadComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != user.ID {
		return ErrForbidden
	}
	if comment.Deleted {
		return ErrDeleted
	}
	return s.threads.Patch(ctx, payloadOf(comment), map[string]interface{}{
		"body":    model.DeletedBody,
		"deleted": true,
	})
}

// Like creates the like edge, bumps the counter and notifies the comment's
// author. Liking twice is a no-op reported as ErrNotModified.
func (s *CommentService) Like(ctx context.Context, user *model.User, commentID int64) error {
	comment, err := s.loadForLike(ctx, user, commentID)
	if err != nil {
		return err
	}

	created, err := s.comments.CreateLike(ctx, user.ID, commentID)
	if err != nil {
		return err
	}
	if !created {
		return ErrNotModified
	}

	if err := s.threads.Patch(ctx, payloadOf(comment), map[string]interface{}{
		"likes_count": gorm.Expr("likes_count + 1"),
	}); err != nil {
		return err
	}
	if err := s.userIndex.SetFlag(ctx, user.ID, cache.KindLikedComments, commentID, true); err != nil {
		return err
	}

	if comment.UserID != user.ID {
		recipient, err := s.users.GetByID(ctx, comment.UserID)
		if err != nil {
			return err
		}
		if err := s.notifications.Add(ctx, model.NotificationGroupLike, recipient,
			model.NotificationSourceComment, commentID); err != nil {
			return err
		}
	}
	return nil
}

// Unlike removes the edge and restores the counter.
func (s *CommentService) Unlike(ctx context.Context, user *model.User, commentID int64) error {
	comment, err := s.loadForLike(ctx, user, commentID)
	if err != nil {
		return err
	}

	deleted, err := s.comments.DeleteLike(ctx, user.ID, commentID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotModified
	}

	if err := s.threads.Patch(ctx, payloadOf(comment), map[string]interface{}{
		"likes_count": gorm.Expr("likes_count - 1"),
	}); err != nil {
		return err
	}
	return s.userIndex.SetFlag(ctx, user.ID, cache.KindLikedComments, commentID, false)
}

func (s *CommentService) loadForLike(ctx context.Context, user *model.User, commentID int64) (*model.Comment, error) {
	comment, err := s.loadComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	article, err := s.loadArticle(ctx, comment.ArticleID)
	if err != nil {
		return nil, err
	}
	author, err := s.users.GetByID(ctx, article.UserID)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeArticle(user, article, author.SchoolID, ActionLike); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) loadArticle(ctx context.Context, id int64) (*model.Article, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return article, nil
}

func (s *CommentService) loadComment(ctx context.Context, id int64) (*model.Comment, error) {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return comment, nil
}

// payloadOf builds the cache-addressable identity of a stored comment.
func payloadOf(comment *model.Comment) *repository.CommentPayload {
	return &repository.CommentPayload{
		ID:            comment.ID,
		UserID:        comment.UserID,
		ArticleID:     comment.ArticleID,
		ParentComment: comment.ParentCommentID,
	}
}
