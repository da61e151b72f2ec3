package cache

import (
	"context"

	"github.com/uniconhq/unicon-backend/internal/repository"
)

// Per-user index kinds.
const (
	KindLikedArticles  = "liked_articles"
	KindLikedComments  = "liked_comments"
	KindViewedArticles = "viewed_articles"
	KindSavedArticles  = "saved_articles"
)

// UserIndexCache holds one id→true map per (user, kind), rebuilt from the
// edge tables on miss. Only the acting user's own requests mutate a key, so
// last-writer-wins per key is acceptable.
type UserIndexCache struct {
	store       *Store
	articleRepo repository.ArticleRepository
	commentRepo repository.CommentRepository
}

func NewUserIndexCache(store *Store, articleRepo repository.ArticleRepository, commentRepo repository.CommentRepository) *UserIndexCache {
	return &UserIndexCache{store: store, articleRepo: articleRepo, commentRepo: commentRepo}
}

// GetOrPopulate returns the flag map for (user, kind), loading it from the
// database when the cache misses.
func (c *UserIndexCache) GetOrPopulate(ctx context.Context, userID int64, kind string) (map[int64]bool, error) {
	key := userIndexKey(kind, userID)
	flags := make(map[int64]bool)
	if c.store.Get(ctx, key, &flags) {
		return flags, nil
	}

	ids, err := c.loadIDs(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	flags = make(map[int64]bool, len(ids))
	for _, id := range ids {
		flags[id] = true
	}
	c.store.Set(ctx, key, flags)
	return flags, nil
}

// SetFlag loads-or-populates the map, flips one flag and re-stores the key
// with a refreshed TTL.
func (c *UserIndexCache) SetFlag(ctx context.Context, userID int64, kind string, targetID int64, value bool) error {
	flags, err := c.GetOrPopulate(ctx, userID, kind)
	if err != nil {
		return err
	}
	if value {
		flags[targetID] = true
	} else {
		delete(flags, targetID)
	}
	c.store.Set(ctx, userIndexKey(kind, userID), flags)
	return nil
}

func (c *UserIndexCache) loadIDs(ctx context.Context, userID int64, kind string) ([]int64, error) {
	switch kind {
	case KindLikedArticles:
		return c.articleRepo.LikedArticleIDs(ctx, userID)
	case KindViewedArticles:
		return c.articleRepo.ViewedArticleIDs(ctx, userID)
	case KindSavedArticles:
		return c.articleRepo.SavedArticleIDs(ctx, userID)
	case KindLikedComments:
		return c.commentRepo.LikedCommentIDs(ctx, userID)
	}
	return nil, nil
}
