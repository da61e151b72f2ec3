package cache

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/uniconhq/unicon-backend/internal/repository"
	"github.com/uniconhq/unicon-backend/pkg/logger"
)

// ArticlePage is one rendered window of a listing.
type ArticlePage struct {
	// Count echoes the seen-count the window was computed against; clients
	// send it back so later pages ignore articles created in between.
	Count    int64
	Next     *Cursor
	Articles []repository.ArticlePayload
}

// ArticleCache combines the per-school ordered id-list cache with the
// per-article payload cache. Reads resolve an id window first, then batch
// resolve payloads, then overlay the reader's like/view/save flags.
type ArticleCache struct {
	store     *Store
	repo      repository.ArticleRepository
	userIndex *UserIndexCache
	pageSize  int
}

func NewArticleCache(store *Store, repo repository.ArticleRepository, userIndex *UserIndexCache, pageSize int) *ArticleCache {
	return &ArticleCache{store: store, repo: repo, userIndex: userIndex, pageSize: pageSize}
}

// GetPage serves one window of the id list under scopeKey. On a scope miss
// the full ordered id list is computed once and cached; seenCount < 0 means
// the client did not send one and defaults to the full length.
//
// Window math: ids created after the client's snapshot sit at the head, so
// the window shifts down by (total - seenCount) to keep pages stable.
func (c *ArticleCache) GetPage(ctx context.Context, userID int64, scopeKey string, computeIDs func(context.Context) ([]int64, error), page int, seenCount int64) (*ArticlePage, error) {
	if page < 1 {
		page = 1
	}

	var ids []int64
	if !c.store.Get(ctx, scopeKey, &ids) {
		fresh, err := computeIDs(ctx)
		if err != nil {
			return nil, err
		}
		ids = fresh
		c.store.Set(ctx, scopeKey, ids)
	}

	total := int64(len(ids))
	if seenCount < 0 || seenCount > total {
		seenCount = total
	}
	newCount := total - seenCount

	start := int64(page-1)*int64(c.pageSize) + newCount
	end := start + int64(c.pageSize)
	if end > total {
		end = total
	}
	if start > total {
		start = total
	}

	payloads, err := c.resolve(ctx, userID, ids[start:end])
	if err != nil {
		return nil, err
	}

	result := &ArticlePage{Count: seenCount, Articles: payloads}
	if end < total {
		result.Next = &Cursor{Page: page + 1, Count: seenCount}
	}
	return result, nil
}

// PrependID pushes a freshly created article onto the head of a cached id
// list so the new-since-snapshot math stays correct. Cold scopes are left
// cold.
func (c *ArticleCache) PrependID(ctx context.Context, scopeKey string, id int64) {
	var ids []int64
	if !c.store.Get(ctx, scopeKey, &ids) {
		return
	}
	ids = append([]int64{id}, ids...)
	c.store.Set(ctx, scopeKey, ids)
}

// Invalidate drops one listing scope.
func (c *ArticleCache) Invalidate(ctx context.Context, scopeKey string) {
	c.store.Delete(ctx, scopeKey)
}

// GetOne returns the reader-decorated payload for a single article,
// populating the payload cache on miss.
func (c *ArticleCache) GetOne(ctx context.Context, userID, articleID int64) (*repository.ArticlePayload, error) {
	payloads, err := c.resolve(ctx, userID, []int64{articleID})
	if err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, nil
	}
	return &payloads[0], nil
}

// Patch writes authoritative field updates to the database (with the
// engagement score recomputed in the same transaction), then refreshes the
// cached payload in place. A cold cache entry stays cold.
func (c *ArticleCache) Patch(ctx context.Context, articleID int64, fields map[string]interface{}) error {
	if err := c.repo.UpdateFields(ctx, articleID, fields); err != nil {
		return err
	}

	key := ArticleKey(articleID)
	var payload repository.ArticlePayload
	if !c.store.Get(ctx, key, &payload) {
		return nil
	}

	// Counter updates use SQL expressions, so re-read the row for the
	// post-update values rather than trusting the caller's map.
	article, err := c.repo.GetByID(ctx, articleID)
	if err != nil {
		return err
	}
	payload.Title = article.Title
	payload.Body = article.Body
	payload.Deleted = article.Deleted
	payload.Edited = article.Edited
	payload.ViewsCount = article.ViewsCount
	payload.CommentsCount = article.CommentsCount
	payload.LikesCount = article.LikesCount
	c.store.Set(ctx, key, payload)
	return nil
}

// resolve batch-fetches payloads for ids, preserving input order: cached
// entries come from one MGet, the misses from one annotated bulk query that
// is then bulk-stored. Reader flags are overlaid last.
func (c *ArticleCache) resolve(ctx context.Context, userID int64, ids []int64) ([]repository.ArticlePayload, error) {
	if len(ids) == 0 {
		return []repository.ArticlePayload{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = ArticleKey(id)
	}
	cached := c.store.GetMany(ctx, keys)

	byID := make(map[int64]repository.ArticlePayload, len(ids))
	missing := make([]int64, 0, len(ids))
	for i, id := range ids {
		raw, ok := cached[keys[i]]
		if !ok {
			missing = append(missing, id)
			continue
		}
		var payload repository.ArticlePayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			logger.Warn("article payload corrupt", zap.Int64("article", id), zap.Error(err))
			missing = append(missing, id)
			continue
		}
		byID[id] = payload
	}

	if len(missing) > 0 {
		loaded, err := c.repo.AnnotatedByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		entries := make(map[string]interface{}, len(loaded))
		for _, payload := range loaded {
			byID[payload.ID] = payload
			entries[ArticleKey(payload.ID)] = payload
		}
		c.store.SetMany(ctx, entries)
	}

	liked, err := c.userIndex.GetOrPopulate(ctx, userID, KindLikedArticles)
	if err != nil {
		return nil, err
	}
	viewed, err := c.userIndex.GetOrPopulate(ctx, userID, KindViewedArticles)
	if err != nil {
		return nil, err
	}
	saved, err := c.userIndex.GetOrPopulate(ctx, userID, KindSavedArticles)
	if err != nil {
		return nil, err
	}

	result := make([]repository.ArticlePayload, 0, len(ids))
	for _, id := range ids {
		payload, ok := byID[id]
		if !ok {
			// Row vanished between the id snapshot and now; skip it.
			continue
		}
		payload.LikeStatus = liked[id]
		payload.ViewStatus = viewed[id]
		payload.SaveStatus = saved[id]
		result = append(result, payload)
	}
	return result, nil
}
