package cache

import (
	"context"

	"github.com/uniconhq/unicon-backend/internal/repository"
)

// CommentPage is one rendered window of a comment thread.
type CommentPage struct {
	Count    int64
	Next     *Cursor
	Comments []repository.CommentPayload
}

// threadState is the cached shape of one (article, parent) scope: the scope
// total plus an insertion-ordered map of the payloads fetched so far. Order
// is first-fetched-first-served; new comments are prepended on Add.
type threadState struct {
	Total int64                                 `json:"total_comments"`
	Order []int64                               `json:"order"`
	Items map[int64]repository.CommentPayload `json:"comments"`
}

// CommentThreadCache paginates comments under (article, parent) with lazy
// top-up: the cache only ever holds a prefix of the scope and extends
// itself from the database when a deeper page is requested.
type CommentThreadCache struct {
	store     *Store
	repo      repository.CommentRepository
	userIndex *UserIndexCache
	pageSize  int
}

func NewCommentThreadCache(store *Store, repo repository.CommentRepository, userIndex *UserIndexCache, pageSize int) *CommentThreadCache {
	return &CommentThreadCache{store: store, repo: repo, userIndex: userIndex, pageSize: pageSize}
}

// GetPage serves one window of the scope, topping the cached prefix up from
// the database when it is shorter than page*pageSize. A second request for
// the same page is a pure cache hit.
func (c *CommentThreadCache) GetPage(ctx context.Context, userID, articleID int64, parentID *int64, page int) (*CommentPage, error) {
	if page < 1 {
		page = 1
	}
	key := commentsKey(articleID, parentID)

	var state threadState
	if !c.store.Get(ctx, key, &state) {
		total, err := c.repo.CountByScope(ctx, articleID, parentID)
		if err != nil {
			return nil, err
		}
		state = threadState{Total: total, Items: map[int64]repository.CommentPayload{}}
		c.store.Set(ctx, key, state)
	}

	if state.Total == 0 {
		return &CommentPage{Count: 0, Comments: []repository.CommentPayload{}}, nil
	}

	// Top up when the cached prefix is too short for the requested page.
	if int64(len(state.Order)) < int64(page*c.pageSize) && int64(len(state.Order)) < state.Total {
		offset := len(state.Order)
		limit := page*c.pageSize - offset
		fetched, err := c.repo.AnnotatedPage(ctx, articleID, parentID, offset, limit)
		if err != nil {
			return nil, err
		}
		for _, payload := range fetched {
			if _, ok := state.Items[payload.ID]; ok {
				continue
			}
			state.Order = append(state.Order, payload.ID)
			state.Items[payload.ID] = payload
		}
		c.store.Set(ctx, key, state)
	}

	start := (page - 1) * c.pageSize
	end := start + c.pageSize
	if start > len(state.Order) {
		start = len(state.Order)
	}
	if end > len(state.Order) {
		end = len(state.Order)
	}

	liked, err := c.userIndex.GetOrPopulate(ctx, userID, KindLikedComments)
	if err != nil {
		return nil, err
	}

	window := make([]repository.CommentPayload, 0, end-start)
	for _, id := range state.Order[start:end] {
		payload := state.Items[id]
		payload.LikeStatus = liked[id]
		window = append(window, payload)
	}

	result := &CommentPage{Count: state.Total, Comments: window}
	if int64(end) < state.Total {
		result.Next = &Cursor{Page: page + 1}
	}
	return result, nil
}

// Add inserts a freshly created comment at the head of its scope and bumps
// the total, keeping cache and database counts synchronized at creation
// time. A cold scope stays cold.
func (c *CommentThreadCache) Add(ctx context.Context, payload repository.CommentPayload) {
	key := commentsKey(payload.ArticleID, payload.ParentComment)
	var state threadState
	if !c.store.Get(ctx, key, &state) {
		return
	}
	state.Total++
	if _, ok := state.Items[payload.ID]; !ok {
		state.Order = append([]int64{payload.ID}, state.Order...)
		state.Items[payload.ID] = payload
	}
	c.store.Set(ctx, key, state)
}

// Patch applies authoritative field updates to the comment row, then
// refreshes the cached payload in place when the scope is warm.
func (c *CommentThreadCache) Patch(ctx context.Context, comment *repository.CommentPayload, fields map[string]interface{}) error {
	if err := c.repo.UpdateFields(ctx, comment.ID, fields); err != nil {
		return err
	}

	fresh, err := c.repo.GetByID(ctx, comment.ID)
	if err != nil {
		return err
	}
	comment.Body = fresh.Body
	comment.Deleted = fresh.Deleted
	comment.Edited = fresh.Edited
	comment.LikesCount = fresh.LikesCount
	comment.CommentsCount = fresh.CommentsCount

	key := commentsKey(comment.ArticleID, comment.ParentComment)
	var state threadState
	if !c.store.Get(ctx, key, &state) {
		return nil
	}
	if cached, ok := state.Items[comment.ID]; ok {
		cached.Body = fresh.Body
		cached.Deleted = fresh.Deleted
		cached.Edited = fresh.Edited
		cached.LikesCount = fresh.LikesCount
		cached.CommentsCount = fresh.CommentsCount
		state.Items[comment.ID] = cached
		c.store.Set(ctx, key, state)
	}
	return nil
}
