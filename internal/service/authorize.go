package service

import (
	"github.com/uniconhq/unicon-backend/internal/model"
)

// Action names an operation a user wants to perform on a resource.
type Action string

const (
	ActionRetrieve Action = "retrieve"
	ActionModify   Action = "modify"
	ActionLike     Action = "like"
	ActionComment  Action = "comment"
)

// AuthorizeArticle is the explicit per-endpoint rule set: modification is
// author-only; reading, liking and commenting require the reader's school
// to match the author's, unless the article is unicon.
func AuthorizeArticle(user *model.User, article *model.Article, authorSchoolID int64, action Action) error {
	switch action {
	case ActionModify:
		if article.UserID != user.ID {
			return ErrForbidden
		}
		return nil
	case ActionRetrieve, ActionLike, ActionComment:
		if article.Unicon {
			return nil
		}
		if authorSchoolID == user.SchoolID {
			return nil
		}
		// Cross-school articles are invisible, not merely forbidden.
		return ErrNotFound
	}
	return ErrForbidden
}
