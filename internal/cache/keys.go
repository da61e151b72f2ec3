package cache

import "fmt"

// Key builders. A listing scope key is (school, view name, optional
// identifier) so each school sees its own snapshot of every listing.

func ArticleKey(id int64) string { return fmt.Sprintf("article:%d", id) }

func ArticleListKey(schoolID int64, view string) string {
	return fmt.Sprintf("articles:%d:%s", schoolID, view)
}

func ArticleListKeyFor(schoolID int64, view, identifier string) string {
	return fmt.Sprintf("articles:%d:%s:%s", schoolID, view, identifier)
}

func userIndexKey(kind string, userID int64) string {
	return fmt.Sprintf("user:%d:%s", userID, kind)
}

func commentsKey(articleID int64, parentID *int64) string {
	if parentID == nil {
		return fmt.Sprintf("comments:%d:", articleID)
	}
	return fmt.Sprintf("comments:%d:%d", articleID, *parentID)
}

func notificationsKey(userID int64, unread bool) string {
	if unread {
		return fmt.Sprintf("notifications:%d:new", userID)
	}
	return fmt.Sprintf("notifications:%d:old", userID)
}

func notificationCounterKey(userID int64) string {
	return fmt.Sprintf("notifications:%d:unacked", userID)
}
