package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrUnknownSchool      = errors.New("no school matches the email address")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNotValidated       = errors.New("account not validated")
	ErrWrongCode          = errors.New("the validation code is incorrect")
	ErrSamePassword       = errors.New("the new password is the same as the old one")
	ErrWrongPassword      = errors.New("the current password is incorrect")

	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrDeleted      = errors.New("the content is deleted")
	ErrEmptyContent = errors.New("the title or body is empty")
	ErrUniconCourse = errors.New("an article with course codes cannot be unicon")
	ErrCommentDepth = errors.New("replies to nested comments are not allowed")

	// ErrNotModified reports an idempotent no-op: already liked, already
	// unliked, already saved.
	ErrNotModified = errors.New("not modified")
)
