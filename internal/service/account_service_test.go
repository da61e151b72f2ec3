package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/uniconhq/unicon-backend/internal/model"
)

func TestRegisterMatchesSchoolByEmailDomain(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	profile, err := e.accounts.Register(ctx, "student@kaist.ac.kr", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "K", profile.Initial)
	assert.False(t, profile.IsValidated)
	require.NotNil(t, profile.Tokens)
	assert.NotEmpty(t, profile.Tokens.Access)

	// The validation code went out by mail.
	require.Len(t, e.mailer.sent, 1)
	assert.Contains(t, e.mailer.sent[0], "student@kaist.ac.kr")
	assert.Contains(t, e.mailer.sent[0], "validation code")

	// Passwords are stored hashed.
	var row model.User
	require.NoError(t, e.db.Where("email = ?", "student@kaist.ac.kr").First(&row).Error)
	assert.NotEqual(t, "hunter2hunter2", row.Password)
	assert.True(t, strings.HasPrefix(row.Password, "$2"))
}

func TestRegisterRejectsUnknownDomainAndDuplicates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.accounts.Register(ctx, "someone@gmail.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrUnknownSchool)

	_, err = e.accounts.Register(ctx, "student@kaist.ac.kr", "hunter2hunter2")
	require.NoError(t, err)
	_, err = e.accounts.Register(ctx, "student@kaist.ac.kr", "different-pass")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginAndValidationFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.accounts.Register(ctx, "student@kaist.ac.kr", "hunter2hunter2")
	require.NoError(t, err)

	_, err = e.accounts.Login(ctx, "student@kaist.ac.kr", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = e.accounts.Login(ctx, "nobody@kaist.ac.kr", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unvalidated login re-sends the code but still hands out tokens.
	profile, err := e.accounts.Login(ctx, "student@kaist.ac.kr", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrNotValidated)
	require.NotNil(t, profile)
	require.NotNil(t, profile.Tokens)
	assert.Len(t, e.mailer.sent, 2)

	var row model.User
	require.NoError(t, e.db.Where("email = ?", "student@kaist.ac.kr").First(&row).Error)

	_, err = e.accounts.Validate(ctx, &row, "999999")
	assert.ErrorIs(t, err, ErrWrongCode)

	validated, err := e.accounts.Validate(ctx, &row, row.ValidationCode)
	require.NoError(t, err)
	assert.True(t, validated.IsValidated)

	profile, err = e.accounts.Login(ctx, "student@kaist.ac.kr", "hunter2hunter2")
	require.NoError(t, err)
	assert.True(t, profile.IsValidated)
}

func TestChangePassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.accounts.Register(ctx, "student@kaist.ac.kr", "hunter2hunter2")
	require.NoError(t, err)
	var row model.User
	require.NoError(t, e.db.Where("email = ?", "student@kaist.ac.kr").First(&row).Error)

	assert.ErrorIs(t, e.accounts.ChangePassword(ctx, &row, "wrong", "next-password"), ErrWrongPassword)
	assert.ErrorIs(t, e.accounts.ChangePassword(ctx, &row, "hunter2hunter2", "hunter2hunter2"), ErrSamePassword)

	require.NoError(t, e.accounts.ChangePassword(ctx, &row, "hunter2hunter2", "next-password"))
	require.NoError(t, e.db.Where("email = ?", "student@kaist.ac.kr").First(&row).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(row.Password), []byte("next-password")))
}

func TestForgotPasswordIssuesTemporaryOne(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.accounts.Register(ctx, "student@kaist.ac.kr", "hunter2hunter2")
	require.NoError(t, err)

	require.NoError(t, e.accounts.ForgotPassword(ctx, "student@kaist.ac.kr"))
	require.Len(t, e.mailer.sent, 2)

	// The mailed temporary password matches the stored hash.
	parts := strings.Split(e.mailer.sent[1], "|")
	temporary := strings.TrimPrefix(parts[2], "Your temporary UNI.CON password is: ")

	var row model.User
	require.NoError(t, e.db.Where("email = ?", "student@kaist.ac.kr").First(&row).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(row.Password), []byte(temporary)))

	assert.ErrorIs(t, e.accounts.ForgotPassword(ctx, "nobody@kaist.ac.kr"), ErrInvalidCredentials)
}

func TestUserPointsAggregation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	author := e.user(t, "a@kaist.ac.kr", e.schoolA)
	reader := e.user(t, "r@kaist.ac.kr", e.schoolA)
	a := e.post(t, author, "scored", false)

	_, err := e.articles.Retrieve(ctx, reader, a.ID, 1)
	require.NoError(t, err)
	require.NoError(t, e.articles.Like(ctx, reader, a.ID))
	c, err := e.comments.Create(ctx, reader, a.ID, "nice", nil)
	require.NoError(t, err)

	// Authored article earned views + 3*comments + 2*likes = 1 + 3 + 2.
	points, err := e.users.CurrentPoints(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), points)

	// The commenter earns from likes their comment collects on someone
	// else's article.
	require.NoError(t, e.comments.Like(ctx, author, c.ID))
	points, err = e.users.CurrentPoints(ctx, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), points)
}
