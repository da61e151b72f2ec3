package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/uniconhq/unicon-backend/internal/model"
	"github.com/uniconhq/unicon-backend/internal/repository"
)

const (
	otpEmailSubject = "UNI.CON validation code"
	otpEmailBody    = "Welcome to UNI.CON. Your validation code is: "

	forgotPasswordSubject = "UNI.CON temporary password"
	forgotPasswordBody    = "Your temporary UNI.CON password is: "
)

// UserProfile is the annotated account view returned by auth endpoints.
type UserProfile struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Points      int64      `json:"points"`
	IsValidated bool       `json:"is_validated"`
	Initial     string     `json:"initial"`
	Color       string     `json:"color"`
	Tokens      *TokenPair `json:"tokens,omitempty"`
}

// AccountService owns registration, OTP validation and password flows.
type AccountService struct {
	users  repository.UserRepository
	tokens *TokenService
	mailer EmailEnqueuer
}

// EmailEnqueuer matches the async mail queue.
type EmailEnqueuer interface {
	Enqueue(to, subject, body string)
}

func NewAccountService(users repository.UserRepository, tokens *TokenService, mailer EmailEnqueuer) *AccountService {
	return &AccountService{users: users, tokens: tokens, mailer: mailer}
}

// Register creates an account scoped to the school matching the email
// domain, and emails the validation code.
func (s *AccountService) Register(ctx context.Context, email, password string) (*UserProfile, error) {
	school, err := s.users.SchoolByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if school == nil {
		return nil, ErrUnknownSchool
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:          email,
		Password:       string(hash),
		ValidationCode: RandomValidationCode(),
		SchoolID:       school.ID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.mailer.Enqueue(email, otpEmailSubject, otpEmailBody+user.ValidationCode)

	return s.profile(ctx, user, school)
}

// Login checks credentials. An unvalidated account gets its OTP re-sent and
// ErrNotValidated alongside the profile, so the client still receives the
// tokens it needs to call the validation endpoint.
func (s *AccountService) Login(ctx context.Context, email, password string) (*UserProfile, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	school, err := s.users.GetSchool(ctx, user.SchoolID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profile(ctx, user, school)
	if err != nil {
		return nil, err
	}

	if !user.IsValidated {
		s.mailer.Enqueue(user.Email, otpEmailSubject, otpEmailBody+user.ValidationCode)
		return profile, ErrNotValidated
	}
	return profile, nil
}

// Validate confirms the OTP code and unlocks the account.
func (s *AccountService) Validate(ctx context.Context, user *model.User, code string) (*UserProfile, error) {
	if code != user.ValidationCode {
		return nil, ErrWrongCode
	}
	if err := s.users.MarkValidated(ctx, user.ID); err != nil {
		return nil, err
	}
	user.IsValidated = true

	school, err := s.users.GetSchool(ctx, user.SchoolID)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, user, school)
}

// ChangePassword swaps the password after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, user *model.User, current, next string) error {
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)) != nil {
		return ErrWrongPassword
	}
	if current == next {
		return ErrSamePassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, string(hash))
}

// ForgotPassword emails a temporary password and stores its hash.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	temporary := RandomPseudonym()
	hash, err := bcrypt.GenerateFromPassword([]byte(temporary), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	s.mailer.Enqueue(user.Email, forgotPasswordSubject, forgotPasswordBody+temporary)
	return nil
}

// GetUser loads a user row by id (used by the auth middleware).
func (s *AccountService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *AccountService) profile(ctx context.Context, user *model.User, school *model.School) (*UserProfile, error) {
	points, err := s.users.CurrentPoints(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	tokens, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &UserProfile{
		ID:          user.ID,
		Email:       user.Email,
		Points:      points,
		IsValidated: user.IsValidated,
		Initial:     school.Initial,
		Color:       school.Color,
		Tokens:      tokens,
	}, nil
}
