package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"quiz-app-service/internal/auth"
	"quiz-app-service/internal/domain"
	"quiz-app-service/internal/logger"

	"github.com/google/uuid"
)

// RegisterInput is the payload of a sign-up.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// ProfileInput carries the profile fields to change; nil keeps the current value.
type ProfileInput struct {
	Username       *string
	Email          *string
	ProfilePicture *string
}

// AuthService handles accounts, tokens and sessions.
type AuthService struct {
	users    UserRepository
	sessions SessionStore
	tokens   *auth.Issuer
	avatars  AvatarStorage
	now      func() time.Time
}

func NewAuthService(users UserRepository, sessions SessionStore, tokens *auth.Issuer, avatars AvatarStorage) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		avatars:  avatars,
		now:      time.Now,
	}
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.User, string, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" {
		return domain.User{}, "", domain.NewValidationError("username", "is required")
	}
	if err := validateEmail(email); err != nil {
		return domain.User{}, "", err
	}
	if in.Password == "" {
		return domain.User{}, "", domain.NewValidationError("password", "is required")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, "", err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Stats:        domain.UserStats{CategoryPerformance: map[string]domain.CategoryPerformance{}},
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return domain.User{}, "", err
	}
	token, err := s.issue(ctx, user.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	logger.FromContext(ctx).WithField("user_id", user.ID).Info("user registered")
	return user, token, nil
}

// Login accepts a username or an email together with the password.
func (s *AuthService) Login(ctx context.Context, login, password string) (domain.User, string, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	user, err := s.users.GetUserByLogin(ctx, login)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	token, err := s.issue(ctx, user.ID)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Authenticate resolves a bearer token to the caller. Any failure is ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (Actor, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	userID, ok, err := s.sessions.Lookup(ctx, claims.ID)
	if err != nil {
		return Actor{}, err
	}
	if !ok || userID != claims.Subject {
		return Actor{}, domain.ErrUnauthorized
	}
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return Actor{}, domain.ErrUnauthorized
	}
	if err != nil {
		return Actor{}, err
	}
	return Actor{UserID: user.ID, IsAdmin: user.IsAdmin, TokenID: claims.ID}, nil
}

// Current returns the caller's account with stats.
func (s *AuthService) Current(ctx context.Context, actor Actor) (domain.User, error) {
	if err := requireUser(actor); err != nil {
		return domain.User{}, err
	}
	return s.users.GetUser(ctx, actor.UserID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, actor Actor, in ProfileInput) (domain.User, error) {
	if err := requireUser(actor); err != nil {
		return domain.User{}, err
	}
	user, err := s.users.GetUser(ctx, actor.UserID)
	if err != nil {
		return domain.User{}, err
	}
	if in.Username != nil && strings.TrimSpace(*in.Username) != "" {
		user.Username = strings.TrimSpace(*in.Username)
	}
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		email := strings.TrimSpace(*in.Email)
		if err := validateEmail(email); err != nil {
			return domain.User{}, err
		}
		user.Email = email
	}
	if in.ProfilePicture != nil && *in.ProfilePicture != "" {
		user.ProfilePicture = *in.ProfilePicture
	}
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, actor Actor, current, next string) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if next == "" {
		return domain.NewValidationError("newPassword", "is required")
	}
	user, err := s.users.GetUser(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, current) {
		return domain.ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, hash)
}

// Logout revokes the session of the token the caller presented.
func (s *AuthService) Logout(ctx context.Context, actor Actor) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	return s.sessions.Revoke(ctx, actor.TokenID)
}

// UploadAvatar stores an image and makes it the caller's profile picture.
func (s *AuthService) UploadAvatar(ctx context.Context, actor Actor, body io.Reader, size int64, contentType string) (domain.User, error) {
	if err := requireUser(actor); err != nil {
		return domain.User{}, err
	}
	if s.avatars == nil {
		return domain.User{}, domain.ErrStorageDisabled
	}
	if !strings.HasPrefix(contentType, "image/") {
		return domain.User{}, domain.NewValidationError("avatar", "must be an image")
	}
	url, err := s.avatars.UploadAvatar(ctx, actor.UserID, body, size, contentType)
	if err != nil {
		return domain.User{}, err
	}
	return s.UpdateProfile(ctx, actor, ProfileInput{ProfilePicture: &url})
}

func (s *AuthService) issue(ctx context.Context, userID string) (string, error) {
	token, tokenID, err := s.tokens.Issue(userID)
	if err != nil {
		return "", err
	}
	if err := s.sessions.Create(ctx, tokenID, userID, s.tokens.TTL()); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

func validateEmail(email string) error {
	if email == "" {
		return domain.NewValidationError("email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.NewValidationError("email", "is not a valid address")
	}
	return nil
}
