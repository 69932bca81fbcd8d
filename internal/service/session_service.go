package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"account-service/internal/apperr"
	"account-service/internal/events"
	"account-service/internal/model"
	"account-service/internal/password"
	"account-service/internal/repository"

	"github.com/google/uuid"
)

type TokenIssuer interface {
	IssueAccessToken(user *model.User) (string, error)
	IssueRefreshToken(userID uuid.UUID) (string, error)
	VerifyRefreshToken(token string) (uuid.UUID, error)
}

type LoginInput struct {
	Email    string
	Username string
	Password string
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type LoginResult struct {
	User *model.SafeUser
	TokenPair
}

type SessionService interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	Refresh(ctx context.Context, incomingRefreshToken string) (*TokenPair, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (*model.SafeUser, error)
}

type sessionService struct {
	userRepo  repository.UserRepository
	hasher    password.Hasher
	issuer    TokenIssuer
	publisher events.EventPublisher
}

func NewSessionService(
	userRepo repository.UserRepository,
	hasher password.Hasher,
	issuer TokenIssuer,
	publisher events.EventPublisher,
) SessionService {
	return &sessionService{
		userRepo:  userRepo,
		hasher:    hasher,
		issuer:    issuer,
		publisher: publisher,
	}
}

func (s *sessionService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(input.Email)
	username := strings.ToLower(strings.TrimSpace(input.Username))

	if email == "" && username == "" {
		return nil, apperr.Auth("Username or email is required", nil)
	}

	user, err := s.userRepo.FindByEmailOrUsername(ctx, email, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("User does not exist")
		}
		return nil, apperr.Internal("Failed to look up user", err)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		slog.InfoContext(ctx, "Login rejected: invalid credentials", slog.String("user_id", user.ID.String()))
		return nil, apperr.Auth("Invalid user credentials", nil)
	}

	pair, err := s.issueAndStoreTokens(ctx, user)
	if err != nil {
		return nil, apperr.Internal("Something went wrong while generating tokens", err)
	}

	loggedIn, err := s.userRepo.FindSafeByID(ctx, user.ID)
	if err != nil {
		return nil, apperr.Internal("Failed to load user", err)
	}

	if err := s.publisher.PublishUserLoggedIn(user.ID); err != nil {
		slog.WarnContext(ctx, "Failed to publish login event", slog.String("user_id", user.ID.String()), slog.String("error", err.Error()))
	}

	slog.InfoContext(ctx, "User logged in", slog.String("user_id", user.ID.String()))

	return &LoginResult{User: loggedIn.Safe(), TokenPair: *pair}, nil
}

func (s *sessionService) Logout(ctx context.Context, userID uuid.UUID) error {
	err := s.userRepo.UnsetRefreshToken(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			slog.WarnContext(ctx, "Logout for unknown user, nothing to clear", slog.String("user_id", userID.String()))
			return nil
		}
		return apperr.Internal("Failed to log out", err)
	}

	if err := s.publisher.PublishUserLoggedOut(userID); err != nil {
		slog.WarnContext(ctx, "Failed to publish logout event", slog.String("user_id", userID.String()), slog.String("error", err.Error()))
	}

	slog.InfoContext(ctx, "User logged out", slog.String("user_id", userID.String()))

	return nil
}

// Refresh rotates the session. Every failure, expected or not, is reported as an auth error.
func (s *sessionService) Refresh(ctx context.Context, incomingRefreshToken string) (pair *TokenPair, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Recovered during token refresh", slog.Any("panic", r))
			pair, err = nil, apperr.Auth("Invalid refresh token", fmt.Errorf("panic: %v", r))
		}
	}()

	if strings.TrimSpace(incomingRefreshToken) == "" {
		return nil, apperr.Auth("Unauthorized request", nil)
	}

	userID, err := s.issuer.VerifyRefreshToken(incomingRefreshToken)
	if err != nil {
		return nil, apperr.Auth("Invalid refresh token", err)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Auth("Invalid refresh token", err)
	}

	if user.RefreshToken == nil ||
		subtle.ConstantTimeCompare([]byte(incomingRefreshToken), []byte(*user.RefreshToken)) != 1 {
		slog.WarnContext(ctx, "Refresh token does not match the active session", slog.String("user_id", userID.String()))
		return nil, apperr.Auth("Refresh token is expired or used", nil)
	}

	pair, err = s.issueAndStoreTokens(ctx, user)
	if err != nil {
		return nil, apperr.Auth("Invalid refresh token", err)
	}

	if err := s.publisher.PublishTokenRefreshed(user.ID); err != nil {
		slog.WarnContext(ctx, "Failed to publish refresh event", slog.String("user_id", user.ID.String()), slog.String("error", err.Error()))
	}

	return pair, nil
}

func (s *sessionService) CurrentUser(ctx context.Context, userID uuid.UUID) (*model.SafeUser, error) {
	user, err := s.userRepo.FindSafeByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("User does not exist")
		}
		return nil, apperr.Internal("Failed to load user", err)
	}
	return user.Safe(), nil
}

// issueAndStoreTokens signs a new pair and overwrites the stored refresh token.
func (s *sessionService) issueAndStoreTokens(ctx context.Context, user *model.User) (*TokenPair, error) {
	accessToken, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.issuer.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	if err := s.userRepo.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
