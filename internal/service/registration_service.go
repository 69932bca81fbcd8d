package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"account-service/internal/apperr"
	"account-service/internal/events"
	"account-service/internal/media"
	"account-service/internal/model"
	"account-service/internal/password"
	"account-service/internal/repository"

	"github.com/go-playground/validator/v10"
)

type RegisterInput struct {
	FullName string `validate:"required"`
	Email    string `validate:"required,email"`
	Username string `validate:"required"`
	Password string `validate:"required"`
	// Local file references produced by the multipart handler. Empty means absent.
	AvatarPath     string
	CoverImagePath string
}

type RegistrationService interface {
	Register(ctx context.Context, input RegisterInput) (*model.SafeUser, error)
}

type registrationService struct {
	userRepo  repository.UserRepository
	hasher    password.Hasher
	uploader  media.Uploader
	publisher events.EventPublisher
	validate  *validator.Validate
}

func NewRegistrationService(
	userRepo repository.UserRepository,
	hasher password.Hasher,
	uploader media.Uploader,
	publisher events.EventPublisher,
) RegistrationService {
	return &registrationService{
		userRepo:  userRepo,
		hasher:    hasher,
		uploader:  uploader,
		publisher: publisher,
		validate:  validator.New(),
	}
}

func (s *registrationService) Register(ctx context.Context, input RegisterInput) (*model.SafeUser, error) {
	input = normalizeRegisterInput(input)

	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	_, err := s.userRepo.FindByEmailOrUsername(ctx, input.Email, input.Username)
	switch {
	case err == nil:
		return nil, apperr.Conflict("User with this email or username already exists")
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, apperr.Internal("Failed to check existing users", err)
	}

	if input.AvatarPath == "" {
		return nil, apperr.Validation("Avatar file is required")
	}

	avatar, err := s.uploader.Upload(ctx, input.AvatarPath)
	if err != nil || avatar == nil || avatar.URL == "" {
		return nil, apperr.Upload("Failed to upload avatar", err)
	}

	coverImageURL := ""
	if input.CoverImagePath != "" {
		cover, err := s.uploader.Upload(ctx, input.CoverImagePath)
		if err != nil || cover == nil {
			slog.WarnContext(ctx, "Cover image upload failed, storing empty cover image", slog.Any("error", err))
		} else {
			coverImageURL = cover.URL
		}
	}

	hashedPassword, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperr.Internal("Failed to secure password", err)
	}

	newID, err := s.userRepo.Create(ctx, &model.User{
		FullName:     input.FullName,
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hashedPassword,
		Avatar:       avatar.URL,
		CoverImage:   coverImageURL,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, apperr.Conflict("User with this email or username already exists")
		}
		return nil, apperr.Internal("Failed to create user", err)
	}

	created, err := s.userRepo.FindSafeByID(ctx, newID)
	if err != nil {
		slog.ErrorContext(ctx, "Created user could not be read back", slog.String("user_id", newID.String()), slog.String("error", err.Error()))
		return nil, apperr.Internal("Something went wrong while registering the user", err)
	}

	if err := s.publisher.PublishUserRegistered(created.ID, created.Username); err != nil {
		slog.WarnContext(ctx, "Failed to publish registration event", slog.String("user_id", created.ID.String()), slog.String("error", err.Error()))
	}

	slog.InfoContext(ctx, "User registered", slog.String("user_id", created.ID.String()))

	return created.Safe(), nil
}

// normalizeRegisterInput trims identity fields and lowercases the username.
// The password is kept verbatim; only its emptiness is judged after trimming.
func normalizeRegisterInput(in RegisterInput) RegisterInput {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.AvatarPath = strings.TrimSpace(in.AvatarPath)
	in.CoverImagePath = strings.TrimSpace(in.CoverImagePath)
	return in
}

func (s *registrationService) validateInput(in RegisterInput) error {
	if strings.TrimSpace(in.Password) == "" {
		return apperr.Validation("All fields are required: fullName, email, userName, password")
	}

	err := s.validate.Struct(&in)
	if err == nil {
		if len(in.Password) > password.MaxBytes {
			return apperr.Validation("Password must not exceed 72 bytes")
		}
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			if fe.Tag() == "required" {
				return apperr.Validation("All fields are required: fullName, email, userName, password")
			}
		}
		return apperr.Validation("Email address is invalid")
	}

	return apperr.Internal("Failed to validate input", err)
}
