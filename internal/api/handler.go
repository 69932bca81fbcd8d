package api

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"account-service/internal/apperr"
	"account-service/internal/model"
	"account-service/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CookieOptions struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type AuthHandler struct {
	registration service.RegistrationService
	sessions     service.SessionService
	validate     *validator.Validate
	uploadDir    string
	cookies      CookieOptions
}

func NewAuthHandler(
	registration service.RegistrationService,
	sessions service.SessionService,
	uploadDir string,
	cookies CookieOptions,
) *AuthHandler {
	return &AuthHandler{
		registration: registration,
		sessions:     sessions,
		validate:     validator.New(),
		uploadDir:    uploadDir,
		cookies:      cookies,
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"max=254"`
	Username string `json:"userName" validate:"max=64"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User         *model.SafeUser `json:"user"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	avatarPath, err := h.saveUpload(c, "avatar")
	if err != nil {
		return err
	}
	coverImagePath, err := h.saveUpload(c, "coverImage")
	if err != nil {
		removeLocal(avatarPath)
		return err
	}
	defer removeLocal(avatarPath, coverImagePath)

	user, err := h.registration.Register(c.UserContext(), service.RegisterInput{
		FullName:       c.FormValue("fullName"),
		Email:          c.FormValue("email"),
		Username:       c.FormValue("userName"),
		Password:       c.FormValue("password"),
		AvatarPath:     avatarPath,
		CoverImagePath: coverImagePath,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(NewApiResponse(fiber.StatusOK, user, "User registered successfully"))
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var request LoginRequest

	if err := c.BodyParser(&request); err != nil {
		return apperr.Validation("Cannot parse request body")
	}

	if err := h.validate.Struct(&request); err != nil {
		return apperr.Auth("Invalid user credentials", err)
	}

	result, err := h.sessions.Login(c.UserContext(), service.LoginInput{
		Email:    request.Email,
		Username: request.Username,
		Password: request.Password,
	})
	if err != nil {
		return err
	}

	h.setAuthCookies(c, result.TokenPair)

	return c.Status(fiber.StatusOK).JSON(NewApiResponse(fiber.StatusOK, LoginResponse{
		User:         result.User,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}, "User logged in successfully"))
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Auth("Unauthorized request", err)
	}

	if err := h.sessions.Logout(c.UserContext(), userID); err != nil {
		return err
	}

	h.clearAuthCookies(c)

	return c.Status(fiber.StatusOK).JSON(NewApiResponse(fiber.StatusOK, fiber.Map{}, "User logged out"))
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	incoming := c.Cookies(refreshTokenCookie)

	if incoming == "" && len(c.Body()) > 0 {
		var req RefreshRequest
		if err := c.BodyParser(&req); err == nil {
			incoming = req.RefreshToken
		}
	}

	pair, err := h.sessions.Refresh(c.UserContext(), incoming)
	if err != nil {
		return err
	}

	h.setAuthCookies(c, *pair)

	return c.Status(fiber.StatusOK).JSON(NewApiResponse(fiber.StatusOK, pair, "Access token refreshed"))
}

func (h *AuthHandler) CurrentUser(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return apperr.Auth("Unauthorized request", err)
	}

	user, err := h.sessions.CurrentUser(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(NewApiResponse(fiber.StatusOK, user, "Current user fetched successfully"))
}

// saveUpload writes the first file of a multipart field into the upload dir.
// An absent field yields an empty path.
func (h *AuthHandler) saveUpload(c *fiber.Ctx, field string) (string, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil || fileHeader == nil {
		return "", nil
	}

	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		return "", apperr.Internal("Failed to prepare upload directory", err)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	localPath := filepath.Join(h.uploadDir, uuid.NewString()+ext)

	if err := c.SaveFile(fileHeader, localPath); err != nil {
		return "", apperr.Internal("Failed to store uploaded file", err)
	}

	return localPath, nil
}

func removeLocal(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Failed to remove temporary upload", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
}

func (h *AuthHandler) setAuthCookies(c *fiber.Ctx, pair service.TokenPair) {
	now := time.Now()
	c.Cookie(h.cookie(accessTokenCookie, pair.AccessToken, now.Add(h.cookies.AccessTTL)))
	c.Cookie(h.cookie(refreshTokenCookie, pair.RefreshToken, now.Add(h.cookies.RefreshTTL)))
}

func (h *AuthHandler) clearAuthCookies(c *fiber.Ctx) {
	c.Cookie(h.cookie(accessTokenCookie, "", time.Unix(0, 0)))
	c.Cookie(h.cookie(refreshTokenCookie, "", time.Unix(0, 0)))
}

func (h *AuthHandler) cookie(name, value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
