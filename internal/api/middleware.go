package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"account-service/internal/apperr"
	"account-service/internal/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
	userIDLocal        = "userID"
)

var (
	httpRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of http request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)
)

type AccessTokenVerifier interface {
	VerifyAccessToken(token string) (*jwt.AccessClaims, error)
}

// AuthMiddleware accepts the access token from the accessToken cookie or a Bearer header.
func AuthMiddleware(verifier AccessTokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(accessTokenCookie)

		if tokenString == "" {
			authHeader := c.Get(fiber.HeaderAuthorization)
			if authHeader == "" {
				return apperr.Auth("Unauthorized request", nil)
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return apperr.Auth("Invalid authorization header format", nil)
			}
			tokenString = parts[1]
		}

		claims, err := verifier.VerifyAccessToken(tokenString)
		if err != nil {
			if errors.Is(err, jwtv5.ErrTokenExpired) {
				return apperr.Auth("Access token has expired", err)
			}
			return apperr.Auth("Invalid access token", err)
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return apperr.Auth("Invalid user ID format in token", err)
		}

		c.Locals(userIDLocal, userID)

		return c.Next()
	}
}

func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := c.Locals(userIDLocal).(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("user id not found in request context")
	}
	return userID, nil
}

func RateLimiter(max int, expiration time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later.")
		},
	})
}

func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start).Seconds()
		statusCode := c.Response().StatusCode()

		if err != nil {
			var appErr *apperr.Error
			var e *fiber.Error

			switch {
			case errors.As(err, &appErr):
				statusCode = appErr.Status()
			case errors.As(err, &e):
				statusCode = e.Code
			default:
				statusCode = fiber.StatusInternalServerError
			}
		}

		method := c.Method()
		path := c.Route().Path
		statusStr := fmt.Sprintf("%d", statusCode)

		httpRequestTotal.WithLabelValues(method, path, statusStr).Inc()
		httpRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration)

		return err
	}
}
