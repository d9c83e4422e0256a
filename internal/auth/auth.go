// Package auth issues and verifies the bearer tokens used by the API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/shalset/barcode-backend/internal/models"
	"github.com/shalset/barcode-backend/internal/store"
)

var (
	// ErrInvalidCredentials is returned when the username or password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned when a bearer token is missing, malformed or expired.
	ErrInvalidToken = errors.New("invalid token")
)

// userContextKey is where the middleware stores the authenticated user
// on the echo context.
const userContextKey = "auth.user"

// Claims is the JWT payload.
type Claims struct {
	Username string `json:"username"`
	jwt.StandardClaims
}

// Service authenticates users against the store and mints HS256 tokens.
type Service struct {
	store  store.Store
	secret []byte
	ttl    time.Duration
}

// NewService creates an auth service. ttl bounds token lifetime.
func NewService(st store.Store, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{store: st, secret: []byte(secret), ttl: ttl}
}

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// Login verifies the credentials and returns a signed token plus the user.
func (s *Service) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("loading user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := s.store.TouchLastLogin(ctx, user.ID); err != nil {
		fmt.Printf("[Auth] failed to record last login for %s: %v\n", user.Username, err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *Service) issueToken(user *models.User) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Username: user.Username,
		StandardClaims: jwt.StandardClaims{
			Subject:   user.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the signature and expiry and returns the claims.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Middleware authenticates the request from its Authorization header
// and stores the user on the context.
func (s *Service) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := extractBearer(c.Request().Header.Get("Authorization"))
			if tokenString == "" {
				// Browser WebSocket clients cannot set headers.
				tokenString = c.QueryParam("token")
			}
			if tokenString == "" {
				return echo.NewHTTPError(401, "missing bearer token")
			}
			claims, err := s.ParseToken(tokenString)
			if err != nil {
				return echo.NewHTTPError(401, "invalid or expired token")
			}
			user, err := s.store.GetUserByID(c.Request().Context(), claims.Subject)
			if errors.Is(err, store.ErrNotFound) {
				return echo.NewHTTPError(401, "unknown user")
			}
			if err != nil {
				return fmt.Errorf("loading token user: %w", err)
			}
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user the middleware attached, or nil outside
// an authenticated route.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}

// SetTestUser attaches a user to the context directly. Handler tests
// use it to skip the token round trip.
func SetTestUser(c echo.Context, user *models.User) {
	c.Set(userContextKey, user)
}

func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
