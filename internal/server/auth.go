package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const ownerKey = "owner_id"

// Claims is the bearer token payload.
type Claims struct {
	OwnerID int64 `json:"owner_id"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for the owner. A zero ttl means no expiry.
func IssueToken(secret []byte, ownerID int64, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("JWT secret is not set")
	}
	claims := Claims{
		OwnerID: ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  fmt.Sprint(ownerID),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// parseToken verifies a token and returns its owner id.
func parseToken(secret []byte, raw string) (int64, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}
	if !token.Valid || claims.OwnerID <= 0 {
		return 0, errors.New("token carries no owner")
	}
	return claims.OwnerID, nil
}

// requireOwner authenticates the bearer token and stores the owner id in Locals.
func requireOwner(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing token")
		}

		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		ownerID, err := parseToken(secret, strings.TrimSpace(raw))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(ownerKey, ownerID)
		return c.Next()
	}
}

func ownerID(c *fiber.Ctx) (int64, error) {
	id, ok := c.Locals(ownerKey).(int64)
	if !ok {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "missing owner")
	}
	return id, nil
}
