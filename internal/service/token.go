package service

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/snapfood/internal/models"
)

const tokenLeeway = 5 * time.Second

// sessionClaims — общие claims access- и refresh-токенов.
// ID (jti) случаен, поэтому два токена, выданных в одну секунду, различаются.
// По jti refresh-токена хэш в БД остаётся уникальным.
type sessionClaims struct {
	UserID string      `json:"userId"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// issueAccessToken подписывает access-токен секретом доступа.
func (s *Service) issueAccessToken(userID uuid.UUID, role models.Role, now time.Time) (string, time.Time, error) {
	const op = "service.token.issueAccessToken"

	exp := now.Add(s.cfg.AccessTokenTTL)
	signed, err := sign(s.cfg.AccessSecret, sessionClaims{
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp, nil
}

// issueRefreshToken подписывает refresh-токен отдельным секретом.
func (s *Service) issueRefreshToken(userID uuid.UUID, role models.Role, jti uuid.UUID, now time.Time) (string, time.Time, error) {
	const op = "service.token.issueRefreshToken"

	exp := now.Add(s.cfg.RefreshTokenTTL)
	signed, err := sign(s.cfg.RefreshSecret, sessionClaims{
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   userID.String(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp, nil
}

// ParseAccessToken проверяет access-токен и возвращает principal.
// Используется middleware аутентификации.
func (s *Service) ParseAccessToken(token string) (*models.Principal, error) {
	const op = "service.token.ParseAccessToken"

	claims, err := s.parse(s.cfg.AccessSecret, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return principal(claims)
}

// parseRefreshToken проверяет подпись и срок refresh-токена.
func (s *Service) parseRefreshToken(token string) (*models.Principal, error) {
	const op = "service.token.parseRefreshToken"

	claims, err := s.parse(s.cfg.RefreshSecret, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return principal(claims)
}

func (s *Service) parse(secret, token string) (*sessionClaims, error) {
	if secret == "" {
		return nil, ErrSigningKeyMissing
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}

		return nil, ErrInvalidToken
	}

	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func sign(secret string, claims sessionClaims) (string, error) {
	if secret == "" {
		return "", ErrSigningKeyMissing
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func principal(c *sessionClaims) (*models.Principal, error) {
	uid, err := uuid.Parse(c.UserID)
	if err != nil || c.Subject != c.UserID || !c.Role.Valid() {
		return nil, ErrInvalidToken
	}

	return &models.Principal{UserID: uid, Role: c.Role}, nil
}

// hashToken — sha256 → base64url; в БД и кэше хранится только хэш.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
