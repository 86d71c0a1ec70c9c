package service

import (
	"fmt"
	"time"

	"ai-interviewer-be/internal/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionTokenType = "session"

type SessionClaims struct {
	SessionId uuid.UUID
	UserId    *uuid.UUID
	ExpiresAt time.Time
}

type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	ExpiresIn time.Duration
}

// ITokenService issues and verifies session-scoped realtime credentials.
// They are signed with a secret distinct from the access-token secret.
type ITokenService interface {
	Issue(sessionId uuid.UUID, userId *uuid.UUID) (*IssuedToken, error)
	Verify(token string) (*SessionClaims, error)
}

type TokenServiceConfig struct {
	Secret   string
	TTL      time.Duration
	Issuer   string
	Audience string
}

type tokenService struct {
	cfg TokenServiceConfig
	now func() time.Time
}

func NewTokenService(cfg TokenServiceConfig) ITokenService {
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "interviewer-api"
	}
	if cfg.Audience == "" {
		cfg.Audience = "interviewer-realtime"
	}
	return &tokenService{cfg: cfg, now: time.Now}
}

func (s *tokenService) Issue(sessionId uuid.UUID, userId *uuid.UUID) (*IssuedToken, error) {
	if s.cfg.Secret == "" {
		return nil, fmt.Errorf("session token secret is not configured")
	}
	now := s.now()
	expiresAt := now.Add(s.cfg.TTL)

	claims := jwt.MapClaims{
		"sessionId": sessionId.String(),
		"type":      sessionTokenType,
		"iss":       s.cfg.Issuer,
		"aud":       s.cfg.Audience,
		"iat":       now.Unix(),
		"exp":       expiresAt.Unix(),
	}
	if userId != nil {
		claims["userId"] = userId.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &IssuedToken{Token: signed, ExpiresAt: time.Unix(expiresAt.Unix(), 0).UTC(), ExpiresIn: s.cfg.TTL}, nil
}

func (s *tokenService) Verify(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, apperror.New(apperror.ErrInvalidSessionToken, "invalid or expired session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperror.ErrInvalidSessionToken
	}
	if t, _ := claims["type"].(string); t != sessionTokenType {
		return nil, apperror.New(apperror.ErrInvalidSessionToken, "token is not a session token")
	}

	raw, _ := claims["sessionId"].(string)
	sessionId, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperror.New(apperror.ErrInvalidSessionToken, "token carries no session")
	}

	res := &SessionClaims{SessionId: sessionId}
	if rawUser, ok := claims["userId"].(string); ok && rawUser != "" {
		userId, err := uuid.Parse(rawUser)
		if err != nil {
			return nil, apperror.New(apperror.ErrInvalidSessionToken, "token carries a malformed user id")
		}
		res.UserId = &userId
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		res.ExpiresAt = exp.Time.UTC()
	}
	return res, nil
}
