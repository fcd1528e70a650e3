package service

import (
	"cfstudy/internal/model"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid participant id or study code")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthService issues and validates participant tokens
type AuthService struct {
	studyCode []byte
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(jwtSecret, studyCode string, ttl time.Duration) *AuthService {
	return &AuthService{
		studyCode: []byte(studyCode),
		jwtSecret: []byte(jwtSecret),
		ttl:       ttl,
		now:       time.Now,
	}
}

// IssueToken exchanges a participant id and the shared study code for a token
func (s *AuthService) IssueToken(participantID, studyCode string) (*model.TokenResponse, error) {
	if participantID == "" || subtle.ConstantTimeCompare([]byte(studyCode), s.studyCode) != 1 {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := &model.ParticipantClaims{
		UserID: participantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   participantID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.TokenResponse{
		Token:     tokenString,
		UserID:    participantID,
		ExpiresAt: expires.Unix(),
	}, nil
}

// ValidateToken validates a participant JWT and returns claims
func (s *AuthService) ValidateToken(tokenString string) (*model.ParticipantClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.ParticipantClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.ParticipantClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
