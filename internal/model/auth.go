package model

import "github.com/golang-jwt/jwt/v5"

// ParticipantClaims are JWT claims for participant authentication
type ParticipantClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenRequest is the request body for participant token exchange
type TokenRequest struct {
	ParticipantID string `json:"participantId" validate:"required,max=128"`
	StudyCode     string `json:"studyCode" validate:"required"`
}

// TokenResponse is returned after a successful exchange
type TokenResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	ExpiresAt int64  `json:"expiresAt"`
}
