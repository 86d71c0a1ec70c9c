package dto

import (
	"time"

	"ai-interviewer-be/internal/entity"

	"github.com/google/uuid"
)

type CompetencyRequest struct {
	Type        entity.CompetencyType `json:"type" validate:"required"`
	Name        string                `json:"name" validate:"required,max=100"`
	Description string                `json:"description"`
	Weight      float64               `json:"weight" validate:"gt=0"`
}

type StartSessionRequest struct {
	JobTitle       string              `json:"jobTitle" validate:"required,min=1,max=255"`
	JobCompany     string              `json:"jobCompany" validate:"max=255"`
	JobDescription string              `json:"jobDescription" validate:"required,min=10"`
	UserId         *uuid.UUID          `json:"userId"`
	Competencies   []CompetencyRequest `json:"competencies" validate:"omitempty,dive"`
}

type StartSessionResponse struct {
	SessionId    uuid.UUID            `json:"sessionId"`
	Status       entity.SessionStatus `json:"status"`
	Competencies []entity.Competency  `json:"competencies"`
	CreatedAt    time.Time            `json:"createdAt"`
}

type SessionTokenRequest struct {
	SessionId uuid.UUID `json:"sessionId" validate:"required"`
}

type SessionTokenResponse struct {
	SessionToken string    `json:"sessionToken"`
	WebsocketUrl string    `json:"websocketUrl"`
	ExpiresIn    int64     `json:"expiresIn"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type FinishSessionRequest struct {
	SessionId uuid.UUID           `json:"sessionId" validate:"required"`
	Reason    entity.FinishReason `json:"reason"`
}

type FinishSessionResponse struct {
	SessionId   uuid.UUID            `json:"sessionId"`
	Status      entity.SessionStatus `json:"status"`
	CompletedAt *time.Time           `json:"completedAt"`
}

type SessionDetailResponse struct {
	Id           uuid.UUID            `json:"id"`
	UserId       *uuid.UUID           `json:"userId,omitempty"`
	JobTitle     string               `json:"jobTitle"`
	JobCompany   string               `json:"jobCompany,omitempty"`
	Status       entity.SessionStatus `json:"status"`
	Competencies []entity.Competency  `json:"competencies"`
	CreatedAt    time.Time            `json:"createdAt"`
	StartedAt    *time.Time           `json:"startedAt,omitempty"`
	CompletedAt  *time.Time           `json:"completedAt,omitempty"`
	TurnCount    int                  `json:"turnCount"`
	OverallScore *float64             `json:"overallScore"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type SessionListResponse struct {
	Sessions   []SessionDetailResponse `json:"sessions"`
	Pagination Pagination              `json:"pagination"`
}
