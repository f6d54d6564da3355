package dto

import (
	"time"

	"github.com/google/uuid"
)

type StartSessionRequest struct {
	DeviceInfo string `json:"device_info"`
	OSVersion  string `json:"os_version"`
}

type StartSessionResponse struct {
	Id        uuid.UUID `json:"id"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

type ShowSessionResponse struct {
	Id         uuid.UUID  `json:"id"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at"`
	DeviceInfo string     `json:"device_info"`
	OSVersion  string     `json:"os_version"`
}

type ListSessionsResponse struct {
	Sessions []ShowSessionResponse `json:"sessions"`

	// Excluded counts records left out because their encrypted fields
	// failed authentication.
	Excluded int `json:"excluded,omitempty"`
}

type EndSessionResponse struct {
	Id      uuid.UUID  `json:"id"`
	EndedAt *time.Time `json:"ended_at"`
}
