// Package models defines the domain entities, request/response payloads,
// and sentinel errors shared between the storage, service, and HTTP layers.
package models

import "time"

// Visit is a single recorded redirect through a short URL.
type Visit struct {
	VisitorID string    `json:"visitor_id"`
	VisitedAt time.Time `json:"visited_at"`
}

// ShortURLEntry is a registered short URL together with its ownership
// and visit analytics. VisitCount always equals len(VisitLog), and every
// member of UniqueVisitors appears in VisitLog.
type ShortURLEntry struct {
	ID             string
	LongURL        string
	OwnerID        string
	VisitCount     int
	UniqueVisitors map[string]struct{}
	VisitLog       []Visit
}

// RegisterRequest is the payload for creating a new account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the payload for authenticating an existing account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type ShortenRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type ShortenResponse struct {
	Result string `json:"result"`
}

// UpdateURLRequest replaces the long URL behind an existing short id.
type UpdateURLRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// UserURL pairs a short URL with the original it points to.
type UserURL struct {
	ShortURL    string `json:"short_url"`
	OriginalURL string `json:"original_url"`
}

type UserUrls []UserURL

// URLStatsResponse is the per-entry visit analytics view.
type URLStatsResponse struct {
	ShortURL       string  `json:"short_url"`
	OriginalURL    string  `json:"original_url"`
	VisitCount     int     `json:"visit_count"`
	UniqueVisitors int     `json:"unique_visitors"`
	Visits         []Visit `json:"visits"`
}

// InternalStatsResponse is served to the trusted subnet only.
type InternalStatsResponse struct {
	URLs  int `json:"urls"`
	Users int `json:"users"`
}

// URLFormatter turns a short key into an absolute short URL.
type URLFormatter func(short string) string
