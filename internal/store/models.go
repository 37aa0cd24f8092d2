package store

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type AdminUser struct {
	ID           string
	Username     string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionRecord is the server-side half of an admin session cookie.
type SessionRecord struct {
	UserID    string
	Role      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Treatment struct {
	ID          string
	Slug        string
	Title       string
	Summary     string
	Description string
	Category    string
	ImageURL    string
	SortOrder   int
	Published   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type FAQ struct {
	ID        string
	Question  string
	Answer    string
	Category  string
	SortOrder int
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Notice struct {
	ID          string
	Title       string
	Body        string
	Pinned      bool
	Published   bool
	PublishedAt *time.Time
	ViewCount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type MarqueeItem struct {
	ID        string
	Text      string
	LinkURL   string
	SortOrder int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type HeroImage struct {
	ID        string
	ImageURL  string
	AltText   string
	LinkURL   string
	SortOrder int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PageHeading struct {
	PageKey   string
	Title     string
	Subtitle  string
	UpdatedBy string
	UpdatedAt time.Time
}

type PageHero struct {
	PageKey        string
	ImageURL       string
	Title          string
	Subtitle       string
	OverlayOpacity float64
	UpdatedBy      string
	UpdatedAt      time.Time
}

type Equipment struct {
	ID           string
	Name         string
	Description  string
	Manufacturer string
	ImageURL     string
	SortOrder    int
	Published    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Article struct {
	ID           string
	Slug         string
	Title        string
	Summary      string
	Body         string
	Category     string
	ThumbnailURL string
	Published    bool
	PublishedAt  *time.Time
	UpdatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Image struct {
	ID           string
	ObjectKey    string
	URL          string
	ContentType  string
	SizeBytes    int64
	OriginalName string
	AltText      string
	UploadedBy   string
	CreatedAt    time.Time
}

type AuditEntry struct {
	ID         int64
	ActorID    string
	ActorName  string
	Action     string
	EntityType string
	EntityID   string
	Summary    string
	Payload    json.RawMessage
	IPAddress  string
	UserAgent  string
	RequestID  string
	CreatedAt  time.Time
}

type AuditFilter struct {
	EntityType string
	EntityID   string
	Actor      string
	Action     string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// LegacySetting is one JSON blob from the pre-CMS settings table.
type LegacySetting struct {
	Key        string
	Value      json.RawMessage
	MigratedAt *time.Time
}

type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
}

type ListOptions struct {
	PublishedOnly bool
	Category      string
	Limit         int
	Offset        int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Normalize clamps Limit and Offset into their allowed ranges.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
