package app

import (
	"time"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
)

type TreatmentView struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"imageUrl"`
	SortOrder   int       `json:"sortOrder"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func treatmentView(t store.Treatment) TreatmentView {
	return TreatmentView{
		ID: t.ID, Slug: t.Slug, Title: t.Title, Summary: t.Summary, Description: t.Description,
		Category: t.Category, ImageURL: t.ImageURL, SortOrder: t.SortOrder, Published: t.Published,
		CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
}

type FAQView struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Category  string    `json:"category"`
	SortOrder int       `json:"sortOrder"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func faqView(f store.FAQ) FAQView {
	return FAQView{
		ID: f.ID, Question: f.Question, Answer: f.Answer, Category: f.Category,
		SortOrder: f.SortOrder, Published: f.Published, CreatedAt: f.CreatedAt, UpdatedAt: f.UpdatedAt,
	}
}

type NoticeView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Pinned      bool       `json:"pinned"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"publishedAt"`
	ViewCount   int        `json:"viewCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func noticeView(n store.Notice) NoticeView {
	return NoticeView{
		ID: n.ID, Title: n.Title, Body: n.Body, Pinned: n.Pinned, Published: n.Published,
		PublishedAt: n.PublishedAt, ViewCount: n.ViewCount, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt,
	}
}

type MarqueeView struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	LinkURL   string    `json:"linkUrl"`
	SortOrder int       `json:"sortOrder"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func marqueeView(m store.MarqueeItem) MarqueeView {
	return MarqueeView{
		ID: m.ID, Text: m.Text, LinkURL: m.LinkURL, SortOrder: m.SortOrder, Active: m.Active,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

type HeroImageView struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"imageUrl"`
	AltText   string    `json:"altText"`
	LinkURL   string    `json:"linkUrl"`
	SortOrder int       `json:"sortOrder"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func heroImageView(h store.HeroImage) HeroImageView {
	return HeroImageView{
		ID: h.ID, ImageURL: h.ImageURL, AltText: h.AltText, LinkURL: h.LinkURL,
		SortOrder: h.SortOrder, Active: h.Active, CreatedAt: h.CreatedAt, UpdatedAt: h.UpdatedAt,
	}
}

type PageHeadingView struct {
	PageKey   string    `json:"pageKey"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle"`
	UpdatedBy string    `json:"updatedBy"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func pageHeadingView(p store.PageHeading) PageHeadingView {
	return PageHeadingView{PageKey: p.PageKey, Title: p.Title, Subtitle: p.Subtitle, UpdatedBy: p.UpdatedBy, UpdatedAt: p.UpdatedAt}
}

type PageHeroView struct {
	PageKey        string    `json:"pageKey"`
	ImageURL       string    `json:"imageUrl"`
	Title          string    `json:"title"`
	Subtitle       string    `json:"subtitle"`
	OverlayOpacity float64   `json:"overlayOpacity"`
	UpdatedBy      string    `json:"updatedBy"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func pageHeroView(p store.PageHero) PageHeroView {
	return PageHeroView{
		PageKey: p.PageKey, ImageURL: p.ImageURL, Title: p.Title, Subtitle: p.Subtitle,
		OverlayOpacity: p.OverlayOpacity, UpdatedBy: p.UpdatedBy, UpdatedAt: p.UpdatedAt,
	}
}

type EquipmentView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Manufacturer string    `json:"manufacturer"`
	ImageURL     string    `json:"imageUrl"`
	SortOrder    int       `json:"sortOrder"`
	Published    bool      `json:"published"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func equipmentView(e store.Equipment) EquipmentView {
	return EquipmentView{
		ID: e.ID, Name: e.Name, Description: e.Description, Manufacturer: e.Manufacturer,
		ImageURL: e.ImageURL, SortOrder: e.SortOrder, Published: e.Published,
		CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
	}
}

type ArticleView struct {
	ID           string     `json:"id"`
	Slug         string     `json:"slug"`
	Title        string     `json:"title"`
	Summary      string     `json:"summary"`
	Body         string     `json:"body"`
	Category     string     `json:"category"`
	ThumbnailURL string     `json:"thumbnailUrl"`
	Published    bool       `json:"published"`
	PublishedAt  *time.Time `json:"publishedAt"`
	UpdatedBy    string     `json:"updatedBy"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func articleView(a store.Article) ArticleView {
	return ArticleView{
		ID: a.ID, Slug: a.Slug, Title: a.Title, Summary: a.Summary, Body: a.Body,
		Category: a.Category, ThumbnailURL: a.ThumbnailURL, Published: a.Published,
		PublishedAt: a.PublishedAt, UpdatedBy: a.UpdatedBy, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
}

type ImageView struct {
	ID           string    `json:"id"`
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	ContentType  string    `json:"contentType"`
	SizeBytes    int64     `json:"sizeBytes"`
	OriginalName string    `json:"originalName"`
	AltText      string    `json:"altText"`
	UploadedBy   string    `json:"uploadedBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

func imageView(i store.Image) ImageView {
	return ImageView{
		ID: i.ID, Key: i.ObjectKey, URL: i.URL, ContentType: i.ContentType, SizeBytes: i.SizeBytes,
		OriginalName: i.OriginalName, AltText: i.AltText, UploadedBy: i.UploadedBy, CreatedAt: i.CreatedAt,
	}
}

type UserView struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	Role        string     `json:"role"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func userView(u store.AdminUser) UserView {
	return UserView{
		ID: u.ID, Username: u.Username, Email: u.Email, DisplayName: u.DisplayName,
		Role: u.Role, LastLoginAt: u.LastLoginAt, CreatedAt: u.CreatedAt,
	}
}

type AuditView struct {
	ID         int64     `json:"id"`
	ActorID    string    `json:"actorId"`
	ActorName  string    `json:"actorName"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Summary    string    `json:"summary"`
	Payload    any       `json:"payload"`
	IPAddress  string    `json:"ipAddress"`
	UserAgent  string    `json:"userAgent"`
	RequestID  string    `json:"requestId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func auditView(e store.AuditEntry) AuditView {
	var payload any = map[string]any{}
	if len(e.Payload) > 0 {
		payload = e.Payload
	}
	return AuditView{
		ID: e.ID, ActorID: e.ActorID, ActorName: e.ActorName, Action: e.Action,
		EntityType: e.EntityType, EntityID: e.EntityID, Summary: e.Summary, Payload: payload,
		IPAddress: e.IPAddress, UserAgent: e.UserAgent, RequestID: e.RequestID, CreatedAt: e.CreatedAt,
	}
}

func mapSlice[T, V any](items []T, view func(T) V) []V {
	out := make([]V, 0, len(items))
	for _, item := range items {
		out = append(out, view(item))
	}
	return out
}
