package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/audit"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/auth"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/authpw"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/blob"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/config"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/export"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/logging"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/rbac"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/revisions"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/search"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/util"
	"go.uber.org/zap"
)

// Session is an authenticated admin.
type Session struct {
	Token     string
	UserID    string
	UserName  string
	Role      string
	JTI       string
	ExpiresAt time.Time
}

// RequestMeta is the request context recorded with audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
	RequestID string
}

// Actor is who performs a mutation.
type Actor struct {
	UserID   string
	UserName string
	Role     string
	RequestMeta
}

func (s Session) Actor(meta RequestMeta) Actor {
	return Actor{UserID: s.UserID, UserName: s.UserName, Role: s.Role, RequestMeta: meta}
}

type dataStore interface {
	authpw.UserStore
	sessionStore
	ListAdminUsers(ctx context.Context) ([]store.AdminUser, error)
	CountAdminUsers(ctx context.Context) (int, error)
	DeleteAdminUser(ctx context.Context, userID string) error

	ListTreatments(ctx context.Context, opts store.ListOptions) ([]store.Treatment, error)
	GetTreatment(ctx context.Context, id string) (store.Treatment, error)
	GetTreatmentBySlug(ctx context.Context, slug string) (store.Treatment, error)
	InsertTreatment(ctx context.Context, item store.Treatment) error
	UpdateTreatment(ctx context.Context, item store.Treatment) error
	DeleteTreatment(ctx context.Context, id string) error
	ReorderTreatments(ctx context.Context, ids []string) error

	ListFAQs(ctx context.Context, opts store.ListOptions) ([]store.FAQ, error)
	GetFAQ(ctx context.Context, id string) (store.FAQ, error)
	InsertFAQ(ctx context.Context, item store.FAQ) error
	UpdateFAQ(ctx context.Context, item store.FAQ) error
	DeleteFAQ(ctx context.Context, id string) error
	ReorderFAQs(ctx context.Context, ids []string) error

	ListNotices(ctx context.Context, opts store.ListOptions) ([]store.Notice, error)
	CountNotices(ctx context.Context, publishedOnly bool) (int, error)
	GetNotice(ctx context.Context, id string) (store.Notice, error)
	InsertNotice(ctx context.Context, item store.Notice) error
	UpdateNotice(ctx context.Context, item store.Notice) error
	DeleteNotice(ctx context.Context, id string) error
	IncrementNoticeViews(ctx context.Context, id string) error

	ListMarqueeItems(ctx context.Context, opts store.ListOptions) ([]store.MarqueeItem, error)
	GetMarqueeItem(ctx context.Context, id string) (store.MarqueeItem, error)
	InsertMarqueeItem(ctx context.Context, item store.MarqueeItem) error
	UpdateMarqueeItem(ctx context.Context, item store.MarqueeItem) error
	DeleteMarqueeItem(ctx context.Context, id string) error
	ReorderMarqueeItems(ctx context.Context, ids []string) error

	ListHeroImages(ctx context.Context, opts store.ListOptions) ([]store.HeroImage, error)
	GetHeroImage(ctx context.Context, id string) (store.HeroImage, error)
	InsertHeroImage(ctx context.Context, item store.HeroImage) error
	UpdateHeroImage(ctx context.Context, item store.HeroImage) error
	DeleteHeroImage(ctx context.Context, id string) error
	ReorderHeroImages(ctx context.Context, ids []string) error

	GetPageHeading(ctx context.Context, pageKey string) (store.PageHeading, error)
	ListPageHeadings(ctx context.Context) ([]store.PageHeading, error)
	UpsertPageHeading(ctx context.Context, item store.PageHeading) error
	GetPageHero(ctx context.Context, pageKey string) (store.PageHero, error)
	ListPageHeroes(ctx context.Context) ([]store.PageHero, error)
	UpsertPageHero(ctx context.Context, item store.PageHero) error

	ListEquipment(ctx context.Context, opts store.ListOptions) ([]store.Equipment, error)
	GetEquipment(ctx context.Context, id string) (store.Equipment, error)
	InsertEquipment(ctx context.Context, item store.Equipment) error
	UpdateEquipment(ctx context.Context, item store.Equipment) error
	DeleteEquipment(ctx context.Context, id string) error
	ReorderEquipment(ctx context.Context, ids []string) error

	ListArticles(ctx context.Context, opts store.ListOptions) ([]store.Article, error)
	ListArticleCategories(ctx context.Context) ([]string, error)
	GetArticle(ctx context.Context, id string) (store.Article, error)
	GetArticleBySlug(ctx context.Context, slug string) (store.Article, error)
	InsertArticle(ctx context.Context, item store.Article) error
	UpdateArticle(ctx context.Context, item store.Article) error
	DeleteArticle(ctx context.Context, id string) error

	InsertImage(ctx context.Context, item store.Image) error
	GetImage(ctx context.Context, id string) (store.Image, error)
	ListImages(ctx context.Context, opts store.ListOptions) ([]store.Image, error)
	DeleteImage(ctx context.Context, id string) error

	InsertAuditLog(ctx context.Context, entry store.AuditEntry) error
	ListAuditLogs(ctx context.Context, filter store.AuditFilter) ([]store.AuditEntry, error)

	Ping(ctx context.Context) error
}

type sessionStore interface {
	SaveSession(ctx context.Context, tokenHash string, record store.SessionRecord) error
	LookupSession(ctx context.Context, tokenHash string) (store.SessionRecord, error)
	RevokeSession(ctx context.Context, tokenHash string) error
}

type searchIndex interface {
	Search(ctx context.Context, q search.Query) search.Response
	Index(rec search.Record)
	Remove(typ search.ResultType, id string)
}

type revisionStore interface {
	Ensure(articleID string, initial revisions.Content, author string) error
	Commit(articleID string, content revisions.Content, author, message string) (store.CommitInfo, error)
	History(articleID string, limit int) ([]store.CommitInfo, error)
	ContentAt(articleID, hash string) (revisions.Content, store.CommitInfo, error)
	Remove(articleID string) error
}

type mediaStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, blob.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

type pdfExporter interface {
	Available() bool
	ArticlePDF(ctx context.Context, article store.Article) (*export.Result, error)
}

type mailer interface {
	IsConfigured() bool
	SendPasswordResetEmail(to, userName, resetURL string) error
}

// Pinger is a dependency readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Service. Store is required; a nil Sessions
// keeps sessions in Store, and the remaining fields are optional.
type Deps struct {
	Store     dataStore
	Sessions  sessionStore
	Search    searchIndex
	Revisions revisionStore
	Media     mediaStore
	Exporter  pdfExporter
	Mailer    mailer
	// Checks are extra readiness probes keyed by name, e.g. "redis".
	Checks map[string]Pinger
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	search    searchIndex
	revisions revisionStore
	media     mediaStore
	exporter  pdfExporter
	mailer    mailer
	checks    map[string]Pinger
	auth      *authpw.Service
	audit     *audit.Writer
	logger    *zap.Logger
	now       func() time.Time
}

func New(cfg config.Config, deps Deps, logger *zap.Logger) *Service {
	logger = logging.OrNop(logger)
	sessions := deps.Sessions
	if sessions == nil {
		sessions = deps.Store
	}
	return &Service{
		cfg:       cfg,
		store:     deps.Store,
		sessions:  sessions,
		search:    deps.Search,
		revisions: deps.Revisions,
		media:     deps.Media,
		exporter:  deps.Exporter,
		mailer:    deps.Mailer,
		checks:    deps.Checks,
		auth:      authpw.NewService(deps.Store, logger),
		audit:     audit.NewWriter(deps.Store, logger),
		logger:    logger,
		now:       time.Now,
	}
}

// BootstrapAdmin creates the configured admin account when no admin exists yet.
func (s *Service) BootstrapAdmin(ctx context.Context) error {
	username := strings.TrimSpace(s.cfg.BootstrapAdminUsername)
	if username == "" || s.cfg.BootstrapAdminPassword == "" {
		return nil
	}
	count, err := s.store.CountAdminUsers(ctx)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return nil
	}
	user, err := s.auth.CreateAdmin(ctx, authpw.CreateAdminRequest{
		Username:    username,
		Email:       username + "@localhost",
		DisplayName: username,
		Password:    s.cfg.BootstrapAdminPassword,
		Role:        string(rbac.RoleAdmin),
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	s.logger.Info("bootstrap admin created", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

func (s *Service) require(actor Actor, action rbac.Action) error {
	if !s.Can(actor.Role, action) {
		return errForbidden
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor Actor, action audit.Action, entityType, entityID, summary string, payload any) {
	s.audit.Record(ctx, store.AuditEntry{
		ActorID:    actor.UserID,
		ActorName:  actor.UserName,
		Action:     string(action),
		EntityType: entityType,
		EntityID:   entityID,
		Summary:    summary,
		Payload:    audit.Payload(payload),
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
		RequestID:  actor.RequestID,
	})
}

// Login verifies credentials and opens a session.
func (s *Service) Login(ctx context.Context, identifier, password string, meta RequestMeta) (Session, error) {
	user, err := s.auth.SignIn(ctx, identifier, password)
	if err != nil {
		if errors.Is(err, authpw.ErrMissingFields) {
			return Session{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Username and password are required", nil)
		}
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			s.record(ctx, Actor{UserName: strings.TrimSpace(identifier), RequestMeta: meta}, audit.ActionLoginFailed, "admin_user", "", "failed sign in", nil)
			return Session{}, errInvalidCreds
		}
		return Session{}, err
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return Session{}, err
	}
	s.record(ctx, session.Actor(meta), audit.ActionLogin, "admin_user", user.ID, "signed in", nil)
	return session, nil
}

func (s *Service) issueSession(ctx context.Context, user store.AdminUser) (Session, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.SessionTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.SessionSecret), auth.Claims{
		Name: user.DisplayName,
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	if err != nil {
		return Session{}, err
	}

	if err := s.sessions.SaveSession(ctx, auth.HashToken(jti), store.SessionRecord{
		UserID:    user.ID,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}, nil
}

// SessionFromToken accepts a token only while its session record exists and
// its user still does.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.SessionSecret), token)
	if err != nil {
		return Session{}, err
	}
	record, err := s.sessions.LookupSession(ctx, auth.HashToken(claims.ID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	if record.UserID != claims.Subject {
		return Session{}, auth.ErrInvalidToken
	}
	user, err := s.store.GetAdminUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		JTI:       claims.ID,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, meta RequestMeta) error {
	if session.JTI == "" {
		return nil
	}
	if err := s.sessions.RevokeSession(ctx, auth.HashToken(session.JTI)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.record(ctx, session.Actor(meta), audit.ActionLogout, "admin_user", session.UserID, "signed out", nil)
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, actor Actor, current, next string) error {
	if err := s.auth.ChangePassword(ctx, actor.UserID, current, next); err != nil {
		switch {
		case errors.Is(err, authpw.ErrMissingFields):
			return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Current and new password are required", nil)
		case errors.Is(err, authpw.ErrWeakPassword):
			return invalidField("newPassword", err.Error())
		case errors.Is(err, authpw.ErrInvalidCredentials):
			return invalidField("currentPassword", "is incorrect")
		}
		return err
	}
	s.record(ctx, actor, audit.ActionPasswordChange, "admin_user", actor.UserID, "changed password", nil)
	return nil
}

// RequestPasswordReset returns the raw reset token only when it could not be
// emailed, so development setups can still complete a reset.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	token, user, err := s.auth.RequestPasswordReset(ctx, email)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", nil
	}
	if !s.SMTPConfigured() {
		return token, nil
	}
	resetURL := strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/admin/reset-password?token=" + token
	if err := s.mailer.SendPasswordResetEmail(user.Email, user.DisplayName, resetURL); err != nil {
		s.logger.Error("send password reset email", zap.String("user_id", user.ID), zap.Error(err))
	}
	return "", nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string, meta RequestMeta) error {
	userID, err := s.auth.ResetPassword(ctx, token, newPassword)
	if err != nil {
		switch {
		case errors.Is(err, authpw.ErrMissingFields):
			return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Token and new password are required", nil)
		case errors.Is(err, authpw.ErrWeakPassword):
			return invalidField("newPassword", err.Error())
		case errors.Is(err, authpw.ErrInvalidResetToken):
			return domainError(http.StatusBadRequest, "INVALID_RESET_TOKEN", err.Error(), nil)
		}
		return err
	}
	s.record(ctx, Actor{UserID: userID, RequestMeta: meta}, audit.ActionPasswordReset, "admin_user", userID, "reset password", nil)
	return nil
}

func (s *Service) SMTPConfigured() bool {
	return s.mailer != nil && s.mailer.IsConfigured()
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Readiness runs every dependency check and reports each by name.
func (s *Service) Readiness(ctx context.Context) (bool, map[string]any) {
	checks := map[string]any{}
	ready := true
	probe := func(name string, p Pinger) {
		if err := p.Ping(ctx); err != nil {
			ready = false
			checks[name] = map[string]any{"status": "error", "error": err.Error()}
			return
		}
		checks[name] = map[string]any{"status": "ok"}
	}
	probe("database", s.store)
	if s.media != nil {
		probe("media", s.media)
	}
	for name, p := range s.checks {
		probe(name, p)
	}
	return ready, checks
}

func (s *Service) indexRecord(rec search.Record, published bool) {
	if s.search == nil {
		return
	}
	if published {
		s.search.Index(rec)
		return
	}
	s.search.Remove(rec.Type, rec.ID)
}

func (s *Service) removeRecord(typ search.ResultType, id string) {
	if s.search != nil {
		s.search.Remove(typ, id)
	}
}

func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}
