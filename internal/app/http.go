package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/auth"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/markup"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/rbac"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/search"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"go.uber.org/zap"
)

type HTTPServer struct {
	service    *Service
	site       http.Handler
	corsOrigin string
	logger     *zap.Logger
	resources  map[string]resource
}

// NewHTTPServer serves the JSON API, media and handouts. Every other path is
// handed to site, which may be nil.
func NewHTTPServer(service *Service, site http.Handler, corsOrigin string) *HTTPServer {
	s := &HTTPServer{service: service, site: site, corsOrigin: corsOrigin, logger: service.logger}
	s.resources = s.adminResources()
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

// forbid writes a 403 Forbidden response and logs the denial
func (s *HTTPServer) forbid(w http.ResponseWriter, r *http.Request, session Session, action rbac.Action) {
	s.logger.Info("forbidden",
		zap.String("request_id", requestID(r.Context())),
		zap.String("user_id", session.UserID),
		zap.String("role", session.Role),
		zap.String("action", string(action)),
		zap.String("path", r.URL.Path),
	)
	writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	isAPI := strings.HasPrefix(path, "/api/")

	if isAPI && r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		ready, checks := s.service.Readiness(ctx)
		status, statusCode := "ready", http.StatusOK
		if !ready {
			status, statusCode = "not_ready", http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     ready,
			"status": status,
			"checks": checks,
		})
		return
	}

	if strings.HasPrefix(path, "/api/public/") {
		s.handlePublic(w, r, splitPath(strings.TrimPrefix(path, "/api/public/")))
		return
	}

	if strings.HasPrefix(path, "/api/admin/") {
		s.handleAdmin(w, r, splitPath(strings.TrimPrefix(path, "/api/admin/")))
		return
	}

	if isAPI {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	if strings.HasPrefix(path, "/media/") && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		s.handleMedia(w, r, strings.TrimPrefix(path, "/media/"))
		return
	}

	if parts := splitPath(path); r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "health-info" && parts[2] == "print.pdf" {
		s.handleHandout(w, r, parts[1])
		return
	}

	if s.site == nil {
		http.NotFound(w, r)
		return
	}
	s.site.ServeHTTP(w, r)
}

// Public JSON

func (s *HTTPServer) handlePublic(w http.ResponseWriter, r *http.Request, parts []string) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	ctx := r.Context()
	if len(parts) == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	opts.PublishedOnly = true

	switch {
	case len(parts) == 1 && parts[0] == "treatments":
		reply(w)(items(s.service.ListTreatments)(ctx, opts))
	case len(parts) == 2 && parts[0] == "treatments":
		reply(w)(s.service.PublicTreatment(ctx, parts[1]))
	case len(parts) == 1 && parts[0] == "faqs":
		reply(w)(items(s.service.ListFAQs)(ctx, opts))
	case len(parts) == 1 && parts[0] == "notices":
		reply(w)(s.service.ListNotices(ctx, opts))
	case len(parts) == 2 && parts[0] == "notices":
		reply(w)(s.service.ViewNotice(ctx, parts[1]))
	case len(parts) == 1 && parts[0] == "marquee":
		reply(w)(items(s.service.ListMarqueeItems)(ctx, opts))
	case len(parts) == 1 && parts[0] == "hero-images":
		reply(w)(items(s.service.ListHeroImages)(ctx, opts))
	case len(parts) == 2 && parts[0] == "pages":
		reply(w)(s.service.GetPage(ctx, parts[1]))
	case len(parts) == 1 && parts[0] == "equipment":
		reply(w)(items(s.service.ListEquipment)(ctx, opts))
	case len(parts) == 1 && parts[0] == "health-info":
		list, err := s.service.ListArticles(ctx, opts)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		categories, err := s.service.ArticleCategories(ctx)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": list, "categories": categories})
	case len(parts) == 2 && parts[0] == "health-info":
		article, err := s.service.PublishedArticle(ctx, parts[1])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"article":  articleView(article),
			"bodyHtml": string(markup.ToHTML(article.Body)),
		})
	case len(parts) == 1 && parts[0] == "search":
		s.handleSearch(w, r, opts)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, opts store.ListOptions) {
	filterType, ok := search.ParseType(strings.TrimSpace(r.URL.Query().Get("type")))
	if !ok {
		writeServiceError(w, invalidField("type", "is not a searchable type"))
		return
	}
	limit := 20
	if r.URL.Query().Get("limit") != "" {
		limit = opts.Limit
	}
	writeJSON(w, http.StatusOK, s.service.Search(r.Context(), search.Query{
		Text:       strings.TrimSpace(r.URL.Query().Get("q")),
		FilterType: filterType,
		Limit:      limit,
		Offset:     opts.Offset,
	}))
}

// Admin session and password routes

func (s *HTTPServer) handleAdmin(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch {
	case r.Method == http.MethodGet && len(parts) == 1 && parts[0] == "session":
		s.handleSessionStatus(w, r)
		return
	case r.Method == http.MethodPost && len(parts) == 1 && parts[0] == "login":
		s.handleLogin(w, r)
		return
	case r.Method == http.MethodPost && len(parts) == 1 && parts[0] == "logout":
		s.handleLogout(w, r)
		return
	case r.Method == http.MethodPost && len(parts) == 2 && parts[0] == "password" && parts[1] == "reset-request":
		s.handleResetRequest(w, r)
		return
	case r.Method == http.MethodPost && len(parts) == 2 && parts[0] == "password" && parts[1] == "reset":
		s.handleResetPassword(w, r)
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	actor := session.Actor(requestMeta(r))

	switch parts[0] {
	case "password":
		if r.Method != http.MethodPost || len(parts) != 1 {
			break
		}
		var body struct {
			CurrentPassword string `json:"currentPassword"`
			NewPassword     string `json:"newPassword"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.ChangePassword(r.Context(), actor, body.CurrentPassword, body.NewPassword); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	case "users":
		s.handleUsers(w, r, session, actor, parts[1:])
		return
	case "audit-logs":
		s.handleAuditLogs(w, r, session, parts[1:])
		return
	case "images":
		s.handleImages(w, r, session, actor, parts[1:])
		return
	case "pages":
		s.handlePages(w, r, session, actor, parts[1:])
		return
	case "health-info":
		if len(parts) >= 3 && parts[2] == "revisions" {
			s.handleRevisions(w, r, session, actor, parts[1], parts[3:])
			return
		}
	}

	if res, ok := s.resources[parts[0]]; ok {
		s.handleResource(w, r, session, actor, res, parts[1:])
		return
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	token := s.sessionToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if !isAuthError(err) {
			s.logger.Error("session lookup", zap.String("request_id", requestID(r.Context())), zap.Error(err))
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"userId":        session.UserID,
		"userName":      session.UserName,
		"role":          session.Role,
		"expiresAt":     session.ExpiresAt.Unix(),
	})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.Login(r.Context(), body.Username, body.Password, requestMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	cfg := s.service.cfg
	http.SetCookie(w, auth.SessionCookie(cfg.CookieName, session.Token, session.ExpiresAt, cfg.CookieSecure))
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     session.Token,
		"userId":    session.UserID,
		"userName":  session.UserName,
		"role":      session.Role,
		"expiresAt": session.ExpiresAt.Unix(),
	})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	cfg := s.service.cfg
	if token := s.sessionToken(r); token != "" {
		if session, err := s.service.SessionFromToken(r.Context(), token); err == nil {
			if err := s.service.Logout(r.Context(), session, requestMeta(r)); err != nil {
				writeServiceError(w, err)
				return
			}
		}
	}
	http.SetCookie(w, auth.ClearCookie(cfg.CookieName, cfg.CookieSecure))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	token, err := s.service.RequestPasswordReset(r.Context(), body.Email)
	if err != nil {
		s.logger.Error("password reset request", zap.String("request_id", requestID(r.Context())), zap.Error(err))
	}
	response := map[string]any{
		"message": "If an account exists, a reset email has been sent",
	}
	if token != "" {
		response["devResetToken"] = token
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if err := s.service.ResetPassword(r.Context(), body.Token, body.NewPassword, requestMeta(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password reset successfully",
	})
}

// Content resources

// resource binds the CRUD operations of one admin collection. Nil fields
// are not routed.
type resource struct {
	list    func(context.Context, store.ListOptions) (any, error)
	get     func(context.Context, string) (any, error)
	create  func(context.Context, Actor, *http.Request) (any, error)
	update  func(context.Context, Actor, string, *http.Request) (any, error)
	delete  func(context.Context, Actor, string) error
	reorder func(context.Context, Actor, []string) error
}

func (s *HTTPServer) adminResources() map[string]resource {
	svc := s.service
	return map[string]resource{
		"treatments": {
			list:    items(svc.ListTreatments),
			get:     anyResult(svc.GetTreatment),
			create:  decodeCreate(svc.CreateTreatment),
			update:  decodeUpdate(svc.UpdateTreatment),
			delete:  svc.DeleteTreatment,
			reorder: svc.ReorderTreatments,
		},
		"faqs": {
			list:    items(svc.ListFAQs),
			get:     anyResult(svc.GetFAQ),
			create:  decodeCreate(svc.CreateFAQ),
			update:  decodeUpdate(svc.UpdateFAQ),
			delete:  svc.DeleteFAQ,
			reorder: svc.ReorderFAQs,
		},
		"notices": {
			list: func(ctx context.Context, opts store.ListOptions) (any, error) {
				return svc.ListNotices(ctx, opts)
			},
			get:    anyResult(svc.GetNotice),
			create: decodeCreate(svc.CreateNotice),
			update: decodeUpdate(svc.UpdateNotice),
			delete: svc.DeleteNotice,
		},
		"marquee": {
			list:    items(svc.ListMarqueeItems),
			create:  decodeCreate(svc.CreateMarqueeItem),
			update:  decodeUpdate(svc.UpdateMarqueeItem),
			delete:  svc.DeleteMarqueeItem,
			reorder: svc.ReorderMarqueeItems,
		},
		"hero-images": {
			list:    items(svc.ListHeroImages),
			create:  decodeCreate(svc.CreateHeroImage),
			update:  decodeUpdate(svc.UpdateHeroImage),
			delete:  svc.DeleteHeroImage,
			reorder: svc.ReorderHeroImages,
		},
		"equipment": {
			list:    items(svc.ListEquipment),
			create:  decodeCreate(svc.CreateEquipment),
			update:  decodeUpdate(svc.UpdateEquipment),
			delete:  svc.DeleteEquipment,
			reorder: svc.ReorderEquipment,
		},
		"health-info": {
			list:   items(svc.ListArticles),
			get:    anyResult(svc.GetArticle),
			create: decodeCreate(svc.CreateArticle),
			update: decodeUpdate(svc.UpdateArticle),
			delete: svc.DeleteArticle,
		},
	}
}

func (s *HTTPServer) handleResource(w http.ResponseWriter, r *http.Request, session Session, actor Actor, res resource, parts []string) {
	ctx := r.Context()
	action := rbac.ActionWrite
	if r.Method == http.MethodGet {
		action = rbac.ActionRead
	}
	if !s.service.Can(session.Role, action) {
		s.forbid(w, r, session, action)
		return
	}

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet && res.list != nil:
		opts, err := listOptions(r)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		reply(w)(res.list(ctx, opts))
	case len(parts) == 0 && r.Method == http.MethodPost && res.create != nil:
		result, err := res.create(ctx, actor, r)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	case len(parts) == 1 && parts[0] == "reorder" && r.Method == http.MethodPut && res.reorder != nil:
		var body struct {
			IDs []string `json:"ids"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := res.reorder(ctx, actor, body.IDs); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case len(parts) == 1 && r.Method == http.MethodGet && res.get != nil:
		reply(w)(res.get(ctx, parts[0]))
	case len(parts) == 1 && r.Method == http.MethodPut && res.update != nil:
		reply(w)(res.update(ctx, actor, parts[0], r))
	case len(parts) == 1 && r.Method == http.MethodDelete && res.delete != nil:
		if err := res.delete(ctx, actor, parts[0]); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handlePages(w http.ResponseWriter, r *http.Request, session Session, actor Actor, parts []string) {
	ctx := r.Context()
	action := rbac.ActionWrite
	if r.Method == http.MethodGet {
		action = rbac.ActionRead
	}
	if !s.service.Can(session.Role, action) {
		s.forbid(w, r, session, action)
		return
	}

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		pages, err := s.service.ListPages(ctx)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": pages})
	case len(parts) == 1 && r.Method == http.MethodGet:
		reply(w)(s.service.GetPage(ctx, parts[0]))
	case len(parts) == 2 && parts[1] == "heading" && r.Method == http.MethodPut:
		var body PageHeadingInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		reply(w)(s.service.SetPageHeading(ctx, actor, parts[0], body))
	case len(parts) == 2 && parts[1] == "hero" && r.Method == http.MethodPut:
		var body PageHeroInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		reply(w)(s.service.SetPageHero(ctx, actor, parts[0], body))
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleRevisions(w http.ResponseWriter, r *http.Request, session Session, actor Actor, articleID string, parts []string) {
	ctx := r.Context()
	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		if !s.service.Can(session.Role, rbac.ActionRead) {
			s.forbid(w, r, session, rbac.ActionRead)
			return
		}
		history, err := s.service.ArticleRevisions(ctx, articleID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": history})
	case len(parts) == 1 && r.Method == http.MethodGet:
		if !s.service.Can(session.Role, rbac.ActionRead) {
			s.forbid(w, r, session, rbac.ActionRead)
			return
		}
		reply(w)(s.service.ArticleRevision(ctx, articleID, parts[0]))
	case len(parts) == 2 && parts[1] == "restore" && r.Method == http.MethodPost:
		if !s.service.Can(session.Role, rbac.ActionWrite) {
			s.forbid(w, r, session, rbac.ActionWrite)
			return
		}
		reply(w)(s.service.RestoreArticleRevision(ctx, actor, articleID, parts[0]))
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// Media

func (s *HTTPServer) handleImages(w http.ResponseWriter, r *http.Request, session Session, actor Actor, parts []string) {
	ctx := r.Context()
	action := rbac.ActionWrite
	if r.Method == http.MethodGet {
		action = rbac.ActionRead
	}
	if !s.service.Can(session.Role, action) {
		s.forbid(w, r, session, action)
		return
	}

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		opts, err := listOptions(r)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		reply(w)(items(s.service.ListImages)(ctx, opts))
	case len(parts) == 0 && r.Method == http.MethodPost:
		s.handleUpload(w, r, actor)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteImage(ctx, actor, parts[0]); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// multipartOverhead leaves room for the form boundary and the altText field.
const multipartOverhead = 1 << 20

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request, actor Actor) {
	if !s.service.MediaConfigured() {
		writeServiceError(w, errMediaUnavailable)
		return
	}
	limit := s.service.MaxUploadBytes()
	if r.ContentLength > limit+multipartOverhead {
		writeServiceError(w, errTooLarge(limit))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeServiceError(w, errTooLarge(limit))
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid multipart body", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeServiceError(w, invalidField("file", "is required"))
		return
	}
	defer file.Close()

	view, err := s.service.UploadImage(r.Context(), actor, Upload{
		Filename: header.Filename,
		AltText:  r.FormValue("altText"),
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *HTTPServer) handleMedia(w http.ResponseWriter, r *http.Request, key string) {
	body, info, err := s.service.OpenMedia(r.Context(), key)
	if err != nil {
		status, _, message, _ := mapError(err)
		http.Error(w, message, status)
		return
	}
	defer body.Close()

	header := w.Header()
	header.Set("Content-Type", info.ContentType)
	header.Set("Cache-Control", "public, max-age=31536000, immutable")
	if info.Size > 0 {
		header.Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if info.ETag != "" {
		header.Set("ETag", `"`+info.ETag+`"`)
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, body); err != nil {
		s.logger.Warn("stream media", zap.String("key", key), zap.Error(err))
	}
}

func (s *HTTPServer) handleHandout(w http.ResponseWriter, r *http.Request, slug string) {
	result, err := s.service.ArticleHandout(r.Context(), slug)
	if err != nil {
		status, _, message, _ := mapError(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("render handout", zap.String("slug", slug), zap.Error(err))
		}
		http.Error(w, message, status)
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

// Users and audit

func (s *HTTPServer) handleUsers(w http.ResponseWriter, r *http.Request, session Session, actor Actor, parts []string) {
	if !s.service.Can(session.Role, rbac.ActionManageUsers) {
		s.forbid(w, r, session, rbac.ActionManageUsers)
		return
	}
	ctx := r.Context()

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		users, err := s.service.ListUsers(ctx)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": users})
	case len(parts) == 0 && r.Method == http.MethodPost:
		var body CreateUserInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		user, err := s.service.CreateUser(ctx, actor, body)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteUser(ctx, actor, parts[0]); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleAuditLogs(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if len(parts) != 0 || r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	if !s.service.Can(session.Role, rbac.ActionViewAudit) {
		s.forbid(w, r, session, rbac.ActionViewAudit)
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	q := r.URL.Query()
	entries, err := s.service.ListAuditLogs(r.Context(), AuditQuery{
		EntityType: strings.TrimSpace(q.Get("entityType")),
		EntityID:   strings.TrimSpace(q.Get("entityId")),
		Actor:      strings.TrimSpace(q.Get("actor")),
		Action:     q.Get("action"),
		From:       q.Get("from"),
		To:         q.Get("to"),
		Limit:      opts.Limit,
		Offset:     opts.Offset,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

// Adapters from typed service methods to resource handlers.

func items[V any](fn func(context.Context, store.ListOptions) ([]V, error)) func(context.Context, store.ListOptions) (any, error) {
	return func(ctx context.Context, opts store.ListOptions) (any, error) {
		list, err := fn(ctx, opts)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []V{}
		}
		return map[string]any{"items": list}, nil
	}
}

func anyResult[V any](fn func(context.Context, string) (V, error)) func(context.Context, string) (any, error) {
	return func(ctx context.Context, id string) (any, error) {
		return fn(ctx, id)
	}
}

func decodeCreate[T, V any](fn func(context.Context, Actor, T) (V, error)) func(context.Context, Actor, *http.Request) (any, error) {
	return func(ctx context.Context, actor Actor, r *http.Request) (any, error) {
		var in T
		if err := decodeBody(r, &in); err != nil {
			return nil, domainError(http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		}
		return fn(ctx, actor, in)
	}
}

func decodeUpdate[T, V any](fn func(context.Context, Actor, string, T) (V, error)) func(context.Context, Actor, string, *http.Request) (any, error) {
	return func(ctx context.Context, actor Actor, id string, r *http.Request) (any, error) {
		var in T
		if err := decodeBody(r, &in); err != nil {
			return nil, domainError(http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		}
		return fn(ctx, actor, id, in)
	}
}

// reply writes the result of a service call as 200, or its mapped error.
func reply(w http.ResponseWriter) func(any, error) {
	return func(payload any, err error) {
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func listOptions(r *http.Request) (store.ListOptions, error) {
	q := r.URL.Query()
	opts := store.ListOptions{Category: strings.TrimSpace(q.Get("category"))}
	for _, field := range []struct {
		name   string
		target *int
	}{{"limit", &opts.Limit}, {"offset", &opts.Offset}} {
		raw := strings.TrimSpace(q.Get(field.name))
		if raw == "" {
			continue
		}
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return store.ListOptions{}, invalidField(field.name, "must be an integer")
		}
		*field.target = parsed
	}
	if raw := strings.TrimSpace(q.Get("page")); raw != "" && opts.Offset == 0 {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return store.ListOptions{}, invalidField("page", "must be a positive integer")
		}
		opts = opts.Normalize()
		opts.Offset = (page - 1) * opts.Limit
	}
	return opts.Normalize(), nil
}

// Sessions and middleware

func (s *HTTPServer) sessionToken(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(s.service.cfg.CookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := s.sessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if isAuthError(err) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		s.logger.Error("session lookup", zap.String("request_id", requestID(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

func isAuthError(err error) bool {
	return errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			setCORSHeaders(writer.Header(), s.corsOrigin)
		}
		writer.Header().Set("X-Request-ID", reqID)

		defer func() {
			if recovered := recover(); recovered != nil {
				s.logger.Error("panic serving request",
					zap.String("request_id", reqID),
					zap.String("path", r.URL.Path),
					zap.Any("panic", recovered),
					zap.Stack("stack"),
				)
				if !writer.wrote {
					writeError(writer, http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil)
				}
			}
			s.logger.Info("request",
				zap.String("request_id", reqID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", writer.status),
				zap.Int64("duration_ms", time.Since(started).Milliseconds()),
			)
		}()

		next.ServeHTTP(writer, r)
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestMeta(r *http.Request) RequestMeta {
	return RequestMeta{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		RequestID: requestID(r.Context()),
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.wrote {
		return
	}
	r.status = status
	r.wrote = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	if corsOrigin != "*" {
		header.Set("Access-Control-Allow-Credentials", "true")
	}
	header.Set("Cache-Control", "no-store")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) || errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, store.ErrConflict) {
		return http.StatusConflict, "CONFLICT", "Conflict", nil
	}
	if isAuthError(err) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
