package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/audit"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/authpw"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
)

type CreateUserInput struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

func (s *Service) ListUsers(ctx context.Context) ([]UserView, error) {
	users, err := s.store.ListAdminUsers(ctx)
	if err != nil {
		return nil, err
	}
	return mapSlice(users, userView), nil
}

func (s *Service) CreateUser(ctx context.Context, actor Actor, in CreateUserInput) (UserView, error) {
	if strings.TrimSpace(in.Email) == "" {
		return UserView{}, invalidField("email", "is required")
	}
	user, err := s.auth.CreateAdmin(ctx, authpw.CreateAdminRequest{
		Username:    in.Username,
		Email:       in.Email,
		DisplayName: in.DisplayName,
		Password:    in.Password,
		Role:        in.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, authpw.ErrMissingFields):
			return UserView{}, invalidField("username", "username and password are required")
		case errors.Is(err, authpw.ErrWeakPassword):
			return UserView{}, invalidField("password", err.Error())
		case errors.Is(err, authpw.ErrInvalidRole):
			return UserView{}, invalidField("role", err.Error())
		case errors.Is(err, store.ErrConflict):
			return UserView{}, domainError(http.StatusConflict, "USER_EXISTS", "Username or email is already in use", nil)
		}
		return UserView{}, err
	}
	user.CreatedAt = s.now().UTC()
	view := userView(user)
	s.record(ctx, actor, audit.ActionCreate, "admin_user", user.ID, user.Username, view)
	return view, nil
}

func (s *Service) DeleteUser(ctx context.Context, actor Actor, id string) error {
	if id == actor.UserID {
		return domainError(http.StatusConflict, "CANNOT_DELETE_SELF", "You cannot delete your own account", nil)
	}
	user, err := s.store.GetAdminUserByID(ctx, id)
	if err != nil {
		return storeErr("User", err)
	}
	if err := s.store.DeleteAdminUser(ctx, id); err != nil {
		return storeErr("User", err)
	}
	s.record(ctx, actor, audit.ActionDelete, "admin_user", id, user.Username, userView(user))
	return nil
}

// AuditQuery is the raw audit filter taken from query parameters.
type AuditQuery struct {
	EntityType string
	EntityID   string
	Actor      string
	Action     string
	From       string
	To         string
	Limit      int
	Offset     int
}

func (s *Service) ListAuditLogs(ctx context.Context, q AuditQuery) ([]AuditView, error) {
	filter := store.AuditFilter{
		EntityType: q.EntityType,
		EntityID:   q.EntityID,
		Actor:      q.Actor,
		Action:     strings.ToUpper(strings.TrimSpace(q.Action)),
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	if filter.Action != "" && !audit.ValidAction(filter.Action) {
		return nil, invalidField("action", "is not a known audit action")
	}
	var err error
	if filter.From, err = parseRFC3339("from", q.From); err != nil {
		return nil, err
	}
	if filter.To, err = parseRFC3339("to", q.To); err != nil {
		return nil, err
	}
	entries, err := s.store.ListAuditLogs(ctx, filter)
	if err != nil {
		return nil, err
	}
	return mapSlice(entries, auditView), nil
}

func parseRFC3339(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, invalidField(field, "must be an RFC 3339 timestamp")
	}
	return &t, nil
}
