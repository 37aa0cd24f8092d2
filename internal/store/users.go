package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const adminUserColumns = `id, username, email, display_name, password_hash, role, last_login_at, created_at, updated_at`

func scanAdminUser(row scanner) (AdminUser, error) {
	var user AdminUser
	var lastLogin sql.NullTime
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.DisplayName, &user.PasswordHash, &user.Role, &lastLogin, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return AdminUser{}, err
	}
	user.LastLoginAt = timePtr(lastLogin)
	return user, nil
}

func (s *PostgresStore) CreateAdminUser(ctx context.Context, user AdminUser) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_users (id, username, email, display_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, strings.ToLower(user.Username), strings.ToLower(user.Email), user.DisplayName, user.PasswordHash, user.Role)
	if err != nil {
		return writeErr("create admin user", err)
	}
	return nil
}

func (s *PostgresStore) GetAdminUserByUsername(ctx context.Context, username string) (AdminUser, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adminUserColumns+` FROM admin_users WHERE username=$1`, strings.ToLower(strings.TrimSpace(username)))
	user, err := scanAdminUser(row)
	if err != nil {
		return AdminUser{}, notFound(err)
	}
	return user, nil
}

func (s *PostgresStore) GetAdminUserByEmail(ctx context.Context, email string) (AdminUser, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adminUserColumns+` FROM admin_users WHERE email=$1`, strings.ToLower(strings.TrimSpace(email)))
	user, err := scanAdminUser(row)
	if err != nil {
		return AdminUser{}, notFound(err)
	}
	return user, nil
}

func (s *PostgresStore) GetAdminUserByID(ctx context.Context, id string) (AdminUser, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adminUserColumns+` FROM admin_users WHERE id=$1`, id)
	user, err := scanAdminUser(row)
	if err != nil {
		return AdminUser{}, notFound(err)
	}
	return user, nil
}

func (s *PostgresStore) ListAdminUsers(ctx context.Context) ([]AdminUser, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+adminUserColumns+` FROM admin_users ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list admin users: %w", err)
	}
	defer rows.Close()

	items := make([]AdminUser, 0)
	for rows.Next() {
		user, err := scanAdminUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin user: %w", err)
		}
		items = append(items, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admin users: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CountAdminUsers(ctx context.Context) (int, error) {
	return s.TableRowCount(ctx, "admin_users")
}

func (s *PostgresStore) UpdateAdminPassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE admin_users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	return expectAffected(res, "update admin password")
}

func (s *PostgresStore) TouchAdminLogin(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE admin_users SET last_login_at=NOW() WHERE id=$1`, userID)
	if err != nil {
		return fmt.Errorf("touch admin login: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteAdminUser(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admin_users WHERE id=$1`, userID)
	if err != nil {
		return fmt.Errorf("delete admin user: %w", err)
	}
	return expectAffected(res, "delete admin user")
}

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return writeErr("create password reset", err)
	}
	return nil
}

// ConsumePasswordReset claims an unused, unexpired reset token and sets
// the account's password hash in one transaction. The token's user id is
// returned; ErrNotFound means the token is unknown, spent or expired.
func (s *PostgresStore) ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string) (string, error) {
	var userID string
	err := s.WithTx(ctx, func(tx *PostgresStore) error {
		err := tx.db.QueryRowContext(ctx, `
			UPDATE password_resets SET used_at=NOW()
			WHERE token_hash=$1 AND used_at IS NULL AND expires_at > NOW()
			RETURNING user_id
		`, tokenHash).Scan(&userID)
		if err != nil {
			return notFound(err)
		}
		return tx.UpdateAdminPassword(ctx, userID, passwordHash)
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, tokenHash string, record SessionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_sessions (token_hash, user_id, role, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, role=EXCLUDED.role, expires_at=EXCLUDED.expires_at
	`, tokenHash, record.UserID, record.Role, record.ExpiresAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupSession(ctx context.Context, tokenHash string) (SessionRecord, error) {
	var record SessionRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, role, created_at, expires_at FROM admin_sessions
		WHERE token_hash=$1 AND expires_at > NOW()
	`, tokenHash).Scan(&record.UserID, &record.Role, &record.CreatedAt, &record.ExpiresAt)
	if err != nil {
		return SessionRecord{}, notFound(err)
	}
	return record, nil
}

func (s *PostgresStore) RevokeSession(ctx context.Context, tokenHash string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE token_hash=$1 OR expires_at <= NOW()`, tokenHash); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
