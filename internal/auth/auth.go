// Package auth is the identity resolver: signup/login backed by the
// users table, with cookie sessions stored in the database.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"journal/internal/models"
)

var (
	ErrEmailTaken    = errors.New("email already taken")
	ErrUsernameTaken = errors.New("username already taken")
	ErrInvalidLogin  = errors.New("invalid username or password")
	ErrNoSession     = errors.New("session not found")
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ----------------------------
// Context helpers (for middleware and handlers)
// ----------------------------

type ctxKeyUserID struct{}

func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID{}, uid)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxKeyUserID{})
	if v == nil {
		return "", false
	}
	id, _ := v.(string)
	return id, id != ""
}

// ----------------------------
// Register
// ----------------------------

type RegisterInput struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func validateRegister(in RegisterInput) error {
	if len(in.Username) < 3 || len(in.Username) > 30 {
		return models.Invalid("username", "username must be 3-30 characters")
	}
	if !usernameRe.MatchString(in.Username) {
		return models.Invalid("username", "username can only contain letters, numbers, and underscores")
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") || len(in.Email) > 320 {
		return models.Invalid("email", "invalid email address")
	}
	if len(in.Password) < 8 || len(in.Password) > 128 {
		return models.Invalid("password", "password must be 8-128 characters")
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		return models.Invalid("display_name", "display name is required")
	}
	if len(in.DisplayName) > 100 {
		return models.Invalid("display_name", "display name must be less than 100 characters")
	}
	return nil
}

// Register creates a user account. Uniqueness races are resolved by the
// UNIQUE constraints, not only by the pre-checks.
func Register(ctx context.Context, db *sql.DB, in RegisterInput) (models.User, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.DisplayName = strings.TrimSpace(in.DisplayName)

	if err := validateRegister(in); err != nil {
		return models.User{}, err
	}

	var exists int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email = $1`, in.Email).Scan(&exists); err != nil {
		return models.User{}, err
	}
	if exists > 0 {
		return models.User{}, ErrEmailTaken
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE username = $1`, in.Username).Scan(&exists); err != nil {
		return models.User{}, err
	}
	if exists > 0 {
		return models.User{}, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	u := models.User{
		ID:          uuid.New().String(),
		Username:    in.Username,
		Email:       in.Email,
		DisplayName: in.DisplayName,
		CreatedAt:   time.Now().UTC(),
	}
	_, err = db.ExecContext(ctx, `
INSERT INTO users (id, username, email, password_hash, display_name, bio, userpic_url, created_at)
VALUES ($1, $2, $3, $4, $5, '', '', $6)
`, u.ID, u.Username, u.Email, string(hash), u.DisplayName, u.CreatedAt)
	// In case a concurrent signup won the race past the pre-checks.
	if isUniqueErr(err, "email") {
		return models.User{}, ErrEmailTaken
	}
	if isUniqueErr(err, "username") {
		return models.User{}, ErrUsernameTaken
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// ----------------------------
// Login (creates a session with a UUID id and expiry)
// ----------------------------

func Login(ctx context.Context, db *sql.DB, identifier, password string, lifetime time.Duration) (sid, uid string, err error) {
	// Emails are stored lowercased; usernames keep their case, so the
	// username match is case-folded in SQL instead.
	lowered := strings.ToLower(strings.TrimSpace(identifier))

	var passwdHash string
	err = db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE email = $1 OR LOWER(username) = $2`,
		lowered, lowered).Scan(&uid, &passwdHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrInvalidLogin
	}
	if err != nil {
		return "", "", fmt.Errorf("query user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(password)); err != nil {
		return "", "", ErrInvalidLogin
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", "", err
	}
	defer tx.Rollback()

	// Drop the user's stale sessions on fresh login.
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, uid); err != nil {
		return "", "", err
	}

	sid = uuid.New().String()
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)
`, sid, uid, now.Add(lifetime), now); err != nil {
		return "", "", err
	}

	if err := tx.Commit(); err != nil {
		return "", "", err
	}
	return sid, uid, nil
}

// Logout deletes the session by id.
func Logout(ctx context.Context, db *sql.DB, sid string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, sid)
	return err
}

// UserFromSession validates a session cookie and returns (uid, expiry).
func UserFromSession(ctx context.Context, db *sql.DB, sid string) (string, time.Time, error) {
	var (
		uid string
		exp time.Time
	)
	err := db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE id = $1`, sid).Scan(&uid, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, ErrNoSession
	}
	if err != nil {
		return "", time.Time{}, err
	}
	return uid, exp, nil
}

func isUniqueErr(err error, col string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") && strings.Contains(msg, strings.ToLower(col))
}
