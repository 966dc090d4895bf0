// Package userdir is the read-only seam to the user directory. Account
// management lives in another service; this core only resolves ids to role
// and eligibility.
package userdir

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/obiora-dev/taskpay/internal/apperr"
)

type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Lookup resolves a user id.
func Lookup(ctx context.Context, q querier, userID string) (User, error) {
	var u User
	err := q.QueryRow(ctx,
		`SELECT id, email, role, is_active FROM users WHERE id = $1`,
		userID,
	).Scan(&u.ID, &u.Email, &u.Role, &u.Active)
	if err == pgx.ErrNoRows {
		return User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return User{}, apperr.Internal("could not resolve user", err)
	}
	return u, nil
}

// Email returns just the address, best-effort; notification call sites treat
// a missing user as "no email to send".
func Email(ctx context.Context, q querier, userID string) string {
	u, err := Lookup(ctx, q, userID)
	if err != nil {
		return ""
	}
	return u.Email
}
