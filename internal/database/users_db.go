package database

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/gamemaster-scheduling/pickup/internal/models"
)

// UpsertUser mirrors an identity-provider user. An existing row keeps its
// created_at; empty names or emails leave the stored values alone.
func UpsertUser(ctx context.Context, q sqlx.ExtContext, user *models.User) error {
	_, err := q.ExecContext(ctx, q.Rebind(`
		INSERT INTO users (id, name, email, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE users.name END,
			email = CASE WHEN excluded.email <> '' THEN excluded.email ELSE users.email END
	`), user.ID, user.Name, user.Email, Timestamp(user.CreatedAt))
	return err
}

// GetUserByID retrieves a user by their ID. Returns sql.ErrNoRows if not found.
func GetUserByID(ctx context.Context, q sqlx.ExtContext, id int64) (*models.User, error) {
	user := &models.User{}
	err := sqlx.GetContext(ctx, q, user, q.Rebind("SELECT id, name, email, created_at FROM users WHERE id = ?"), id)
	if err != nil {
		return nil, err // This will include sql.ErrNoRows if not found
	}
	return user, nil
}
