package storage

import (
	"context"

	"github.com/fitoclin/fitoclin/libs/db"
	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
)

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Get(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, email, role
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if err != nil {
		if IsNotFound(err) || isBadUUID(err) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, model.Persistence("get user", err)
	}
	return u, nil
}

// FirstByRole returns the earliest created user with role.
func (r *UserRepository) FirstByRole(ctx context.Context, role model.Role) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, email, role
		FROM users
		WHERE role = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, string(role)).Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if err != nil {
		if IsNotFound(err) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, model.Persistence("find user by role", err)
	}
	return u, nil
}
