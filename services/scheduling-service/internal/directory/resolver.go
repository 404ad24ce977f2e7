package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitoclin/fitoclin/services/scheduling-service/internal/model"
)

type UserStore interface {
	Get(ctx context.Context, id string) (model.User, error)
	FirstByRole(ctx context.Context, role model.Role) (model.User, error)
}

// Resolver finds the doctor an operation applies to. The clinic has one doctor: the id
// passed by the caller, else the configured default, else the ADMIN user.
type Resolver struct {
	users     UserStore
	defaultID string
}

func NewResolver(users UserStore, defaultDoctorID string) *Resolver {
	return &Resolver{users: users, defaultID: defaultDoctorID}
}

// ResolveDoctor returns model.ErrDoctorNotFound when no ADMIN user matches.
func (r *Resolver) ResolveDoctor(ctx context.Context, doctorID string) (string, error) {
	id := doctorID
	if id == "" {
		id = r.defaultID
	}
	if id != "" {
		u, err := r.users.Get(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return "", fmt.Errorf("%w: %s", model.ErrDoctorNotFound, id)
			}
			return "", err
		}
		if u.Role != model.RoleAdmin {
			return "", fmt.Errorf("%w: %s is not a doctor", model.ErrDoctorNotFound, id)
		}
		return u.ID, nil
	}

	u, err := r.users.FirstByRole(ctx, model.RoleAdmin)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", fmt.Errorf("%w: no admin user", model.ErrDoctorNotFound)
		}
		return "", err
	}
	return u.ID, nil
}

// Contact returns the user record used to address notifications.
func (r *Resolver) Contact(ctx context.Context, userID string) (model.User, error) {
	return r.users.Get(ctx, userID)
}
