package port

import (
	"context"

	"github.com/dcastano/stockpos/internal/core/domain"
)

type UserRepository interface {
	// FindByUsername returns the user, or nil when no user has the name.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	Create(ctx context.Context, u domain.User) error
	UpdatePassword(ctx context.Context, username, passwordHash string) error
}
