package users

import (
	"context"
	"errors"

	"github.com/docchat/backend/internal/models"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned by Create when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

// Repository defines persistence operations for users
type Repository interface {
	Create(ctx context.Context, email, passwordHash string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// SetDocument overwrites (or clears, when doc is nil) the stored document blob.
	SetDocument(ctx context.Context, id int64, doc *string) (*models.User, error)
}

// Store is a Repository that can also run a unit of work inside a transaction.
// fn receives a Repository bound to the transaction; the transaction commits when fn
// returns nil and rolls back otherwise, including on panic.
type Store interface {
	Repository
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
	Ping(ctx context.Context) error
}
