package users

import (
	"context"
	"strings"

	"github.com/docchat/backend/internal/models"
)

// Service encapsulates user-related business logic
type Service struct {
	store Store
}

func NewService(s Store) *Service {
	return &Service{store: s}
}

// Register creates a user with an already hashed password. Email is stored as given
// (trimmed); lookups are case-sensitive.
func (s *Service) Register(ctx context.Context, email, passwordHash string) (*models.User, error) {
	return s.store.Create(ctx, strings.TrimSpace(email), passwordHash)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.store.GetByEmail(ctx, email)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.store.GetByID(ctx, id)
}

// UpdateDocument loads the user inside a transaction, lets mutate decide the new
// document value, and persists it. The user row is re-read so a user deleted
// concurrently surfaces as ErrNotFound.
func (s *Service) UpdateDocument(ctx context.Context, id int64, mutate func(u *models.User) (*string, error)) (*models.User, error) {
	var updated *models.User
	err := s.store.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		u, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		doc, err := mutate(u)
		if err != nil {
			return err
		}
		updated, err = repo.SetDocument(ctx, id, doc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
