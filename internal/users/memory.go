package users

import (
	"context"
	"sync"
	"time"

	"github.com/docchat/backend/internal/models"
)

// MemoryStore is an in-memory Store used by unit tests and STORE_DRIVER=memory.
type MemoryStore struct {
	mu      sync.RWMutex
	txMu    sync.Mutex
	nextID  int64
	byID    map[int64]*models.User
	byEmail map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[int64]*models.User), byEmail: make(map[string]int64)}
}

func (m *MemoryStore) Create(ctx context.Context, email, passwordHash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return nil, ErrEmailTaken
	}
	m.nextID++
	now := time.Now().UTC()
	u := &models.User{ID: m.nextID, Email: email, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now}
	m.byID[u.ID] = u
	m.byEmail[email] = u.ID
	return clone(u), nil
}

func (m *MemoryStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(m.byID[id]), nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(u), nil
}

func (m *MemoryStore) SetDocument(ctx context.Context, id int64, doc *string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Document = copyString(doc)
	u.UpdatedAt = time.Now().UTC()
	return clone(u), nil
}

// WithTx serializes transactions and applies buffered document writes only when fn succeeds.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) (err error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memoryTx{store: m, pending: make(map[int64]*string)}
	defer func() {
		if p := recover(); p != nil {
			panic(p)
		}
		if err != nil {
			return
		}
		for id, doc := range tx.pending {
			if _, err = m.SetDocument(ctx, id, doc); err != nil {
				return
			}
		}
	}()
	err = fn(ctx, tx)
	return err
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

// memoryTx overlays uncommitted document writes on top of the store.
type memoryTx struct {
	store   *MemoryStore
	pending map[int64]*string
}

func (t *memoryTx) Create(ctx context.Context, email, passwordHash string) (*models.User, error) {
	return t.store.Create(ctx, email, passwordHash)
}

func (t *memoryTx) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := t.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return t.overlay(u), nil
}

func (t *memoryTx) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := t.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.overlay(u), nil
}

func (t *memoryTx) SetDocument(ctx context.Context, id int64, doc *string) (*models.User, error) {
	u, err := t.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t.pending[id] = copyString(doc)
	return t.overlay(u), nil
}

func (t *memoryTx) overlay(u *models.User) *models.User {
	if doc, ok := t.pending[u.ID]; ok {
		u.Document = copyString(doc)
	}
	return u
}

func clone(u *models.User) *models.User {
	c := *u
	c.Document = copyString(u.Document)
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
