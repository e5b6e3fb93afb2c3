package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/docchat/backend/internal/database"
	"github.com/docchat/backend/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// PostgresRepository implements Repository over any DBTX (pool or transaction).
type PostgresRepository struct {
	db database.DBTX
}

func NewPostgresRepository(db database.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, email, passwordHash string) (*models.User, error) {
	query :=
		`INSERT INTO users (email, password_hash)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`

	u := &models.User{Email: email, PasswordHash: passwordHash}
	err := r.db.QueryRowContext(ctx, query, email, passwordHash).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, email, password_hash, document, created_at, updated_at FROM users
		 WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query :=
		`SELECT id, email, password_hash, document, created_at, updated_at FROM users
		 WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) SetDocument(ctx context.Context, id int64, doc *string) (*models.User, error) {
	query :=
		`UPDATE users SET document = $1, updated_at = NOW()
		 WHERE id = $2
		 RETURNING id, email, password_hash, document, created_at, updated_at`
	return r.scanOne(r.db.QueryRowContext(ctx, query, nullString(doc), id))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	var doc sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &doc, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if doc.Valid {
		u.Document = &doc.String
	}
	return u, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// PostgresStore is the Store backed by a *sql.DB.
type PostgresStore struct {
	*PostgresRepository
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{PostgresRepository: NewPostgresRepository(db), db: db}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	return database.WithTx(ctx, s.db, nil, func(ctx context.Context, tx database.DBTX) error {
		return fn(ctx, &txRepository{PostgresRepository: NewPostgresRepository(tx)})
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// txRepository locks the row on read so the read-modify-write in a transaction is serialized.
type txRepository struct {
	*PostgresRepository
}

func (r *txRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query :=
		`SELECT id, email, password_hash, document, created_at, updated_at FROM users
		 WHERE id = $1
		 FOR UPDATE`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}
