package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	accounts "coldwatch/internal/accounts/domain"
)

const defaultUsersTable = "users"

// UserRepository is a Postgres implementation for user accounts.
type UserRepository struct {
	db    *sql.DB
	table string
}

// RepositoryOption configures the repository.
type RepositoryOption func(*UserRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *UserRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewUserRepository constructs a repository with default table name.
func NewUserRepository(db *sql.DB, opts ...RepositoryOption) *UserRepository {
	repo := &UserRepository{db: db, table: defaultUsersTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Create inserts a new user. A duplicate username maps to ErrUsernameTaken.
func (r *UserRepository) Create(ctx context.Context, user accounts.User) (*accounts.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repo: nil db")
	}
	if user.Username == "" || user.PasswordHash == "" {
		return nil, errors.New("user repo: missing username or password hash")
	}

	var exists bool
	existsQuery := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE username = $1)`, r.table)
	if err := r.db.QueryRowContext(ctx, existsQuery, user.Username).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, accounts.ErrUsernameTaken
	}

	query := fmt.Sprintf(`
INSERT INTO %s (username, password_hash, whatsapp)
VALUES ($1, $2, $3)
RETURNING id`, r.table)

	created := user
	if err := r.db.QueryRowContext(ctx, query, user.Username, user.PasswordHash, nullString(user.WhatsApp)).Scan(&created.ID); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetByID loads a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*accounts.User, error) {
	query := fmt.Sprintf(`SELECT id, username, password_hash, COALESCE(whatsapp, '') FROM %s WHERE id = $1`, r.table)
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByUsername loads a user by unique username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*accounts.User, error) {
	query := fmt.Sprintf(`SELECT id, username, password_hash, COALESCE(whatsapp, '') FROM %s WHERE username = $1`, r.table)
	return r.scanOne(r.db.QueryRowContext(ctx, query, username))
}

// GetByWhatsApp loads a user by chat contact identifier.
func (r *UserRepository) GetByWhatsApp(ctx context.Context, contact string) (*accounts.User, error) {
	if contact == "" {
		return nil, accounts.ErrNotFound
	}
	query := fmt.Sprintf(`SELECT id, username, password_hash, COALESCE(whatsapp, '') FROM %s WHERE whatsapp = $1`, r.table)
	return r.scanOne(r.db.QueryRowContext(ctx, query, contact))
}

// UpdateProfile overwrites contact and/or password hash. Empty values are
// left unchanged.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, whatsapp, passwordHash string) error {
	if r == nil || r.db == nil {
		return errors.New("user repo: nil db")
	}
	query := fmt.Sprintf(`
UPDATE %s SET
	whatsapp = CASE WHEN $2 <> '' THEN $2 ELSE whatsapp END,
	password_hash = CASE WHEN $3 <> '' THEN $3 ELSE password_hash END
WHERE id = $1`, r.table)

	result, err := r.db.ExecContext(ctx, query, id, whatsapp, passwordHash)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return accounts.ErrNotFound
	}
	return nil
}

func (r *UserRepository) scanOne(row *sql.Row) (*accounts.User, error) {
	var user accounts.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.WhatsApp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, accounts.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
