package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/m0hi1/voyageiq/internal/domain/entity"
	"github.com/m0hi1/voyageiq/internal/domain/repository"
)

const userColumns = `id, username, email, password_hash, google_id, auth_provider, role,
	avatar_url, reset_token_hash, reset_token_expiry, created_at, updated_at, last_login_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var resetHash *string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.GoogleID,
		&u.AuthProvider, &u.Role, &u.AvatarURL, &resetHash, &u.ResetTokenExpiry,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if resetHash != nil {
		u.ResetTokenHash = *resetHash
	}
	return u, nil
}

// mapUniqueViolation translates a 23505 into the matching sentinel based on
// the violated constraint name.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return err
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "email"):
		return repository.ErrDuplicateEmail
	case strings.Contains(pgErr.ConstraintName, "username"):
		return repository.ErrDuplicateUsername
	default:
		return err
	}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	var hash *string
	if u.ResetTokenHash != "" {
		hash = &u.ResetTokenHash
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, username, email, password_hash, google_id, auth_provider, role, avatar_url, reset_token_hash, reset_token_expiry)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, u.ID, u.Username, strings.ToLower(u.Email), u.PasswordHash, u.GoogleID, u.AuthProvider, u.Role, u.AvatarURL, hash, u.ResetTokenExpiry)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
	return scanUser(row)
}

func (r *UserRepository) GetByGoogleID(ctx context.Context, googleID string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID)
	return scanUser(row)
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET username = $1, email = $2, password_hash = $3, google_id = $4,
			auth_provider = $5, role = $6, avatar_url = $7, updated_at = $8
		WHERE id = $9
	`, u.Username, strings.ToLower(u.Email), u.PasswordHash, u.GoogleID,
		u.AuthProvider, u.Role, u.AvatarURL, u.UpdatedAt, u.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// LinkGoogleID performs the conditional link described by the repository
// contract: the WHERE clause guards against clobbering an existing link
// under concurrent sign-ins, so the decision between "already linked by us"
// and "linked to someone else" is made on a fresh read by the caller.
func (r *UserRepository) LinkGoogleID(ctx context.Context, userID, googleID, avatarURL string) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET google_id = $2,
			auth_provider = 'google',
			avatar_url = CASE WHEN avatar_url = '' THEN $3 ELSE avatar_url END,
			updated_at = now()
		WHERE id = $1 AND google_id IS NULL
	`, userID, googleID, avatarURL)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, userID, tokenHash string, expiry time.Time) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET reset_token_hash = $2, reset_token_expiry = $3, updated_at = now()
		WHERE id = $1
	`, userID, tokenHash, expiry)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE reset_token_hash = $1 AND reset_token_expiry > $2
	`, tokenHash, now)
	return scanUser(row)
}

func (r *UserRepository) UpdatePasswordAndClearReset(ctx context.Context, userID, passwordHash string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, reset_token_hash = NULL, reset_token_expiry = NULL, updated_at = now()
		WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, userID, at)
	return err
}

var _ repository.UserRepository = (*UserRepository)(nil)
