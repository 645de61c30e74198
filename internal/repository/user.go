package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gitjobs/gitjobs/internal/database"
	"github.com/gitjobs/gitjobs/internal/model"
)

// ErrEmailTaken is returned when signing up with an email that already has
// an account.
var ErrEmailTaken = errors.New("email already registered")

// UserRepository handles the user table.
type UserRepository struct {
	db database.Querier
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db database.Querier) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and returns it with the generated id and email
// verification code.
func (r *UserRepository) Create(ctx context.Context, email, name, passwordHash string) (*model.User, error) {
	u := model.User{Email: email, Name: name, PasswordHash: passwordHash}
	err := r.db.QueryRow(ctx, `
		insert into "user" (email, name, password_hash)
		values ($1, $2, $3)
		returning user_id, email_verification_code`,
		email, name, passwordHash,
	).Scan(&u.ID, &u.VerificationCode)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return &u, nil
}

// GetByEmail returns the user with the given email, or database.ErrNotFound.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx, `
		select user_id, email, name, coalesce(password_hash, ''), email_verified
		from "user"
		where email = $1`,
		email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.EmailVerified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return &u, nil
}

// VerifyEmail marks the account holding the given verification code as
// verified and burns the code. It returns database.ErrNotFound when the code
// does not match any unverified account.
func (r *UserRepository) VerifyEmail(ctx context.Context, code uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		update "user"
		set email_verified = true, email_verification_code = null
		where email_verification_code = $1 and email_verified = false`,
		code,
	)
	if err != nil {
		return fmt.Errorf("error verifying email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}
