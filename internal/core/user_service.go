package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type userService struct {
	pool *pgxpool.Pool
}

// NewUserService constructs a UserService backed by PostgreSQL.
func NewUserService(pool *pgxpool.Pool) UserService {
	return &userService{pool: pool}
}

const userColumns = `id, username, email, password_hash, department_id, role, is_active, created_at`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DepartmentID,
		&u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1 AND is_active = TRUE LIMIT 1",
		username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch user %q: %w", username, err)
	}
	return u, nil
}

func (s *userService) GetByID(ctx context.Context, userID int) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user id=%d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch user id=%d: %w", userID, err)
	}
	return u, nil
}

func (s *userService) Create(ctx context.Context, input UserInput) (*User, error) {
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" {
		return nil, fmt.Errorf("username is required: %w", ErrValidation)
	}
	if len(input.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters: %w", ErrValidation)
	}
	if _, ok := ParseRole(string(input.Role)); !ok {
		return nil, fmt.Errorf("unknown role %q: %w", input.Role, ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var userID int
	err = s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, department_id, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO NOTHING
		RETURNING id`,
		input.Username, strings.TrimSpace(input.Email), string(hash), input.DepartmentID, string(input.Role)).
		Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %q already exists: %w", input.Username, ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return s.GetByID(ctx, userID)
}

func (s *userService) List(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *userService) SetPassword(ctx context.Context, userID int, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters: %w", ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		"UPDATE users SET password_hash = $1 WHERE id = $2", string(hash), userID)
	if err != nil {
		return fmt.Errorf("failed to update password for user id=%d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user id=%d: %w", userID, ErrNotFound)
	}
	return nil
}

func (s *userService) Deactivate(ctx context.Context, userID int) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE users SET is_active = FALSE WHERE id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate user id=%d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user id=%d: %w", userID, ErrNotFound)
	}
	return nil
}

// VerifyPassword compares a plaintext password with the stored hash.
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
