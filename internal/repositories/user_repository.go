package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fablab/fablab-registration/internal/models"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, phone, application_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		string(user.ApplicationType),
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, name, email, phone, application_type, created_at FROM users WHERE id = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email; nil when none exists
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, name, email, phone, application_type, created_at FROM users WHERE email = ? COLLATE NOCASE`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting user by email: %w", err)
	}
	return user, nil
}

// UpdateProfile refreshes the contact details and applicant type
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, phone = ?, application_type = ? WHERE id = ?`,
		user.Name, user.Phone, string(user.ApplicationType), user.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	return ensureAffected(result, "user", user.ID)
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var applicationType string
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&applicationType,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.ApplicationType = models.ApplicationType(applicationType)
	return &user, nil
}
