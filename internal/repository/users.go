package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/householdledger/server/internal/models"
	"github.com/householdledger/server/internal/utils"
)

// GetAllUsers lists users ordered by username, without password hashes
func (r *PostgresRepository) GetAllUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return users, err
	}

	query := `
		SELECT id, username, role, full_name, email, created_at, last_login
		FROM users
		ORDER BY username
	`
	if err := db.SelectContext(ctx, &users, query); err != nil {
		return []models.User{}, r.storageErr("list users", err)
	}
	return users, nil
}

func validRole(role string) bool {
	return role == models.RoleAdmin || role == models.RoleUser
}

// CreateUser hashes the password and inserts a new user
func (r *PostgresRepository) CreateUser(
	ctx context.Context,
	username, password, role string,
	fullName, email *string,
) (int64, error) {
	if strings.TrimSpace(username) == "" {
		return 0, NewValidationError("username", "username is required")
	}
	if password == "" {
		return 0, NewValidationError("password", "password is required")
	}
	if !validRole(role) {
		return 0, NewValidationError("role", "role must be 'admin' or 'user'")
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return 0, NewValidationError("password", "password cannot be hashed: "+err.Error())
	}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return 0, err
	}

	var id int64
	err = db.GetContext(ctx, &id, `
		INSERT INTO users (username, password, role, full_name, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, username, hashed, role, nullIfEmpty(fullName), nullIfEmpty(email))
	if err != nil {
		return 0, r.writeErr("create user", err)
	}

	r.logger.Info("user created", utils.FieldID, id, "username", username)
	return id, nil
}

// UpdateUser sets the profile fields and, when newPassword is non-empty,
// resets the password.
func (r *PostgresRepository) UpdateUser(
	ctx context.Context,
	userID int64,
	fullName, email *string,
	newPassword string,
) error {
	var (
		query string
		args  []interface{}
	)
	if newPassword != "" {
		hashed, err := utils.HashPassword(newPassword)
		if err != nil {
			return NewValidationError("newPassword", "password cannot be hashed: "+err.Error())
		}
		query = `
			UPDATE users
			SET full_name = $1, email = $2, password = $3
			WHERE id = $4
			RETURNING id
		`
		args = []interface{}{nullIfEmpty(fullName), nullIfEmpty(email), hashed, userID}
	} else {
		query = `
			UPDATE users
			SET full_name = $1, email = $2
			WHERE id = $3
			RETURNING id
		`
		args = []interface{}{nullIfEmpty(fullName), nullIfEmpty(email), userID}
	}

	db, err := r.ensureConnection(ctx)
	if err != nil {
		return err
	}

	var id int64
	if err := db.GetContext(ctx, &id, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("user", userID)
		}
		return r.writeErr("update user", err)
	}
	return nil
}

// DeleteUser removes a user
func (r *PostgresRepository) DeleteUser(ctx context.Context, userID int64) error {
	db, err := r.ensureConnection(ctx)
	if err != nil {
		return err
	}

	var id int64
	if err := db.GetContext(ctx, &id, `DELETE FROM users WHERE id = $1 RETURNING id`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("user", userID)
		}
		return r.storageErr("delete user", err)
	}

	r.logger.Info("user deleted", utils.FieldID, userID)
	return nil
}

// VerifyLogin returns the user matching the credentials, or nil when they
// do not match. A successful login stamps last_login and replaces a legacy
// unsalted digest with a bcrypt hash.
func (r *PostgresRepository) VerifyLogin(ctx context.Context, username, password string) (*models.User, error) {
	db, err := r.ensureConnection(ctx)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = db.GetContext(ctx, &user, `
		SELECT id, username, password, role, full_name, email, created_at, last_login
		FROM users
		WHERE username = $1
	`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Unknown user
		}
		return nil, r.storageErr("verify login", err)
	}

	if !utils.CheckPassword(user.Password, password) {
		return nil, nil
	}

	if utils.IsLegacyHash(user.Password) {
		if hashed, err := utils.HashPassword(password); err == nil {
			if _, err := db.ExecContext(ctx, `UPDATE users SET password = $1 WHERE id = $2`, hashed, user.ID); err != nil {
				r.logger.Warn("password rehash failed", utils.FieldID, user.ID, utils.FieldError, err)
			}
		}
	}

	var lastLogin time.Time
	if err := db.GetContext(ctx, &lastLogin, `
		UPDATE users
		SET last_login = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING last_login
	`, user.ID); err != nil {
		return nil, r.storageErr("update last login", err)
	}

	user.LastLogin = &lastLogin
	user.Password = ""
	return &user, nil
}
