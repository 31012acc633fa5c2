package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"taskboard/internal/models"
)

const userColumns = `u.id, u.google_id, u.email, u.name, u.role_id, r.name, u.created_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.GoogleID, &u.Email, &u.Name, &u.RoleID, &u.RoleName, &u.CreatedAt)
	return u, err
}

// GetUser fetches a single user by id together with its role name.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users u JOIN roles r ON r.id = u.role_id WHERE u.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, notFound("user", id)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByGoogleID looks a user up by the subject of their Google identity.
func (s *Store) GetUserByGoogleID(ctx context.Context, googleID string) (models.User, error) {
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users u JOIN roles r ON r.id = u.role_id WHERE u.google_id = ?`, googleID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, notFound("user with google id", googleID)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user by google id: %w", err)
	}
	return u, nil
}

// ListUsers returns every user ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.query(ctx, `SELECT `+userColumns+` FROM users u JOIN roles r ON r.id = u.role_id ORDER BY u.name, u.id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateUser persists a new user. The id is generated when empty.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	if strings.TrimSpace(u.GoogleID) == "" {
		return models.User{}, fmt.Errorf("google id must not be empty")
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	_, err := s.exec(ctx, `INSERT INTO users(id, google_id, email, name, role_id, created_at) VALUES(?, ?, ?, ?, ?, ?)`,
		u.ID, u.GoogleID, u.Email, u.Name, u.RoleID, s.timestamp())
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUser(ctx, u.ID)
}

// UpdateUserRole moves a user to another role.
func (s *Store) UpdateUserRole(ctx context.Context, userID, roleID string) (models.User, error) {
	res, err := s.exec(ctx, `UPDATE users SET role_id = ? WHERE id = ?`, roleID, userID)
	if err != nil {
		return models.User{}, fmt.Errorf("update user role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.User{}, err
	}
	if affected == 0 {
		return models.User{}, notFound("user", userID)
	}
	return s.GetUser(ctx, userID)
}
