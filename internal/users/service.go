package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// ErrDuplicateEmail indicates an account with that email already exists.
var ErrDuplicateEmail = errors.New("users: email already registered")

// ErrNotFound indicates the account does not exist.
var ErrNotFound = errors.New("users: not found")

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, email, name, passwordHash string, tenantID *uuid.UUID) (User, error)
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
}

// Service handles user administration logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// CreateUser hashes the password and stores the account.
func (s *Service) CreateUser(ctx context.Context, email, name, password string, tenantID *uuid.UUID) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.CreateUser(ctx, email, strings.TrimSpace(name), string(hash), tenantID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrDuplicateEmail
		}
		return User{}, err
	}
	return user, nil
}

// SetActive enables or disables an account.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	found, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}
