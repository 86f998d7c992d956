// Package auth handles registration and login. Passwords are stored as
// bcrypt hashes; successful logins are answered with a signed JWT
// carrying the user id and role.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"tickethub/internal/domain"
	"tickethub/internal/pkg/jwt"
	"tickethub/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type Service struct {
	users *repository.UserRepository
	jwt   *jwt.Service
}

func NewService(users *repository.UserRepository, jwtSvc *jwt.Service) *Service {
	return &Service{users: users, jwt: jwtSvc}
}

type LoginResult struct {
	User  *domain.User
	Token string
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email %s already registered: %w", email, domain.ErrInvalidState)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := domain.RoleAttendee
	if req.Role == string(domain.RoleOrganizer) {
		role = domain.RoleOrganizer
	}
	u := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	token, err := s.jwt.Issue(u.ID, string(u.Role))
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, Token: token}, nil
}
