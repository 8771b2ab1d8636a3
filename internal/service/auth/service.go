package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"todo-app-backend/internal/database"
	internaljwt "todo-app-backend/internal/jwt"
	"todo-app-backend/internal/model"

	"github.com/google/uuid"
)

const minPasswordLength = 6

type Service struct {
	repo   Repository
	tokens *internaljwt.Issuer
	now    func() time.Time
}

func New(db *database.Database, tokens *internaljwt.Issuer) *Service {
	return NewWithRepository(NewDynamoRepository(db), tokens, time.Now)
}

func NewWithRepository(repo Repository, tokens *internaljwt.Issuer, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo:   repo,
		tokens: tokens,
		now:    now,
	}
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (AuthResult, error) {
	email := normalizeEmail(params.Email)
	password := strings.TrimSpace(params.Password)
	name := strings.TrimSpace(params.Name)

	if email == "" || password == "" || name == "" {
		return AuthResult{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}
	if !strings.Contains(email, "@") {
		return AuthResult{}, newError(ErrorCodeValidation, "invalid email address", nil)
	}
	if len(password) < minPasswordLength {
		return AuthResult{}, newError(ErrorCodeValidation, "password is too short", nil)
	}

	_, err := s.repo.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return AuthResult{}, newError(ErrorCodeConflict, "email already registered", nil)
	case !errors.Is(err, ErrNotFound):
		return AuthResult{}, newError(ErrorCodeInternal, "failed to check email", err)
	}

	hash, err := internaljwt.HashPassword(password)
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to prepare user", err)
	}

	user := model.UserItem{
		UserID:       uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to save user", err)
	}

	return s.issue(user)
}

func (s *Service) Login(ctx context.Context, params LoginParams) (AuthResult, error) {
	email := normalizeEmail(params.Email)
	password := strings.TrimSpace(params.Password)

	if email == "" || password == "" {
		return AuthResult{}, newError(ErrorCodeValidation, "missing required fields", nil)
	}

	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", nil)
		}
		return AuthResult{}, newError(ErrorCodeInternal, "failed to fetch user", err)
	}

	if !internaljwt.ValidatePassword(user.PasswordHash, password) {
		return AuthResult{}, newError(ErrorCodeUnauthorized, "invalid credentials", nil)
	}

	return s.issue(user)
}

func (s *Service) Me(ctx context.Context, identity Identity) (model.UserItem, error) {
	userID := strings.TrimSpace(identity.UserID)
	if userID == "" {
		return model.UserItem{}, newError(ErrorCodeUnauthorized, "invalid user identity", nil)
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.UserItem{}, newError(ErrorCodeNotFound, "user not found", err)
		}
		return model.UserItem{}, newError(ErrorCodeInternal, "failed to fetch user", err)
	}

	return user, nil
}

func (s *Service) IdentityFromAuthorizationHeader(header string) (Identity, error) {
	authHeader := strings.TrimSpace(header)
	if authHeader == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "missing authorization header", nil)
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid authorization header format", nil)
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "empty token", nil)
	}

	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid token", err)
	}
	if claims.UserID == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "token missing identifiers", nil)
	}

	return Identity{
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}

func (s *Service) issue(user model.UserItem) (AuthResult, error) {
	token, err := s.tokens.CreateToken(internaljwt.User{
		Id:    user.UserID,
		Email: user.Email,
	})
	if err != nil {
		return AuthResult{}, newError(ErrorCodeInternal, "failed to issue tokens", err)
	}

	return AuthResult{
		User:        user,
		AccessToken: token,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
