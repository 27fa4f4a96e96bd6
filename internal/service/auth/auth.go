package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/ktarasov/placehub/internal/hash"
	"github.com/ktarasov/placehub/internal/logging"
	"github.com/ktarasov/placehub/internal/models"
	"github.com/ktarasov/placehub/internal/repo"
	"github.com/ktarasov/placehub/internal/service/token"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password.
	// Callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateEmail     = errors.New("user with that email already exists")
	ErrDuplicateTel       = errors.New("user with that tel already exists")
)

// UserStore is the slice of persistence the orchestrator needs.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	FindUserByTel(ctx context.Context, tel string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type RegisterParams struct {
	Email    string
	Tel      *string
	FullName string
	Password string
}

type Service struct {
	Repo   UserStore
	Tokens *token.Service
}

func NewService(repo UserStore, tokens *token.Service) *Service {
	return &Service{Repo: repo, Tokens: tokens}
}

func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login failed", "reason", "credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login failed", "reason", "credentials")
		return nil, ErrInvalidCredentials
	}

	return s.issuePair(ctx, user)
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if _, err := s.Repo.FindUserByEmail(ctx, params.Email); err == nil {
		l.Warn("register failed", "reason", "duplicate email")
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	if params.Tel != nil {
		if _, err := s.Repo.FindUserByTel(ctx, *params.Tel); err == nil {
			l.Warn("register failed", "reason", "duplicate tel")
			return nil, ErrDuplicateTel
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("check tel: %w", err)
		}
	}

	pwHash, err := hash.HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        params.Email,
		Tel:          params.Tel,
		FullName:     params.FullName,
		PasswordHash: pwHash,
		Roles:        []string{},
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	l.Info("user registered", "user_id", user.ID)
	return s.issuePair(ctx, user)
}

// Refresh redeems a refresh token and mints a brand-new pair. The redeemed
// token is unusable afterwards regardless of the outcome here. The user is
// re-fetched so the new access token carries the current role set instead of
// the snapshot embedded when the refresh token was signed.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.Tokens.RedeemRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	id, err := claims.UserID()
	if err != nil {
		return nil, token.ErrInvalidToken
	}

	user, err := s.Repo.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, token.ErrInvalidToken
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	return s.issuePair(ctx, user)
}

// CurrentUser resolves the user record behind verified access-token claims.
// The record is re-read so role changes since issuance are visible.
func (s *Service) CurrentUser(ctx context.Context, claims *token.Claims) (*models.User, error) {
	id, err := claims.UserID()
	if err != nil {
		return nil, token.ErrInvalidToken
	}
	return s.Repo.FindUserByID(ctx, id)
}

func (s *Service) issuePair(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := s.Tokens.IssueAccess(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.Tokens.IssueRefresh(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}, nil
}
