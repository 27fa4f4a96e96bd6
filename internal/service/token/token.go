package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ktarasov/placehub/internal/models"
	"github.com/ktarasov/placehub/internal/repo"
)

var (
	// ErrInvalidToken covers bad signature, wrong signing method and expiry.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenReplayed signals the refresh token's jti was already redeemed.
	ErrTokenReplayed = errors.New("refresh token already redeemed")
)

const (
	typAccess  = "access"
	typRefresh = "refresh"
)

type Claims struct {
	jwt.RegisteredClaims
	Email    string   `json:"email"`
	FullName string   `json:"fullname"`
	Roles    []string `json:"roles,omitempty"`
	Typ      string   `json:"typ"`
}

// UserID parses the subject claim back into a user id.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad subject %q: %w", c.Subject, err)
	}
	return uint(id), nil
}

// Ledger is the persisted record of consumed refresh-token identifiers.
type Ledger interface {
	LedgerContains(ctx context.Context, jti string) (bool, error)
	LedgerInsert(ctx context.Context, jti string) error
}

type Service struct {
	Ledger     Ledger
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewService(ledger Ledger, secret []byte, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		Ledger:     ledger,
		Secret:     secret,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
	}
}

// IssueAccess signs a short-lived access token carrying the user's identity
// and a snapshot of their role set.
func (s *Service) IssueAccess(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.AccessTTL)),
		},
		Email:    user.Email,
		FullName: user.FullName,
		Roles:    user.Roles,
		Typ:      typAccess,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.Secret)
}

// IssueRefresh signs a long-lived single-use refresh token. The jti is
// regenerated while it collides with a ledger entry, so a freshly issued
// token can never be born already revoked.
func (s *Service) IssueRefresh(ctx context.Context, user *models.User) (string, error) {
	jti := uuid.NewString()
	for {
		taken, err := s.Ledger.LedgerContains(ctx, jti)
		if err != nil {
			return "", fmt.Errorf("ledger lookup: %w", err)
		}
		if !taken {
			break
		}
		jti = uuid.NewString()
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.RefreshTTL)),
		},
		Email:    user.Email,
		FullName: user.FullName,
		Typ:      typRefresh,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.Secret)
}

func (s *Service) parse(raw string) (*Claims, error) {
	var claims Claims
	t, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.Secret, nil
	})
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// Verify validates an access token's signature and expiry.
func (s *Service) Verify(raw string) (*Claims, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	if claims.Typ != typAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RedeemRefresh validates a refresh token and consumes its jti. The ledger
// insert is the atomic check-and-consume: concurrent redemptions of the same
// token race on the unique jti index and exactly one wins.
func (s *Service) RedeemRefresh(ctx context.Context, raw string) (*Claims, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	if claims.Typ != typRefresh || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	if err := s.Ledger.LedgerInsert(ctx, claims.ID); err != nil {
		if errors.Is(err, repo.ErrLedgerDuplicate) {
			return nil, ErrTokenReplayed
		}
		return nil, fmt.Errorf("ledger insert: %w", err)
	}

	return claims, nil
}

// Decode inspects a token without verifying it. Diagnostic use only.
func Decode(raw string) *Claims {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil
	}
	return &claims
}
