package auth

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ktarasov/placehub/internal/models"
	"github.com/ktarasov/placehub/internal/repo"
	"github.com/ktarasov/placehub/internal/service/token"
)

func newTestAuth(t *testing.T) (*Service, *repo.GormRepo) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.BlockedRefreshToken{}))

	dataRepo := repo.New(db)
	tokens := token.NewService(dataRepo, []byte("test-secret"), 15*time.Minute, 7*24*time.Hour)
	return NewService(dataRepo, tokens), dataRepo
}

func register(t *testing.T, svc *Service, email string) *TokenPair {
	pair, err := svc.Register(context.Background(), RegisterParams{
		Email:    email,
		FullName: "Test User",
		Password: "password",
	})
	require.NoError(t, err)
	return pair
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	regPair := register(t, svc, "user@example.com")
	require.NotEmpty(t, regPair.AccessToken)
	require.NotEmpty(t, regPair.RefreshToken)
	require.Equal(t, "Bearer", regPair.TokenType)

	pair, err := svc.Login(ctx, "user@example.com", "password")
	require.NoError(t, err)

	claims, err := svc.Tokens.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user@example.com", claims.Email)
	require.True(t, claims.ExpiresAt.After(time.Now()))

	refreshClaims := token.Decode(pair.RefreshToken)
	require.NotNil(t, refreshClaims)
	require.NotEmpty(t, refreshClaims.ID)
	require.True(t, refreshClaims.ExpiresAt.After(time.Now()))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestAuth(t)

	register(t, svc, "user@example.com")

	_, err := svc.Register(context.Background(), RegisterParams{
		Email:    "user@example.com",
		FullName: "Someone Else",
		Password: "other",
	})
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegisterDuplicateTel(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	tel := "+15550001"
	_, err := svc.Register(ctx, RegisterParams{
		Email:    "first@example.com",
		Tel:      &tel,
		FullName: "First",
		Password: "password",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterParams{
		Email:    "second@example.com",
		Tel:      &tel,
		FullName: "Second",
		Password: "password",
	})
	require.ErrorIs(t, err, ErrDuplicateTel)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	register(t, svc, "user@example.com")

	_, errWrongPassword := svc.Login(ctx, "user@example.com", "wrong")
	_, errUnknownEmail := svc.Login(ctx, "nobody@example.com", "password")

	require.ErrorIs(t, errWrongPassword, ErrInvalidCredentials)
	require.ErrorIs(t, errUnknownEmail, ErrInvalidCredentials)
	assert.Equal(t, errWrongPassword.Error(), errUnknownEmail.Error(),
		"callers must not be able to tell which part was wrong")
}

func TestRefreshRotation(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	pair := register(t, svc, "user@example.com")

	rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// the old token is spent
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, token.ErrTokenReplayed)

	// the new one still works
	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshPicksUpRoleChanges(t *testing.T) {
	svc, dataRepo := newTestAuth(t)
	ctx := context.Background()

	pair := register(t, svc, "user@example.com")

	claims, err := svc.Tokens.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Empty(t, claims.Roles)

	id, err := claims.UserID()
	require.NoError(t, err)
	_, err = dataRepo.UpdateUserRoles(ctx, id, []string{models.RoleModerator})
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	newClaims, err := svc.Tokens.Verify(rotated.AccessToken)
	require.NoError(t, err)
	require.Equal(t, []string{models.RoleModerator}, newClaims.Roles)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	svc, _ := newTestAuth(t)

	_, err := svc.Refresh(context.Background(), "not-a-token")
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestCurrentUserReFetches(t *testing.T) {
	svc, dataRepo := newTestAuth(t)
	ctx := context.Background()

	pair := register(t, svc, "user@example.com")
	claims, err := svc.Tokens.Verify(pair.AccessToken)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	_, err = dataRepo.UpdateUserRoles(ctx, id, []string{models.RoleModerator})
	require.NoError(t, err)

	user, err := svc.CurrentUser(ctx, claims)
	require.NoError(t, err)
	require.Equal(t, "user@example.com", user.Email)
	require.Equal(t, []string{models.RoleModerator}, user.Roles,
		"token role snapshot must not shadow the stored record")
}
