package token

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ktarasov/placehub/internal/models"
	"github.com/ktarasov/placehub/internal/repo"
)

func newTestService(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps every goroutine on the same in-memory DB
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.BlockedRefreshToken{}))

	return NewService(repo.New(db), []byte("test-secret"), 15*time.Minute, 7*24*time.Hour)
}

func testUser() *models.User {
	return &models.User{
		ID:       42,
		Email:    "user@example.com",
		FullName: "Test User",
		Roles:    []string{models.RoleModerator},
	}
}

func TestIssueAccessAndVerify(t *testing.T) {
	svc := newTestService(t)

	raw, err := svc.IssueAccess(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := svc.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, "user@example.com", claims.Email)
	require.Equal(t, "Test User", claims.FullName)
	require.Equal(t, []string{models.RoleModerator}, claims.Roles)

	id, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, uint(42), id)
}

func TestVerifyRejectsExpired(t *testing.T) {
	svc := newTestService(t)
	svc.AccessTTL = -time.Minute

	raw, err := svc.IssueAccess(testUser())
	require.NoError(t, err)

	_, err = svc.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	svc := newTestService(t)
	other := newTestService(t)
	other.Secret = []byte("other-secret")

	raw, err := other.IssueAccess(testUser())
	require.NoError(t, err)

	_, err = svc.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsRefreshToken(t *testing.T) {
	svc := newTestService(t)

	raw, err := svc.IssueRefresh(context.Background(), testUser())
	require.NoError(t, err)

	_, err = svc.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRedeemRefresh(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	raw, err := svc.IssueRefresh(ctx, testUser())
	require.NoError(t, err)

	claims, err := svc.RedeemRefresh(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)
	require.NotEmpty(t, claims.ID)

	_, err = svc.RedeemRefresh(ctx, raw)
	require.ErrorIs(t, err, ErrTokenReplayed)
}

func TestRedeemRefreshRejectsAccessToken(t *testing.T) {
	svc := newTestService(t)

	raw, err := svc.IssueAccess(testUser())
	require.NoError(t, err)

	_, err = svc.RedeemRefresh(context.Background(), raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRedeemRefreshConcurrent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	raw, err := svc.IssueRefresh(ctx, testUser())
	require.NoError(t, err)

	const attempts = 10
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RedeemRefresh(ctx, raw)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	replayed := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrTokenReplayed):
			replayed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded, "exactly one redemption must win")
	require.Equal(t, attempts-1, replayed)
}

func TestDecodeIsNonVerifying(t *testing.T) {
	svc := newTestService(t)
	svc.Secret = []byte("some-other-secret")

	raw, err := svc.IssueAccess(testUser())
	require.NoError(t, err)

	claims := Decode(raw)
	require.NotNil(t, claims)
	require.Equal(t, "user@example.com", claims.Email)

	require.Nil(t, Decode("not-a-token"))
}
