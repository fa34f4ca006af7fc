package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/domain/identity"
	"github.com/stockitup/backend/internal/domain/shared"
	"github.com/stockitup/backend/internal/infrastructure/auth"
	"github.com/stockitup/backend/internal/infrastructure/cache"
	"github.com/stockitup/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindStaff(ctx context.Context) ([]identity.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]identity.User), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type fixture struct {
	svc           *AuthService
	repo          *MockUserRepository
	jwt           *auth.JWTService
	authenticator *auth.Authenticator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := cache.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	jwtService := auth.NewJWTService("test-secret-key-at-least-32-chars", config.SessionConfig{
		CookieAge:   time.Hour,
		Issuer:      "stock-it-up",
		APITokenTTL: 24 * time.Hour,
	})
	authenticator := auth.NewAuthenticator(jwtService, auth.NewStoreTokenBlacklist(store))
	repo := new(MockUserRepository)
	return &fixture{
		svc:           NewAuthService(repo, jwtService, authenticator, nil),
		repo:          repo,
		jwt:           jwtService,
		authenticator: authenticator,
	}
}

func newTestUser(t *testing.T) *identity.User {
	t.Helper()
	u, err := identity.NewUser("jan@example.com", "Jan", "correct horse")
	require.NoError(t, err)
	return u
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a session token", func(t *testing.T) {
		f := newFixture(t)
		user := newTestUser(t)
		f.repo.On("FindByEmail", ctx, "jan@example.com").Return(user, nil)
		f.repo.On("Save", ctx, user).Return(nil)

		result, err := f.svc.Login(ctx, LoginRequest{Email: "jan@example.com", Password: "correct horse"})
		require.NoError(t, err)
		assert.Equal(t, user.ID, result.User.ID)
		assert.NotNil(t, result.User.LastLoginAt)

		claims, err := f.jwt.ValidateTokenOfType(result.Token, auth.TokenTypeSession)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID)
		f.repo.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByEmail", ctx, "jan@example.com").Return(newTestUser(t), nil)

		_, err := f.svc.Login(ctx, LoginRequest{Email: "jan@example.com", Password: "wrong password"})
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByEmail", ctx, "nobody@example.com").Return(nil, shared.NotFound("user"))

		_, err := f.svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "whatever1"})
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	t.Run("inactive account", func(t *testing.T) {
		f := newFixture(t)
		user := newTestUser(t)
		user.IsActive = false
		f.repo.On("FindByEmail", ctx, "jan@example.com").Return(user, nil)

		_, err := f.svc.Login(ctx, LoginRequest{Email: "jan@example.com", Password: "correct horse"})
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := newTestUser(t)
	f.repo.On("FindByEmail", ctx, "jan@example.com").Return(user, nil)
	f.repo.On("Save", ctx, user).Return(nil)

	result, err := f.svc.Login(ctx, LoginRequest{Email: "jan@example.com", Password: "correct horse"})
	require.NoError(t, err)

	claims, err := f.authenticator.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, claims))

	_, err = f.authenticator.Authenticate(ctx, result.Token)
	assert.ErrorIs(t, err, auth.ErrTokenBlacklisted)
	assert.NoError(t, f.svc.Logout(ctx, nil))
}

func TestAuthService_CreateSuperuser(t *testing.T) {
	ctx := context.Background()

	t.Run("creates staff account", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("ExistsByEmail", ctx, "admin@example.com").Return(false, nil)
		f.repo.On("Save", ctx, mock.AnythingOfType("*identity.User")).Return(nil)

		user, err := f.svc.CreateSuperuser(ctx, "Admin@Example.com", "s3cret-pass")
		require.NoError(t, err)
		assert.Equal(t, "admin@example.com", user.Email)
		assert.True(t, user.IsStaff)
		assert.True(t, user.IsSuperuser)
		assert.True(t, user.VerifyPassword("s3cret-pass"))
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("ExistsByEmail", ctx, "admin@example.com").Return(true, nil)

		_, err := f.svc.CreateSuperuser(ctx, "admin@example.com", "s3cret-pass")
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects short password", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateSuperuser(ctx, "admin@example.com", "short")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestAuthService_Signup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.repo.On("ExistsByEmail", ctx, "new@example.com").Return(false, nil)
	f.repo.On("Save", ctx, mock.AnythingOfType("*identity.User")).Return(nil)

	result, err := f.svc.Signup(ctx, SignupRequest{Email: "new@example.com", Name: "New", Password: "long enough"})
	require.NoError(t, err)
	assert.False(t, result.User.IsStaff)
	assert.NotEmpty(t, result.Token)
}

func TestAuthService_IssueAPIToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := newTestUser(t)
	f.repo.On("FindByID", ctx, user.ID).Return(user, nil)

	issued, err := f.svc.IssueAPIToken(ctx, user.ID)
	require.NoError(t, err)
	claims, err := f.jwt.ValidateTokenOfType(issued.Token, auth.TokenTypeAPI)
	require.NoError(t, err)

	info, err := f.svc.CurrentUser(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, "jan@example.com", info.Email)

	missing := uuid.New()
	f.repo.On("FindByID", ctx, missing).Return(nil, shared.NotFound("user"))
	_, err = f.svc.IssueAPIToken(ctx, missing)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = f.svc.CurrentUser(ctx, nil)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}
