package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/domain/identity"
	"github.com/stockitup/backend/internal/domain/shared"
	"github.com/stockitup/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// ErrAccountDisabled is returned when an inactive user tries to sign in
var ErrAccountDisabled = shared.NewDomainError("ACCOUNT_DISABLED", "Account has been deactivated")

// AuthService handles sign in, sign out and account creation
type AuthService struct {
	users         identity.UserRepository
	jwt           *auth.JWTService
	authenticator *auth.Authenticator
	logger        *zap.Logger
	now           func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users identity.UserRepository,
	jwtService *auth.JWTService,
	authenticator *auth.Authenticator,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:         users,
		jwt:           jwtService,
		authenticator: authenticator,
		logger:        logger.Named("auth"),
		now:           time.Now,
	}
}

// Login checks the credentials and issues a session token
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	token, err := s.jwt.GenerateSessionToken(tokenInput(user))
	if err != nil {
		s.logger.Error("Failed to generate session token", zap.Error(err))
		return nil, err
	}
	return newLoginResult(user, token), nil
}

// Authenticate returns the active user matching email and password
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*identity.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login attempt for unknown email")
			return nil, identity.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.VerifyPassword(password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, identity.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	user.RecordLogin(s.now())
	if err := s.users.Save(ctx, user); err != nil {
		// a missed last-login stamp does not fail the login
		s.logger.Error("Failed to record login", zap.Error(err))
	}
	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Logout revokes the token of the current session
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return nil
	}
	if err := s.authenticator.Revoke(ctx, claims); err != nil {
		s.logger.Error("Failed to revoke token", zap.Error(err))
		return err
	}
	s.logger.Info("User logged out", zap.String("user_id", claims.UserID))
	return nil
}

// Signup creates a regular account and signs it in
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*LoginResult, error) {
	user, err := s.CreateUser(ctx, req.Email, req.Name, req.Password)
	if err != nil {
		return nil, err
	}
	token, err := s.jwt.GenerateSessionToken(tokenInput(user))
	if err != nil {
		return nil, err
	}
	return newLoginResult(user, token), nil
}

// CreateUser creates a regular account
func (s *AuthService) CreateUser(ctx context.Context, email, name, password string) (*identity.User, error) {
	user, err := identity.NewUser(email, name, password)
	if err != nil {
		return nil, err
	}
	return user, s.create(ctx, user)
}

// CreateSuperuser creates a staff account with every permission
func (s *AuthService) CreateSuperuser(ctx context.Context, email, password string) (*identity.User, error) {
	user, err := identity.NewSuperuser(email, password)
	if err != nil {
		return nil, err
	}
	return user, s.create(ctx, user)
}

func (s *AuthService) create(ctx context.Context, user *identity.User) error {
	exists, err := s.users.ExistsByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainError(shared.ErrAlreadyExists.Code, "a user with this email already exists")
	}
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.Bool("superuser", user.IsSuperuser))
	return nil
}

// IssueAPIToken creates a long-lived token for API clients
func (s *AuthService) IssueAPIToken(ctx context.Context, userID uuid.UUID) (*auth.IssuedToken, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	token, err := s.jwt.GenerateAPIToken(tokenInput(user))
	if err != nil {
		return nil, err
	}
	s.logger.Info("API token issued", zap.String("user_id", user.ID.String()))
	return token, nil
}

// CurrentUser loads the user a token belongs to
func (s *AuthService) CurrentUser(ctx context.Context, claims *auth.Claims) (*UserInfo, error) {
	if claims == nil {
		return nil, shared.ErrUnauthorized
	}
	id, err := claims.GetUserUUID()
	if err != nil {
		return nil, shared.ErrUnauthorized
	}
	user, err := s.activeUser(ctx, id)
	if err != nil {
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

func (s *AuthService) activeUser(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

func tokenInput(u *identity.User) auth.GenerateTokenInput {
	return auth.GenerateTokenInput{UserID: u.ID, Email: u.Email, IsStaff: u.IsStaff}
}

func newLoginResult(u *identity.User, token *auth.IssuedToken) *LoginResult {
	return &LoginResult{
		Token:     token.Token,
		TokenType: token.TokenType,
		ExpiresAt: token.ExpiresAt,
		User:      ToUserInfo(u),
	}
}
