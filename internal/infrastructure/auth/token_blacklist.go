package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/stockitup/backend/internal/infrastructure/cache"
)

// TokenBlacklist invalidates JWT tokens before they expire, e.g. on logout
type TokenBlacklist interface {
	// AddToBlacklist adds a token's JTI; ttl should be the token's remaining lifetime
	AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	// AddUserTokensToBlacklist rejects every token issued to the user up to now
	AddUserTokensToBlacklist(ctx context.Context, userID string, ttl time.Duration) error
	IsUserTokenInvalidated(ctx context.Context, userID string, tokenIssuedAt time.Time) (bool, error)
}

// StoreTokenBlacklist implements TokenBlacklist on top of the cache store,
// so it is shared between processes when the store is Redis.
type StoreTokenBlacklist struct {
	store     cache.Store
	keyPrefix string
	now       func() time.Time
}

// NewStoreTokenBlacklist creates a blacklist backed by store
func NewStoreTokenBlacklist(store cache.Store) *StoreTokenBlacklist {
	return &StoreTokenBlacklist{
		store:     store,
		keyPrefix: "token:blacklist:",
		now:       time.Now,
	}
}

func (b *StoreTokenBlacklist) jtiKey(jti string) string {
	return b.keyPrefix + "jti:" + jti
}

func (b *StoreTokenBlacklist) userKey(userID string) string {
	return b.keyPrefix + "user:" + userID
}

// AddToBlacklist adds a token's JTI to the blacklist
func (b *StoreTokenBlacklist) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.store.Set(ctx, b.jtiKey(jti), "1", ttl); err != nil {
		return fmt.Errorf("failed to add token to blacklist: %w", err)
	}
	return nil
}

// IsBlacklisted checks if a token's JTI is in the blacklist
func (b *StoreTokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	ok, err := b.store.Exists(ctx, b.jtiKey(jti))
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return ok, nil
}

// AddUserTokensToBlacklist stores the invalidation time for the user
func (b *StoreTokenBlacklist) AddUserTokensToBlacklist(ctx context.Context, userID string, ttl time.Duration) error {
	value := strconv.FormatInt(b.now().Unix(), 10)
	if err := b.store.Set(ctx, b.userKey(userID), value, ttl); err != nil {
		return fmt.Errorf("failed to invalidate user tokens: %w", err)
	}
	return nil
}

// IsUserTokenInvalidated checks if a token was issued at or before the user's invalidation time
func (b *StoreTokenBlacklist) IsUserTokenInvalidated(ctx context.Context, userID string, tokenIssuedAt time.Time) (bool, error) {
	v, ok, err := b.store.Get(ctx, b.userKey(userID))
	if err != nil {
		return false, fmt.Errorf("failed to check user token invalidation: %w", err)
	}
	if !ok {
		return false, nil
	}
	invalidatedAt, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse invalidation timestamp: %w", err)
	}
	return tokenIssuedAt.Unix() <= invalidatedAt, nil
}

var _ TokenBlacklist = (*StoreTokenBlacklist)(nil)

// Authenticator validates a token and checks that it has not been revoked
type Authenticator struct {
	jwt       *JWTService
	blacklist TokenBlacklist
}

// NewAuthenticator creates an Authenticator
func NewAuthenticator(jwtService *JWTService, blacklist TokenBlacklist) *Authenticator {
	return &Authenticator{jwt: jwtService, blacklist: blacklist}
}

// Authenticate returns the claims of a valid, unrevoked token
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := a.jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if a.blacklist == nil {
		return claims, nil
	}
	revoked, err := a.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenBlacklisted
	}
	invalidated, err := a.blacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.GetIssuedAtTime())
	if err != nil {
		return nil, err
	}
	if invalidated {
		return nil, ErrTokenBlacklisted
	}
	return claims, nil
}

// Revoke blacklists the token for the rest of its lifetime
func (a *Authenticator) Revoke(ctx context.Context, claims *Claims) error {
	if a.blacklist == nil {
		return nil
	}
	return a.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL())
}
