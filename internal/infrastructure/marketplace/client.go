package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockitup/backend/internal/domain/integration"
	"github.com/stockitup/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxResponseSize is the maximum accepted response body (10MB)
const maxResponseSize = 10 * 1024 * 1024

const defaultTimeout = 30 * time.Second

// baseClient carries what every marketplace client shares:
// credentials, endpoints, the HTTP client and the request limiter.
type baseClient struct {
	code       integration.MarketplaceCode
	cfg        config.MarketplaceConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a marketplace client
type Option func(*baseClient)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(b *baseClient) {
		b.httpClient = c
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(b *baseClient) {
		b.logger = l
	}
}

func newBaseClient(code integration.MarketplaceCode, cfg config.MarketplaceConfig, opts ...Option) *baseClient {
	b := &baseClient{
		code:       code,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    newLimiter(cfg.RequestsPerMinute, cfg.Burst),
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.Named("marketplace").With(zap.String("marketplace", string(code)))
	return b
}

// newLimiter converts a per-minute budget into a token bucket
func newLimiter(rpm, burst int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
}

// Code implements integration.Marketplace
func (b *baseClient) Code() integration.MarketplaceCode {
	return b.code
}

// Configured implements integration.Marketplace
func (b *baseClient) Configured() bool {
	return b.cfg.Configured()
}

func (b *baseClient) authorizeURL(params url.Values) (string, error) {
	if !b.Configured() {
		return "", integration.ErrMarketplaceNotConfigured
	}
	u, err := url.Parse(b.cfg.AuthURL)
	if err != nil {
		return "", fmt.Errorf("%s: invalid authorize url: %w", b.code, err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// requestToken posts a form to the token endpoint using client credentials in basic auth
func (b *baseClient) requestToken(ctx context.Context, form url.Values) (*integration.OAuthToken, error) {
	if !b.Configured() {
		return nil, integration.ErrMarketplaceNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create token request: %w", b.code, err)
	}
	req.SetBasicAuth(b.cfg.ClientID, b.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var resp tokenResponse
	if err := b.do(req, &resp); err != nil {
		// rejected grants come back as 400 invalid_grant
		if errors.Is(err, integration.ErrMarketplaceInvalidResponse) {
			return nil, fmt.Errorf("%w: %v", integration.ErrMarketplaceAuthFailed, err)
		}
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response without access_token", integration.ErrMarketplaceInvalidResponse)
	}
	token := &integration.OAuthToken{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if resp.ExpiresIn > 0 {
		token.ExpiresAt = b.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return token, nil
}

func (b *baseClient) exchangeCode(ctx context.Context, code, redirectURI string) (*integration.OAuthToken, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: missing authorization code", integration.ErrMarketplaceAuthFailed)
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	return b.requestToken(ctx, form)
}

// RefreshToken implements integration.Marketplace
func (b *baseClient) RefreshToken(ctx context.Context, refreshToken string) (*integration.OAuthToken, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", integration.ErrMarketplaceAuthFailed)
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	token, err := b.requestToken(ctx, form)
	if err != nil {
		return nil, err
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}

// newAPIRequest builds an authenticated request against the marketplace API
func (b *baseClient) newAPIRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode request: %w", b.code, err)
		}
		reader = bytes.NewReader(data)
	}
	target := strings.TrimRight(b.cfg.APIURL, "/") + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", b.code, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do waits for the limiter, sends the request and decodes a JSON answer into out
func (b *baseClient) do(req *http.Request, out any) error {
	if err := b.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrMarketplaceRateLimited, err)
	}

	start := b.now()
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrMarketplaceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", b.code, err)
	}
	b.logger.Debug("marketplace request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", b.now().Sub(start)),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", integration.ErrMarketplaceAuthFailed, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", integration.ErrMarketplaceRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: HTTP %d", integration.ErrMarketplaceUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: HTTP %d: %s", integration.ErrMarketplaceInvalidResponse, resp.StatusCode, truncate(string(body), 200))
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrMarketplaceInvalidResponse, err)
	}
	return nil
}

// isFatal reports errors that will fail every following request as well
func isFatal(err error) bool {
	return errors.Is(err, integration.ErrMarketplaceAuthFailed) ||
		errors.Is(err, integration.ErrMarketplaceUnavailable) ||
		errors.Is(err, integration.ErrMarketplaceRateLimited)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ParseDecimal safely parses a decimal string, returning zero on error
func ParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseTime accepts the RFC 3339 variants the marketplaces return
func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
