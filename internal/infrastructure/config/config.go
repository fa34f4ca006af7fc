package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// InsecureSecretKey is the development secret used when SECRET_KEY is not set.
const InsecureSecretKey = "django-insecure-stock-it-up-clone-development-key-change-in-production"

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Marketplaces MarketplacesConfig
	Email        EmailConfig
	Security     SecurityConfig
	Session      SessionConfig
	HTTP         HTTPConfig
	Log          LogConfig
	Telemetry    TelemetryConfig
	Storage      StorageConfig
	Sync         SyncConfig
	Business     BusinessConfig
	PWA          PWAConfig
}

// AppConfig holds application-wide settings
type AppConfig struct {
	Name         string
	SecretKey    string
	Debug        bool
	AllowedHosts []string
	LanguageCode string
	Languages    []string
	TimeZone     string
	StaticURL    string
	StaticRoot   string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Engine          string
	Name            string
	User            string
	Password        string
	Host            string
	Port            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds the Redis URL shared by the cache and the channel layer
type RedisConfig struct {
	URL string
}

// MarketplaceConfig holds OAuth credentials, endpoints and rate limits for one marketplace
type MarketplaceConfig struct {
	Code              string
	ClientID          string
	ClientSecret      string
	AuthURL           string
	TokenURL          string
	APIURL            string
	RequestsPerMinute int
	Burst             int
}

// Configured reports whether OAuth credentials are present.
func (m MarketplaceConfig) Configured() bool {
	return m.ClientID != "" && m.ClientSecret != ""
}

// MarketplacesConfig holds configuration for every supported marketplace
type MarketplacesConfig struct {
	BolCom          MarketplaceConfig
	AmazonEU        MarketplaceConfig
	EBay            MarketplaceConfig
	RedirectBaseURL string
}

// All returns the marketplaces in display order.
func (m MarketplacesConfig) All() []MarketplaceConfig {
	return []MarketplaceConfig{m.BolCom, m.AmazonEU, m.EBay}
}

// EmailConfig holds outgoing mail settings
type EmailConfig struct {
	Backend  string // console, smtp
	Host     string
	Port     int
	UseTLS   bool
	User     string
	Password string
	From     string
}

// SecurityConfig holds cookie, CSRF, CORS and hardening header settings
type SecurityConfig struct {
	SessionCookieSecure   bool
	CSRFCookieSecure      bool
	CSRFTrustedOrigins    []string
	CORSAllowedOrigins    []string
	CORSAllowCredentials  bool
	HardeningEnabled      bool
	HSTSSeconds           int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentTypeNosniff    bool
	BrowserXSSFilter      bool
	XFrameOptions         string
}

// SessionConfig holds the session cookie and token settings
type SessionConfig struct {
	CookieName     string
	CookieAge      time.Duration
	CookieHTTPOnly bool
	CookieSameSite string
	Issuer         string
	APITokenTTL    time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr                  string
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	MaxHeaderBytes        int
	MaxBodySize           int64
	PageSize              int
	MaxPageSize           int
	AuthRateLimitRequests int
	AuthRateLimitWindow   time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr
	File   string // optional log file, empty disables
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

// StorageConfig selects where uploaded media is stored
type StorageConfig struct {
	Type      string // local, s3
	MediaRoot string
	MediaURL  string
	S3        S3Config
}

// S3Config holds S3-compatible object storage settings
type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PresignTTL   time.Duration
}

// SyncConfig holds the periodic marketplace synchronisation settings
type SyncConfig struct {
	Enabled  bool
	Schedule string
	Timeout  time.Duration
}

// Load loads configuration from the environment.
// A .env file in the working directory is read first; variables already set win.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	bindEnv(v)
	flags := &boolFlags{v: v}

	debug := flags.get("app.debug", "DEBUG")

	cfg := &Config{
		App: AppConfig{
			Name:         v.GetString("app.name"),
			SecretKey:    v.GetString("app.secret_key"),
			Debug:        debug,
			AllowedHosts: splitList(v.GetString("app.allowed_hosts")),
			LanguageCode: v.GetString("app.language_code"),
			TimeZone:     v.GetString("app.time_zone"),
			StaticURL:    v.GetString("app.static_url"),
			StaticRoot:   v.GetString("app.static_root"),
		},
		Database: DatabaseConfig{
			Engine:   v.GetString("database.engine"),
			Name:     v.GetString("database.name"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			Host:     v.GetString("database.host"),
			Port:     v.GetString("database.port"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		Redis: RedisConfig{
			URL: v.GetString("redis.url"),
		},
		Marketplaces: MarketplacesConfig{
			BolCom:          marketplace(v, "bol_com"),
			AmazonEU:        marketplace(v, "amazon_eu"),
			EBay:            marketplace(v, "ebay"),
			RedirectBaseURL: v.GetString("marketplaces.redirect_base_url"),
		},
		Email: EmailConfig{
			Backend:  v.GetString("email.backend"),
			Host:     v.GetString("email.host"),
			Port:     v.GetInt("email.port"),
			UseTLS:   flags.get("email.use_tls", "EMAIL_USE_TLS"),
			User:     v.GetString("email.host_user"),
			Password: v.GetString("email.host_password"),
			From:     v.GetString("email.default_from"),
		},
		Security: SecurityConfig{
			SessionCookieSecure: flags.get("security.session_cookie_secure", "SESSION_COOKIE_SECURE"),
			CSRFCookieSecure:    flags.get("security.csrf_cookie_secure", "CSRF_COOKIE_SECURE"),
			CSRFTrustedOrigins:  splitList(v.GetString("security.csrf_trusted_origins")),
			HardeningEnabled:    !debug,
		},
		HTTP: HTTPConfig{
			Addr: v.GetString("http.addr"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
			File:   v.GetString("log.file"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           flags.get("telemetry.enabled", "OTEL_ENABLED"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          flags.get("telemetry.insecure", "OTEL_INSECURE"),
		},
		Storage: StorageConfig{
			Type:      v.GetString("storage.type"),
			MediaRoot: v.GetString("storage.media_root"),
			MediaURL:  v.GetString("storage.media_url"),
			S3: S3Config{
				Endpoint:     v.GetString("storage.s3.endpoint"),
				Region:       v.GetString("storage.s3.region"),
				Bucket:       v.GetString("storage.s3.bucket"),
				AccessKey:    v.GetString("storage.s3.access_key"),
				SecretKey:    v.GetString("storage.s3.secret_key"),
				UsePathStyle: flags.get("storage.s3.use_path_style", "S3_USE_PATH_STYLE"),
			},
		},
		Sync: SyncConfig{
			Enabled:  flags.get("sync.enabled", "SYNC_ENABLED"),
			Schedule: v.GetString("sync.schedule"),
		},
		Business: DefaultBusiness(),
		PWA:      DefaultPWA(),
	}

	if err := errors.Join(flags.errs...); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

type binding struct {
	key string
	env string
	def any
}

// bindEnv maps every config key to its environment variable and default value.
// Empty variables count as unset.
func bindEnv(v *viper.Viper) {
	bindings := []binding{
		{"app.name", "APP_NAME", "Stock It Up Clone"},
		{"app.secret_key", "SECRET_KEY", InsecureSecretKey},
		{"app.debug", "DEBUG", true},
		{"app.allowed_hosts", "ALLOWED_HOSTS", "localhost,127.0.0.1"},
		{"app.language_code", "LANGUAGE_CODE", "nl"},
		{"app.time_zone", "TIME_ZONE", "Europe/Amsterdam"},
		{"app.static_url", "STATIC_URL", "/static/"},
		{"app.static_root", "STATIC_ROOT", "static"},

		{"database.engine", "DB_ENGINE", "sqlite3"},
		{"database.name", "DB_NAME", "db.sqlite3"},
		{"database.user", "DB_USER", ""},
		{"database.password", "DB_PASSWORD", ""},
		{"database.host", "DB_HOST", ""},
		{"database.port", "DB_PORT", ""},
		{"database.sslmode", "DB_SSLMODE", "disable"},

		{"redis.url", "REDIS_URL", "redis://127.0.0.1:6379/1"},

		{"marketplaces.redirect_base_url", "OAUTH_REDIRECT_BASE_URL", "http://localhost:8000"},

		{"email.backend", "EMAIL_BACKEND", EmailBackendConsole},
		{"email.host", "EMAIL_HOST", ""},
		{"email.port", "EMAIL_PORT", 587},
		{"email.use_tls", "EMAIL_USE_TLS", true},
		{"email.host_user", "EMAIL_HOST_USER", ""},
		{"email.host_password", "EMAIL_HOST_PASSWORD", ""},
		{"email.default_from", "DEFAULT_FROM_EMAIL", "Stock It Up Clone <noreply@stockitup.clone>"},

		{"security.session_cookie_secure", "SESSION_COOKIE_SECURE", false},
		{"security.csrf_cookie_secure", "CSRF_COOKIE_SECURE", false},
		{"security.csrf_trusted_origins", "CSRF_TRUSTED_ORIGINS", "http://localhost:8000,http://127.0.0.1:8000"},

		{"http.addr", "HTTP_ADDR", ":8000"},

		{"log.level", "LOG_LEVEL", "info"},
		{"log.format", "LOG_FORMAT", ""},
		{"log.output", "LOG_OUTPUT", "stdout"},
		{"log.file", "LOG_FILE", "logs/stock_it_up.log"},

		{"telemetry.enabled", "OTEL_ENABLED", false},
		{"telemetry.collector_endpoint", "OTEL_COLLECTOR_ENDPOINT", "localhost:4317"},
		{"telemetry.sampling_ratio", "OTEL_SAMPLING_RATIO", 1.0},
		{"telemetry.service_name", "OTEL_SERVICE_NAME", "stock-it-up"},
		{"telemetry.insecure", "OTEL_INSECURE", true},

		{"storage.type", "STORAGE_TYPE", StorageLocal},
		{"storage.media_root", "MEDIA_ROOT", "media"},
		{"storage.media_url", "MEDIA_URL", "/media/"},
		{"storage.s3.endpoint", "S3_ENDPOINT", ""},
		{"storage.s3.region", "S3_REGION", "eu-west-1"},
		{"storage.s3.bucket", "S3_BUCKET", ""},
		{"storage.s3.access_key", "S3_ACCESS_KEY", ""},
		{"storage.s3.secret_key", "S3_SECRET_KEY", ""},
		{"storage.s3.use_path_style", "S3_USE_PATH_STYLE", false},

		{"sync.enabled", "SYNC_ENABLED", true},
		{"sync.schedule", "SYNC_SCHEDULE", "@every 15m"},
	}

	for _, m := range marketplaceDefaults {
		prefix := strings.ToUpper(m.Code)
		key := "marketplaces." + m.Code
		bindings = append(bindings,
			binding{key + ".client_id", prefix + "_CLIENT_ID", ""},
			binding{key + ".client_secret", prefix + "_CLIENT_SECRET", ""},
			binding{key + ".auth_url", prefix + "_AUTH_URL", m.AuthURL},
			binding{key + ".token_url", prefix + "_TOKEN_URL", m.TokenURL},
			binding{key + ".api_url", prefix + "_API_URL", m.APIURL},
		)
	}

	for _, b := range bindings {
		_ = v.BindEnv(b.key, b.env)
		v.SetDefault(b.key, b.def)
	}
}

// marketplaceDefaults holds the public endpoints and API rate limits of each marketplace.
var marketplaceDefaults = []MarketplaceConfig{
	{
		Code:              "bol_com",
		AuthURL:           "https://login.bol.com/authorize",
		TokenURL:          "https://login.bol.com/token",
		APIURL:            "https://api.bol.com/retailer",
		RequestsPerMinute: 60,
		Burst:             10,
	},
	{
		Code:              "amazon_eu",
		AuthURL:           "https://sellercentral-europe.amazon.com/apps/authorize/consent",
		TokenURL:          "https://api.amazon.com/auth/o2/token",
		APIURL:            "https://sellingpartnerapi-eu.amazon.com",
		RequestsPerMinute: 200,
		Burst:             25,
	},
	{
		Code:              "ebay",
		AuthURL:           "https://auth.ebay.com/oauth2/authorize",
		TokenURL:          "https://api.ebay.com/identity/v1/oauth2/token",
		APIURL:            "https://api.ebay.com",
		RequestsPerMinute: 5000,
		Burst:             100,
	},
}

func marketplace(v *viper.Viper, code string) MarketplaceConfig {
	var m MarketplaceConfig
	for _, d := range marketplaceDefaults {
		if d.Code == code {
			m = d
		}
	}
	key := "marketplaces." + code
	m.ClientID = v.GetString(key + ".client_id")
	m.ClientSecret = v.GetString(key + ".client_secret")
	m.AuthURL = v.GetString(key + ".auth_url")
	m.TokenURL = v.GetString(key + ".token_url")
	m.APIURL = v.GetString(key + ".api_url")
	return m
}

// applyDefaults sets derived and fixed values that are not read from the environment
func applyDefaults(cfg *Config) {
	if len(cfg.App.Languages) == 0 {
		cfg.App.Languages = []string{"nl", "ar", "en"}
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Email.Backend == "" {
		cfg.Email.Backend = EmailBackendConsole
	}
	if len(cfg.Security.CORSAllowedOrigins) == 0 {
		cfg.Security.CORSAllowedOrigins = []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:8000",
			"http://127.0.0.1:8000",
		}
		cfg.Security.CORSAllowCredentials = true
	}
	if cfg.Security.HardeningEnabled {
		cfg.Security.HSTSSeconds = 31536000
		cfg.Security.HSTSIncludeSubdomains = true
		cfg.Security.HSTSPreload = true
		cfg.Security.ContentTypeNosniff = true
		cfg.Security.BrowserXSSFilter = true
		cfg.Security.XFrameOptions = "DENY"
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "sessionid"
	}
	if cfg.Session.CookieAge == 0 {
		cfg.Session.CookieAge = 24 * time.Hour
	}
	cfg.Session.CookieHTTPOnly = true
	if cfg.Session.CookieSameSite == "" {
		cfg.Session.CookieSameSite = "lax"
	}
	if cfg.Session.Issuer == "" {
		cfg.Session.Issuer = "stock-it-up"
	}
	if cfg.Session.APITokenTTL == 0 {
		cfg.Session.APITokenTTL = 30 * 24 * time.Hour
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = cfg.Business.MaxUploadSize
	}
	if cfg.HTTP.PageSize == 0 {
		cfg.HTTP.PageSize = 50
	}
	if cfg.HTTP.MaxPageSize == 0 {
		cfg.HTTP.MaxPageSize = 200
	}
	if cfg.HTTP.AuthRateLimitRequests == 0 {
		cfg.HTTP.AuthRateLimitRequests = 5
	}
	if cfg.HTTP.AuthRateLimitWindow == 0 {
		cfg.HTTP.AuthRateLimitWindow = time.Minute
	}
	if cfg.Log.Format == "" {
		if cfg.App.Debug {
			cfg.Log.Format = "console"
		} else {
			cfg.Log.Format = "json"
		}
	}
	if cfg.Storage.S3.PresignTTL == 0 {
		cfg.Storage.S3.PresignTTL = 15 * time.Minute
	}
	if cfg.Sync.Timeout == 0 {
		cfg.Sync.Timeout = 5 * time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if !c.App.Debug && c.App.SecretKey == InsecureSecretKey {
		return fmt.Errorf("SECRET_KEY must be set when DEBUG is false")
	}
	if !c.App.Debug && len(c.App.AllowedHosts) == 0 {
		return fmt.Errorf("ALLOWED_HOSTS must not be empty when DEBUG is false")
	}
	if _, err := c.Database.Driver(); err != nil {
		return err
	}
	switch c.Email.Backend {
	case EmailBackendConsole, EmailBackendSMTP:
	default:
		return fmt.Errorf("unsupported EMAIL_BACKEND %q", c.Email.Backend)
	}
	if c.Email.Backend == EmailBackendSMTP && c.Email.Host == "" {
		return fmt.Errorf("EMAIL_HOST is required for the smtp backend")
	}
	switch c.Storage.Type {
	case StorageLocal:
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_TYPE is s3")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_TYPE %q", c.Storage.Type)
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("OTEL_SAMPLING_RATIO must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}

// Email backends
const (
	EmailBackendConsole = "console"
	EmailBackendSMTP    = "smtp"
)

// Storage types
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Driver normalises DB_ENGINE into a driver name.
// Dotted engine paths such as "django.db.backends.postgresql" use their last segment.
func (d *DatabaseConfig) Driver() (string, error) {
	engine := strings.ToLower(strings.TrimSpace(d.Engine))
	if i := strings.LastIndex(engine, "."); i >= 0 {
		engine = engine[i+1:]
	}
	switch engine {
	case "sqlite3", "sqlite":
		return DriverSQLite, nil
	case "postgresql", "postgres", "postgresql_psycopg2":
		return DriverPostgres, nil
	}
	return "", fmt.Errorf("unsupported DB_ENGINE %q", d.Engine)
}

// DSN returns the connection string for the configured driver with properly escaped values
func (d *DatabaseConfig) DSN() string {
	driver, _ := d.Driver()
	if driver == DriverSQLite {
		return d.Name
	}
	host := d.Host
	if host == "" {
		host = "localhost"
	}
	port := d.Port
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   host + ":" + port,
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("error reading %s: %w", path, err)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// boolFlags reads boolean settings, collecting values it cannot parse.
type boolFlags struct {
	v    *viper.Viper
	errs []error
}

func (f *boolFlags) get(key, env string) bool {
	b, err := parseBool(f.v.GetString(key))
	if err != nil {
		f.errs = append(f.errs, fmt.Errorf("%s: %w", env, err))
	}
	return b
}

// parseBool accepts the spellings used in .env files: y, yes, t, true, on
// and 1 are true; n, no, f, false, off and 0 are false. Case is ignored.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "t", "true", "on", "1":
		return true, nil
	case "n", "no", "f", "false", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid truth value %q", s)
}
