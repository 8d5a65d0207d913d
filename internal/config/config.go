package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	LogLevel string
	Database DatabaseConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	Security SecurityConfig
	Captcha  CaptchaConfig
	Mail     MailConfig
	Seed     SeedConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds signing secrets and token lifetimes
type JWTConfig struct {
	Secret            string
	ResetSecret       string
	SessionDays       int
	ResetTokenMinutes int
}

// CookieConfig holds session cookie configuration
type CookieConfig struct {
	Name     string
	Secure   bool
	SameSite string
	Domain   string
}

// SecurityConfig holds hashing and lockout tunables
type SecurityConfig struct {
	BcryptCost       int
	CaptchaThreshold int
	LockThreshold    int
	LockDuration     time.Duration
	ResetOTPTTL      time.Duration
	APIRateLimit     int
	AuthRateLimit    int
	StrictRateLimit  int
	RateLimitWindow  time.Duration
}

// CaptchaConfig holds reCAPTCHA verification settings
type CaptchaConfig struct {
	SecretKey string
	VerifyURL string
	Timeout   time.Duration
}

// MailConfig holds SMTP settings for password reset mail
type MailConfig struct {
	Host     string
	Port     int
	Secure   bool
	User     string
	Password string
	From     string
}

// SeedConfig holds the bootstrap system admin
type SeedConfig struct {
	Username string
	Email    string
	Password string
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		LogLevel: getEnv("LOG_LEVEL", ""),
		Database: loadDatabaseConfig(appMode),
		JWT:      loadJWTConfig(appMode),
		Cookie:   loadCookieConfig(appMode),
		Security: loadSecurityConfig(),
		Captcha:  loadCaptchaConfig(),
		Mail:     loadMailConfig(),
		Seed: SeedConfig{
			Username: getEnv("ADMIN_SEED_USERNAME", ""),
			Email:    getEnv("ADMIN_SEED_EMAIL", ""),
			Password: getEnv("ADMIN_SEED_PASSWORD", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// Validate rejects settings that would weaken the login flow
func (c *Config) Validate() error {
	s := c.Security
	if s.LockThreshold < 1 {
		return fmt.Errorf("LOCK_THRESHOLD must be at least 1")
	}
	if s.CaptchaThreshold < 0 || s.CaptchaThreshold > s.LockThreshold {
		return fmt.Errorf("CAPTCHA_THRESHOLD must be between 0 and LOCK_THRESHOLD (%d)", s.LockThreshold)
	}
	if s.LockDuration <= 0 {
		return fmt.Errorf("LOCK_DURATION_MINUTES must be positive")
	}

	if c.IsProd() {
		if c.Captcha.SecretKey == "" {
			return fmt.Errorf("RECAPTCHA_SECRET_KEY is required in prod mode")
		}
		if c.JWT.Secret == defaultJWTSecret || c.JWT.ResetSecret == defaultResetSecret {
			return fmt.Errorf("PROD_JWT_SECRET and PROD_JWT_RESET_SECRET must be set in prod mode")
		}
	}
	return nil
}

const (
	defaultJWTSecret   = "default_secret"
	defaultResetSecret = "default_reset_secret"
)

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "tupad_admin"),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := modePrefix(mode)

	return JWTConfig{
		Secret:            getEnv(prefix+"JWT_SECRET", defaultJWTSecret),
		ResetSecret:       getEnv(prefix+"JWT_RESET_SECRET", defaultResetSecret),
		SessionDays:       getEnvInt("SESSION_DAYS", 30),
		ResetTokenMinutes: getEnvInt("RESET_TOKEN_MINUTES", 15),
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	prefix := modePrefix(mode)

	// Secure cookies by default in prod
	secure, _ := strconv.ParseBool(getEnv(prefix+"COOKIE_SECURE", strconv.FormatBool(mode == "prod")))

	return CookieConfig{
		Name:     getEnv("COOKIE_NAME", "auth-token"),
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "Lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

func loadSecurityConfig() SecurityConfig {
	return SecurityConfig{
		BcryptCost:       getEnvInt("BCRYPT_COST", 12),
		CaptchaThreshold: getEnvInt("CAPTCHA_THRESHOLD", 2),
		LockThreshold:    getEnvInt("LOCK_THRESHOLD", 3),
		LockDuration:     time.Duration(getEnvInt("LOCK_DURATION_MINUTES", 30)) * time.Minute,
		ResetOTPTTL:      time.Duration(getEnvInt("RESET_OTP_MINUTES", 5)) * time.Minute,
		APIRateLimit:     getEnvInt("API_RATE_LIMIT", 100),
		AuthRateLimit:    getEnvInt("AUTH_RATE_LIMIT", 10),
		StrictRateLimit:  getEnvInt("STRICT_RATE_LIMIT", 3),
		RateLimitWindow:  time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
	}
}

func loadCaptchaConfig() CaptchaConfig {
	return CaptchaConfig{
		SecretKey: getEnv("RECAPTCHA_SECRET_KEY", ""),
		VerifyURL: getEnv("RECAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify"),
		Timeout:   time.Duration(getEnvInt("CAPTCHA_TIMEOUT_SECONDS", 5)) * time.Second,
	}
}

func loadMailConfig() MailConfig {
	secure, _ := strconv.ParseBool(getEnv("EMAIL_SECURE", "false"))

	return MailConfig{
		Host:     getEnv("EMAIL_HOST", "smtp.gmail.com"),
		Port:     getEnvInt("EMAIL_PORT", 587),
		Secure:   secure,
		User:     getEnv("EMAIL_USER", ""),
		Password: getEnv("EMAIL_PASSWORD", ""),
		From:     getEnv("EMAIL_FROM", `"TUPAD System" <noreply@tupad.com>`),
	}
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable, falling back on parse errors
func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(strings.TrimSpace(getEnv(key, "")))
	if err != nil {
		return defaultValue
	}
	return value
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// SessionTTL returns the lifetime of an issued session
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.JWT.SessionDays) * 24 * time.Hour
}

// ResetTokenTTL returns the lifetime of a password reset token
func (c *Config) ResetTokenTTL() time.Duration {
	return time.Duration(c.JWT.ResetTokenMinutes) * time.Minute
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://admin.tupad.gov.ph"
	}
	return origins
}
