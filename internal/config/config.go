package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-certgen/internal/fileutil"
	"github.com/alnah/go-certgen/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxNameLength         = 100  // Signatory name
	MaxTitleLength        = 100  // Signatory title
	MaxEmailLength        = 254  // RFC 5321
	MaxURLLength          = 2048 // Browser limit
	MaxPathLength         = 4096 // PATH_MAX on Linux
	MaxOrganizationLength = 100  // Organization name
	MaxDateFormatLength   = 30   // "DD MMMM YYYY"
	MaxBucketLength       = 63   // S3 bucket naming rules
	MaxPrefixLength       = 512  // Object key prefix
	MaxSecretLength       = 512  // API keys and passwords
)

// Value ranges.
const (
	MaxWorkers = 64
	MinQRSize  = 64
	MaxQRSize  = 2048
)

// Config holds all configuration of the service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Templates TemplatesConfig `yaml:"templates"`
	Render    RenderConfig    `yaml:"render"`
	Mail      MailConfig      `yaml:"mail"`
	Callback  CallbackConfig  `yaml:"callback"`
	QR        QRConfig        `yaml:"qr"`
	Document  DocumentConfig  `yaml:"document"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Addr            string          `yaml:"addr"`    // Listen address (default ":5000")
	BaseURL         string          `yaml:"baseUrl"` // Public origin used in file URLs
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig defines the token bucket of POST /api/generate.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
}

// StorageConfig defines where artifacts are written.
type StorageConfig struct {
	Dir string   `yaml:"dir"`
	S3  S3Config `yaml:"s3"`
}

// S3Config defines the optional artifact mirror.
type S3Config struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Region  string `yaml:"region"`
	Prefix  string `yaml:"prefix"`
}

// TemplatesConfig defines where caller templates and asset overrides live.
type TemplatesConfig struct {
	BaseDir   string `yaml:"baseDir"`   // templateUrl values must resolve inside it
	AssetsDir string `yaml:"assetsDir"` // Empty = embedded assets only
}

// RenderConfig defines the headless browser pool.
type RenderConfig struct {
	Workers        int           `yaml:"workers"` // 0 = auto
	Timeout        time.Duration `yaml:"timeout"`
	RecycleBrowser bool          `yaml:"recycleBrowser"`
	BrowserBin     string        `yaml:"browserBin"`
	NoSandbox      bool          `yaml:"noSandbox"`
}

// MailConfig defines the mail provider.
type MailConfig struct {
	Provider    string         `yaml:"provider"` // "smtp", "sendgrid", "ses"
	FromName    string         `yaml:"fromName"`
	FromAddress string         `yaml:"fromAddress"`
	Timeout     time.Duration  `yaml:"timeout"`
	SMTP        SMTPConfig     `yaml:"smtp"`
	SendGrid    SendGridConfig `yaml:"sendgrid"`
	SES         SESConfig      `yaml:"ses"`
}

// SMTPConfig defines the SMTP relay.
type SMTPConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	ImplicitTLS bool   `yaml:"implicitTLS"`
}

// SendGridConfig defines the SendGrid API access.
type SendGridConfig struct {
	APIKey string `yaml:"apiKey"`
}

// SESConfig defines the Amazon SES region.
type SESConfig struct {
	Region string `yaml:"region"`
}

// CallbackConfig defines outcome callbacks.
type CallbackConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// QRConfig defines generated verification codes.
type QRConfig struct {
	VerifyBaseURL string `yaml:"verifyBaseUrl"` // Empty = no generated QR
	Size          int    `yaml:"size"`          // Pixels
}

// DocumentConfig defines values printed on every document.
type DocumentConfig struct {
	DateFormat     string `yaml:"dateFormat"` // e.g. "DD/MM/YYYY"
	Organization   string `yaml:"organization"`
	SignatoryName  string `yaml:"signatoryName"`
	SignatoryTitle string `yaml:"signatoryTitle"`
}

// LogConfig defines the logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":5000",
			BaseURL:         "http://localhost:5000",
			ShutdownTimeout: 30 * time.Second,
			RateLimit:       RateLimitConfig{RequestsPerSecond: 20, Burst: 40},
		},
		Storage:   StorageConfig{Dir: "generated"},
		Templates: TemplatesConfig{BaseDir: "."},
		Render: RenderConfig{
			Timeout:        60 * time.Second,
			RecycleBrowser: true,
		},
		Mail: MailConfig{
			Provider: "smtp",
			Timeout:  30 * time.Second,
			SMTP:     SMTPConfig{Port: 587},
		},
		Callback: CallbackConfig{Timeout: 10 * time.Second},
		QR:       QRConfig{Size: 256},
		Document: DocumentConfig{DateFormat: "DD/MM/YYYY"},
		Log:      LogConfig{Level: "info", Format: "json"},
	}
}

// Validate checks field lengths and value ranges.
// Called automatically by LoadConfig, but available for callers that build
// a Config manually or apply environment overrides afterwards.
func (c *Config) Validate() error {
	lengths := []struct {
		field string
		value string
		max   int
	}{
		{"server.baseUrl", c.Server.BaseURL, MaxURLLength},
		{"storage.dir", c.Storage.Dir, MaxPathLength},
		{"storage.s3.bucket", c.Storage.S3.Bucket, MaxBucketLength},
		{"storage.s3.prefix", c.Storage.S3.Prefix, MaxPrefixLength},
		{"templates.baseDir", c.Templates.BaseDir, MaxPathLength},
		{"templates.assetsDir", c.Templates.AssetsDir, MaxPathLength},
		{"render.browserBin", c.Render.BrowserBin, MaxPathLength},
		{"mail.fromName", c.Mail.FromName, MaxNameLength},
		{"mail.fromAddress", c.Mail.FromAddress, MaxEmailLength},
		{"mail.smtp.password", c.Mail.SMTP.Password, MaxSecretLength},
		{"mail.sendgrid.apiKey", c.Mail.SendGrid.APIKey, MaxSecretLength},
		{"qr.verifyBaseUrl", c.QR.VerifyBaseURL, MaxURLLength},
		{"document.dateFormat", c.Document.DateFormat, MaxDateFormatLength},
		{"document.organization", c.Document.Organization, MaxOrganizationLength},
		{"document.signatoryName", c.Document.SignatoryName, MaxNameLength},
		{"document.signatoryTitle", c.Document.SignatoryTitle, MaxTitleLength},
	}
	for _, l := range lengths {
		if err := validateFieldLength(l.field, l.value, l.max); err != nil {
			return err
		}
	}

	if c.Storage.Dir == "" {
		return invalid("storage.dir", "required")
	}
	if err := validateHTTPURL("server.baseUrl", c.Server.BaseURL, true); err != nil {
		return err
	}
	if err := validateHTTPURL("qr.verifyBaseUrl", c.QR.VerifyBaseURL, false); err != nil {
		return err
	}
	if c.Server.RateLimit.RequestsPerSecond < 0 {
		return invalid("server.rateLimit.requestsPerSecond", "must not be negative")
	}
	if c.Server.RateLimit.RequestsPerSecond > 0 && c.Server.RateLimit.Burst < 1 {
		return invalid("server.rateLimit.burst", "must be at least 1 when rate limiting is enabled")
	}
	if c.Storage.S3.Enabled && c.Storage.S3.Bucket == "" {
		return invalid("storage.s3.bucket", "required when the s3 mirror is enabled")
	}
	if c.Render.Workers < 0 || c.Render.Workers > MaxWorkers {
		return invalid("render.workers", fmt.Sprintf("must be between 0 and %d, got %d", MaxWorkers, c.Render.Workers))
	}

	durations := []struct {
		field string
		value time.Duration
	}{
		{"server.shutdownTimeout", c.Server.ShutdownTimeout},
		{"render.timeout", c.Render.Timeout},
		{"mail.timeout", c.Mail.Timeout},
		{"callback.timeout", c.Callback.Timeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return invalid(d.field, fmt.Sprintf("must be positive, got %s", d.value))
		}
	}

	switch strings.ToLower(c.Mail.Provider) {
	case "", "smtp", "sendgrid", "ses":
	default:
		return invalid("mail.provider", fmt.Sprintf("%q (must be smtp, sendgrid, or ses)", c.Mail.Provider))
	}
	if c.Mail.SMTP.Port < 0 || c.Mail.SMTP.Port > 65535 {
		return invalid("mail.smtp.port", fmt.Sprintf("out of range: %d", c.Mail.SMTP.Port))
	}

	if c.QR.Size != 0 && (c.QR.Size < MinQRSize || c.QR.Size > MaxQRSize) {
		return invalid("qr.size", fmt.Sprintf("must be between %d and %d, got %d", MinQRSize, MaxQRSize, c.QR.Size))
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return invalid("log.level", fmt.Sprintf("%q (must be debug, info, warn, or error)", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		return invalid("log.format", fmt.Sprintf("%q (must be json or console)", c.Log.Format))
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

func validateHTTPURL(field, value string, required bool) error {
	if value == "" {
		if required {
			return invalid(field, "required")
		}
		return nil
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(field, fmt.Sprintf("%q is not an http(s) URL", value))
	}
	return nil
}

func invalid(field, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidValue, field, reason)
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Keys absent from the file keep their DefaultConfig values.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is operator-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-certgen/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-certgen", name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
