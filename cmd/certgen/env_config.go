package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-certgen/internal/config"
)

// ErrInvalidEnv reports a CERTGEN_* variable that cannot be parsed.
var ErrInvalidEnv = errors.New("invalid environment variable")

// envPrefix namespaces every variable read by the service.
const envPrefix = "CERTGEN_"

// envConfig holds configuration from environment variables.
// Secrets are expected here rather than in the YAML file.
type envConfig struct {
	// Tier 1 - Essential
	ConfigPath string // CERTGEN_CONFIG: config file path
	Addr       string // CERTGEN_ADDR: listen address
	BaseURL    string // CERTGEN_BASE_URL: public origin
	StorageDir string // CERTGEN_STORAGE_DIR: artifact directory

	// Tier 2 - Mail
	MailProvider    string // CERTGEN_MAIL_PROVIDER: smtp, sendgrid, ses
	MailFromName    string // CERTGEN_MAIL_FROM_NAME
	MailFromAddress string // CERTGEN_MAIL_FROM_ADDRESS
	SMTPHost        string // CERTGEN_MAIL_SMTP_HOST
	SMTPPort        int    // CERTGEN_MAIL_SMTP_PORT
	SMTPUsername    string // CERTGEN_MAIL_SMTP_USERNAME
	SMTPPassword    string // CERTGEN_MAIL_SMTP_PASSWORD
	SendGridAPIKey  string // CERTGEN_MAIL_SENDGRID_API_KEY
	SESRegion       string // CERTGEN_MAIL_SES_REGION

	// Tier 3 - Extended
	Workers       int           // CERTGEN_RENDER_WORKERS
	RenderTimeout time.Duration // CERTGEN_RENDER_TIMEOUT
	BrowserBin    string        // CERTGEN_RENDER_BROWSER_BIN
	NoSandbox     bool          // CERTGEN_RENDER_NO_SANDBOX
	TemplatesDir  string        // CERTGEN_TEMPLATES_DIR
	AssetsDir     string        // CERTGEN_ASSETS_DIR
	VerifyBaseURL string        // CERTGEN_QR_VERIFY_BASE_URL
	S3Bucket      string        // CERTGEN_S3_BUCKET: enables the mirror
	S3Region      string        // CERTGEN_S3_REGION
	Organization  string        // CERTGEN_ORGANIZATION
	LogLevel      string        // CERTGEN_LOG_LEVEL
	LogFormat     string        // CERTGEN_LOG_FORMAT
}

// knownEnvVars lists valid CERTGEN_* environment variables.
// Used to detect typos and warn operators about unknown variables.
var knownEnvVars = map[string]bool{
	// Tier 1 - Essential
	"CERTGEN_CONFIG":      true,
	"CERTGEN_ADDR":        true,
	"CERTGEN_BASE_URL":    true,
	"CERTGEN_STORAGE_DIR": true,
	// Tier 2 - Mail
	"CERTGEN_MAIL_PROVIDER":         true,
	"CERTGEN_MAIL_FROM_NAME":        true,
	"CERTGEN_MAIL_FROM_ADDRESS":     true,
	"CERTGEN_MAIL_SMTP_HOST":        true,
	"CERTGEN_MAIL_SMTP_PORT":        true,
	"CERTGEN_MAIL_SMTP_USERNAME":    true,
	"CERTGEN_MAIL_SMTP_PASSWORD":    true,
	"CERTGEN_MAIL_SENDGRID_API_KEY": true,
	"CERTGEN_MAIL_SES_REGION":       true,
	// Tier 3 - Extended
	"CERTGEN_RENDER_WORKERS":     true,
	"CERTGEN_RENDER_TIMEOUT":     true,
	"CERTGEN_RENDER_BROWSER_BIN": true,
	"CERTGEN_RENDER_NO_SANDBOX":  true,
	"CERTGEN_TEMPLATES_DIR":      true,
	"CERTGEN_ASSETS_DIR":         true,
	"CERTGEN_QR_VERIFY_BASE_URL": true,
	"CERTGEN_S3_BUCKET":          true,
	"CERTGEN_S3_REGION":          true,
	"CERTGEN_ORGANIZATION":       true,
	"CERTGEN_LOG_LEVEL":          true,
	"CERTGEN_LOG_FORMAT":         true,
	// Read by doctor only
	"CERTGEN_CONTAINER": true,
}

// loadEnvConfig reads configuration from environment variables.
// Returns ErrInvalidEnv for numeric, duration or boolean values that do not parse.
func loadEnvConfig() (*envConfig, error) {
	cfg := &envConfig{
		// Tier 1
		ConfigPath: os.Getenv("CERTGEN_CONFIG"),
		Addr:       os.Getenv("CERTGEN_ADDR"),
		BaseURL:    os.Getenv("CERTGEN_BASE_URL"),
		StorageDir: os.Getenv("CERTGEN_STORAGE_DIR"),
		// Tier 2
		MailProvider:    os.Getenv("CERTGEN_MAIL_PROVIDER"),
		MailFromName:    os.Getenv("CERTGEN_MAIL_FROM_NAME"),
		MailFromAddress: os.Getenv("CERTGEN_MAIL_FROM_ADDRESS"),
		SMTPHost:        os.Getenv("CERTGEN_MAIL_SMTP_HOST"),
		SMTPUsername:    os.Getenv("CERTGEN_MAIL_SMTP_USERNAME"),
		SMTPPassword:    os.Getenv("CERTGEN_MAIL_SMTP_PASSWORD"),
		SendGridAPIKey:  os.Getenv("CERTGEN_MAIL_SENDGRID_API_KEY"),
		SESRegion:       os.Getenv("CERTGEN_MAIL_SES_REGION"),
		// Tier 3
		BrowserBin:    os.Getenv("CERTGEN_RENDER_BROWSER_BIN"),
		TemplatesDir:  os.Getenv("CERTGEN_TEMPLATES_DIR"),
		AssetsDir:     os.Getenv("CERTGEN_ASSETS_DIR"),
		VerifyBaseURL: os.Getenv("CERTGEN_QR_VERIFY_BASE_URL"),
		S3Bucket:      os.Getenv("CERTGEN_S3_BUCKET"),
		S3Region:      os.Getenv("CERTGEN_S3_REGION"),
		Organization:  os.Getenv("CERTGEN_ORGANIZATION"),
		LogLevel:      os.Getenv("CERTGEN_LOG_LEVEL"),
		LogFormat:     os.Getenv("CERTGEN_LOG_FORMAT"),
	}

	var err error
	if cfg.SMTPPort, err = envInt("CERTGEN_MAIL_SMTP_PORT"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = envInt("CERTGEN_RENDER_WORKERS"); err != nil {
		return nil, err
	}
	if v := os.Getenv("CERTGEN_RENDER_TIMEOUT"); v != "" {
		d, perr := time.ParseDuration(v)
		if perr != nil || d <= 0 {
			return nil, fmt.Errorf("%w: CERTGEN_RENDER_TIMEOUT=%q is not a positive duration", ErrInvalidEnv, v)
		}
		cfg.RenderTimeout = d
	}
	if v := os.Getenv("CERTGEN_RENDER_NO_SANDBOX"); v != "" {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			return nil, fmt.Errorf("%w: CERTGEN_RENDER_NO_SANDBOX=%q is not a boolean", ErrInvalidEnv, v)
		}
		cfg.NoSandbox = b
	}

	return cfg, nil
}

func envInt(name string) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q is not a non-negative integer", ErrInvalidEnv, name, v)
	}
	return n, nil
}

// warnUnknownEnvVars prints warnings for unrecognized CERTGEN_* variables.
// Helps catch typos like CERTGEN_SMTP_HOST instead of CERTGEN_MAIL_SMTP_HOST.
func warnUnknownEnvVars(w io.Writer) {
	var unknown []string
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				unknown = append(unknown, name)
			}
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
	}
}

// applyEnvConfig applies environment variable values to config.
// A set variable overrides the file, so the precedence is
// CLI flags > env vars > config file > defaults
// (CLI flags are applied later via mergeFlags).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	setString(&cfg.Server.Addr, env.Addr)
	setString(&cfg.Server.BaseURL, env.BaseURL)
	setString(&cfg.Storage.Dir, env.StorageDir)

	setString(&cfg.Mail.Provider, env.MailProvider)
	setString(&cfg.Mail.FromName, env.MailFromName)
	setString(&cfg.Mail.FromAddress, env.MailFromAddress)
	setString(&cfg.Mail.SMTP.Host, env.SMTPHost)
	setString(&cfg.Mail.SMTP.Username, env.SMTPUsername)
	setString(&cfg.Mail.SMTP.Password, env.SMTPPassword)
	setString(&cfg.Mail.SendGrid.APIKey, env.SendGridAPIKey)
	setString(&cfg.Mail.SES.Region, env.SESRegion)
	if env.SMTPPort > 0 {
		cfg.Mail.SMTP.Port = env.SMTPPort
	}

	if env.Workers > 0 {
		cfg.Render.Workers = env.Workers
	}
	if env.RenderTimeout > 0 {
		cfg.Render.Timeout = env.RenderTimeout
	}
	setString(&cfg.Render.BrowserBin, env.BrowserBin)
	if env.NoSandbox {
		cfg.Render.NoSandbox = true
	}

	setString(&cfg.Templates.BaseDir, env.TemplatesDir)
	setString(&cfg.Templates.AssetsDir, env.AssetsDir)
	setString(&cfg.QR.VerifyBaseURL, env.VerifyBaseURL)
	setString(&cfg.Document.Organization, env.Organization)
	setString(&cfg.Log.Level, env.LogLevel)
	setString(&cfg.Log.Format, env.LogFormat)

	// S3 mirror (auto-enable)
	if env.S3Bucket != "" {
		cfg.Storage.S3.Bucket = env.S3Bucket
		cfg.Storage.S3.Enabled = true
	}
	setString(&cfg.Storage.S3.Region, env.S3Region)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
