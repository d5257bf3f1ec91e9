// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-certgen/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// InCI reports whether a known CI environment variable is set.
func InCI() bool {
	return os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""
}

// ForBrowserConnect returns hints for browser launch errors.
// Detects CI/Docker environment and suggests the sandbox and binary settings.
func ForBrowserConnect() string {
	var hints []string

	noSandbox := os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("CERTGEN_RENDER_NO_SANDBOX") == "true"
	if (InCI() || IsInContainer()) && !noSandbox {
		hints = append(hints, "set render.noSandbox: true (or ROD_NO_SANDBOX=1) for Docker/CI")
	}

	if os.Getenv("ROD_BROWSER_BIN") == "" && os.Getenv("CERTGEN_RENDER_BROWSER_BIN") == "" {
		hints = append(hints, "set render.browserBin or ROD_BROWSER_BIN to use a custom Chrome")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about increasing a stage timeout.
func ForTimeout(key string) string {
	return format("raise " + key + " in the config file")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/go-certgen/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/certgen.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-certgen") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForStorageDir returns hints for artifact directory errors.
func ForStorageDir() string {
	return format("check storage.dir exists and is writable by the service user")
}

// ForMailConfig returns hints for mail provider configuration errors.
func ForMailConfig(provider string) string {
	switch strings.ToLower(provider) {
	case "sendgrid":
		return format("set mail.sendgrid.apiKey (or CERTGEN_MAIL_SENDGRID_API_KEY) and mail.fromAddress")
	case "ses":
		return format("set mail.ses.region and provide AWS credentials via the default chain")
	case "", "smtp":
		return format("set mail.smtp.host, mail.smtp.port and mail.fromAddress")
	default:
		return format("mail.provider must be one of smtp, sendgrid, ses")
	}
}

// ForTemplateDir returns hints for template directory errors.
func ForTemplateDir() string {
	return format("templates.baseDir and templates.assetsDir must be existing directories")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
