package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-certgen/internal/assets"
	"github.com/alnah/go-certgen/internal/config"
	"github.com/alnah/go-certgen/internal/fileutil"
	"github.com/alnah/go-certgen/internal/hints"
	"github.com/alnah/go-certgen/internal/mailer"
)

// browserVersionTimeout bounds "chrome --version", which hangs on some
// broken installs.
const browserVersionTimeout = 10 * time.Second

// lookBrowser locates Chrome when no binary is configured.
var lookBrowser = launcher.LookPath

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status    string        `json:"status"` // "ready", "warnings", "errors"
	Chrome    chromeInfo    `json:"chrome"`
	Env       envInfo       `json:"environment"`
	Storage   storageInfo   `json:"storage"`
	Templates templatesInfo `json:"templates"`
	Mail      mailInfo      `json:"mail"`
	Warnings  []string      `json:"warnings,omitempty"`
	Errors    []string      `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

// storageInfo holds artifact directory check results.
type storageInfo struct {
	Dir      string `json:"dir"`
	Exists   bool   `json:"exists"`
	Writable bool   `json:"writable"`
	S3Bucket string `json:"s3_bucket,omitempty"`
}

// templatesInfo holds template and asset directory check results.
type templatesInfo struct {
	BaseDir   string `json:"base_dir"`
	AssetsDir string `json:"assets_dir,omitempty"`
}

// mailInfo holds mail provider check results.
type mailInfo struct {
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found, 2 = bad flags.
func runDoctorCmd(args []string, env *Environment) int {
	flags, err := parseDoctorFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return ExitUsage
	}

	cfg, cfgErr := loadServiceConfig(&flags.common, env)
	if cfgErr == nil {
		cfgErr = cfg.Validate()
	}
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}

	result := runDoctor(context.Background(), cfg)
	if cfgErr != nil {
		result.Errors = append([]string{fmt.Sprintf("Config: %v", cfgErr)}, result.Errors...)
		result.Status = "errors"
	}

	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks against cfg.
func runDoctor(ctx context.Context, cfg *config.Config) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}

	checkChrome(ctx, result, cfg)
	checkEnvironment(result, cfg)
	checkStorage(result, cfg)
	checkTemplates(result, cfg)
	checkMail(ctx, result, cfg)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkChrome detects the browser the renderer pool would launch.
func checkChrome(ctx context.Context, result *doctorResult, cfg *config.Config) {
	chromePath := cfg.Render.BrowserBin
	if chromePath == "" {
		chromePath = os.Getenv("ROD_BROWSER_BIN")
	}

	if chromePath == "" {
		var found bool
		chromePath, found = lookBrowser()
		if !found {
			result.Errors = append(result.Errors,
				"Chrome/Chromium not found. Install Chrome or set render.browserBin"+hints.ForBrowserConnect())
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath
	result.Chrome.Sandbox = !cfg.Render.NoSandbox && os.Getenv("ROD_NO_SANDBOX") != "1"

	ctx, cancel := context.WithTimeout(ctx, browserVersionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, chromePath, "--version").Output()
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
		return
	}
	result.Chrome.Version = strings.TrimSpace(string(out))
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, cfg *config.Config) {
	result.Env.Container, result.Env.ContainerHint = isContainer()
	result.Env.CI = hints.InCI() || os.Getenv("CIRCLECI") != ""

	sandboxOff := cfg.Render.NoSandbox || os.Getenv("ROD_NO_SANDBOX") == "1"
	if (result.Env.Container || result.Env.CI) && !sandboxOff {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but the browser sandbox is on. Set render.noSandbox: true or CERTGEN_RENDER_NO_SANDBOX=true")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	// Explicit override (highest priority)
	if os.Getenv("CERTGEN_CONTAINER") == "1" {
		return true, "CERTGEN_CONTAINER=1"
	}
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	// Podman / systemd-nspawn
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkStorage verifies the artifact directory. A missing directory is only a
// warning since serve creates it on start.
func checkStorage(result *doctorResult, cfg *config.Config) {
	result.Storage.Dir = cfg.Storage.Dir
	if cfg.Storage.S3.Enabled {
		result.Storage.S3Bucket = cfg.Storage.S3.Bucket
	}

	err := fileutil.CheckWritable(cfg.Storage.Dir)
	switch {
	case err == nil:
		result.Storage.Exists = true
		result.Storage.Writable = true
	case errors.Is(err, fs.ErrNotExist):
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Storage directory %s does not exist yet (created on serve)", cfg.Storage.Dir))
	default:
		result.Storage.Exists = !errors.Is(err, fileutil.ErrNotDirectory)
		result.Errors = append(result.Errors,
			fmt.Sprintf("Storage directory not usable: %v", err))
	}
}

// checkTemplates verifies the template base directory and custom assets.
func checkTemplates(result *doctorResult, cfg *config.Config) {
	base, err := assets.ResolveBaseDir(cfg.Templates.BaseDir)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Template base directory: %v", err))
	} else {
		result.Templates.BaseDir = base
	}

	if cfg.Templates.AssetsDir == "" {
		return
	}
	loader, err := assets.NewFilesystemLoader(cfg.Templates.AssetsDir)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Assets directory: %v", err))
		return
	}
	result.Templates.AssetsDir = loader.BasePath()
}

// checkMail builds the configured provider without sending anything.
func checkMail(ctx context.Context, result *doctorResult, cfg *config.Config) {
	result.Mail.Provider = cfg.Mail.Provider
	if _, err := mailer.New(ctx, mailerConfig(cfg), nil); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Mail: %v%s", err, hints.ForMailConfig(cfg.Mail.Provider)))
		return
	}
	result.Mail.Configured = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "certgen doctor")
	fmt.Fprintln(w)

	// Chrome section
	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled")
		}
	} else {
		fmt.Fprintln(w, "  [ERROR] Not found")
	}
	fmt.Fprintln(w)

	// Environment section
	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Storage")
	switch {
	case r.Storage.Writable:
		fmt.Fprintf(w, "  [OK] Directory: %s (writable)\n", r.Storage.Dir)
	case !r.Storage.Exists:
		fmt.Fprintf(w, "  [WARN] Directory: %s (missing)\n", r.Storage.Dir)
	default:
		fmt.Fprintf(w, "  [ERROR] Directory: %s (not writable)\n", r.Storage.Dir)
	}
	if r.Storage.S3Bucket != "" {
		fmt.Fprintf(w, "  [OK] S3 mirror: %s\n", r.Storage.S3Bucket)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Templates")
	if r.Templates.BaseDir != "" {
		fmt.Fprintf(w, "  [OK] Base directory: %s\n", r.Templates.BaseDir)
	} else {
		fmt.Fprintln(w, "  [ERROR] Base directory: unusable")
	}
	if r.Templates.AssetsDir != "" {
		fmt.Fprintf(w, "  [OK] Custom assets: %s\n", r.Templates.AssetsDir)
	} else {
		fmt.Fprintln(w, "  [OK] Custom assets: none (embedded defaults)")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Mail")
	if r.Mail.Configured {
		fmt.Fprintf(w, "  [OK] Provider: %s\n", r.Mail.Provider)
	} else {
		fmt.Fprintf(w, "  [ERROR] Provider: %s (not configured)\n", r.Mail.Provider)
	}
	fmt.Fprintln(w)

	// Warnings
	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	// Errors
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	// Final status
	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to serve")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
