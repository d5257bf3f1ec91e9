package main

// Notes:
// - buildService/serve: we wire the real components against temp dirs and an
//   SMTP host that is never dialled, serve on an ephemeral port and check the
//   routes plus a clean shutdown. No browser is launched since nothing renders.
// - runServe: only --print-config and failure paths, which return before the
//   listener starts.
// - loadDotEnv and loadServiceConfig modify the environment, cannot use t.Parallel()

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alnah/go-certgen/internal/config"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// testServiceConfig returns a valid config rooted in a temp dir.
func testServiceConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.Dir = filepath.Join(dir, "generated")
	cfg.Templates.BaseDir = dir
	cfg.Mail.FromAddress = "talent@acme.test"
	cfg.Mail.SMTP.Host = "localhost"
	cfg.Mail.SMTP.Port = 2525
	cfg.Render.Workers = 1
	cfg.Server.ShutdownTimeout = 5 * time.Second
	require.NoError(t, cfg.Validate())
	return cfg
}

// ---------------------------------------------------------------------------
// TestService_Serve - Wiring, routes and shutdown
// ---------------------------------------------------------------------------

func TestService_Serve(t *testing.T) {
	t.Parallel()

	cfg := testServiceConfig(t)
	svc, err := buildService(t.Context(), cfg, zap.NewNop())
	require.NoError(t, err)

	// The store creates its directory on construction.
	info, err := os.Stat(cfg.Storage.Dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.serve(ctx, ln, cfg.Server.ShutdownTimeout) }()

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Post(base+"/api/generate", "application/json", strings.NewReader(`{"certificateId":"c-1"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Storage.Dir, "c-9.pdf"), []byte("%PDF-1.4"), 0o644))
	resp, err = http.Get(base + "/files/c-9.pdf")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}

	_, err = http.Get(base + "/health")
	assert.Error(t, err, "listener should be closed after shutdown")
}

// ---------------------------------------------------------------------------
// TestBuildService_Errors - Construction failures
// ---------------------------------------------------------------------------

func TestBuildService_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*config.Config)
		wantCode int
		wantHint string
	}{
		{
			name:     "mail host missing",
			mutate:   func(c *config.Config) { c.Mail.SMTP.Host = "" },
			wantCode: ExitUsage,
			wantHint: "mail.smtp.host",
		},
		{
			name:     "template base dir missing",
			mutate:   func(c *config.Config) { c.Templates.BaseDir = filepath.Join(c.Templates.BaseDir, "nope") },
			wantCode: ExitUsage,
			wantHint: "templates.baseDir",
		},
		{
			name:     "assets dir missing",
			mutate:   func(c *config.Config) { c.Templates.AssetsDir = filepath.Join(c.Templates.BaseDir, "nope") },
			wantCode: ExitUsage,
			wantHint: "templates.assetsDir",
		},
		{
			name:     "bad date format",
			mutate:   func(c *config.Config) { c.Document.DateFormat = "[DD" },
			wantCode: ExitUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testServiceConfig(t)
			tt.mutate(cfg)

			svc, err := buildService(t.Context(), cfg, zap.NewNop())
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Equal(t, tt.wantCode, exitCodeFor(err), "error: %v", err)
			if tt.wantHint != "" {
				assert.Contains(t, err.Error(), tt.wantHint)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestPrintConfig - Secret redaction
// ---------------------------------------------------------------------------

func TestPrintConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Mail.SMTP.Password = "hunter2"
	cfg.Mail.SendGrid.APIKey = "SG.secret"
	cfg.Storage.Dir = "/srv/certgen"

	var buf bytes.Buffer
	require.NoError(t, printConfig(&buf, cfg))

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "SG.secret")
	assert.Equal(t, 2, strings.Count(out, redacted))
	assert.Contains(t, out, "/srv/certgen")

	// The caller's config keeps its secrets.
	assert.Equal(t, "hunter2", cfg.Mail.SMTP.Password)
	assert.Equal(t, "SG.secret", cfg.Mail.SendGrid.APIKey)
}

// ---------------------------------------------------------------------------
// TestRunServe_PrintConfig - Effective config resolution
// ---------------------------------------------------------------------------

func TestRunServe_PrintConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "certgen.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server:\n  addr: \":6000\"\ndocument:\n  organization: File Org\n"), 0o644))

	t.Setenv("CERTGEN_ORGANIZATION", "Env Org")
	t.Setenv("CERTGEN_MAIL_SMTP_PASSWORD", "hunter2")
	t.Setenv("CERTGEN_ADDR", ":7000")

	var stdout, stderr bytes.Buffer
	env := &Environment{Stdout: &stdout, Stderr: &stderr}
	err := runServe(t.Context(), []string{"--config", cfgPath, "--addr", ":8000", "--print-config"}, env)
	require.NoError(t, err, "stderr: %s", stderr.String())

	out := stdout.String()
	assert.Contains(t, out, ":8000", "flag should beat env and file")
	assert.Contains(t, out, "Env Org", "env should beat file")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, redacted)
}

// ---------------------------------------------------------------------------
// TestRunServe_Errors - Failures before listening
// ---------------------------------------------------------------------------

func TestRunServe_Errors(t *testing.T) {
	t.Run("invalid env value", func(t *testing.T) {
		t.Setenv("CERTGEN_RENDER_WORKERS", "many")

		err := runServe(t.Context(), nil, &Environment{Stdout: io.Discard, Stderr: io.Discard})
		assert.ErrorIs(t, err, ErrInvalidEnv)
		assert.Equal(t, ExitUsage, exitCodeFor(err))
	})

	t.Run("missing config file", func(t *testing.T) {
		err := runServe(t.Context(), []string{"--config", filepath.Join(t.TempDir(), "nope.yaml")},
			&Environment{Stdout: io.Discard, Stderr: io.Discard})
		assert.ErrorIs(t, err, config.ErrConfigNotFound)
	})

	t.Run("invalid flag value after merge", func(t *testing.T) {
		err := runServe(t.Context(), []string{"--base-url", "ftp://files", "--print-config"},
			&Environment{Stdout: io.Discard, Stderr: io.Discard})
		assert.ErrorIs(t, err, config.ErrInvalidValue)
	})

	t.Run("bad flag", func(t *testing.T) {
		err := runServe(t.Context(), []string{"--workers", "lots"},
			&Environment{Stdout: io.Discard, Stderr: io.Discard})
		assert.ErrorIs(t, err, ErrUsage)
	})
}

// ---------------------------------------------------------------------------
// TestLoadDotEnv - Dotenv loading
// ---------------------------------------------------------------------------

func TestLoadDotEnv(t *testing.T) {
	t.Run("explicit file is loaded", func(t *testing.T) {
		const key = "CERTGEN_DOTENV_CHECK"
		t.Cleanup(func() { _ = os.Unsetenv(key) })

		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte(key+"=loaded\n"), 0o600))

		require.NoError(t, loadDotEnv(path))
		assert.Equal(t, "loaded", os.Getenv(key))
	})

	t.Run("existing variables win", func(t *testing.T) {
		t.Setenv("CERTGEN_ORGANIZATION", "from-process")

		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte("CERTGEN_ORGANIZATION=from-file\n"), 0o600))

		require.NoError(t, loadDotEnv(path))
		assert.Equal(t, "from-process", os.Getenv("CERTGEN_ORGANIZATION"))
	})

	t.Run("explicit missing file fails", func(t *testing.T) {
		err := loadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
		assert.Equal(t, ExitIO, exitCodeFor(err))
	})

	t.Run("default file is optional", func(t *testing.T) {
		// The package directory has no .env file.
		assert.NoError(t, loadDotEnv(""))
	})
}
