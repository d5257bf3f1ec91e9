package main

import (
	"errors"
	"fmt"
	"os"

	certgen "github.com/alnah/go-certgen"
	"github.com/alnah/go-certgen/internal/assets"
	"github.com/alnah/go-certgen/internal/config"
	"github.com/alnah/go-certgen/internal/dateutil"
	"github.com/alnah/go-certgen/internal/fileutil"
	"github.com/alnah/go-certgen/internal/logging"
	"github.com/alnah/go-certgen/internal/mailer"
	"github.com/alnah/go-certgen/internal/storage"
)

// Exit codes for the certgen CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Clean start and shutdown
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or environment
	ExitIO      = 3 // Directory missing, not writable, or port in use
	ExitBrowser = 4 // Browser/Chrome errors
)

// ErrUsage reports an invalid command line.
var ErrUsage = errors.New("invalid usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUsage}, args...)...)
}

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, certgen.ErrBrowserConnect) ||
		errors.Is(err, certgen.ErrPageCreate) ||
		errors.Is(err, certgen.ErrPageLoad) ||
		errors.Is(err, certgen.ErrPDFGeneration) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, fileutil.ErrNotDirectory) ||
		errors.Is(err, storage.ErrConfig) ||
		errors.Is(err, ErrListen) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrInvalidEnv) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, mailer.ErrConfig) ||
		errors.Is(err, mailer.ErrUnknownProvider) ||
		errors.Is(err, dateutil.ErrInvalidDateFormat) ||
		errors.Is(err, logging.ErrInvalidLevel) ||
		errors.Is(err, logging.ErrInvalidFormat) ||
		errors.Is(err, assets.ErrInvalidBasePath) {
		return ExitUsage
	}

	return ExitGeneral
}
