package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	certgen "github.com/alnah/go-certgen"
	"github.com/alnah/go-certgen/internal/assets"
	"github.com/alnah/go-certgen/internal/callback"
	"github.com/alnah/go-certgen/internal/compose"
	"github.com/alnah/go-certgen/internal/config"
	"github.com/alnah/go-certgen/internal/dateutil"
	"github.com/alnah/go-certgen/internal/hints"
	"github.com/alnah/go-certgen/internal/logging"
	"github.com/alnah/go-certgen/internal/mailer"
	"github.com/alnah/go-certgen/internal/qr"
	"github.com/alnah/go-certgen/internal/server"
	"github.com/alnah/go-certgen/internal/storage"
	"github.com/alnah/go-certgen/internal/yamlutil"
)

// ErrListen reports that the HTTP listener could not start.
var ErrListen = errors.New("failed to start listener")

// readHeaderTimeout bounds slow clients sending request headers.
const readHeaderTimeout = 10 * time.Second

// redacted replaces secrets in printed configs.
const redacted = "[redacted]"

// runServe loads the configuration, wires the service and serves until ctx
// is cancelled, then shuts down gracefully.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) || errors.Is(err, ErrUsage) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	cfg, err := loadServiceConfig(&flags.common, env)
	if err != nil {
		return err
	}
	mergeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if flags.printConfig {
		return printConfig(env.Stdout, cfg)
	}

	level := cfg.Log.Level
	if flags.common.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the service runs safely.
	undo, _ := maxprocs.Set(maxprocs.Logger(logger.Sugar().Infof))
	defer undo()

	gin.SetMode(gin.ReleaseMode)

	svc, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		_ = svc.pool.Close()
		return fmt.Errorf("%w: %v", ErrListen, err)
	}
	return svc.serve(ctx, ln, cfg.Server.ShutdownTimeout)
}

// loadServiceConfig resolves the configuration from .env, CERTGEN_*
// variables and the optional config file. Flags are merged by the caller.
func loadServiceConfig(common *commonFlags, env *Environment) (*config.Config, error) {
	if err := loadDotEnv(common.envFile); err != nil {
		return nil, err
	}
	warnUnknownEnvVars(env.Stderr)

	envCfg, err := loadEnvConfig()
	if err != nil {
		return nil, err
	}

	path := common.config
	if path == "" {
		path = envCfg.ConfigPath
	}

	cfg := config.DefaultConfig()
	if path != "" {
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	applyEnvConfig(envCfg, cfg)
	return cfg, nil
}

// loadDotEnv loads path, or ./.env when path is empty and the file exists.
// Variables already present in the environment are kept.
func loadDotEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// mergeFlags applies explicitly set CLI flags over the config.
func mergeFlags(flags *serveFlags, cfg *config.Config) {
	setString(&cfg.Server.Addr, flags.addr)
	setString(&cfg.Server.BaseURL, flags.baseURL)
	setString(&cfg.Storage.Dir, flags.storageDir)
	setString(&cfg.Log.Level, flags.logLevel)
	if flags.workers > 0 {
		cfg.Render.Workers = flags.workers
	}
	if flags.timeout > 0 {
		cfg.Render.Timeout = flags.timeout
	}
}

// printConfig writes the effective config as YAML with secrets hidden.
func printConfig(w io.Writer, cfg *config.Config) error {
	out := *cfg
	for _, secret := range []*string{
		&out.Mail.SMTP.Password,
		&out.Mail.SendGrid.APIKey,
	} {
		if *secret != "" {
			*secret = redacted
		}
	}

	data, err := yamlutil.Marshal(&out)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// service holds the long-lived resources of serve.
type service struct {
	pool       *certgen.RendererPool
	dispatcher *certgen.Dispatcher
	server     *server.Server
	logger     *zap.Logger
}

// buildService constructs every component from cfg and injects them into
// the generator. No browser is started until the first render.
func buildService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*service, error) {
	storeOpts := []storage.Option{storage.WithLogger(logger)}
	if cfg.Storage.S3.Enabled {
		mirror, err := storage.NewS3Mirror(ctx, cfg.Storage.S3.Bucket, cfg.Storage.S3.Region, cfg.Storage.S3.Prefix)
		if err != nil {
			return nil, err
		}
		storeOpts = append(storeOpts, storage.WithMirror(mirror))
	}
	store, err := storage.NewLocalStore(cfg.Storage.Dir, cfg.Server.BaseURL, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w%s", err, hints.ForStorageDir())
	}

	assetSource, err := assets.NewAssetResolver(cfg.Templates.AssetsDir)
	if err != nil {
		return nil, fmt.Errorf("%w%s", err, hints.ForTemplateDir())
	}
	resolver, err := certgen.NewTemplateResolver(cfg.Templates.BaseDir, assetSource, logger)
	if err != nil {
		return nil, fmt.Errorf("%w%s", err, hints.ForTemplateDir())
	}
	composer, err := compose.New(assetSource)
	if err != nil {
		return nil, err
	}

	dates, err := dateutil.NewFormatter(cfg.Document.DateFormat)
	if err != nil {
		return nil, err
	}

	mail, err := mailer.New(ctx, mailerConfig(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("%w%s", err, hints.ForMailConfig(cfg.Mail.Provider))
	}

	notifier := callback.New(
		callback.WithTimeout(cfg.Callback.Timeout),
		callback.WithLogger(logger))

	pool := certgen.NewRendererPool(certgen.ResolvePoolSize(cfg.Render.Workers), certgen.RendererConfig{
		Timeout:    cfg.Render.Timeout,
		BrowserBin: cfg.Render.BrowserBin,
		NoSandbox:  cfg.Render.NoSandbox,
		Recycle:    cfg.Render.RecycleBrowser,
	}, logger)

	gen, err := certgen.NewGenerator(
		certgen.WithRenderer(pool),
		certgen.WithMailer(mail),
		certgen.WithStore(store),
		certgen.WithNotifier(notifier),
		certgen.WithResolver(resolver),
		certgen.WithComposer(composer),
		certgen.WithMailBodies(mailer.NewBodyRenderer(assetSource)),
		certgen.WithQR(qr.NewGenerator(cfg.QR.VerifyBaseURL, cfg.QR.Size)),
		certgen.WithDateFormatter(dates),
		certgen.WithDocumentSettings(certgen.DocumentSettings{
			Organization:   cfg.Document.Organization,
			SignatoryName:  cfg.Document.SignatoryName,
			SignatoryTitle: cfg.Document.SignatoryTitle,
		}),
		certgen.WithMailTimeout(cfg.Mail.Timeout),
		certgen.WithCallbackTimeout(cfg.Callback.Timeout),
		certgen.WithLogger(logger),
	)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}

	dispatcher := certgen.NewDispatcher(gen, logger)
	srv := server.New(dispatcher,
		server.WithLogger(logger),
		server.WithRateLimit(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst),
		server.WithFilesDir(store.Dir()))

	return &service{
		pool:       pool,
		dispatcher: dispatcher,
		server:     srv,
		logger:     logger,
	}, nil
}

func mailerConfig(cfg *config.Config) mailer.Config {
	return mailer.Config{
		Provider: cfg.Mail.Provider,
		From:     mailer.Sender{Name: cfg.Mail.FromName, Address: cfg.Mail.FromAddress},
		SMTP: mailer.SMTPConfig{
			Host:        cfg.Mail.SMTP.Host,
			Port:        cfg.Mail.SMTP.Port,
			Username:    cfg.Mail.SMTP.Username,
			Password:    cfg.Mail.SMTP.Password,
			ImplicitTLS: cfg.Mail.SMTP.ImplicitTLS,
		},
		SendGridKey: cfg.Mail.SendGrid.APIKey,
		SESRegion:   cfg.Mail.SES.Region,
	}
}

// serve runs the HTTP server on ln until ctx is cancelled or the server
// fails, then stops accepting, drains running jobs and closes the pool.
func (s *service) serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	httpSrv := &http.Server{
		Handler:           s.server.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Serve(ln) }()

	s.logger.Info("certgen listening",
		zap.String("addr", ln.Addr().String()),
		zap.Int("render_workers", s.pool.Size()),
		zap.String("version", Version))

	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("%w: %v", ErrListen, err)
		}
	}

	return errors.Join(serveErr, s.shutdown(httpSrv, shutdownTimeout))
}

// shutdown stops the listener first so no job is accepted after the drain
// starts. Jobs still running at the deadline are cancelled and report failure.
func (s *service) shutdown(httpSrv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := httpSrv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stopping http server: %w", err))
	}
	if err := s.dispatcher.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("draining jobs: %w", err))
	}
	if err := s.pool.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing browsers: %w", err))
	}

	s.logger.Info("shutdown complete", zap.Int("errors", len(errs)))
	return errors.Join(errs...)
}
