package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hal9000y/gmail-bulk-mcp/internal/auth"
	"github.com/hal9000y/gmail-bulk-mcp/internal/dispatch"
	"github.com/hal9000y/gmail-bulk-mcp/internal/format"
	"github.com/hal9000y/gmail-bulk-mcp/internal/gservice"
	"github.com/hal9000y/gmail-bulk-mcp/internal/instrumentation"
	"github.com/hal9000y/gmail-bulk-mcp/internal/logging"
	"github.com/hal9000y/gmail-bulk-mcp/internal/mail"
	"github.com/hal9000y/gmail-bulk-mcp/internal/message"
	"github.com/hal9000y/gmail-bulk-mcp/internal/ratelimit"
	"github.com/hal9000y/gmail-bulk-mcp/internal/tool"
)

const shutdownTimeout = 3 * time.Second

func newServeCmd() *cobra.Command {
	var cfg config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server with the email tools.

Every flag can also be set through the environment as GMAIL_MCP_<FLAG>,
e.g. GMAIL_MCP_RATE_LIMIT=60. Flags win over the environment.

Gmail credentials come from --credentials-file (Google client secrets JSON)
or from OAUTH_GOOGLE_CLIENT_ID and OAUTH_GOOGLE_CLIENT_SECRET. When no token
is stored yet the consent page on /oauth is opened in the browser.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnv(cmd, &cfg); err != nil {
				return err
			}
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cfg.bindFlags(cmd)

	return cmd
}

// loadEnv applies the process environment, then the env file, to flags that
// were not set on the command line.
func loadEnv(cmd *cobra.Command, cfg *config) error {
	if err := applyEnv(cmd, os.LookupEnv); err != nil {
		return fmt.Errorf("%w: %w", errInvalidConfig, err)
	}
	if cfg.EnvFile == "" {
		return nil
	}

	if err := godotenv.Load(cfg.EnvFile); err != nil {
		return fmt.Errorf("godotenv.Load failed: %w", err)
	}
	if err := applyEnv(cmd, os.LookupEnv); err != nil {
		return fmt.Errorf("%w: %w", errInvalidConfig, err)
	}

	return nil
}

func run(ctx context.Context, cfg config) error {
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	inst, err := instrumentation.NewProvider(ctx, cfg.instrumentation())
	if err != nil {
		return fmt.Errorf("instrumentation.NewProvider failed: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := inst.Shutdown(sctx); err != nil {
			logger.Warn("inst.Shutdown failed", logging.Err(err))
		}
	}()

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("net.Listen failed: %w", err)
	}

	backend, err := newBackend(ctx, cfg, ln.Addr().String(), logger)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer backend.persist(logger)

	var limiter *ratelimit.SlidingWindow
	if cfg.RateLimit > 0 {
		limiter, err = ratelimit.NewSlidingWindow(cfg.RateLimit, cfg.RateWindow)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("ratelimit.NewSlidingWindow failed: %w", err)
		}
	}

	serverCfg := tool.ServerConfig{
		Version: version,
		Dispatcher: dispatch.New(
			dispatch.WithMetrics(inst.Metrics()),
			dispatch.WithLogger(logger),
			dispatch.WithProviderName(backend.provider.Name()),
			dispatch.WithSendTimeout(cfg.SendTimeout),
		),
		Limiter: limiter,
		Metrics: inst.Metrics(),
		Tracer:  inst.Tracer("github.com/hal9000y/gmail-bulk-mcp/internal/tool"),
		Logger:  logger,
	}

	srv := &http.Server{
		Handler: newRouter(routes{
			MCP:       mcp.NewStreamableHTTPHandler(sessionServer(backend.provider, serverCfg), nil),
			OAuth:     backend.oauth,
			Metrics:   inst.PrometheusHandler(),
			OAuthRate: cfg.OAuthRate,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopHTTP, errHTTPCh := serveHTTP(srv, ln, logger)
	defer stopHTTP()

	if backend.needsConsent() && !cfg.NoBrowser {
		openBrowser(backend.redirectURL, logger)
	}

	var errStdioCh <-chan error
	if cfg.Stdio {
		var stopStdio func()
		stdioCfg := serverCfg
		stdioCfg.CallerKey = ratelimit.LocalKey
		stopStdio, errStdioCh = serveStdio(ctx, tool.NewServer(backend.provider, stdioCfg), logger)
		defer stopStdio()
	}

	select {
	case err := <-errHTTPCh:
		return err
	case err := <-errStdioCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	return nil
}

// sessionServer builds the server of a new streamable HTTP session. Tool
// calls are limited by client address, which survives re-initialization.
func sessionServer(provider mail.Provider, cfg tool.ServerConfig) func(*http.Request) *mcp.Server {
	return func(r *http.Request) *mcp.Server {
		c := cfg
		c.CallerKey = ratelimit.ClientIP(r)
		return tool.NewServer(provider, c)
	}
}

type backend struct {
	provider    mail.Provider
	oauth       http.Handler
	tok         *auth.Token
	redirectURL string
}

func newBackend(ctx context.Context, cfg config, lnAddr string, logger *slog.Logger) (*backend, error) {
	conv := format.Converter{}

	switch cfg.Provider {
	case providerSES:
		ses, err := gservice.NewSES(ctx, gservice.SESConfig{
			Region:    cfg.SESRegion,
			AccessKey: cfg.SESAccessKey,
			SecretKey: cfg.SESSecretKey,
			From:      cfg.From,
		}, conv)
		if err != nil {
			return nil, fmt.Errorf("gservice.NewSES failed: %w", err)
		}
		return &backend{provider: ses}, nil
	default:
		redirectURL := cfg.OAuthURL
		if redirectURL == "" {
			redirectURL = fmt.Sprintf("http://%s/oauth", lnAddr)
		}

		oauthCfg, err := auth.NewConfig(auth.ClientCredentials{
			CredentialsFile: cfg.CredentialsFile,
			ClientID:        os.Getenv("OAUTH_GOOGLE_CLIENT_ID"),
			ClientSecret:    os.Getenv("OAUTH_GOOGLE_CLIENT_SECRET"),
		}, redirectURL, gservice.GmailScopes...)
		if err != nil {
			return nil, fmt.Errorf("auth.NewConfig failed: %w", err)
		}

		tok, err := auth.NewToken(oauthCfg, cfg.OAuthTokenFile, logger)
		if err != nil {
			return nil, fmt.Errorf("auth.NewToken failed: %w", err)
		}

		return &backend{
			provider:    gservice.NewGmail(tok, message.NewBuilder(cfg.From, conv)),
			oauth:       auth.NewHTTPHandler(tok, logger),
			tok:         tok,
			redirectURL: redirectURL,
		}, nil
	}
}

func (b *backend) needsConsent() bool {
	if b.tok == nil {
		return false
	}
	_, err := b.tok.OAuthToken()
	return errors.Is(err, auth.ErrTokenNotSet)
}

func (b *backend) persist(logger *slog.Logger) {
	if b.tok == nil {
		return
	}
	logger.Info("persisting token if exists")
	if err := b.tok.Persist(); err != nil {
		logger.Error("tok.Persist failed", logging.Err(err))
	}
}

func newLogger(cfg config) (*slog.Logger, func(), error) {
	var (
		w       io.Writer = os.Stderr
		closeFn           = func() {}
	)

	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	case cfg.Stdio:
		// stdout belongs to the MCP transport
		w = io.Discard
	}

	logger, err := logging.New(w, cfg.LogLevel, cfg.logFormat())
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("logging.New failed: %w", err)
	}

	return logger, closeFn, nil
}

func serveStdio(ctx context.Context, srv *mcp.Server, logger *slog.Logger) (func(), <-chan error) {
	errStdioCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(errStdioCh)
		logger.Info("starting stdio transport")

		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			errStdioCh <- fmt.Errorf("srv.Run failed: %w", err)
		}
	}()

	return func() {
		cancel()

		<-errStdioCh
		logger.Info("stdio transport stopped")
	}, errStdioCh
}

func serveHTTP(srv *http.Server, ln net.Listener, logger *slog.Logger) (func(), <-chan error) {
	errHTTPCh := make(chan error, 1)
	go func() {
		defer close(errHTTPCh)

		logger.Info("starting http server", slog.String("addr", ln.Addr().String()))

		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errHTTPCh <- fmt.Errorf("srv.Serve failed: %w", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("srv.Shutdown failed", logging.Err(err))
		}

		<-errHTTPCh
		logger.Info("http server stopped")
	}, errHTTPCh
}

func openBrowser(url string, logger *slog.Logger) {
	url = fmt.Sprintf("%s?redirect=1", url)
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}

	if err != nil {
		logger.Warn("could not open browser automatically, open the link manually",
			slog.String("url", url), logging.Err(err))
	}
}
