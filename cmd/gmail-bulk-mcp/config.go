package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hal9000y/gmail-bulk-mcp/internal/dispatch"
	"github.com/hal9000y/gmail-bulk-mcp/internal/instrumentation"
)

const (
	envPrefix = "GMAIL_MCP_"

	providerGmail = "gmail"
	providerSES   = "ses"
)

var errInvalidConfig = errors.New("invalid configuration")

type config struct {
	HTTPAddr        string
	OAuthURL        string
	OAuthTokenFile  string
	CredentialsFile string
	EnvFile         string
	NoBrowser       bool

	Stdio     bool
	LogFile   string
	LogLevel  string
	LogFormat string

	Provider     string
	From         string
	SESRegion    string
	SESAccessKey string
	SESSecretKey string

	RateLimit   int
	RateWindow  time.Duration
	OAuthRate   int
	SendTimeout time.Duration

	MetricsExporter string
	TracingExporter string
	OTLPEndpoint    string
	OTLPInsecure    bool
}

func (c *config) bindFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.SortFlags = false

	f.StringVar(&c.HTTPAddr, "http-addr", "localhost:0", "HTTP server listen addr")
	f.StringVar(&c.OAuthURL, "oauth-url", "", "OAuth redirect URL, defaults to http://<http-addr>/oauth")
	f.StringVar(&c.OAuthTokenFile, "oauth-token-file", "./data/gmail-mcp-token.json", "Path to cache google oauth token, empty to avoid storing")
	f.StringVar(&c.CredentialsFile, "credentials-file", "", "Path to Google client secrets JSON, overrides OAUTH_GOOGLE_CLIENT_ID/SECRET")
	f.StringVar(&c.EnvFile, "env-file", "", "Path to env file")
	f.BoolVar(&c.NoBrowser, "no-browser", false, "Do not open the consent page when no token is stored")

	f.BoolVar(&c.Stdio, "stdio", false, "Enable stdio transport for MCP (disables stderr logging)")
	f.StringVar(&c.LogFile, "log-file", "", "Path to log file")
	f.StringVar(&c.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.StringVar(&c.LogFormat, "log-format", "", "Log format: json or text, defaults to text with --stdio and json otherwise")

	f.StringVar(&c.Provider, "provider", providerGmail, "Mail provider: gmail or ses")
	f.StringVar(&c.From, "from", "", "Sender address, required for ses")
	f.StringVar(&c.SESRegion, "ses-region", "", "AWS region for ses")
	f.StringVar(&c.SESAccessKey, "ses-access-key", "", "AWS access key for ses, default credential chain when empty")
	f.StringVar(&c.SESSecretKey, "ses-secret-key", "", "AWS secret key for ses")

	f.IntVar(&c.RateLimit, "rate-limit", 30, "Tool calls allowed per client and window, 0 disables")
	f.DurationVar(&c.RateWindow, "rate-window", time.Minute, "Rate limit window")
	f.IntVar(&c.OAuthRate, "oauth-rate-limit", 20, "Requests per minute and IP on /oauth")
	f.DurationVar(&c.SendTimeout, "send-timeout", dispatch.DefaultSendTimeout, "Upper bound of one provider send, 0 disables")

	f.StringVar(&c.MetricsExporter, "metrics-exporter", instrumentation.ExporterNone, "Metrics exporter: none, prometheus, stdout or otlp")
	f.StringVar(&c.TracingExporter, "tracing-exporter", instrumentation.ExporterNone, "Tracing exporter: none, stdout or otlp")
	f.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP/HTTP endpoint for metrics and traces")
	f.BoolVar(&c.OTLPInsecure, "otlp-insecure", false, "Use plain HTTP for OTLP")
}

// envName maps a flag name to its environment variable, e.g. rate-limit to
// GMAIL_MCP_RATE_LIMIT.
func envName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// applyEnv sets every flag the user did not pass from its environment
// variable, if present.
func applyEnv(cmd *cobra.Command, lookup func(string) (string, bool)) error {
	var errs []error

	for _, name := range flagNames(cmd) {
		f := cmd.Flags().Lookup(name)
		if f.Changed {
			continue
		}
		v, ok := lookup(envName(name))
		if !ok {
			continue
		}
		if err := cmd.Flags().Set(name, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", envName(name), err))
		}
	}

	return errors.Join(errs...)
}

func flagNames(cmd *cobra.Command) []string {
	var names []string
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		names = append(names, f.Name)
	})
	return names
}

func (c *config) validate() error {
	var errs []error

	switch c.Provider {
	case providerGmail:
	case providerSES:
		if c.From == "" {
			errs = append(errs, errors.New("--from is required with --provider ses"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q", c.LogFormat))
	}

	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit must not be negative, got %d", c.RateLimit))
	}
	if c.RateWindow <= 0 {
		errs = append(errs, fmt.Errorf("rate window must be positive, got %s", c.RateWindow))
	}
	if c.SendTimeout < 0 {
		errs = append(errs, fmt.Errorf("send timeout must not be negative, got %s", c.SendTimeout))
	}
	if c.OAuthRate < 1 {
		errs = append(errs, fmt.Errorf("oauth rate limit must be at least 1, got %d", c.OAuthRate))
	}

	if err := c.instrumentation().Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", errInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (c *config) logFormat() string {
	if c.LogFormat != "" {
		return c.LogFormat
	}
	if c.Stdio {
		return "text"
	}
	return "json"
}

func (c *config) instrumentation() instrumentation.Config {
	return instrumentation.Config{
		ServiceName:     "gmail-bulk-mcp",
		ServiceVersion:  version,
		MetricsExporter: c.MetricsExporter,
		TracingExporter: c.TracingExporter,
		OTLPEndpoint:    c.OTLPEndpoint,
		OTLPInsecure:    c.OTLPInsecure,
	}
}
