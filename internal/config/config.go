// Package config handles configuration loading for the smpquery command.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax), so proxies and DNS servers can
// be injected at runtime.
//
// # Configuration Sections
//
//   - dns: DNS server and timeout used for registry lookups
//   - http: SMP client settings (user agent, timeout, proxy)
//   - query: checks applied to SMP answers and optional lookups
//   - registries: the registry catalog; defaults to the Peppol SMLs
//   - logging: log level and format
//   - server: REST API listener used by smpqueryd (port, TLS, base path, rate limit)
//   - observability: Prometheus metrics endpoint
//
// # Example Configuration
//
//	dns:
//	  server: 8.8.8.8:53
//	  timeout: 5s
//
//	http:
//	  userAgent: smpquery/1.0
//	  proxy: ${HTTPS_PROXY}
//
//	query:
//	  xmlSchemaValidation: true
//	  verifySignature: true
//	  signatureTrustFile: /etc/smp/peppol-smp-ca.pem
//
//	registries:
//	  - id: SML-TEST
//	    dnsZone: acc.edelivery.tech.ec.europa.eu.
//	    variant: peppol
//	    priority: 100
//
// See [Load] for loading configuration from a file.
package config

import (
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sirosfoundation/go-smp/pkg/discovery"
	"github.com/sirosfoundation/go-smp/pkg/registry"
	"github.com/sirosfoundation/go-smp/pkg/transport"
)

// Config is the root configuration structure
type Config struct {
	DNS        DNSConfig         `yaml:"dns"`
	HTTP       HTTPConfig        `yaml:"http"`
	Query      QueryConfig       `yaml:"query"`
	Registries []registry.Config `yaml:"registries"`
	Logging    LoggingConfig     `yaml:"logging"`
	Server     ServerConfig      `yaml:"server"`
	Metrics    MetricsConfig     `yaml:"observability"`

	// Debug adds technical detail to error messages shown to users
	Debug bool `yaml:"debug"`
}

// DNSConfig holds resolver settings
type DNSConfig struct {
	// Server is "ip:port" or "ip"; empty uses /etc/resolv.conf
	Server  string        `yaml:"server"`
	Timeout time.Duration `yaml:"timeout"`
}

// HTTPConfig holds SMP client settings
type HTTPConfig struct {
	UserAgent string        `yaml:"userAgent"`
	Timeout   time.Duration `yaml:"timeout"`
	Proxy     string        `yaml:"proxy"`
}

// QueryConfig selects checks and optional lookups
type QueryConfig struct {
	// Pointers distinguish "not set" (default on) from false
	XMLSchemaValidation *bool `yaml:"xmlSchemaValidation"`
	VerifySignature     *bool `yaml:"verifySignature"`

	// SignatureTrustFile is a PEM bundle of SMP signing CAs. Empty accepts
	// any signer with a valid signature.
	SignatureTrustFile string `yaml:"signatureTrustFile"`

	// BusinessCard also fetches the participant's business card
	BusinessCard bool `yaml:"businessCard"`

	// ParallelProbe probes all registries concurrently during auto-detect
	ParallelProbe bool `yaml:"parallelProbe"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `yaml:"level"`
	// Format is text or json
	Format string `yaml:"format"`
}

// ServerConfig holds REST API settings
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"basePath"`
	TLS      struct {
		Enabled  bool   `yaml:"enabled"`
		CertFile string `yaml:"certFile"`
		KeyFile  string `yaml:"keyFile"`
	} `yaml:"tls"`

	// RateLimit applies per client IP; zero requestsPerSecond disables it
	RateLimit struct {
		RequestsPerSecond float64 `yaml:"requestsPerSecond"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rateLimit"`

	// CacheMaxAge is sent as Cache-Control max-age on successful answers
	CacheMaxAge time.Duration `yaml:"cacheMaxAge"`
}

// MetricsConfig holds observability settings
type MetricsConfig struct {
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// Default returns the configuration used without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse reads configuration from YAML data
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DNS.Timeout == 0 {
		c.DNS.Timeout = 5 * time.Second
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = transport.DefaultUserAgent
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = transport.DefaultTimeout
	}
	if c.Query.XMLSchemaValidation == nil {
		c.Query.XMLSchemaValidation = boolPtr(true)
	}
	if c.Query.VerifySignature == nil {
		c.Query.VerifySignature = boolPtr(true)
	}
	if len(c.Registries) == 0 {
		c.Registries = registry.PeppolDefaults()
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = "/api"
	}
	if c.Server.RateLimit.RequestsPerSecond > 0 && c.Server.RateLimit.Burst == 0 {
		// two seconds worth of requests
		c.Server.RateLimit.Burst = int(2 * c.Server.RateLimit.RequestsPerSecond)
	}
	if c.Server.CacheMaxAge == 0 {
		c.Server.CacheMaxAge = time.Hour
	}
	if c.Metrics.Metrics.Path == "" {
		c.Metrics.Metrics.Path = "/metrics"
	}
}

func (c *Config) validate() error {
	if c.DNS.Timeout < 0 {
		return fmt.Errorf("dns.timeout must not be negative")
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative")
	}
	if c.HTTP.Proxy != "" {
		u, err := url.Parse(c.HTTP.Proxy)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("http.proxy must be an absolute URL, got '%s'", c.HTTP.Proxy)
		}
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
		// Valid formats
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json', got '%s'", c.Logging.Format)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("server.basePath must start with '/', got '%s'", c.Server.BasePath)
	}
	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		return fmt.Errorf("server.tls.certFile and server.tls.keyFile are required when TLS is enabled")
	}
	if c.Server.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("server.rateLimit.requestsPerSecond must not be negative")
	}
	if _, err := c.Catalog(); err != nil {
		return fmt.Errorf("registries: %w", err)
	}
	for _, r := range c.Registries {
		if _, err := discovery.StrategyByName(r.Strategy, r.Variant); err != nil {
			return fmt.Errorf("registries: %s: %w", r.ID, err)
		}
	}
	return nil
}

// Catalog builds the registry catalog.
func (c *Config) Catalog() (*registry.Catalog, error) {
	return registry.NewCatalog(c.Registries...)
}

// ResolverConfig returns the DNS resolver settings.
func (c *Config) ResolverConfig(logger *slog.Logger) discovery.ResolverConfig {
	return discovery.ResolverConfig{
		DNSServer: c.DNS.Server,
		Timeout:   c.DNS.Timeout,
		Logger:    logger,
	}
}

// ModifySettings applies the http section to per query client settings.
func (c *Config) ModifySettings(s *transport.Settings) {
	s.UserAgent = c.HTTP.UserAgent
	s.Timeout = c.HTTP.Timeout
	if c.HTTP.Proxy != "" {
		// validated in Load
		s.Proxy, _ = url.Parse(c.HTTP.Proxy)
	}
}

// SignatureTrust loads the SMP signing CAs. It returns nil when no trust
// file is configured.
func (c *Config) SignatureTrust() (*x509.CertPool, error) {
	if c.Query.SignatureTrustFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.Query.SignatureTrustFile)
	if err != nil {
		return nil, fmt.Errorf("reading signature trust file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, errors.New("signature trust file contains no PEM certificates")
	}
	return pool, nil
}

// NewLogger creates the logger described by the logging section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Logging.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logging.level must be 'debug', 'info', 'warn' or 'error', got '%s'", s)
}

func boolPtr(b bool) *bool { return &b }
