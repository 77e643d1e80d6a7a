package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/hiveframe/hiveframe-go/cursor"
	hferrint "github.com/hiveframe/hiveframe-go/internal/errors"
	"github.com/pkg/errors"
)

const (
	DefaultPort          = 10000
	DefaultChunkSize     = 10000
	DefaultAuth          = "NONE"
	DefaultTransportMode = TransportBinary
	DefaultHTTPPath      = "cliservice"

	TransportBinary = "binary"
	TransportHTTP   = "http"
)

// Config is the client configuration. Exactly one of Host and ConfigFile must be set.
type Config struct {
	Host       string
	Port       ConfigValue[int]
	ConfigFile string // hive-site.xml to read the metastore host from

	ChunkSize      int // default page size for FetchAll and FetchChunks
	Auth           string
	Username       string
	Password       string
	Database       string
	TransportMode  ConfigValue[string]
	HTTPPath       ConfigValue[string]
	TLSConfig      *tls.Config // nil disables TLS
	SessionConf    map[string]string
	ConnectTimeout time.Duration

	// Databricks SQL warehouse settings, used by the databricks cursor provider
	AccessToken string

	// populated by Resolve
	site *Site
}

func WithDefaults() *Config {
	return &Config{
		ChunkSize:   DefaultChunkSize,
		Auth:        DefaultAuth,
		SessionConf: make(map[string]string),
	}
}

// Validate checks the rules that do not need the site file.
func (c *Config) Validate(ctx context.Context) error {
	hasHost := c.Host != ""
	hasConfig := c.ConfigFile != ""

	if hasHost && hasConfig {
		return hferrint.NewConfigurationError(ctx, hferrint.ErrHostAndConfig, nil)
	}
	if !hasHost && !hasConfig {
		return hferrint.NewConfigurationError(ctx, hferrint.ErrNoHostOrConfig, nil)
	}
	if port, ok := c.Port.Get(); ok && !validPort(port) {
		return hferrint.NewConfigurationError(ctx, fmt.Sprintf("%s %d", hferrint.ErrInvalidPort, port), nil)
	}
	if mode, ok := c.TransportMode.Get(); ok && !validTransportMode(mode) {
		return hferrint.NewConfigurationError(ctx, fmt.Sprintf("%s %q", hferrint.ErrInvalidTransportMode, mode), nil)
	}
	return nil
}

// Resolve validates c and returns a copy in which the host and every overlay value are settled.
// When ConfigFile is set the host comes from its hive.metastore.uris property; the
// transport mode, port and HTTP path fall back to the site file before the defaults.
// Resolve never contacts the server.
func (c *Config) Resolve(ctx context.Context) (*Config, error) {
	if err := c.Validate(ctx); err != nil {
		return nil, err
	}

	resolved := c.DeepCopy()

	if c.ConfigFile != "" {
		site, err := LoadSite(c.ConfigFile)
		if err != nil {
			msg := hferrint.ErrParseConfigFile
			var pathErr *fs.PathError
			if errors.As(err, &pathErr) {
				msg = hferrint.ErrReadConfigFile
			}
			return nil, hferrint.NewConfigurationError(ctx, msg, err)
		}

		host, err := site.MetastoreHost()
		if err != nil {
			msg := hferrint.ErrMissingMetastoreURIs
			if _, ok := site.Get(MetastoreURIsProperty); ok {
				msg = hferrint.ErrInvalidMetastoreURI
			}
			return nil, hferrint.NewConfigurationError(ctx, msg, err)
		}

		resolved.Host = host
		resolved.site = site
	}

	mode := strings.ToLower(c.TransportMode.Resolve(resolved.site, StringProperty(TransportModeProperty), DefaultTransportMode))
	if !validTransportMode(mode) {
		return nil, hferrint.NewConfigurationError(ctx, fmt.Sprintf("%s %q", hferrint.ErrInvalidTransportMode, mode), nil)
	}

	portProperty := ThriftPortProperty
	if mode == TransportHTTP {
		portProperty = ThriftHTTPPortProperty
	}
	port := c.Port.Resolve(resolved.site, IntProperty(portProperty), DefaultPort)
	if !validPort(port) {
		return nil, hferrint.NewConfigurationError(ctx, fmt.Sprintf("%s %d", hferrint.ErrInvalidPort, port), nil)
	}

	resolved.TransportMode = NewConfigValue(mode)
	resolved.Port = NewConfigValue(port)
	resolved.HTTPPath = NewConfigValue(c.HTTPPath.Resolve(resolved.site, StringProperty(ThriftHTTPPathProperty), DefaultHTTPPath))
	if resolved.ChunkSize <= 0 {
		resolved.ChunkSize = DefaultChunkSize
	}

	return resolved, nil
}

// Endpoint returns the server address. Only meaningful on a resolved config.
func (c *Config) Endpoint() cursor.Endpoint {
	port, ok := c.Port.Get()
	if !ok {
		port = DefaultPort
	}
	return cursor.Endpoint{Host: c.Host, Port: port}
}

// Transport returns the thrift transport mode. Only meaningful on a resolved config.
func (c *Config) Transport() string {
	mode, ok := c.TransportMode.Get()
	if !ok {
		return DefaultTransportMode
	}
	return mode
}

// Path returns the HTTP path used by the http transport. Only meaningful on a resolved config.
func (c *Config) Path() string {
	path, ok := c.HTTPPath.Get()
	if !ok {
		return DefaultHTTPPath
	}
	return path
}

// Site returns the site file loaded by Resolve, or nil.
func (c *Config) Site() *Site {
	return c.site
}

func (c *Config) DeepCopy() *Config {
	if c == nil {
		return nil
	}

	sessionConf := make(map[string]string, len(c.SessionConf))
	for k, v := range c.SessionConf {
		sessionConf[k] = v
	}

	return &Config{
		Host:           c.Host,
		Port:           c.Port,
		ConfigFile:     c.ConfigFile,
		ChunkSize:      c.ChunkSize,
		Auth:           c.Auth,
		Username:       c.Username,
		Password:       c.Password,
		Database:       c.Database,
		TransportMode:  c.TransportMode,
		HTTPPath:       c.HTTPPath,
		TLSConfig:      c.TLSConfig.Clone(),
		SessionConf:    sessionConf,
		ConnectTimeout: c.ConnectTimeout,
		AccessToken:    c.AccessToken,
		site:           c.site,
	}
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

func validTransportMode(mode string) bool {
	switch strings.ToLower(mode) {
	case TransportBinary, TransportHTTP:
		return true
	}
	return false
}
