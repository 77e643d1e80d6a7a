package hiveframe

import (
	"crypto/tls"
	"time"

	"github.com/hiveframe/hiveframe-go/cursor"
	"github.com/hiveframe/hiveframe-go/internal/config"
	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	cfg        *config.Config
	provider   cursor.Provider
	databricks bool
	registerer prometheus.Registerer
}

// Option configures an AsyncClient or Client.
type Option func(*options)

func newOptions(opts []Option) *options {
	o := &options{cfg: config.WithDefaults()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithHost sets the server hostname. Mutually exclusive with WithConfigFile.
func WithHost(host string) Option {
	return func(o *options) {
		o.cfg.Host = host
	}
}

// WithPort sets the server port. Default is 10000, or the thrift port from the site file.
func WithPort(port int) Option {
	return func(o *options) {
		o.cfg.Port = config.NewConfigValue(port)
	}
}

// WithConfigFile reads the server host from the hive.metastore.uris property of a
// hive-site.xml file. Mutually exclusive with WithHost.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.cfg.ConfigFile = path
	}
}

// WithChunkSize sets the page size used when a call passes a chunk size <= 0. Default is 10000.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cfg.ChunkSize = n
		}
	}
}

// WithAuth sets the HiveServer2 authentication mechanism, e.g. NONE, NOSASL, KERBEROS, LDAP or CUSTOM.
// Default is NONE.
func WithAuth(auth string) Option {
	return func(o *options) {
		o.cfg.Auth = auth
	}
}

// WithCredentials sets the username and password sent when the session is opened.
func WithCredentials(username, password string) Option {
	return func(o *options) {
		o.cfg.Username = username
		o.cfg.Password = password
	}
}

// WithDatabase sets the initial database of the session.
func WithDatabase(database string) Option {
	return func(o *options) {
		o.cfg.Database = database
	}
}

// WithSessionConf adds Hive configuration overrides to the session.
func WithSessionConf(conf map[string]string) Option {
	return func(o *options) {
		for k, v := range conf {
			o.cfg.SessionConf[k] = v
		}
	}
}

// WithTransportMode selects the thrift transport, "binary" or "http".
func WithTransportMode(mode string) Option {
	return func(o *options) {
		o.cfg.TransportMode = config.NewConfigValue(mode)
	}
}

// WithHTTPPath sets the endpoint path used by the http transport.
func WithHTTPPath(path string) Option {
	return func(o *options) {
		o.cfg.HTTPPath = config.NewConfigValue(path)
	}
}

// WithTLSConfig enables TLS with the given configuration.
func WithTLSConfig(tlsConfig *tls.Config) Option {
	return func(o *options) {
		o.cfg.TLSConfig = tlsConfig
	}
}

// WithConnectTimeout bounds how long opening the HiveServer2 session may take.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.cfg.ConnectTimeout = timeout
	}
}

// WithDatabricks connects to a Databricks SQL warehouse through the Databricks SQL driver
// instead of HiveServer2. The warehouse host is set with WithHost and WithPort (usually 443).
func WithDatabricks(accessToken, httpPath string) Option {
	return func(o *options) {
		o.databricks = true
		o.cfg.AccessToken = accessToken
		o.cfg.HTTPPath = config.NewConfigValue(httpPath)
	}
}

// WithConnectionProvider replaces the built-in connection provider.
func WithConnectionProvider(provider cursor.Provider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithMetrics registers the client's Prometheus collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}
