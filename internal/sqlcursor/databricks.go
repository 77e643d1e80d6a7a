package sqlcursor

import (
	"database/sql"
	"database/sql/driver"

	dbsql "github.com/databricks/databricks-sql-go"
	"github.com/hiveframe/hiveframe-go/cursor"
	"github.com/hiveframe/hiveframe-go/internal/config"
)

// DatabricksProvider returns a cursor.Provider for Databricks SQL warehouses.
// The warehouse is addressed by the endpoint host and port plus the HTTP path of cfg,
// and authenticated with cfg.AccessToken.
func DatabricksProvider(cfg *config.Config) cursor.Provider {
	return func(endpoint cursor.Endpoint) (cursor.Connection, error) {
		connector, err := newDatabricksConnector(newWarehouse(cfg, endpoint))
		if err != nil {
			return nil, err
		}
		return New(sql.OpenDB(connector)), nil
	}
}

// warehouse holds the connector settings derived from a resolved config.
type warehouse struct {
	host          string
	port          int
	httpPath      string
	accessToken   string
	maxRows       int
	schema        string
	sessionParams map[string]string
}

func newWarehouse(cfg *config.Config, endpoint cursor.Endpoint) warehouse {
	return warehouse{
		host:          endpoint.Host,
		port:          endpoint.Port,
		httpPath:      cfg.Path(),
		accessToken:   cfg.AccessToken,
		maxRows:       cfg.ChunkSize,
		schema:        cfg.Database,
		sessionParams: cfg.SessionConf,
	}
}

func newDatabricksConnector(w warehouse) (driver.Connector, error) {
	opts := collect(
		dbsql.WithServerHostname(w.host),
		dbsql.WithPort(w.port),
		dbsql.WithHTTPPath(w.httpPath),
		dbsql.WithAccessToken(w.accessToken),
		dbsql.WithMaxRows(w.maxRows),
	)
	if w.schema != "" {
		opts = append(opts, dbsql.WithInitialNamespace("", w.schema))
	}
	if len(w.sessionParams) > 0 {
		opts = append(opts, dbsql.WithSessionParams(w.sessionParams))
	}
	return dbsql.NewConnector(opts...)
}

// collect lets the driver's unexported option type be inferred.
func collect[T any](xs ...T) []T {
	return xs
}
