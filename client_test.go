package hiveframe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hiveframe/hiveframe-go/cursor"
	hferr "github.com/hiveframe/hiveframe-go/errors"
	"github.com/hiveframe/hiveframe-go/hivectx"
	"github.com/hiveframe/hiveframe-go/internal/cursortest"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testColumns = []string{"id", "name"}

func testRows(n int) [][]any {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{int64(i), fmt.Sprintf("name-%d", i)}
	}
	return rows
}

func newTestAsyncClient(t *testing.T, srv *cursortest.Server, opts ...Option) *AsyncClient {
	t.Helper()
	opts = append([]Option{WithHost("hive"), WithConnectionProvider(srv.Provider())}, opts...)
	c, err := NewAsyncClient(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// countingProvider records whether a connection was ever requested.
func countingProvider(calls *int) cursor.Provider {
	return func(endpoint cursor.Endpoint) (cursor.Connection, error) {
		*calls++
		return &cursortest.TestConnection{}, nil
	}
}

func writeSite(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hive-site.xml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewAsyncClient_Configuration(t *testing.T) {
	siteWithURIs := `<configuration>
  <property><name>hive.metastore.uris</name><value>thrift://meta-1:9083,thrift://meta-2:9083</value></property>
</configuration>`
	siteWithoutURIs := `<configuration>
  <property><name>hive.server2.thrift.port</name><value>10001</value></property>
</configuration>`

	t.Run("host and config file", func(t *testing.T) {
		var calls int
		_, err := NewAsyncClient(WithHost("hive"), WithConfigFile(writeSite(t, siteWithURIs)), WithConnectionProvider(countingProvider(&calls)))
		assert.ErrorIs(t, err, hferr.ConfigurationError)
		assert.Zero(t, calls)
	})

	t.Run("neither host nor config file", func(t *testing.T) {
		var calls int
		_, err := NewAsyncClient(WithConnectionProvider(countingProvider(&calls)))
		assert.ErrorIs(t, err, hferr.ConfigurationError)
		assert.ErrorContains(t, err, "either host or config file has to be supplied")
		assert.Zero(t, calls)
	})

	t.Run("config file without metastore uris", func(t *testing.T) {
		var calls int
		_, err := NewAsyncClient(WithConfigFile(writeSite(t, siteWithoutURIs)), WithConnectionProvider(countingProvider(&calls)))
		assert.ErrorIs(t, err, hferr.ConfigurationError)
		assert.ErrorContains(t, err, "hive.metastore.uris")
		assert.Zero(t, calls)
	})

	t.Run("unreadable config file", func(t *testing.T) {
		var calls int
		_, err := NewAsyncClient(WithConfigFile(filepath.Join(t.TempDir(), "missing.xml")), WithConnectionProvider(countingProvider(&calls)))
		assert.ErrorIs(t, err, hferr.ConfigurationError)
		assert.Zero(t, calls)
	})

	t.Run("host from config file", func(t *testing.T) {
		var got cursor.Endpoint
		c, err := NewAsyncClient(WithConfigFile(writeSite(t, siteWithURIs)), WithConnectionProvider(func(endpoint cursor.Endpoint) (cursor.Connection, error) {
			got = endpoint
			return &cursortest.TestConnection{}, nil
		}))
		require.NoError(t, err)
		defer c.Close()

		assert.Equal(t, cursor.Endpoint{Host: "meta-2", Port: 10000}, got)
		assert.Equal(t, got, c.Endpoint())
	})

	t.Run("explicit host and port", func(t *testing.T) {
		srv := &cursortest.Server{}
		c := newTestAsyncClient(t, srv, WithPort(10001))
		assert.Equal(t, cursor.Endpoint{Host: "hive", Port: 10001}, c.Endpoint())
		assert.Zero(t, srv.Calls().Opens)
	})

	t.Run("invalid port", func(t *testing.T) {
		var calls int
		_, err := NewAsyncClient(WithHost("hive"), WithPort(70000), WithConnectionProvider(countingProvider(&calls)))
		assert.ErrorIs(t, err, hferr.ConfigurationError)
		assert.Zero(t, calls)
	})

	t.Run("databricks defaults to port 443", func(t *testing.T) {
		var got cursor.Endpoint
		c, err := NewAsyncClient(WithHost("adb.example.net"), WithDatabricks("dapi-test", "/sql/1.0/warehouses/abc"), WithConnectionProvider(func(endpoint cursor.Endpoint) (cursor.Connection, error) {
			got = endpoint
			return &cursortest.TestConnection{}, nil
		}))
		require.NoError(t, err)
		defer c.Close()
		assert.Equal(t, 443, got.Port)
	})

	t.Run("provider failure", func(t *testing.T) {
		cause := errors.New("no route to host")
		_, err := NewAsyncClient(WithHost("hive"), WithConnectionProvider(func(cursor.Endpoint) (cursor.Connection, error) {
			return nil, cause
		}))
		assert.ErrorIs(t, err, hferr.TransportError)
		assert.ErrorIs(t, err, cause)
	})
}

func TestAsyncClient_Execute(t *testing.T) {
	t.Run("closes the cursor once", func(t *testing.T) {
		srv := &cursortest.Server{Columns: testColumns, Rows: testRows(3)}
		c := newTestAsyncClient(t, srv)

		_, err := c.Execute("CREATE TABLE t (id INT)")(context.Background())
		require.NoError(t, err)

		calls := srv.Calls()
		assert.Equal(t, 1, calls.Opens)
		assert.Equal(t, 1, calls.Executes)
		assert.Equal(t, 1, calls.Closes)
		assert.Zero(t, calls.Fetches)
		assert.Equal(t, []string{"CREATE TABLE t (id INT)"}, calls.Queries)
	})

	t.Run("execute failure closes the cursor once", func(t *testing.T) {
		cause := errors.New("ParseException")
		srv := &cursortest.Server{ErrExecute: cause}
		c := newTestAsyncClient(t, srv)

		_, err := c.Execute("SELEC 1")(context.Background())
		assert.ErrorIs(t, err, hferr.TransportError)
		assert.ErrorIs(t, err, cause)

		var te hferr.HFTransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "execute", te.Operation())
		assert.False(t, te.IsRetryable())
		assert.Equal(t, 1, srv.Calls().Closes)
	})

	t.Run("close failure does not mask the execute failure", func(t *testing.T) {
		cause := errors.New("ParseException")
		srv := &cursortest.Server{ErrExecute: cause, ErrClose: errors.New("close failed")}
		c := newTestAsyncClient(t, srv)

		_, err := c.Execute("SELEC 1")(context.Background())
		assert.ErrorIs(t, err, cause)
		assert.NotContains(t, err.Error(), "close failed")
		assert.Equal(t, 1, srv.Calls().Closes)
	})

	t.Run("open failure", func(t *testing.T) {
		cause := errors.New("connection refused")
		srv := &cursortest.Server{ErrOpen: cause}
		c := newTestAsyncClient(t, srv)

		_, err := c.Execute("SELECT 1")(context.Background())
		var te hferr.HFTransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "open", te.Operation())
		assert.Zero(t, srv.Calls().Closes)
	})

	t.Run("cancelled context still closes", func(t *testing.T) {
		var closeCtxErr error
		closed := 0
		conn := &cursortest.TestConnection{
			FnCursor: func(ctx context.Context) (cursor.Cursor, error) {
				return &cursortest.TestCursor{
					FnExecute: func(ctx context.Context, query string) error {
						return ctx.Err()
					},
					FnClose: func(ctx context.Context) error {
						closed++
						closeCtxErr = ctx.Err()
						return nil
					},
				}, nil
			},
		}
		c, err := NewAsyncClient(WithHost("hive"), WithConnectionProvider(func(cursor.Endpoint) (cursor.Connection, error) {
			return conn, nil
		}))
		require.NoError(t, err)
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = c.Execute("SELECT 1")(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, closed)
		assert.NoError(t, closeCtxErr)
	})
}

func TestAsyncClient_FetchAll(t *testing.T) {
	t.Run("reads only the first page", func(t *testing.T) {
		srv := &cursortest.Server{Columns: testColumns, Rows: testRows(5)}
		c := newTestAsyncClient(t, srv)

		tbl, err := c.FetchAll("SELECT * FROM t", 2)(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, tbl.Len())
		assert.Equal(t, testColumns, tbl.Columns())
		assert.Equal(t, []int64{0, 1}, tbl.Index())

		calls := srv.Calls()
		assert.Equal(t, 1, calls.Fetches)
		assert.Equal(t, 1, calls.Schemas)
		assert.Equal(t, 1, calls.Closes)
	})

	t.Run("empty result keeps the schema", func(t *testing.T) {
		for _, nilPages := range []bool{false, true} {
			srv := &cursortest.Server{Columns: testColumns, NilPages: nilPages}
			c := newTestAsyncClient(t, srv)

			tbl, err := c.FetchAll("SELECT * FROM t WHERE false", 10)(context.Background())
			require.NoError(t, err)
			assert.Zero(t, tbl.Len())
			assert.Equal(t, testColumns, tbl.Columns())
			assert.Equal(t, 1, srv.Calls().Closes)
		}
	})

	t.Run("non-positive chunk size uses the client default", func(t *testing.T) {
		srv := &cursortest.Server{Columns: testColumns, Rows: testRows(5)}
		c := newTestAsyncClient(t, srv, WithChunkSize(3))

		tbl, err := c.FetchAll("SELECT * FROM t", 0)(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, tbl.Len())
		assert.Equal(t, []int{3}, srv.Calls().PageSizes)
	})

	t.Run("schema failure closes the cursor once", func(t *testing.T) {
		srv := &cursortest.Server{ErrSchema: errors.New("no result set")}
		c := newTestAsyncClient(t, srv)

		_, err := c.FetchAll("SELECT 1", 10)(context.Background())
		var te hferr.HFTransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "schema", te.Operation())
		assert.Equal(t, 1, srv.Calls().Closes)
	})

	t.Run("fetch failure closes the cursor once", func(t *testing.T) {
		cause := errors.New("read timeout")
		srv := &cursortest.Server{Columns: testColumns, Rows: testRows(5), ErrFetch: cause, ErrClose: errors.New("close failed")}
		c := newTestAsyncClient(t, srv)

		_, err := c.FetchAll("SELECT * FROM t", 2)(context.Background())
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 1, srv.Calls().Closes)
	})

	t.Run("ragged page is a system fault", func(t *testing.T) {
		srv := &cursortest.Server{Columns: testColumns, Rows: [][]any{{int64(1)}}}
		c := newTestAsyncClient(t, srv)

		_, err := c.FetchAll("SELECT * FROM t", 2)(context.Background())
		assert.ErrorIs(t, err, hferr.SystemFault)
		assert.Equal(t, 1, srv.Calls().Closes)
	})

	t.Run("close failure after success is returned", func(t *testing.T) {
		srv := &cursortest.Server{Columns: testColumns, Rows: testRows(1), ErrClose: errors.New("close failed")}
		c := newTestAsyncClient(t, srv)

		_, err := c.FetchAll("SELECT * FROM t", 2)(context.Background())
		var te hferr.HFTransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "close", te.Operation())
	})
}

func TestAsyncClient_Close(t *testing.T) {
	t.Run("closes live chunk sequences and the connection", func(t *testing.T) {
		srv := &cursortest.Server{Columns: testColumns, Rows: testRows(5)}
		c := newTestAsyncClient(t, srv)
		ctx := context.Background()

		chunks, err := c.FetchChunks("SELECT * FROM t", 2)(ctx)
		require.NoError(t, err)
		_, err = chunks.Next()(ctx)
		require.NoError(t, err)

		require.NoError(t, c.Close())
		calls := srv.Calls()
		assert.Equal(t, 1, calls.Closes)
		assert.Equal(t, 1, calls.ConnClose)
		assert.False(t, chunks.HasNext())

		require.NoError(t, c.Close())
		assert.Equal(t, 1, srv.Calls().ConnClose)
	})

	t.Run("ops after close are system faults", func(t *testing.T) {
		srv := &cursortest.Server{Columns: testColumns}
		c := newTestAsyncClient(t, srv)
		require.NoError(t, c.Close())
		ctx := context.Background()

		_, err := c.Execute("SELECT 1")(ctx)
		assert.ErrorIs(t, err, hferr.SystemFault)
		_, err = c.FetchAll("SELECT 1", 1)(ctx)
		assert.ErrorIs(t, err, hferr.SystemFault)
		_, err = c.FetchChunks("SELECT 1", 1)(ctx)
		assert.ErrorIs(t, err, hferr.SystemFault)
		assert.Zero(t, srv.Calls().Opens)
	})
}

func TestAsyncClient_Ids(t *testing.T) {
	srv := &cursortest.Server{ErrExecute: errors.New("boom")}
	c := newTestAsyncClient(t, srv)

	var queryIds []string
	ctx := hivectx.NewContextWithQueryIdCallback(context.Background(), func(id string) {
		queryIds = append(queryIds, id)
	})
	ctx = hivectx.NewContextWithCorrelationId(ctx, "request-42")

	_, err := c.Execute("SELECT 1")(ctx)
	var hfErr hferr.HiveFrameError
	require.ErrorAs(t, err, &hfErr)
	assert.Equal(t, "request-42", hfErr.CorrelationId())
	assert.Equal(t, c.id, hfErr.ConnectionId())
	require.Len(t, queryIds, 1)
	assert.Equal(t, queryIds[0], hfErr.QueryId())

	_, _ = c.Execute("SELECT 2")(ctx)
	require.Len(t, queryIds, 2)
	assert.NotEqual(t, queryIds[0], queryIds[1])
}

func TestAsyncClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := &cursortest.Server{Columns: testColumns, Rows: testRows(5)}
	c := newTestAsyncClient(t, srv, WithMetrics(reg))
	ctx := context.Background()

	chunks, err := c.FetchChunks("SELECT * FROM t", 2)(ctx)
	require.NoError(t, err)
	for _, err := range chunks.All(ctx) {
		require.NoError(t, err)
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.CursorsOpened))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.CursorsClosed))
	assert.Equal(t, float64(4), testutil.ToFloat64(c.metrics.PagesFetched))
	assert.Equal(t, float64(5), testutil.ToFloat64(c.metrics.RowsFetched))

	_, err = NewAsyncClient(WithHost("hive"), WithConnectionProvider(srv.Provider()), WithMetrics(reg))
	assert.ErrorIs(t, err, hferr.ConfigurationError)
}
