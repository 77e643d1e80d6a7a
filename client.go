package hiveframe

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/hiveframe/hiveframe-go/async"
	"github.com/hiveframe/hiveframe-go/cursor"
	"github.com/hiveframe/hiveframe-go/hivectx"
	"github.com/hiveframe/hiveframe-go/internal/config"
	hferrint "github.com/hiveframe/hiveframe-go/internal/errors"
	"github.com/hiveframe/hiveframe-go/internal/hs2"
	"github.com/hiveframe/hiveframe-go/internal/sqlcursor"
	"github.com/hiveframe/hiveframe-go/logger"
	"github.com/hiveframe/hiveframe-go/metrics"
	"github.com/hiveframe/hiveframe-go/table"
)

const databricksPort = 443

// AsyncClient runs queries against a HiveServer2 compatible server.
//
// Every method returns a deferred async.Op; nothing touches the network until the op
// is invoked, either inline or through async.Start on a Scheduler. Each invocation
// opens its own cursor and closes it on every exit path. An AsyncClient is driven by
// one logical caller at a time.
type AsyncClient struct {
	id        string
	cfg       *config.Config
	conn      cursor.Connection
	metrics   *metrics.Metrics
	chunkSize int

	mu     sync.Mutex
	closed bool
	live   map[*Chunks]struct{}
}

// NewAsyncClient validates the options and prepares a connection to the server.
// Exactly one of WithHost and WithConfigFile must be given. No remote call is made
// until the first op runs.
func NewAsyncClient(opts ...Option) (*AsyncClient, error) {
	o := newOptions(opts)
	id := uuid.NewString()
	ctx := hivectx.NewContextWithConnId(context.Background(), id)

	if o.databricks && !o.cfg.Port.IsSet() && o.cfg.ConfigFile == "" {
		o.cfg.Port = config.NewConfigValue(databricksPort)
	}

	cfg, err := o.cfg.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if o.registerer != nil {
		m, err = metrics.New(o.registerer)
		if err != nil {
			return nil, hferrint.NewConfigurationError(ctx, hferrint.ErrMetrics, err)
		}
	}

	provider := o.provider
	if provider == nil {
		if o.databricks {
			provider = sqlcursor.DatabricksProvider(cfg)
		} else {
			provider = hs2.Provider(cfg)
		}
	}

	endpoint := cfg.Endpoint()
	conn, err := provider(endpoint)
	if err != nil {
		return nil, hferrint.NewTransportError(ctx, hferrint.OpConnect, hferrint.ErrConnect, err)
	}

	logger.WithContext(id, "", "").Debug().Msgf("hiveframe: client for %s created", endpoint)

	return &AsyncClient{
		id:        id,
		cfg:       cfg,
		conn:      conn,
		metrics:   m,
		chunkSize: cfg.ChunkSize,
		live:      make(map[*Chunks]struct{}),
	}, nil
}

// Endpoint returns the resolved server address.
func (c *AsyncClient) Endpoint() cursor.Endpoint {
	return c.cfg.Endpoint()
}

// Execute returns an op that runs query and discards its results.
func (c *AsyncClient) Execute(query string) async.Op[struct{}] {
	return func(ctx context.Context) (struct{}, error) {
		ctx, log := c.begin(ctx)
		defer c.metrics.Track(metrics.OpExecute)()
		defer log.Track("hiveframe: execute")()

		cur, err := c.open(ctx, log, query)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, c.closeCursor(ctx, log, cur)
	}
}

// FetchAll returns an op that runs query and reads a single page of at most chunkSize
// rows into a table. Rows beyond the first page are not read; use FetchChunks to
// read a whole result. A chunkSize <= 0 uses the client's chunk size.
func (c *AsyncClient) FetchAll(query string, chunkSize int) async.Op[*table.Table] {
	return func(ctx context.Context) (*table.Table, error) {
		ctx, log := c.begin(ctx)
		defer c.metrics.Track(metrics.OpFetchAll)()
		defer log.Track("hiveframe: fetch all")()

		cur, err := c.open(ctx, log, query)
		if err != nil {
			return nil, err
		}

		columns, err := cur.Schema(ctx)
		if err != nil {
			c.metrics.Failed(hferrint.OpSchema)
			return nil, c.abort(ctx, log, cur, hferrint.NewTransportError(ctx, hferrint.OpSchema, hferrint.ErrSchema, err))
		}

		page, err := cur.FetchPage(ctx, c.pageSize(chunkSize))
		if err != nil {
			c.metrics.Failed(hferrint.OpFetch)
			return nil, c.abort(ctx, log, cur, hferrint.NewTransportError(ctx, hferrint.OpFetch, hferrint.ErrFetchPage, err))
		}
		c.metrics.PageFetched(len(page))

		var state chunkState
		t, err := state.next(page, columns)
		if err != nil {
			return nil, c.abort(ctx, log, cur, hferrint.NewSystemFault(ctx, hferrint.ErrRowWidth, err))
		}

		if err := c.closeCursor(ctx, log, cur); err != nil {
			return nil, err
		}
		return t, nil
	}
}

// FetchChunks returns an op that runs query and fetches its schema, then hands back a
// Chunks sequence that reads the result in pages of chunkSize rows. If the query or
// the schema fails the cursor is closed before the op returns. A chunkSize <= 0 uses
// the client's chunk size.
func (c *AsyncClient) FetchChunks(query string, chunkSize int) async.Op[*Chunks] {
	return func(ctx context.Context) (*Chunks, error) {
		ctx, log := c.begin(ctx)
		defer c.metrics.Track(metrics.OpFetchChunks)()

		cur, err := c.open(ctx, log, query)
		if err != nil {
			return nil, err
		}

		columns, err := cur.Schema(ctx)
		if err != nil {
			c.metrics.Failed(hferrint.OpSchema)
			return nil, c.abort(ctx, log, cur, hferrint.NewTransportError(ctx, hferrint.OpSchema, hferrint.ErrSchema, err))
		}

		chunks := &Chunks{
			client:  c,
			cursor:  cur,
			columns: columns,
			size:    c.pageSize(chunkSize),
			queryId: hivectx.QueryIdFromContext(ctx),
			log:     log,
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, c.abort(ctx, log, cur, hferrint.NewSystemFault(ctx, hferrint.ErrClientClosed, nil))
		}
		c.live[chunks] = struct{}{}
		c.mu.Unlock()

		return chunks, nil
	}
}

// Close closes every Chunks sequence that is still open and then the connection.
// Ops run after Close fail with a system fault.
func (c *AsyncClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	live := make([]*Chunks, 0, len(c.live))
	for ch := range c.live {
		live = append(live, ch)
	}
	c.mu.Unlock()

	ctx := hivectx.NewContextWithConnId(context.Background(), c.id)
	log := logger.WithContext(c.id, "", "")

	for _, ch := range live {
		if err := ch.Close(ctx); err != nil {
			log.Err(err).Msg("hiveframe: failed to close chunk sequence")
		}
	}

	if err := c.conn.Close(); err != nil {
		return hferrint.NewTransportError(ctx, hferrint.OpClose, hferrint.ErrCloseConn, err)
	}
	log.Debug().Msg("hiveframe: client closed")
	return nil
}

// begin stamps ctx with the client's connection id and a fresh query id.
func (c *AsyncClient) begin(ctx context.Context) (context.Context, *logger.HFLogger) {
	ctx = hivectx.NewContextWithConnId(ctx, c.id)
	ctx = hivectx.NewContextWithQueryId(ctx, uuid.NewString())
	return ctx, c.logger(ctx)
}

func (c *AsyncClient) logger(ctx context.Context) *logger.HFLogger {
	return logger.WithContext(c.id, hivectx.CorrelationIdFromContext(ctx), hivectx.QueryIdFromContext(ctx))
}

func (c *AsyncClient) pageSize(chunkSize int) int {
	if chunkSize <= 0 {
		return c.chunkSize
	}
	return chunkSize
}

// open opens a cursor and runs query on it. The cursor is closed when the query fails.
func (c *AsyncClient) open(ctx context.Context, log *logger.HFLogger, query string) (cursor.Cursor, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, hferrint.NewSystemFault(ctx, hferrint.ErrClientClosed, nil)
	}

	cur, err := c.conn.Cursor(ctx)
	if err != nil {
		c.metrics.Failed(hferrint.OpOpen)
		log.Err(err).Msg("hiveframe: failed to open cursor")
		return nil, hferrint.NewTransportError(ctx, hferrint.OpOpen, hferrint.ErrOpenCursor, err)
	}
	c.metrics.CursorOpened()
	log.Debug().Msg("hiveframe: cursor opened")

	if err := cur.Execute(ctx, query); err != nil {
		c.metrics.Failed(hferrint.OpExecute)
		return nil, c.abort(ctx, log, cur, hferrint.NewTransportError(ctx, hferrint.OpExecute, hferrint.ErrExecute, err))
	}
	return cur, nil
}

// abort closes cur after a failure and returns err. A close failure is logged and dropped.
func (c *AsyncClient) abort(ctx context.Context, log *logger.HFLogger, cur cursor.Cursor, err error) error {
	log.Err(err).Msg("hiveframe: query failed")
	if cerr := c.closeCursor(ctx, log, cur); cerr != nil {
		log.Err(cerr).Msg("hiveframe: failed to close cursor after error")
	}
	return err
}

// closeCursor closes cur even when ctx is already cancelled.
func (c *AsyncClient) closeCursor(ctx context.Context, log *logger.HFLogger, cur cursor.Cursor) error {
	err := cur.Close(context.WithoutCancel(ctx))
	c.metrics.CursorClosed()
	if err != nil {
		c.metrics.Failed(hferrint.OpClose)
		return hferrint.NewTransportError(ctx, hferrint.OpClose, hferrint.ErrCloseCursor, err)
	}
	log.Debug().Msg("hiveframe: cursor closed")
	return nil
}

func (c *AsyncClient) untrack(ch *Chunks) {
	c.mu.Lock()
	delete(c.live, ch)
	c.mu.Unlock()
}
