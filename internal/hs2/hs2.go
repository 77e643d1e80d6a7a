// Package hs2 implements cursor.Connection on top of the HiveServer2 Thrift
// client in github.com/beltran/gohive.
package hs2

import (
	"context"
	"sync"

	"github.com/beltran/gohive"
	"github.com/hiveframe/hiveframe-go/cursor"
	"github.com/hiveframe/hiveframe-go/internal/config"
	hferrint "github.com/hiveframe/hiveframe-go/internal/errors"
	"github.com/hiveframe/hiveframe-go/logger"
	"github.com/pkg/errors"
)

var errConnectionClosed = errors.New("hs2: connection is closed")

type dialFunc func(endpoint cursor.Endpoint, auth string, conf *gohive.ConnectConfiguration) (*gohive.Connection, error)

func dialGohive(endpoint cursor.Endpoint, auth string, conf *gohive.ConnectConfiguration) (*gohive.Connection, error) {
	return gohive.Connect(endpoint.Host, endpoint.Port, auth, conf)
}

// Provider returns a cursor.Provider that builds HiveServer2 connections for the resolved config cfg.
func Provider(cfg *config.Config) cursor.Provider {
	return func(endpoint cursor.Endpoint) (cursor.Connection, error) {
		return &Connection{
			endpoint: endpoint,
			auth:     cfg.Auth,
			conf:     connectConfiguration(cfg),
			dial:     dialGohive,
		}, nil
	}
}

// Connection is a lazily opened HiveServer2 session.
// The session is opened by the first call to Cursor; a failed attempt is retried by the next call.
type Connection struct {
	endpoint cursor.Endpoint
	auth     string
	conf     *gohive.ConnectConfiguration
	dial     dialFunc

	mu      sync.Mutex
	session *gohive.Connection
	closed  bool
}

var _ cursor.Connection = (*Connection)(nil)

func (c *Connection) Cursor(ctx context.Context) (cursor.Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, hferrint.WrapErr(errConnectionClosed, hferrint.ErrConnect)
	}

	if c.session == nil {
		logger.Debug().Msgf("hs2: connecting to %s (transport %s)", c.endpoint, c.conf.TransportMode)
		session, err := c.dial(c.endpoint, c.auth, c.conf)
		if err != nil {
			return nil, hferrint.WrapErrf(err, "%s to %s", hferrint.ErrConnect, c.endpoint)
		}
		c.session = session
	}

	return &Cursor{stmt: gohiveStatement{c.session.Cursor()}}, nil
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.session == nil {
		return nil
	}
	session := c.session
	c.session = nil
	return session.Close()
}

// statement is the part of *gohive.Cursor that Cursor drives.
type statement interface {
	Exec(ctx context.Context, query string)
	Description() [][]string
	HasMore(ctx context.Context) bool
	FetchOne(ctx context.Context, dests ...interface{})
	Close()
	err() error
	resetErr()
}

// gohiveStatement exposes the Err field of a gohive cursor through statement.
type gohiveStatement struct {
	*gohive.Cursor
}

func (s gohiveStatement) err() error { return s.Err }
func (s gohiveStatement) resetErr()  { s.Err = nil }

// Cursor adapts a gohive cursor. gohive reports failures through the Err field; every
// method here resets it before the call and returns it afterwards.
type Cursor struct {
	stmt    statement
	columns []string
}

var _ cursor.Cursor = (*Cursor)(nil)

func (c *Cursor) Execute(ctx context.Context, query string) error {
	c.stmt.resetErr()
	c.stmt.Exec(ctx, query)
	return c.stmt.err()
}

func (c *Cursor) Schema(ctx context.Context) ([]string, error) {
	c.stmt.resetErr()
	description := c.stmt.Description()
	if err := c.stmt.err(); err != nil {
		return nil, err
	}

	columns := make([]string, len(description))
	for i, d := range description {
		columns[i] = d[0]
	}
	c.columns = columns
	return append([]string(nil), columns...), nil
}

// FetchPage reads rows positionally, so columns sharing a label keep their own values.
func (c *Cursor) FetchPage(ctx context.Context, maxRows int) ([][]any, error) {
	if c.columns == nil {
		if _, err := c.Schema(ctx); err != nil {
			return nil, err
		}
	}

	c.stmt.resetErr()
	page := make([][]any, 0, min(maxRows, 1024))
	for len(page) < maxRows && c.stmt.HasMore(ctx) {
		if err := c.stmt.err(); err != nil {
			return nil, err
		}
		// nil destinations are filled with the column values in place
		row := make([]any, len(c.columns))
		c.stmt.FetchOne(ctx, row...)
		if err := c.stmt.err(); err != nil {
			return nil, err
		}
		page = append(page, row)
	}
	if err := c.stmt.err(); err != nil {
		return nil, err
	}

	return page, nil
}

func (c *Cursor) Close(ctx context.Context) error {
	c.stmt.resetErr()
	c.stmt.Close()
	return c.stmt.err()
}

func connectConfiguration(cfg *config.Config) *gohive.ConnectConfiguration {
	conf := gohive.NewConnectConfiguration()
	conf.Username = cfg.Username
	conf.Password = cfg.Password
	conf.Database = cfg.Database
	conf.TransportMode = cfg.Transport()
	conf.HTTPPath = cfg.Path()
	conf.TLSConfig = cfg.TLSConfig
	conf.FetchSize = int64(cfg.ChunkSize)
	if cfg.ConnectTimeout > 0 {
		conf.ConnectTimeout = cfg.ConnectTimeout
	}
	if len(cfg.SessionConf) > 0 {
		conf.HiveConfiguration = make(map[string]string, len(cfg.SessionConf))
		for k, v := range cfg.SessionConf {
			conf.HiveConfiguration[k] = v
		}
	}
	return conf
}
