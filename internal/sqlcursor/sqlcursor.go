// Package sqlcursor implements cursor.Connection over a database/sql handle.
package sqlcursor

import (
	"context"
	"database/sql"

	"github.com/hiveframe/hiveframe-go/cursor"
	"github.com/pkg/errors"
)

var errNotExecuted = errors.New("sqlcursor: no query has been executed")

// Connection hands out cursors backed by dedicated *sql.Conn sessions of one *sql.DB.
type Connection struct {
	db *sql.DB
}

var _ cursor.Connection = (*Connection)(nil)

// New returns a Connection over db. Closing the Connection closes db.
func New(db *sql.DB) *Connection {
	return &Connection{db: db}
}

func (c *Connection) Cursor(ctx context.Context) (cursor.Cursor, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &Cursor{conn: conn}, nil
}

func (c *Connection) Close() error {
	return c.db.Close()
}

// Cursor runs one query on a dedicated session and reads its rows page by page.
type Cursor struct {
	conn    *sql.Conn
	rows    *sql.Rows
	columns []string
	done    bool
}

var _ cursor.Cursor = (*Cursor)(nil)

func (c *Cursor) Execute(ctx context.Context, query string) error {
	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	c.rows = rows
	return nil
}

func (c *Cursor) Schema(ctx context.Context) ([]string, error) {
	if c.rows == nil {
		return nil, errNotExecuted
	}
	if c.columns == nil {
		columns, err := c.rows.Columns()
		if err != nil {
			return nil, err
		}
		c.columns = columns
	}
	return append([]string(nil), c.columns...), nil
}

func (c *Cursor) FetchPage(ctx context.Context, maxRows int) ([][]any, error) {
	if c.rows == nil {
		return nil, errNotExecuted
	}
	if c.done {
		return nil, nil
	}
	if _, err := c.Schema(ctx); err != nil {
		return nil, err
	}

	page := make([][]any, 0, min(maxRows, 1024))
	for len(page) < maxRows {
		if !c.rows.Next() {
			c.done = true
			if err := c.rows.Err(); err != nil {
				return nil, err
			}
			break
		}

		values := make([]any, len(c.columns))
		pointers := make([]any, len(c.columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := c.rows.Scan(pointers...); err != nil {
			return nil, err
		}
		for i, v := range values {
			values[i] = normalize(v)
		}
		page = append(page, values)
	}

	return page, nil
}

// Close closes the result rows and returns the session to the pool.
func (c *Cursor) Close(ctx context.Context) error {
	var rowsErr error
	if c.rows != nil {
		rowsErr = c.rows.Close()
	}
	if err := c.conn.Close(); err != nil {
		return err
	}
	return rowsErr
}

// normalize converts driver byte slices to strings.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
