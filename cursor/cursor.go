// Package cursor defines the capability hiveframe needs from a query server:
// connections that hand out per-query cursors.
//
// All methods may block on the network and may fail with a transport or
// protocol error. Implementations do not retry.
package cursor

import (
	"context"
	"fmt"
)

// Endpoint is the address of a query server.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Cursor is a per-query handle. A cursor runs exactly one query and is closed exactly once.
type Cursor interface {
	// Execute runs query on the server.
	Execute(ctx context.Context, query string) error

	// Schema returns the ordered column names of the result of the executed query.
	Schema(ctx context.Context) ([]string, error)

	// FetchPage returns up to maxRows rows of the result. An empty or nil page
	// means the result is exhausted.
	FetchPage(ctx context.Context, maxRows int) ([][]any, error)

	// Close releases the cursor on the server.
	Close(ctx context.Context) error
}

// Connection opens cursors against one server endpoint. It may be used by
// several queries in sequence, each with its own cursor.
type Connection interface {
	// Cursor opens a new cursor, connecting first if needed.
	Cursor(ctx context.Context) (Cursor, error)

	// Close releases the connection.
	Close() error
}

// Provider builds a Connection for an endpoint.
// Providers must not contact the server; connecting happens on the first Cursor call.
type Provider func(endpoint Endpoint) (Connection, error)
