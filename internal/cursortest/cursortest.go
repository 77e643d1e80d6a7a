// Package cursortest provides cursor.Connection and cursor.Cursor doubles for tests.
package cursortest

import (
	"context"
	"sync"

	"github.com/hiveframe/hiveframe-go/cursor"
)

// TestCursor delegates every call to the matching Fn field. A nil field succeeds with zero values.
type TestCursor struct {
	FnExecute   func(ctx context.Context, query string) error
	FnSchema    func(ctx context.Context) ([]string, error)
	FnFetchPage func(ctx context.Context, maxRows int) ([][]any, error)
	FnClose     func(ctx context.Context) error
}

var _ cursor.Cursor = (*TestCursor)(nil)

func (c *TestCursor) Execute(ctx context.Context, query string) error {
	if c.FnExecute != nil {
		return c.FnExecute(ctx, query)
	}
	return nil
}

func (c *TestCursor) Schema(ctx context.Context) ([]string, error) {
	if c.FnSchema != nil {
		return c.FnSchema(ctx)
	}
	return nil, nil
}

func (c *TestCursor) FetchPage(ctx context.Context, maxRows int) ([][]any, error) {
	if c.FnFetchPage != nil {
		return c.FnFetchPage(ctx, maxRows)
	}
	return nil, nil
}

func (c *TestCursor) Close(ctx context.Context) error {
	if c.FnClose != nil {
		return c.FnClose(ctx)
	}
	return nil
}

// TestConnection delegates every call to the matching Fn field.
type TestConnection struct {
	FnCursor func(ctx context.Context) (cursor.Cursor, error)
	FnClose  func() error
}

var _ cursor.Connection = (*TestConnection)(nil)

func (c *TestConnection) Cursor(ctx context.Context) (cursor.Cursor, error) {
	if c.FnCursor != nil {
		return c.FnCursor(ctx)
	}
	return &TestCursor{}, nil
}

func (c *TestConnection) Close() error {
	if c.FnClose != nil {
		return c.FnClose()
	}
	return nil
}

// Calls counts the cursor operations seen by a Server.
type Calls struct {
	Opens     int
	Executes  int
	Schemas   int
	Fetches   int
	Closes    int
	ConnClose int
	Queries   []string
	PageSizes []int
}

// Server is a scripted query server. Every cursor it opens returns Columns
// as its schema and pages through Rows. Err* fields inject failures; a
// FailFetchAt value n > 0 fails the n-th fetch of a cursor.
type Server struct {
	Columns []string
	Rows    [][]any

	ErrOpen     error
	ErrExecute  error
	ErrSchema   error
	ErrFetch    error
	FailFetchAt int
	ErrClose    error

	// NilPages makes exhausted cursors return nil instead of an empty page.
	NilPages bool

	mu    sync.Mutex
	calls Calls
}

// Calls returns a snapshot of the counters.
func (s *Server) Calls() Calls {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.calls
	c.Queries = append([]string(nil), s.calls.Queries...)
	c.PageSizes = append([]int(nil), s.calls.PageSizes...)
	return c
}

// Connection returns a connection backed by s.
func (s *Server) Connection() *TestConnection {
	return &TestConnection{
		FnCursor: s.open,
		FnClose: func() error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.calls.ConnClose++
			return nil
		},
	}
}

// Provider returns a cursor.Provider that hands out s.Connection().
func (s *Server) Provider() cursor.Provider {
	return func(endpoint cursor.Endpoint) (cursor.Connection, error) {
		return s.Connection(), nil
	}
}

func (s *Server) open(ctx context.Context) (cursor.Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Opens++
	if s.ErrOpen != nil {
		return nil, s.ErrOpen
	}

	var pos, fetches int
	return &TestCursor{
		FnExecute: func(ctx context.Context, query string) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.calls.Executes++
			s.calls.Queries = append(s.calls.Queries, query)
			return s.ErrExecute
		},
		FnSchema: func(ctx context.Context) ([]string, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.calls.Schemas++
			if s.ErrSchema != nil {
				return nil, s.ErrSchema
			}
			return append([]string(nil), s.Columns...), nil
		},
		FnFetchPage: func(ctx context.Context, maxRows int) ([][]any, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.calls.Fetches++
			s.calls.PageSizes = append(s.calls.PageSizes, maxRows)
			fetches++
			if s.ErrFetch != nil && (s.FailFetchAt == 0 || s.FailFetchAt == fetches) {
				return nil, s.ErrFetch
			}

			end := pos + maxRows
			if end > len(s.Rows) {
				end = len(s.Rows)
			}
			if pos == end {
				if s.NilPages {
					return nil, nil
				}
				return [][]any{}, nil
			}
			page := s.Rows[pos:end]
			pos = end
			return page, nil
		},
		FnClose: func(ctx context.Context) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.calls.Closes++
			return s.ErrClose
		},
	}, nil
}
