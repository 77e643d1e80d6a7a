package hiveframe

import (
	"context"
	"io"
	"testing"

	hferr "github.com/hiveframe/hiveframe-go/errors"
	"github.com/hiveframe/hiveframe-go/internal/cursortest"
	"github.com/hiveframe/hiveframe-go/table"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, chunks *Chunks) []*table.Table {
	t.Helper()
	var tables []*table.Table
	for chunks.HasNext() {
		tbl, err := chunks.Next()(context.Background())
		require.NoError(t, err)
		tables = append(tables, tbl)
	}
	return tables
}

func TestChunks_IndexRanges(t *testing.T) {
	srv := &cursortest.Server{Columns: testColumns, Rows: testRows(5)}
	c := newTestAsyncClient(t, srv)
	ctx := context.Background()

	chunks, err := c.FetchChunks("SELECT * FROM t", 2)(ctx)
	require.NoError(t, err)
	assert.Equal(t, testColumns, chunks.Columns())

	tables := drain(t, chunks)
	require.Len(t, tables, 4)

	want := [][]int64{{0, 1}, {2, 3}, {4}, {}}
	for i, tbl := range tables {
		assert.Equal(t, want[i], tbl.Index(), "table %d", i)
		assert.Equal(t, testColumns, tbl.Columns(), "table %d", i)
	}
	assert.Equal(t, int64(5), chunks.Offset())

	calls := srv.Calls()
	assert.Equal(t, 1, calls.Opens)
	assert.Equal(t, 1, calls.Schemas)
	assert.Equal(t, len(tables), calls.Fetches)
	assert.Equal(t, 1, calls.Closes)
	assert.Equal(t, []int{2, 2, 2, 2}, calls.PageSizes)

	_, err = chunks.Next()(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 4, srv.Calls().Fetches)

	require.NoError(t, chunks.Close(ctx))
	assert.Equal(t, 1, srv.Calls().Closes)
}

func TestChunks_ConcatReproducesResult(t *testing.T) {
	rows := testRows(23)
	for _, size := range []int{1, 4, 23, 50} {
		srv := &cursortest.Server{Columns: testColumns, Rows: rows}
		c := newTestAsyncClient(t, srv)

		chunks, err := c.FetchChunks("SELECT * FROM t", size)(context.Background())
		require.NoError(t, err)

		got, err := table.Concat(drain(t, chunks)...)
		require.NoError(t, err)

		want, err := table.New(rows, testColumns)
		require.NoError(t, err)
		assert.Equal(t, want.Rows(), got.Rows(), "chunk size %d", size)
		assert.Equal(t, want.Index(), got.Index(), "chunk size %d", size)
	}
}

func TestChunks_EmptyResult(t *testing.T) {
	srv := &cursortest.Server{Columns: testColumns, NilPages: true}
	c := newTestAsyncClient(t, srv)

	chunks, err := c.FetchChunks("SELECT * FROM t WHERE false", 10)(context.Background())
	require.NoError(t, err)

	tables := drain(t, chunks)
	require.Len(t, tables, 1)
	assert.Zero(t, tables[0].Len())
	assert.Equal(t, testColumns, tables[0].Columns())
	assert.Equal(t, 1, srv.Calls().Closes)
}

func TestChunkState(t *testing.T) {
	var s chunkState

	first, err := s.next([][]any{{1, "a"}, {2, "b"}}, testColumns)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, first.Index())

	empty, err := s.next(nil, testColumns)
	require.NoError(t, err)
	assert.Zero(t, empty.Len())

	again, err := s.next([][]any{}, testColumns)
	require.NoError(t, err)
	assert.Same(t, empty, again)
	assert.Same(t, s.empty, again)
	assert.Equal(t, int64(2), s.offset)

	_, err = s.next([][]any{{1}}, testColumns)
	assert.Error(t, err)
}

func TestChunks_Abandon(t *testing.T) {
	t.Run("close", func(t *testing.T) {
		srv := &cursortest.Server{Columns: testColumns, Rows: testRows(5)}
		c := newTestAsyncClient(t, srv)
		ctx := context.Background()

		chunks, err := c.FetchChunks("SELECT * FROM t", 2)(ctx)
		require.NoError(t, err)
		_, err = chunks.Next()(ctx)
		require.NoError(t, err)

		require.NoError(t, chunks.Close(ctx))
		require.NoError(t, chunks.Close(ctx))
		assert.False(t, chunks.HasNext())
		assert.Equal(t, 1, srv.Calls().Closes)

		_, err = chunks.Next()(ctx)
		assert.ErrorIs(t, err, hferr.SystemFault)
		assert.Equal(t, 1, srv.Calls().Fetches)
	})

	t.Run("break out of All", func(t *testing.T) {
		srv := &cursortest.Server{Columns: testColumns, Rows: testRows(5)}
		c := newTestAsyncClient(t, srv)
		ctx := context.Background()

		chunks, err := c.FetchChunks("SELECT * FROM t", 2)(ctx)
		require.NoError(t, err)

		var seen int
		for tbl, err := range chunks.All(ctx) {
			require.NoError(t, err)
			seen += tbl.Len()
			break
		}
		assert.Equal(t, 2, seen)
		assert.Equal(t, 1, srv.Calls().Closes)
		assert.False(t, chunks.HasNext())
	})

	t.Run("cancelled All still closes", func(t *testing.T) {
		srv := &cursortest.Server{Columns: testColumns, Rows: testRows(5)}
		c := newTestAsyncClient(t, srv)

		chunks, err := c.FetchChunks("SELECT * FROM t", 2)(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		for range chunks.All(ctx) {
			cancel()
			break
		}
		assert.Equal(t, 1, srv.Calls().Closes)
	})
}

func TestChunks_FetchError(t *testing.T) {
	cause := errors.New("read timeout")
	srv := &cursortest.Server{
		Columns:     testColumns,
		Rows:        testRows(5),
		ErrFetch:    cause,
		FailFetchAt: 2,
		ErrClose:    errors.New("close failed"),
	}
	c := newTestAsyncClient(t, srv)
	ctx := context.Background()

	chunks, err := c.FetchChunks("SELECT * FROM t", 2)(ctx)
	require.NoError(t, err)

	first, err := chunks.Next()(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Len())

	_, err = chunks.Next()(ctx)
	assert.ErrorIs(t, err, cause)
	var te hferr.HFTransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "fetch", te.Operation())
	assert.False(t, chunks.HasNext())
	assert.Equal(t, 1, srv.Calls().Closes)

	_, err = chunks.Next()(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, srv.Calls().Fetches)
}

func TestChunks_AllYieldsError(t *testing.T) {
	cause := errors.New("session expired")
	srv := &cursortest.Server{Columns: testColumns, Rows: testRows(5), ErrFetch: cause, FailFetchAt: 3}
	c := newTestAsyncClient(t, srv)
	ctx := context.Background()

	chunks, err := c.FetchChunks("SELECT * FROM t", 2)(ctx)
	require.NoError(t, err)

	var rows int
	var errs []error
	for tbl, err := range chunks.All(ctx) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rows += tbl.Len()
	}
	assert.Equal(t, 4, rows)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], cause)
	assert.Equal(t, 1, srv.Calls().Closes)
}

func TestChunks_OpenFailures(t *testing.T) {
	t.Run("execute", func(t *testing.T) {
		srv := &cursortest.Server{ErrExecute: errors.New("table not found")}
		c := newTestAsyncClient(t, srv)

		_, err := c.FetchChunks("SELECT * FROM missing", 2)(context.Background())
		assert.ErrorIs(t, err, hferr.TransportError)
		calls := srv.Calls()
		assert.Equal(t, 1, calls.Closes)
		assert.Zero(t, calls.Schemas)
	})

	t.Run("schema", func(t *testing.T) {
		srv := &cursortest.Server{ErrSchema: errors.New("no result set")}
		c := newTestAsyncClient(t, srv)

		_, err := c.FetchChunks("SELECT * FROM t", 2)(context.Background())
		assert.ErrorIs(t, err, hferr.TransportError)
		calls := srv.Calls()
		assert.Equal(t, 1, calls.Closes)
		assert.Zero(t, calls.Fetches)
	})
}

func TestChunks_CloseErrorOnExhaustion(t *testing.T) {
	srv := &cursortest.Server{Columns: testColumns, Rows: testRows(1), ErrClose: errors.New("close failed")}
	c := newTestAsyncClient(t, srv)
	ctx := context.Background()

	chunks, err := c.FetchChunks("SELECT * FROM t", 2)(ctx)
	require.NoError(t, err)

	_, err = chunks.Next()(ctx)
	require.NoError(t, err)

	_, err = chunks.Next()(ctx)
	var te hferr.HFTransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "close", te.Operation())

	_, err = chunks.Next()(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, srv.Calls().Closes)
}
