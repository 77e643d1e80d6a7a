package hiveframe

import (
	"context"
	"io"
	"iter"
	"sync"

	"github.com/hiveframe/hiveframe-go/async"
	"github.com/hiveframe/hiveframe-go/cursor"
	"github.com/hiveframe/hiveframe-go/hivectx"
	hferrint "github.com/hiveframe/hiveframe-go/internal/errors"
	"github.com/hiveframe/hiveframe-go/logger"
	"github.com/hiveframe/hiveframe-go/metrics"
	"github.com/hiveframe/hiveframe-go/table"
	"github.com/pkg/errors"
)

// chunkState carries the row addressing of one chunk sequence across pages.
type chunkState struct {
	// row index of the next table's first row
	offset int64
	// zero-row table reused for every empty page
	empty *table.Table
}

// next turns page into a table labelled with columns and indexed from the current offset.
func (s *chunkState) next(page [][]any, columns []string) (*table.Table, error) {
	var t *table.Table
	if len(page) == 0 {
		if s.empty == nil {
			s.empty = table.Empty(columns)
		}
		t = s.empty
	} else {
		var err error
		t, err = table.New(page, columns)
		if err != nil {
			return nil, err
		}
	}

	t = t.WithIndexOffset(s.offset)
	s.offset += int64(t.Len())
	return t, nil
}

// Chunks is a lazy, single-pass sequence of tables read from one cursor.
//
// Each Next op fetches exactly one page. The first empty page ends the
// sequence: its zero-row table is still returned and the cursor is closed.
// Row indexes continue across tables, so concatenating every table yields
// the whole result indexed from zero. Close ends the sequence early.
// The cursor is closed exactly once whichever way the sequence ends.
type Chunks struct {
	client  *AsyncClient
	cursor  cursor.Cursor
	columns []string
	size    int
	queryId string
	log     *logger.HFLogger

	mu         sync.Mutex
	state      chunkState
	done       bool
	terminated bool

	closeOnce sync.Once
	closeErr  error
}

// Columns returns the column labels shared by every table of the sequence.
func (ch *Chunks) Columns() []string {
	return append([]string(nil), ch.columns...)
}

// Offset returns the row index the next table starts at.
func (ch *Chunks) Offset() int64 {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state.offset
}

// HasNext reports whether Next may return another table. It is false once the
// sequence is exhausted, failed or closed.
func (ch *Chunks) HasNext() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return !ch.done
}

// Next returns an op that fetches the next page and returns it as a table.
// After the sequence is exhausted or has failed the op returns io.EOF.
func (ch *Chunks) Next() async.Op[*table.Table] {
	return func(ctx context.Context) (*table.Table, error) {
		ch.mu.Lock()
		defer ch.mu.Unlock()

		ctx = ch.withIds(ctx)
		if ch.terminated {
			return nil, hferrint.NewSystemFault(ctx, hferrint.ErrChunksClosed, nil)
		}
		if ch.done {
			return nil, io.EOF
		}

		m := ch.client.metrics
		defer m.Track(metrics.OpNext)()

		page, err := ch.cursor.FetchPage(ctx, ch.size)
		if err != nil {
			m.Failed(hferrint.OpFetch)
			return nil, ch.fail(ctx, hferrint.NewTransportError(ctx, hferrint.OpFetch, hferrint.ErrFetchPage, err))
		}
		m.PageFetched(len(page))
		ch.log.Debug().Msgf("hiveframe: fetched %d rows at offset %d", len(page), ch.state.offset)

		t, err := ch.state.next(page, ch.columns)
		if err != nil {
			return nil, ch.fail(ctx, hferrint.NewSystemFault(ctx, hferrint.ErrRowWidth, err))
		}

		if t.Len() == 0 {
			ch.done = true
			if err := ch.close(ctx); err != nil {
				return nil, err
			}
		}
		return t, nil
	}
}

// Close ends the sequence and closes its cursor. It is safe to call more than once.
func (ch *Chunks) Close(ctx context.Context) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if !ch.done {
		ch.done = true
		ch.terminated = true
	}
	return ch.close(ch.withIds(ctx))
}

// All returns an iterator over the remaining tables. The cursor is closed when
// the loop ends, including when the caller breaks out early. An error is
// yielded once and ends the iteration.
func (ch *Chunks) All(ctx context.Context) iter.Seq2[*table.Table, error] {
	return func(yield func(*table.Table, error) bool) {
		defer func() {
			if err := ch.Close(context.WithoutCancel(ctx)); err != nil {
				ch.log.Err(err).Msg("hiveframe: failed to close chunk sequence")
			}
		}()

		for {
			t, err := ch.Next()(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(t, err) || err != nil {
				return
			}
		}
	}
}

// fail ends the sequence after err and closes the cursor. A close failure is logged.
func (ch *Chunks) fail(ctx context.Context, err error) error {
	ch.done = true
	ch.log.Err(err).Msg("hiveframe: chunk sequence failed")
	if cerr := ch.close(ctx); cerr != nil {
		ch.log.Err(cerr).Msg("hiveframe: failed to close cursor after error")
	}
	return err
}

// close closes the cursor once. Callers hold ch.mu.
func (ch *Chunks) close(ctx context.Context) error {
	ch.closeOnce.Do(func() {
		ch.closeErr = ch.client.closeCursor(ctx, ch.log, ch.cursor)
		ch.client.untrack(ch)
	})
	return ch.closeErr
}

// withIds stamps ctx with the ids of the query that opened the sequence.
func (ch *Chunks) withIds(ctx context.Context) context.Context {
	ctx = hivectx.NewContextWithConnId(ctx, ch.client.id)
	return hivectx.WithQueryId(ctx, ch.queryId)
}
