package hiveframe

import (
	"context"
	"io"
	"iter"
	"sync"
	"time"

	"github.com/hiveframe/hiveframe-go/async"
	hferrint "github.com/hiveframe/hiveframe-go/internal/errors"
	"github.com/hiveframe/hiveframe-go/logger"
	"github.com/hiveframe/hiveframe-go/table"
	"github.com/pkg/errors"
)

const schedulerReleaseTimeout = 10 * time.Second

// Client is the blocking counterpart of AsyncClient. Every call is driven to
// completion on a single worker owned by the Client, so calls from several
// goroutines are serialized.
type Client struct {
	hive      *AsyncClient
	scheduler *async.SerialScheduler
	owned     bool

	closeOnce sync.Once
	closeErr  error
}

// NewClient creates an AsyncClient from opts and wraps it. The Client owns the
// AsyncClient and closes it on Close.
func NewClient(opts ...Option) (*Client, error) {
	hive, err := NewAsyncClient(opts...)
	if err != nil {
		return nil, err
	}

	c, err := newClient(hive, true)
	if err != nil {
		_ = hive.Close()
		return nil, err
	}
	return c, nil
}

// Wrap returns a blocking Client over an existing AsyncClient. Closing the
// Client does not close hive.
func Wrap(hive *AsyncClient) (*Client, error) {
	if hive == nil {
		return nil, hferrint.NewSystemFault(context.Background(), hferrint.ErrWrapNil, nil)
	}
	return newClient(hive, false)
}

func newClient(hive *AsyncClient, owned bool) (*Client, error) {
	scheduler, err := async.NewSerialScheduler()
	if err != nil {
		return nil, hferrint.NewSystemFault(context.Background(), hferrint.ErrStartScheduler, err)
	}
	return &Client{hive: hive, scheduler: scheduler, owned: owned}, nil
}

// Async returns the wrapped AsyncClient.
func (c *Client) Async() *AsyncClient {
	return c.hive
}

// Execute runs query and discards its results.
func (c *Client) Execute(ctx context.Context, query string) error {
	_, err := await(ctx, c, c.hive.Execute(query))
	return err
}

// FetchAll runs query and returns at most chunkSize rows from the first page.
func (c *Client) FetchAll(ctx context.Context, query string, chunkSize int) (*table.Table, error) {
	return await(ctx, c, c.hive.FetchAll(query, chunkSize))
}

// FetchChunks runs query and returns an iterator over its result in pages of
// chunkSize rows. The caller must drain or Close the iterator.
// If ctx ends before the iterator is ready, the sequence opened in the
// background is closed as soon as it arrives.
func (c *Client) FetchChunks(ctx context.Context, query string, chunkSize int) (*ChunkIterator, error) {
	f, err := start(ctx, c, async.Then(c.hive.FetchChunks(query, chunkSize), func(chunks *Chunks) *ChunkIterator {
		return &ChunkIterator{client: c, chunks: chunks}
	}))
	if err != nil {
		return nil, err
	}

	it, err := f.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			go closeAbandoned(f)
		}
		return nil, err
	}
	return it, nil
}

// closeAbandoned waits for an iterator nobody will receive and closes it.
func closeAbandoned(f *async.Future[*ChunkIterator]) {
	ctx := context.Background()
	it, err := f.Wait(ctx)
	if err != nil {
		return
	}
	if err := it.Close(ctx); err != nil {
		it.chunks.log.Err(err).Msg("hiveframe: failed to close abandoned chunk iterator")
		return
	}
	it.chunks.log.Debug().Msg("hiveframe: closed chunk iterator after caller gave up")
}

// Close stops the worker and, if the Client created its AsyncClient, closes it.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if err := c.scheduler.Release(schedulerReleaseTimeout); err != nil {
			logger.Warn().Err(err).Msg("hiveframe: scheduler did not stop in time")
		}
		if c.owned {
			c.closeErr = c.hive.Close()
		}
	})
	return c.closeErr
}

func start[T any](ctx context.Context, c *Client, op async.Op[T]) (*async.Future[T], error) {
	if c.scheduler.IsReleased() {
		return nil, hferrint.NewSystemFault(ctx, hferrint.ErrSchedulerClosed, nil)
	}
	return async.Start(ctx, c.scheduler, op), nil
}

func await[T any](ctx context.Context, c *Client, op async.Op[T]) (T, error) {
	f, err := start(ctx, c, op)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.Wait(ctx)
}

// ChunkIterator reads a Chunks sequence through the owning Client's worker.
// It never returns a zero-row table.
type ChunkIterator struct {
	client *Client
	chunks *Chunks
}

// Columns returns the column labels of the result.
func (it *ChunkIterator) Columns() []string {
	return it.chunks.Columns()
}

// HasNext reports whether the underlying sequence is still open. A true result
// may still be followed by io.EOF when only the terminating empty page remains.
func (it *ChunkIterator) HasNext() bool {
	return it.chunks.HasNext()
}

// Next returns the next non-empty table, or io.EOF at the end of the result.
func (it *ChunkIterator) Next(ctx context.Context) (*table.Table, error) {
	for {
		t, err := await(ctx, it.client, it.chunks.Next())
		if err != nil {
			return nil, err
		}
		if t.Len() > 0 {
			return t, nil
		}
	}
}

// Close ends the iteration early and closes the cursor. It is safe to call more than once.
func (it *ChunkIterator) Close(ctx context.Context) error {
	if it.client.scheduler.IsReleased() {
		return it.chunks.Close(ctx)
	}
	_, err := await(ctx, it.client, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, it.chunks.Close(ctx)
	})
	return err
}

// All returns an iterator over the remaining non-empty tables. The cursor is
// closed when the loop ends, including when the caller breaks out early.
func (it *ChunkIterator) All(ctx context.Context) iter.Seq2[*table.Table, error] {
	return func(yield func(*table.Table, error) bool) {
		defer func() {
			if err := it.Close(context.WithoutCancel(ctx)); err != nil {
				it.chunks.log.Err(err).Msg("hiveframe: failed to close chunk iterator")
			}
		}()

		for {
			t, err := it.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(t, err) || err != nil {
				return
			}
		}
	}
}
