// Package hivectx carries the ids that tie log entries and errors to a request,
// a client and a query.
package hivectx

import (
	"context"
)

type contextKey int

const (
	correlationIdKey contextKey = iota
	connIdKey
	queryIdKey
	queryIdCallbackKey
)

// IdCallbackFunc receives the id of every query started under a context.
type IdCallbackFunc func(id string)

// NewContextWithCorrelationId returns ctx carrying a caller chosen correlation id.
// It appears as corrId in log entries and is reported by errors.
func NewContextWithCorrelationId(ctx context.Context, correlationId string) context.Context {
	return context.WithValue(ctx, correlationIdKey, correlationId)
}

func CorrelationIdFromContext(ctx context.Context) string {
	return stringValue(ctx, correlationIdKey)
}

// NewContextWithConnId returns ctx carrying the id of the client making the call.
func NewContextWithConnId(ctx context.Context, connId string) context.Context {
	return context.WithValue(ctx, connIdKey, connId)
}

func ConnIdFromContext(ctx context.Context) string {
	return stringValue(ctx, connIdKey)
}

// NewContextWithQueryId returns ctx carrying the id of a query that is starting.
// A callback registered with NewContextWithQueryIdCallback is invoked with the id.
func NewContextWithQueryId(ctx context.Context, queryId string) context.Context {
	if callback, ok := ctx.Value(queryIdCallbackKey).(IdCallbackFunc); ok && callback != nil {
		callback(queryId)
	}
	return WithQueryId(ctx, queryId)
}

// WithQueryId returns ctx carrying the id of a query that is already running,
// without invoking the query id callback.
func WithQueryId(ctx context.Context, queryId string) context.Context {
	return context.WithValue(ctx, queryIdKey, queryId)
}

func QueryIdFromContext(ctx context.Context) string {
	return stringValue(ctx, queryIdKey)
}

// NewContextWithQueryIdCallback registers callback to learn the id of every query
// started with the returned context, e.g. to cancel it out of band.
func NewContextWithQueryIdCallback(ctx context.Context, callback IdCallbackFunc) context.Context {
	return context.WithValue(ctx, queryIdCallbackKey, callback)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
