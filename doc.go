/*
Package hiveframe runs queries against a HiveServer2 compatible server and returns the results as tables.

# Usage

Most callers want the blocking Client:

	import (
		"context"
		"log"

		"github.com/hiveframe/hiveframe-go"
	)

	func main() {
		client, err := hiveframe.NewClient(hiveframe.WithHost("hive.example.com"))
		if err != nil {
			log.Fatal(err)
		}
		defer client.Close()

		ctx := context.Background()
		if err := client.Execute(ctx, "CREATE TABLE IF NOT EXISTS t (id INT)"); err != nil {
			log.Fatal(err)
		}
	}

The server is addressed either with WithHost (and optionally WithPort, default 10000) or with
WithConfigFile pointing to a hive-site.xml. In the latter case the host is read from the
hive.metastore.uris property; when the property lists several URIs the last one is used.
Giving both or neither is a configuration error reported by NewClient before any network activity.

Supported functional options include:

  - WithHost(<hostname> string): Sets the server hostname
  - WithPort(<port> int): Sets the server port. Default is 10000
  - WithConfigFile(<path> string): Reads the server host from a hive-site.xml
  - WithChunkSize(<rows> int): Sets the page size used when a call passes a chunk size <= 0. Default is 10000
  - WithAuth(<mechanism> string): Sets the authentication mechanism. Default is NONE
  - WithCredentials(<username> string, <password> string): Sets the session user and password
  - WithDatabase(<database> string): Sets the initial database of the session
  - WithSessionConf(<conf> map[string]string): Adds Hive configuration overrides
  - WithTransportMode(<mode> string): "binary" (default) or "http"
  - WithHTTPPath(<path> string): Sets the path used by the http transport. Default is cliservice
  - WithTLSConfig(<config> *tls.Config): Enables TLS
  - WithConnectTimeout(<timeout> time.Duration): Bounds the time spent connecting
  - WithDatabricks(<token> string, <http_path> string): Connects to a Databricks SQL warehouse instead
  - WithMetrics(<registerer> prometheus.Registerer): Registers Prometheus collectors

# Reading results

FetchAll reads a single page of at most chunkSize rows. It does not read further pages, so it
is meant for results known to be small:

	tbl, err := client.FetchAll(ctx, "SELECT * FROM t LIMIT 100", 100)

FetchChunks reads the whole result as a sequence of tables of at most chunkSize rows. Row
indexes continue from one table to the next, so concatenating the tables gives the full
result indexed from zero:

	it, err := client.FetchChunks(ctx, "SELECT * FROM t", 10000)
	if err != nil {
		log.Fatal(err)
	}
	for tbl, err := range it.All(ctx) {
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(tbl)
	}

Leaving the loop early closes the server cursor. An iterator used with Next instead must be
drained until io.EOF or closed with Close.

# Asynchronous use

AsyncClient exposes the same calls as deferred operations of type async.Op. Nothing is sent
to the server until an op is invoked, which lets the caller choose where it runs:

	hive, err := hiveframe.NewAsyncClient(hiveframe.WithHost("hive.example.com"))
	...
	future := async.Start(ctx, async.GoScheduler{}, hive.FetchAll("SELECT 1", 1))
	tbl, err := future.Wait(ctx)

Client wraps an AsyncClient and drives every op on a single worker. Use Wrap to put a blocking
Client in front of an existing AsyncClient; closing that Client leaves the AsyncClient open.

# Errors

Errors returned by this package can be inspected with errors.Is and errors.As against the
values and interfaces of package github.com/hiveframe/hiveframe-go/errors:

  - ConfigurationError: invalid options or cluster configuration, raised before any network activity
  - TransportError: a failed cursor operation; HFTransportError reports which one
  - SystemFault: misuse such as calling a closed client

Cursors are closed on every exit path. A failure while closing after another error is logged
and never replaces the original error.

# Logging

Logging uses zerolog through package github.com/hiveframe/hiveframe-go/logger. The default level
is warn. Entries carry the connection id of the client and the query id of the call, plus the
correlation id set with hivectx.NewContextWithCorrelationId.
*/
package hiveframe
