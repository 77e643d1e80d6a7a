package main

import (
	"context"
	"strings"

	"github.com/hiveframe/hiveframe-go"
	"github.com/hiveframe/hiveframe-go/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "0.0.0-dev"

const envPrefix = "HIVEFRAME"

// newRootCmd builds the command tree. extra options are appended to the ones derived from flags.
func newRootCmd(extra ...hiveframe.Option) *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "hiveframe",
		Short:         "Run queries against HiveServer2",
		Long:          `hiveframe runs queries against a HiveServer2 compatible server and prints the results as tables, CSV or Arrow IPC streams.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.SetLogLevel(v.GetString("log-level"))
		},
	}

	flags := root.PersistentFlags()
	flags.String("host", "", "server hostname")
	flags.Int("port", 0, "server port (default 10000)")
	flags.String("config", "", "hive-site.xml to read the server host from")
	flags.Int("chunk-size", 10000, "rows per page")
	flags.String("auth", "NONE", "authentication mechanism: NONE, NOSASL, LDAP, CUSTOM or KERBEROS")
	flags.String("user", "", "session user")
	flags.String("password", "", "session password")
	flags.String("database", "", "initial database")
	flags.String("transport", "", "thrift transport: binary or http")
	flags.String("http-path", "", "endpoint path for the http transport")
	flags.String("token", "", "Databricks access token; connects to a Databricks SQL warehouse")
	flags.String("log-level", "warn", "log level: debug, info, warn, error or disabled")
	_ = v.BindPFlags(flags)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(
		newExecCmd(v, extra),
		newQueryCmd(v, extra),
		newChunksCmd(v, extra),
	)
	return root
}

// clientOptions maps flags and HIVEFRAME_* variables to client options.
func clientOptions(v *viper.Viper) []hiveframe.Option {
	opts := []hiveframe.Option{
		hiveframe.WithChunkSize(v.GetInt("chunk-size")),
		hiveframe.WithAuth(v.GetString("auth")),
		hiveframe.WithCredentials(v.GetString("user"), v.GetString("password")),
		hiveframe.WithDatabase(v.GetString("database")),
	}
	if host := v.GetString("host"); host != "" {
		opts = append(opts, hiveframe.WithHost(host))
	}
	if path := v.GetString("config"); path != "" {
		opts = append(opts, hiveframe.WithConfigFile(path))
	}
	if port := v.GetInt("port"); port > 0 {
		opts = append(opts, hiveframe.WithPort(port))
	}
	if mode := v.GetString("transport"); mode != "" {
		opts = append(opts, hiveframe.WithTransportMode(mode))
	}
	if token := v.GetString("token"); token != "" {
		opts = append(opts, hiveframe.WithDatabricks(token, v.GetString("http-path")))
	} else if path := v.GetString("http-path"); path != "" {
		opts = append(opts, hiveframe.WithHTTPPath(path))
	}
	return opts
}

// withClient opens a Client for the duration of fn.
func withClient(ctx context.Context, v *viper.Viper, extra []hiveframe.Option, fn func(ctx context.Context, client *hiveframe.Client) error) (err error) {
	client, err := hiveframe.NewClient(append(clientOptions(v), extra...)...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, client)
}
