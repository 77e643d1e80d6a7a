package main

import (
	"context"

	"github.com/hiveframe/hiveframe-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newExecCmd(v *viper.Viper, extra []hiveframe.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <query>",
		Short: "Run a statement and discard its results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), v, extra, func(ctx context.Context, client *hiveframe.Client) error {
				return client.Execute(ctx, args[0])
			})
		},
	}
}

func newQueryCmd(v *viper.Viper, extra []hiveframe.Option) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "query <query>",
		Short: "Run a query and print the first page of its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newResultWriter(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), v, extra, func(ctx context.Context, client *hiveframe.Client) error {
				tbl, err := client.FetchAll(ctx, args[0], v.GetInt("chunk-size"))
				if err != nil {
					return err
				}
				if err := out.Write(tbl); err != nil {
					return err
				}
				return out.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table, csv or arrow")
	return cmd
}

func newChunksCmd(v *viper.Viper, extra []hiveframe.Option) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "chunks <query>",
		Short: "Run a query and stream its whole result page by page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newResultWriter(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), v, extra, func(ctx context.Context, client *hiveframe.Client) error {
				it, err := client.FetchChunks(ctx, args[0], v.GetInt("chunk-size"))
				if err != nil {
					return err
				}
				for tbl, err := range it.All(ctx) {
					if err != nil {
						return err
					}
					if err := out.Write(tbl); err != nil {
						return err
					}
				}
				return out.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table, csv or arrow")
	return cmd
}
