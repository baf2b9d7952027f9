// Command kvnode starts one leader or follower node of the
// leader/follower key-value cluster.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kvlab/leaderfollower/internal/config"
	"github.com/kvlab/leaderfollower/internal/node"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kvnode",
		Short: "Run one node of the leader/follower key-value cluster",
		RunE:  runServe,
	}
	config.RegisterFlags(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	startup, err := config.Load(cmd)
	if err != nil {
		return err
	}

	ctx, stop := node.WithSignalContext(context.Background())
	defer stop()

	return node.Run(ctx, startup)
}
